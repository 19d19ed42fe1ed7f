package service

import (
	"context"
	"crypto/sha256"
	"database/sql/driver"
	"encoding/hex"
	"errors"
	"fmt"
	"mime/multipart"
	"strconv"
	"strings"
	"time"

	"github.com/avast/retry-go"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/incident-api/internal/dto"
	"github.com/noah-isme/incident-api/internal/models"
	"github.com/noah-isme/incident-api/internal/observability"
	"github.com/noah-isme/incident-api/internal/repository"
)

var (
	// ErrReportNotFound indicates no report exists with the requested id.
	ErrReportNotFound = errors.New("report not found")
	// ErrDuplicateSubmission indicates an identical report from the same client is still being stored.
	ErrDuplicateSubmission = errors.New("duplicate report submission")
)

const pendingClaim = "pending"

const defaultCreateAttempts = 3

// ReportService exposes the anonymous reporting workflow.
type ReportService interface {
	Submit(ctx context.Context, req dto.ReportSubmitRequest, file *multipart.FileHeader) (dto.ReportSubmitResponse, error)
	Get(ctx context.Context, id string) (dto.ReportResponse, error)
}

// ReportServiceDeps bundles the collaborators of the reporting workflow.
type ReportServiceDeps struct {
	Repo        repository.ReportRepository
	Attachments AttachmentService
	Activity    ActivityRecorder
	Events      EventPublisher
	Cache       *redis.Client
	Validator   *validator.Validate
	Logger      zerolog.Logger
	DedupeTTL   time.Duration
}

type reportService struct {
	repo           repository.ReportRepository
	attachments    AttachmentService
	activity       ActivityRecorder
	events         EventPublisher
	cache          *redis.Client
	validator      *validator.Validate
	logger         zerolog.Logger
	dedupeTTL      time.Duration
	createAttempts uint
	retryDelay     time.Duration
	newID          func() (string, error)
	tracer         trace.Tracer
}

// NewReportService constructs the reporting service. Cache and Events are optional.
func NewReportService(deps ReportServiceDeps) ReportService {
	events := deps.Events
	if events == nil {
		events = NewNoopEventPublisher()
	}
	ttl := deps.DedupeTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &reportService{
		repo:           deps.Repo,
		attachments:    deps.Attachments,
		activity:       deps.Activity,
		events:         events,
		cache:          deps.Cache,
		validator:      deps.Validator,
		logger:         deps.Logger.With().Str("component", "report_service").Logger(),
		dedupeTTL:      ttl,
		createAttempts: defaultCreateAttempts,
		retryDelay:     10 * time.Millisecond,
		newID:          newReportID,
		tracer:         otel.Tracer("github.com/noah-isme/incident-api/internal/service/report"),
	}
}

func (s *reportService) Submit(ctx context.Context, req dto.ReportSubmitRequest, file *multipart.FileHeader) (dto.ReportSubmitResponse, error) {
	ctx, span := s.tracer.Start(ctx, "report.submit")
	defer span.End()

	req.Description = strings.TrimSpace(req.Description)
	req.Address = strings.TrimSpace(req.Address)
	if err := s.validator.Struct(req); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation failed")
		observability.ReportSubmissions().WithLabelValues("invalid").Inc()
		return dto.ReportSubmitResponse{}, err
	}
	span.SetAttributes(attribute.Int("report.incident_type", req.IncidentType))

	attachment, err := s.attachments.Prepare(file)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "attachment rejected")
		observability.ReportSubmissions().WithLabelValues("invalid").Inc()
		return dto.ReportSubmitResponse{}, err
	}

	dedupeKey, existingID, err := s.claimSubmission(ctx, req, attachment)
	if err != nil {
		span.SetStatus(codes.Error, "duplicate submission")
		observability.ReportSubmissions().WithLabelValues("duplicate").Inc()
		return dto.ReportSubmitResponse{}, err
	}
	if existingID != "" {
		observability.ReportSubmissions().WithLabelValues("duplicate").Inc()
		s.logger.Info().Str("report_id", existingID).Msg("duplicate submission answered with existing report")
		span.SetStatus(codes.Ok, "replayed")
		return dto.ReportSubmitResponse{ReportID: existingID}, nil
	}

	report := models.Report{
		IncidentType:    models.IncidentType(req.IncidentType),
		Description:     req.Description,
		EmotionalImpact: req.EmotionalImpact,
		Status:          models.ReportStatusReported,
	}
	if req.Address != "" {
		address := req.Address
		report.Location = &address
	}

	if err := s.create(ctx, &report, attachment); err != nil {
		s.releaseClaim(ctx, dedupeKey)
		span.RecordError(err)
		span.SetStatus(codes.Error, "persistence failed")
		observability.ReportSubmissions().WithLabelValues("failed").Inc()
		return dto.ReportSubmitResponse{}, err
	}

	span.SetAttributes(attribute.String("report.id", report.ID))
	observability.ReportSubmissions().WithLabelValues("accepted").Inc()
	s.completeClaim(ctx, dedupeKey, report.ID)

	if _, err := s.activity.Record(ctx, ActivityEntry{
		ReportID: report.ID,
		Action:   models.ActivityReportSubmitted,
		Metadata: map[string]interface{}{
			"incident_type":  req.IncidentType,
			"has_attachment": attachment != nil,
		},
	}); err != nil {
		s.logger.Warn().Err(err).Str("report_id", report.ID).Msg("failed to record submission activity")
	}

	s.publish(ctx, ReportEvent{
		Type:         EventReportSubmitted,
		ReportID:     report.ID,
		IncidentType: report.IncidentType,
		Status:       report.Status,
	})

	s.logger.Info().Str("report_id", report.ID).Int("incident_type", req.IncidentType).Msg("incident reported")
	span.SetStatus(codes.Ok, "reported")

	return dto.ReportSubmitResponse{ReportID: report.ID}, nil
}

// create assigns a fresh id, stores the attachment under it and inserts the row.
// An id collision discards the stored object and retries with a new id.
func (s *reportService) create(ctx context.Context, report *models.Report, attachment *Attachment) error {
	return retry.Do(
		func() error {
			id, err := s.newID()
			if err != nil {
				return err
			}
			report.ID = id
			report.File = nil

			if attachment != nil {
				url, err := s.attachments.Store(ctx, id, attachment)
				if err != nil {
					return err
				}
				report.File = &url
			}

			if err := s.repo.Create(ctx, report); err != nil {
				if attachment != nil {
					s.discardAttachment(ctx, id)
				}
				return err
			}
			return nil
		},
		retry.Attempts(s.createAttempts),
		retry.Delay(s.retryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return ctx.Err() == nil && isRetryableCreateError(err)
		}),
		retry.OnRetry(func(n uint, err error) {
			s.logger.Warn().Err(err).Uint("attempt", n+1).Msg("report insert failed, retrying")
		}),
	)
}

func (s *reportService) Get(ctx context.Context, id string) (dto.ReportResponse, error) {
	ctx, span := s.tracer.Start(ctx, "report.get")
	defer span.End()

	id = strings.TrimSpace(id)
	if id == "" {
		return dto.ReportResponse{}, ErrReportNotFound
	}
	span.SetAttributes(attribute.String("report.id", id))

	report, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ReportResponse{}, ErrReportNotFound
		}
		span.RecordError(err)
		return dto.ReportResponse{}, err
	}

	return dto.NewReportResponse(report), nil
}

// claimSubmission reserves the submission checksum in Redis. The checksum covers the
// client fingerprint, so identical text from different reporters is stored twice. A
// repeat from the same client returns the id of the report it already created, or
// ErrDuplicateSubmission while that report is still being stored. A Redis outage
// never blocks reporting, so cache errors are logged and ignored.
func (s *reportService) claimSubmission(ctx context.Context, req dto.ReportSubmitRequest, attachment *Attachment) (string, string, error) {
	if s.cache == nil {
		return "", "", nil
	}

	parts := []string{
		req.Fingerprint,
		strconv.Itoa(req.IncidentType),
		req.Description,
		strconv.Itoa(req.EmotionalImpact),
		req.Address,
	}
	if attachment != nil {
		digest := sha256.Sum256(attachment.Data)
		parts = append(parts, hex.EncodeToString(digest[:]))
	}

	key := fmt.Sprintf("report:dedupe:%s", computeChecksum(parts...))
	ok, err := s.cache.SetNX(ctx, key, pendingClaim, s.dedupeTTL).Result()
	if err != nil {
		s.logger.Warn().Err(err).Msg("dedupe check unavailable")
		return "", "", nil
	}
	if ok {
		return key, "", nil
	}

	existing, err := s.cache.Get(ctx, key).Result()
	switch {
	case errors.Is(err, redis.Nil):
		// The claim expired between SETNX and GET; treat it as a fresh submission.
		return "", "", nil
	case err != nil:
		s.logger.Warn().Err(err).Msg("dedupe lookup unavailable")
		return "", "", nil
	case existing == pendingClaim:
		return "", "", ErrDuplicateSubmission
	default:
		return "", existing, nil
	}
}

// completeClaim records the created report id under the claim for replays.
func (s *reportService) completeClaim(ctx context.Context, key, reportID string) {
	if s.cache == nil || key == "" {
		return
	}
	if err := s.cache.Set(ctx, key, reportID, s.dedupeTTL).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to record dedupe claim")
	}
}

func (s *reportService) releaseClaim(ctx context.Context, key string) {
	if s.cache == nil || key == "" {
		return
	}
	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if err := s.cache.Del(cleanupCtx, key).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to release dedupe claim")
	}
}

func (s *reportService) discardAttachment(ctx context.Context, key string) {
	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.attachments.Remove(cleanupCtx, key); err != nil {
		s.logger.Error().Err(err).Str("key", key).Msg("failed to discard orphaned attachment")
	}
}

func (s *reportService) publish(ctx context.Context, event ReportEvent) {
	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.Warn().Err(err).Str("report_id", event.ReportID).Str("event", event.Type).Msg("failed to publish report event")
	}
}

func isRetryableCreateError(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey) || errors.Is(err, driver.ErrBadConn)
}

func computeChecksum(parts ...string) string {
	hasher := sha256.New()
	for _, part := range parts {
		hasher.Write([]byte(strings.TrimSpace(strings.ToLower(part))))
		hasher.Write([]byte("|"))
	}
	return hex.EncodeToString(hasher.Sum(nil))
}
