package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/go-playground/validator/v10"
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

// ErrUnauthenticated indicates an admin operation was attempted without an identity.
var ErrUnauthenticated = errors.New("authentication required")

const (
	defaultReportPageSize = 10
	maxReportPageSize     = 100
	maxReportPage         = 100000
)

// AdminReportService exposes the gated triage operations.
type AdminReportService interface {
	List(ctx context.Context, req dto.ReportListRequest) (dto.ReportListResponse, error)
	UpdateStatus(ctx context.Context, actor Identity, id string, req dto.ReportStatusUpdateRequest) error
	AppendMessage(ctx context.Context, actor Identity, id string, req dto.ReportMessageRequest) (dto.MessageResponse, error)
	Delete(ctx context.Context, actor Identity, id string) error
	Attachment(ctx context.Context, id string) (Attachment, error)
	Activity(ctx context.Context, id string) ([]dto.ReportActivityResponse, error)
}

// AdminReportServiceDeps bundles the collaborators of the triage workflow.
type AdminReportServiceDeps struct {
	Repo        repository.ReportRepository
	Attachments AttachmentService
	Activity    ActivityService
	Events      EventPublisher
	Validator   *validator.Validate
	Logger      zerolog.Logger
}

type adminReportService struct {
	repo        repository.ReportRepository
	attachments AttachmentService
	activity    ActivityService
	events      EventPublisher
	validator   *validator.Validate
	logger      zerolog.Logger
	tracer      trace.Tracer
}

// NewAdminReportService constructs the admin report service.
func NewAdminReportService(deps AdminReportServiceDeps) AdminReportService {
	events := deps.Events
	if events == nil {
		events = NewNoopEventPublisher()
	}
	return &adminReportService{
		repo:        deps.Repo,
		attachments: deps.Attachments,
		activity:    deps.Activity,
		events:      events,
		validator:   deps.Validator,
		logger:      deps.Logger.With().Str("component", "admin_report_service").Logger(),
		tracer:      otel.Tracer("github.com/noah-isme/incident-api/internal/service/admin_report"),
	}
}

func (s *adminReportService) List(ctx context.Context, req dto.ReportListRequest) (dto.ReportListResponse, error) {
	ctx, span := s.tracer.Start(ctx, "admin.report.list")
	defer span.End()

	filter, err := buildReportFilter(req)
	if err != nil {
		span.SetStatus(codes.Error, "invalid query")
		return dto.ReportListResponse{}, err
	}

	reports, total, err := s.repo.List(ctx, filter)
	if err != nil {
		if errors.Is(err, repository.ErrUnsupportedSort) {
			return dto.ReportListResponse{}, fmt.Errorf("%w: %v", ErrValidation, err)
		}
		span.RecordError(err)
		return dto.ReportListResponse{}, err
	}

	span.SetAttributes(attribute.Int64("report.total", total))

	return dto.ReportListResponse{
		Reports: dto.NewReportSummaryResponseSlice(reports),
		Pagination: dto.PaginationMeta{
			Total:      total,
			Page:       filter.Page,
			Limit:      filter.Limit,
			TotalPages: calculateTotalPages(total, filter.Limit),
		},
	}, nil
}

func (s *adminReportService) UpdateStatus(ctx context.Context, actor Identity, id string, req dto.ReportStatusUpdateRequest) error {
	ctx, span := s.tracer.Start(ctx, "admin.report.update_status")
	defer span.End()

	if actor.ID == 0 {
		return ErrUnauthenticated
	}
	status, ok := models.ParseReportStatus(req.Status)
	if !ok {
		return fmt.Errorf("%w: status must be one of REPORTED, INVESTIGATING, CLOSED", ErrValidation)
	}

	report, err := s.lookup(ctx, id)
	if err != nil {
		return err
	}
	if !report.Status.CanTransitionTo(status) {
		return fmt.Errorf("%w: cannot move report from %s to %s", ErrValidation, report.Status, status)
	}

	span.SetAttributes(
		attribute.String("report.id", report.ID),
		attribute.String("report.status", string(status)),
	)

	if err := s.repo.UpdateStatus(ctx, report.ID, status); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrReportNotFound
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "update failed")
		return err
	}

	observability.StatusChanges().WithLabelValues(string(report.Status), string(status)).Inc()
	s.record(ctx, ActivityEntry{
		ReportID: report.ID,
		ActorID:  actor.ID,
		Action:   models.ActivityStatusChanged,
		Metadata: map[string]interface{}{"from": string(report.Status), "to": string(status)},
	})
	s.publish(ctx, ReportEvent{
		Type:         EventStatusChanged,
		ReportID:     report.ID,
		IncidentType: report.IncidentType,
		Status:       status,
		ActorID:      actor.ID,
	})

	s.logger.Info().
		Str("report_id", report.ID).
		Uint("actor_id", actor.ID).
		Str("from", string(report.Status)).
		Str("to", string(status)).
		Msg("report status updated")
	return nil
}

func (s *adminReportService) AppendMessage(ctx context.Context, actor Identity, id string, req dto.ReportMessageRequest) (dto.MessageResponse, error) {
	ctx, span := s.tracer.Start(ctx, "admin.report.append_message")
	defer span.End()

	if actor.ID == 0 {
		return dto.MessageResponse{}, ErrUnauthenticated
	}
	req.Message = strings.TrimSpace(req.Message)
	if err := s.validator.Struct(req); err != nil {
		return dto.MessageResponse{}, err
	}

	id = strings.TrimSpace(id)
	exists, err := s.repo.Exists(ctx, id)
	if err != nil {
		span.RecordError(err)
		return dto.MessageResponse{}, err
	}
	if !exists {
		return dto.MessageResponse{}, ErrReportNotFound
	}

	message := models.Message{
		ReportID: id,
		UserID:   actor.ID,
		Message:  req.Message,
	}
	if err := s.repo.AppendMessage(ctx, &message); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "append failed")
		return dto.MessageResponse{}, err
	}

	s.record(ctx, ActivityEntry{
		ReportID: id,
		ActorID:  actor.ID,
		Action:   models.ActivityMessageAppended,
		Metadata: map[string]interface{}{"message_id": message.ID},
	})
	s.publish(ctx, ReportEvent{Type: EventMessageAppended, ReportID: id, ActorID: actor.ID})

	s.logger.Info().Str("report_id", id).Uint("actor_id", actor.ID).Uint("message_id", message.ID).Msg("report message appended")
	return dto.NewMessageResponse(message), nil
}

func (s *adminReportService) Delete(ctx context.Context, actor Identity, id string) error {
	ctx, span := s.tracer.Start(ctx, "admin.report.delete")
	defer span.End()

	if actor.ID == 0 {
		return ErrUnauthenticated
	}

	report, err := s.lookup(ctx, id)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, report.ID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrReportNotFound
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "delete failed")
		return err
	}

	if report.File != nil {
		if err := s.attachments.Remove(ctx, report.ID); err != nil {
			s.logger.Error().Err(err).Str("report_id", report.ID).Msg("failed to remove attachment of deleted report")
		}
	}

	s.record(ctx, ActivityEntry{
		ReportID: report.ID,
		ActorID:  actor.ID,
		Action:   models.ActivityReportDeleted,
		Metadata: map[string]interface{}{
			"status":        string(report.Status),
			"message_count": len(report.Messages),
		},
	})
	s.publish(ctx, ReportEvent{Type: EventReportDeleted, ReportID: report.ID, ActorID: actor.ID})

	s.logger.Info().Str("report_id", report.ID).Uint("actor_id", actor.ID).Msg("report deleted")
	return nil
}

func (s *adminReportService) Attachment(ctx context.Context, id string) (Attachment, error) {
	ctx, span := s.tracer.Start(ctx, "admin.report.attachment")
	defer span.End()

	report, err := s.lookup(ctx, id)
	if err != nil {
		return Attachment{}, err
	}
	if report.File == nil {
		return Attachment{}, ErrAttachmentNotFound
	}

	attachment, err := s.attachments.Fetch(ctx, report.ID)
	if err != nil {
		if !errors.Is(err, ErrAttachmentNotFound) {
			span.RecordError(err)
		}
		return Attachment{}, err
	}
	return attachment, nil
}

// Activity returns the audit trail, which survives deletion of the report itself.
func (s *adminReportService) Activity(ctx context.Context, id string) ([]dto.ReportActivityResponse, error) {
	entries, err := s.activity.List(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, ErrReportNotFound
	}
	return entries, nil
}

func (s *adminReportService) lookup(ctx context.Context, id string) (models.Report, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return models.Report{}, ErrReportNotFound
	}

	report, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Report{}, ErrReportNotFound
		}
		return models.Report{}, err
	}
	return report, nil
}

func (s *adminReportService) record(ctx context.Context, entry ActivityEntry) {
	if s.activity == nil {
		return
	}
	if _, err := s.activity.Record(ctx, entry); err != nil {
		s.logger.Warn().Err(err).Str("report_id", entry.ReportID).Str("action", entry.Action).Msg("failed to record report activity")
	}
}

func (s *adminReportService) publish(ctx context.Context, event ReportEvent) {
	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.Warn().Err(err).Str("report_id", event.ReportID).Str("event", event.Type).Msg("failed to publish report event")
	}
}

func buildReportFilter(req dto.ReportListRequest) (repository.ReportFilter, error) {
	filter := repository.ReportFilter{
		Page:  normalizePage(req.Page),
		Limit: clampPageSize(req.Limit),
	}

	sortBy := strings.ToLower(strings.TrimSpace(req.SortBy))
	switch sortBy {
	case "":
		filter.SortBy = repository.ReportSortCreatedAt
	case repository.ReportSortCreatedAt, repository.ReportSortEmotionalImpact:
		filter.SortBy = sortBy
	default:
		return repository.ReportFilter{}, fmt.Errorf("%w: sort_by must be created_at or emotional_impact", ErrValidation)
	}

	switch strings.ToLower(strings.TrimSpace(req.SortOrder)) {
	case "", "asc":
	case "desc":
		filter.Descending = true
	default:
		return repository.ReportFilter{}, fmt.Errorf("%w: sort_order must be asc or desc", ErrValidation)
	}

	if req.IncidentType != nil {
		incidentType := models.IncidentType(*req.IncidentType)
		if !incidentType.Valid() {
			return repository.ReportFilter{}, fmt.Errorf("%w: incident_type must be between 1 and 5", ErrValidation)
		}
		filter.IncidentType = &incidentType
	}

	return filter, nil
}

func normalizePage(page int) int {
	if page <= 0 {
		return 1
	}
	if page > maxReportPage {
		return maxReportPage
	}
	return page
}

func clampPageSize(size int) int {
	if size <= 0 {
		return defaultReportPageSize
	}
	if size > maxReportPageSize {
		return maxReportPageSize
	}
	return size
}

func calculateTotalPages(total int64, limit int) int {
	if total == 0 || limit <= 0 {
		return 0
	}
	return int(math.Ceil(float64(total) / float64(limit)))
}
