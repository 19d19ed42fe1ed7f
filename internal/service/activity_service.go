package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"gorm.io/datatypes"

	"github.com/noah-isme/incident-api/internal/dto"
	"github.com/noah-isme/incident-api/internal/models"
	"github.com/noah-isme/incident-api/internal/repository"
)

// ActivityEntry captures the details required to persist an audit entry.
type ActivityEntry struct {
	ReportID string
	ActorID  uint
	Action   string
	Metadata map[string]interface{}
}

// ActivityRecorder defines behaviour for recording report activity.
type ActivityRecorder interface {
	Record(ctx context.Context, entry ActivityEntry) (dto.ReportActivityResponse, error)
}

// ActivityService exposes methods to query and persist the report audit trail.
type ActivityService interface {
	ActivityRecorder
	List(ctx context.Context, reportID string) ([]dto.ReportActivityResponse, error)
}

type activityService struct {
	repo   repository.ActivityLogRepository
	logger zerolog.Logger
}

// NewActivityService constructs the activity log service.
func NewActivityService(repo repository.ActivityLogRepository, logger zerolog.Logger) ActivityService {
	return &activityService{
		repo:   repo,
		logger: logger.With().Str("component", "activity_service").Logger(),
	}
}

func (s *activityService) Record(ctx context.Context, entry ActivityEntry) (dto.ReportActivityResponse, error) {
	if strings.TrimSpace(entry.ReportID) == "" {
		return dto.ReportActivityResponse{}, fmt.Errorf("report id is required")
	}
	if strings.TrimSpace(entry.Action) == "" {
		return dto.ReportActivityResponse{}, fmt.Errorf("action is required")
	}

	model := models.ReportActivity{
		ReportID: entry.ReportID,
		ActorID:  entry.ActorID,
		Action:   strings.ToLower(strings.TrimSpace(entry.Action)),
		Metadata: sanitizeMetadata(entry.Metadata),
	}

	if err := s.repo.Create(ctx, &model); err != nil {
		s.logger.Error().Err(err).Str("report_id", entry.ReportID).Msg("failed to persist activity log")
		return dto.ReportActivityResponse{}, err
	}

	return dto.NewReportActivityResponse(model), nil
}

func (s *activityService) List(ctx context.Context, reportID string) ([]dto.ReportActivityResponse, error) {
	reportID = strings.TrimSpace(reportID)
	if reportID == "" {
		return nil, fmt.Errorf("%w: report id is required", ErrValidation)
	}

	entries, _, err := s.repo.List(ctx, repository.ActivityLogFilter{ReportID: reportID})
	if err != nil {
		return nil, err
	}

	return dto.NewReportActivityResponseSlice(entries), nil
}

func sanitizeMetadata(metadata map[string]interface{}) datatypes.JSONMap {
	sanitized := datatypes.JSONMap{}
	for key, value := range metadata {
		lower := strings.ToLower(key)
		if strings.Contains(lower, "password") || strings.Contains(lower, "token") {
			sanitized[key] = "***"
			continue
		}
		sanitized[key] = value
	}
	return sanitized
}
