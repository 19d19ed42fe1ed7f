package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/incident-api/internal/models"
)

// ActivityLogFilter narrows report activity queries.
type ActivityLogFilter struct {
	ReportID string
	Action   string
	Page     int
	PageSize int
}

// ActivityLogRepository persists the report audit trail.
type ActivityLogRepository interface {
	Create(ctx context.Context, entry *models.ReportActivity) error
	List(ctx context.Context, filter ActivityLogFilter) ([]models.ReportActivity, int64, error)
}

type activityLogRepository struct {
	db *gorm.DB
}

// NewActivityLogRepository constructs the activity log repository.
func NewActivityLogRepository(db *gorm.DB) ActivityLogRepository {
	return &activityLogRepository{db: db}
}

func (r *activityLogRepository) Create(ctx context.Context, entry *models.ReportActivity) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *activityLogRepository) List(ctx context.Context, filter ActivityLogFilter) ([]models.ReportActivity, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.ReportActivity{})

	if filter.ReportID != "" {
		query = query.Where("report_id = ?", filter.ReportID)
	}

	if filter.Action != "" {
		query = query.Where("action = ?", filter.Action)
	}

	countQuery := query.Session(&gorm.Session{})
	var total int64
	if err := countQuery.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.PageSize > 0 {
		page := filter.Page
		if page <= 0 {
			page = 1
		}
		offset := (page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	var entries []models.ReportActivity
	if err := query.Order("created_at ASC").Order("id ASC").Find(&entries).Error; err != nil {
		return nil, 0, err
	}

	return entries, total, nil
}
