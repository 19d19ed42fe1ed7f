package repository

import (
	"context"
	"errors"
	"fmt"
	"math"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/incident-api/internal/models"
)

// Sortable report fields.
const (
	ReportSortCreatedAt       = "created_at"
	ReportSortEmotionalImpact = "emotional_impact"
)

// ErrUnsupportedSort indicates a sort field or order outside the allow-list.
var ErrUnsupportedSort = errors.New("unsupported sort")

var reportSortColumns = map[string]string{
	ReportSortCreatedAt:       "created_at",
	ReportSortEmotionalImpact: "emotional_impact",
}

// ReportFilter defines filters for listing reports from the admin dashboard.
type ReportFilter struct {
	IncidentType *models.IncidentType
	SortBy       string
	Descending   bool
	Page         int
	Limit        int
}

// ReportRepository persists reports and their message history.
type ReportRepository interface {
	Create(ctx context.Context, report *models.Report) error
	List(ctx context.Context, filter ReportFilter) ([]models.Report, int64, error)
	GetByID(ctx context.Context, id string) (models.Report, error)
	Exists(ctx context.Context, id string) (bool, error)
	UpdateStatus(ctx context.Context, id string, status models.ReportStatus) error
	AppendMessage(ctx context.Context, message *models.Message) error
	Delete(ctx context.Context, id string) error
}

type reportRepository struct {
	db *gorm.DB
}

// NewReportRepository constructs a repository backed by GORM.
func NewReportRepository(db *gorm.DB) ReportRepository {
	return &reportRepository{db: db}
}

func (r *reportRepository) Create(ctx context.Context, report *models.Report) error {
	return r.db.WithContext(ctx).Create(report).Error
}

func (r *reportRepository) List(ctx context.Context, filter ReportFilter) ([]models.Report, int64, error) {
	sortBy := filter.SortBy
	if sortBy == "" {
		sortBy = ReportSortCreatedAt
	}
	column, ok := reportSortColumns[sortBy]
	if !ok {
		return nil, 0, fmt.Errorf("%w: %q", ErrUnsupportedSort, sortBy)
	}

	query := r.db.WithContext(ctx).Model(&models.Report{})
	if filter.IncidentType != nil {
		query = query.Where("incident_type = ?", int(*filter.IncidentType))
	}

	countQuery := query.Session(&gorm.Session{})
	var total int64
	if err := countQuery.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = query.
		Order(clause.OrderByColumn{Column: clause.Column{Name: column}, Desc: filter.Descending}).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "id"}, Desc: filter.Descending}).
		Preload("Messages", orderMessages)

	if filter.Limit > 0 {
		page := filter.Page
		if page <= 0 {
			page = 1
		}
		if page-1 > math.MaxInt/filter.Limit {
			return []models.Report{}, total, nil
		}
		query = query.Limit(filter.Limit).Offset((page - 1) * filter.Limit)
	}

	var reports []models.Report
	if err := query.Find(&reports).Error; err != nil {
		return nil, 0, err
	}

	return reports, total, nil
}

func (r *reportRepository) GetByID(ctx context.Context, id string) (models.Report, error) {
	var report models.Report
	err := r.db.WithContext(ctx).
		Preload("Messages", orderMessages).
		Where("id = ?", id).
		First(&report).Error
	if err != nil {
		return models.Report{}, err
	}

	return report, nil
}

func (r *reportRepository) Exists(ctx context.Context, id string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Report{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *reportRepository) UpdateStatus(ctx context.Context, id string, status models.ReportStatus) error {
	result := r.db.WithContext(ctx).
		Model(&models.Report{}).
		Where("id = ?", id).
		Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *reportRepository) AppendMessage(ctx context.Context, message *models.Message) error {
	return r.db.WithContext(ctx).Create(message).Error
}

func (r *reportRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("report_id = ?", id).Delete(&models.Message{}).Error; err != nil {
			return err
		}

		result := tx.Where("id = ?", id).Delete(&models.Report{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

func orderMessages(db *gorm.DB) *gorm.DB {
	return db.
		Order(clause.OrderByColumn{Column: clause.Column{Name: "timestamp"}}).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "id"}})
}
