package models

import (
	"time"

	"gorm.io/datatypes"
)

// Report activity actions.
const (
	ActivityReportSubmitted = "report_submitted"
	ActivityStatusChanged   = "status_changed"
	ActivityMessageAppended = "message_appended"
	ActivityReportDeleted   = "report_deleted"
)

// ReportActivity captures an auditable lifecycle event. Rows outlive the report they describe.
type ReportActivity struct {
	ID        uint              `gorm:"primaryKey" json:"id"`
	ReportID  string            `gorm:"size:32;not null;index" json:"report_id"`
	ActorID   uint              `gorm:"not null;default:0" json:"actor_id"`
	Action    string            `gorm:"size:64;not null" json:"action"`
	Metadata  datatypes.JSONMap `gorm:"type:json" json:"metadata"`
	CreatedAt time.Time         `gorm:"index" json:"created_at"`
}
