package models

import (
	"strings"
	"time"
)

// IncidentType classifies what happened to the reporter.
type IncidentType int

// Supported incident types.
const (
	IncidentCyberbullying IncidentType = iota + 1
	IncidentSexualHarassment
	IncidentVerbalAbuse
	IncidentDiscrimination
	IncidentOther
)

var incidentLabels = map[IncidentType]string{
	IncidentCyberbullying:    "Cyberbullying",
	IncidentSexualHarassment: "Sexual Harassment",
	IncidentVerbalAbuse:      "Verbal abuse",
	IncidentDiscrimination:   "Discrimination",
	IncidentOther:            "Other",
}

// Valid reports whether the type is one of the supported incident types.
func (t IncidentType) Valid() bool {
	_, ok := incidentLabels[t]
	return ok
}

// Label returns the human readable name of the incident type.
func (t IncidentType) Label() string {
	return incidentLabels[t]
}

// ReportStatus tracks a report through triage.
type ReportStatus string

// Report statuses.
const (
	ReportStatusReported      ReportStatus = "REPORTED"
	ReportStatusInvestigating ReportStatus = "INVESTIGATING"
	ReportStatusClosed        ReportStatus = "CLOSED"
)

// ParseReportStatus normalises user input into a known status.
func ParseReportStatus(value string) (ReportStatus, bool) {
	status := ReportStatus(strings.ToUpper(strings.TrimSpace(value)))
	return status, status.Valid()
}

// Valid reports whether the status is one of the three lifecycle states.
func (s ReportStatus) Valid() bool {
	switch s {
	case ReportStatusReported, ReportStatusInvestigating, ReportStatusClosed:
		return true
	default:
		return false
	}
}

// CanTransitionTo reports whether an admin may move a report from s to next.
// Triage is permissive: any known status may follow any other, and CLOSED
// reports can be reopened.
func (s ReportStatus) CanTransitionTo(next ReportStatus) bool {
	return next.Valid()
}

// Report is an anonymously submitted incident. ID doubles as the public tracking handle.
type Report struct {
	ID              string       `gorm:"primaryKey;size:32" json:"id"`
	IncidentType    IncidentType `gorm:"not null;index" json:"incident_type"`
	Description     string       `gorm:"type:text;not null" json:"description"`
	EmotionalImpact int          `gorm:"not null" json:"emotional_impact"`
	Location        *string      `gorm:"type:text" json:"location"`
	File            *string      `gorm:"size:1024" json:"file"`
	Status          ReportStatus `gorm:"size:16;not null;default:REPORTED;index" json:"status"`
	CreatedAt       time.Time    `gorm:"index;<-:create" json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
	Messages        []Message    `gorm:"foreignKey:ReportID;constraint:OnDelete:CASCADE" json:"messages,omitempty"`
}

// Message is an admin authored note appended to a report's history.
type Message struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ReportID  string    `gorm:"size:32;not null;index" json:"report_id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	Message   string    `gorm:"type:text;not null" json:"message"`
	Timestamp time.Time `gorm:"autoCreateTime;index" json:"timestamp"`
}
