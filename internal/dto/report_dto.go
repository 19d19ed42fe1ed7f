package dto

import (
	"time"

	"github.com/noah-isme/incident-api/internal/models"
)

// ReportSubmitRequest is the anonymous incident form. Field names match the public form.
type ReportSubmitRequest struct {
	IncidentType    int    `json:"incidentType" form:"incidentType" validate:"required,min=1,max=5"`
	Description     string `json:"description" form:"description" validate:"required"`
	EmotionalImpact int    `json:"emotionalImpact" form:"emotionalImpact" validate:"required,min=1,max=4"`
	Address         string `json:"address" form:"address" validate:"omitempty,max=1024"`
	// Fingerprint identifies the submitting client for duplicate suppression. Never bound from the body.
	Fingerprint string `json:"-" form:"-"`
}

// ReportSubmitResponse returns the tracking handle for a new report.
type ReportSubmitResponse struct {
	ReportID string `json:"reportId"`
}

// ReportListRequest describes the admin listing query.
type ReportListRequest struct {
	Page         int
	Limit        int
	SortBy       string
	SortOrder    string
	IncidentType *int
}

// ReportStatusUpdateRequest changes the triage status of a report.
type ReportStatusUpdateRequest struct {
	Status string `json:"status" validate:"required"`
}

// ReportMessageRequest appends an admin note to a report.
type ReportMessageRequest struct {
	Message string `json:"message" validate:"required,max=5000"`
}

// MessageResponse is a serialized report message.
type MessageResponse struct {
	ID        uint      `json:"id"`
	Message   string    `json:"message"`
	UserID    uint      `json:"user_id"`
	Timestamp time.Time `json:"timestamp"`
}

// ReportResponse is the full representation of a report including its history.
type ReportResponse struct {
	ID              string              `json:"id"`
	IncidentType    int                 `json:"incident_type"`
	IncidentLabel   string              `json:"incident_label"`
	Description     string              `json:"description"`
	EmotionalImpact int                 `json:"emotional_impact"`
	Location        *string             `json:"location"`
	File            *string             `json:"file"`
	Status          models.ReportStatus `json:"status"`
	CreatedAt       time.Time           `json:"created_at"`
	Messages        []MessageResponse   `json:"messages"`
}

// ReportSummaryResponse is a list entry; messages are flattened to their text.
type ReportSummaryResponse struct {
	ID              string              `json:"id"`
	IncidentType    int                 `json:"incident_type"`
	IncidentLabel   string              `json:"incident_label"`
	Description     string              `json:"description"`
	EmotionalImpact int                 `json:"emotional_impact"`
	Location        *string             `json:"location"`
	File            *string             `json:"file"`
	Status          models.ReportStatus `json:"status"`
	CreatedAt       time.Time           `json:"created_at"`
	Messages        []string            `json:"messages"`
}

// ReportListResponse wraps a page of reports.
type ReportListResponse struct {
	Reports    []ReportSummaryResponse `json:"reports"`
	Pagination PaginationMeta          `json:"pagination"`
}

// ReportActivityResponse is a serialized audit entry.
type ReportActivityResponse struct {
	ID        uint                   `json:"id"`
	ReportID  string                 `json:"report_id"`
	ActorID   uint                   `json:"actor_id"`
	Action    string                 `json:"action"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}

// NewMessageResponse converts a model into a DTO.
func NewMessageResponse(message models.Message) MessageResponse {
	return MessageResponse{
		ID:        message.ID,
		Message:   message.Message,
		UserID:    message.UserID,
		Timestamp: message.Timestamp,
	}
}

// NewReportResponse converts a report and its preloaded messages into a DTO.
func NewReportResponse(report models.Report) ReportResponse {
	messages := make([]MessageResponse, 0, len(report.Messages))
	for _, message := range report.Messages {
		messages = append(messages, NewMessageResponse(message))
	}

	return ReportResponse{
		ID:              report.ID,
		IncidentType:    int(report.IncidentType),
		IncidentLabel:   report.IncidentType.Label(),
		Description:     report.Description,
		EmotionalImpact: report.EmotionalImpact,
		Location:        report.Location,
		File:            report.File,
		Status:          report.Status,
		CreatedAt:       report.CreatedAt,
		Messages:        messages,
	}
}

// NewReportSummaryResponse converts a report into a list entry.
func NewReportSummaryResponse(report models.Report) ReportSummaryResponse {
	messages := make([]string, 0, len(report.Messages))
	for _, message := range report.Messages {
		messages = append(messages, message.Message)
	}

	return ReportSummaryResponse{
		ID:              report.ID,
		IncidentType:    int(report.IncidentType),
		IncidentLabel:   report.IncidentType.Label(),
		Description:     report.Description,
		EmotionalImpact: report.EmotionalImpact,
		Location:        report.Location,
		File:            report.File,
		Status:          report.Status,
		CreatedAt:       report.CreatedAt,
		Messages:        messages,
	}
}

// NewReportSummaryResponseSlice converts a slice of reports into list entries.
func NewReportSummaryResponseSlice(reports []models.Report) []ReportSummaryResponse {
	out := make([]ReportSummaryResponse, 0, len(reports))
	for _, report := range reports {
		out = append(out, NewReportSummaryResponse(report))
	}
	return out
}

// NewReportActivityResponse converts an audit row into a DTO.
func NewReportActivityResponse(model models.ReportActivity) ReportActivityResponse {
	response := ReportActivityResponse{
		ID:        model.ID,
		ReportID:  model.ReportID,
		ActorID:   model.ActorID,
		Action:    model.Action,
		CreatedAt: model.CreatedAt,
	}
	if len(model.Metadata) > 0 {
		response.Metadata = map[string]interface{}(model.Metadata)
	}
	return response
}

// NewReportActivityResponseSlice converts audit rows into DTOs.
func NewReportActivityResponseSlice(items []models.ReportActivity) []ReportActivityResponse {
	out := make([]ReportActivityResponse, 0, len(items))
	for _, item := range items {
		out = append(out, NewReportActivityResponse(item))
	}
	return out
}
