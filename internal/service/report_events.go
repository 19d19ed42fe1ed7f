package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/noah-isme/incident-api/internal/models"
)

// Report lifecycle event types, used as the NATS subject suffix.
const (
	EventReportSubmitted = "submitted"
	EventStatusChanged   = "status_changed"
	EventMessageAppended = "message_appended"
	EventReportDeleted   = "deleted"
)

// ReportEvent is broadcast whenever a report changes. It never carries report content.
type ReportEvent struct {
	Type         string              `json:"type"`
	ReportID     string              `json:"report_id"`
	IncidentType models.IncidentType `json:"incident_type,omitempty"`
	Status       models.ReportStatus `json:"status,omitempty"`
	ActorID      uint                `json:"actor_id,omitempty"`
	OccurredAt   time.Time           `json:"occurred_at"`
}

// EventPublisher fans report events out to interested consumers.
type EventPublisher interface {
	Publish(ctx context.Context, event ReportEvent) error
}

type natsEventPublisher struct {
	conn    *nats.Conn
	subject string
}

// NewNATSEventPublisher publishes events on "<subject>.<type>".
func NewNATSEventPublisher(conn *nats.Conn, subject string) EventPublisher {
	subject = strings.Trim(strings.TrimSpace(subject), ".")
	if subject == "" {
		subject = "incident.reports"
	}
	return &natsEventPublisher{conn: conn, subject: subject}
}

func (p *natsEventPublisher) Publish(_ context.Context, event ReportEvent) error {
	if p.conn == nil {
		return nil
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode report event: %w", err)
	}

	if err := p.conn.Publish(p.subject+"."+event.Type, payload); err != nil {
		return fmt.Errorf("publish report event: %w", err)
	}
	return nil
}

type noopEventPublisher struct{}

// NewNoopEventPublisher returns a publisher that drops every event.
func NewNoopEventPublisher() EventPublisher {
	return noopEventPublisher{}
}

func (noopEventPublisher) Publish(context.Context, ReportEvent) error {
	return nil
}
