package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime/multipart"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/incident-api/internal/observability"
)

var (
	// ErrAttachmentTooLarge indicates the payload exceeded the configured limit.
	ErrAttachmentTooLarge = errors.New("attachment exceeds maximum allowed size")
	// ErrAttachmentTypeNotAllowed indicates the detected MIME type is not permitted.
	ErrAttachmentTypeNotAllowed = errors.New("attachment type not allowed")
	// ErrAttachmentsDisabled indicates no object store is configured.
	ErrAttachmentsDisabled = errors.New("attachments are not enabled")
	// ErrAttachmentNotFound indicates the report has no stored attachment.
	ErrAttachmentNotFound = errors.New("attachment not found")
)

// AttachmentStore abstracts the object store holding report attachments.
// Implementations report missing objects with an error wrapping fs.ErrNotExist.
type AttachmentStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

// Attachment is a validated file ready to be stored or served.
type Attachment struct {
	Name        string
	ContentType string
	Data        []byte
}

// AttachmentService validates uploads and moves them in and out of the object store.
type AttachmentService interface {
	Enabled() bool
	Prepare(file *multipart.FileHeader) (*Attachment, error)
	Store(ctx context.Context, key string, attachment *Attachment) (string, error)
	Fetch(ctx context.Context, key string) (Attachment, error)
	Remove(ctx context.Context, key string) error
}

type attachmentService struct {
	store   AttachmentStore
	logger  zerolog.Logger
	maxSize int64
	tracer  trace.Tracer
}

// NewAttachmentService constructs an attachment service. A nil store disables uploads.
func NewAttachmentService(store AttachmentStore, maxSizeMB int, logger zerolog.Logger) AttachmentService {
	if maxSizeMB <= 0 {
		maxSizeMB = 10
	}
	return &attachmentService{
		store:   store,
		logger:  logger.With().Str("component", "attachment_service").Logger(),
		maxSize: int64(maxSizeMB) * 1024 * 1024,
		tracer:  otel.Tracer("github.com/noah-isme/incident-api/internal/service/attachment"),
	}
}

func (s *attachmentService) Enabled() bool {
	return s.store != nil
}

func (s *attachmentService) Prepare(file *multipart.FileHeader) (*Attachment, error) {
	if file == nil {
		return nil, nil
	}
	if !s.Enabled() {
		return nil, ErrAttachmentsDisabled
	}

	if file.Size > s.maxSize {
		observability.AttachmentRejected().WithLabelValues("size").Inc()
		return nil, ErrAttachmentTooLarge
	}

	handle, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("open attachment: %w", err)
	}
	defer handle.Close()

	buf := bytes.NewBuffer(nil)
	if _, err := io.Copy(buf, io.LimitReader(handle, s.maxSize+1)); err != nil {
		return nil, fmt.Errorf("read attachment: %w", err)
	}
	if int64(buf.Len()) > s.maxSize {
		observability.AttachmentRejected().WithLabelValues("size").Inc()
		return nil, ErrAttachmentTooLarge
	}
	if buf.Len() == 0 {
		return nil, nil
	}

	contentType := detectContentType(buf.Bytes())
	if !isAllowedAttachmentType(contentType) {
		observability.AttachmentRejected().WithLabelValues("type").Inc()
		return nil, ErrAttachmentTypeNotAllowed
	}

	return &Attachment{
		Name:        strings.TrimSpace(file.Filename),
		ContentType: contentType,
		Data:        buf.Bytes(),
	}, nil
}

func (s *attachmentService) Store(ctx context.Context, key string, attachment *Attachment) (string, error) {
	if !s.Enabled() {
		return "", ErrAttachmentsDisabled
	}

	ctx, span := s.tracer.Start(ctx, "attachment.store")
	defer span.End()
	span.SetAttributes(
		attribute.String("attachment.content_type", attachment.ContentType),
		attribute.Int("attachment.size_bytes", len(attachment.Data)),
	)

	start := time.Now()
	url, err := s.store.Put(ctx, key, attachment.Data, attachment.ContentType)
	observability.AttachmentLatency().Observe(time.Since(start).Seconds())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "storage failed")
		return "", fmt.Errorf("store attachment: %w", err)
	}

	s.logger.Info().Str("key", key).Int("size_bytes", len(attachment.Data)).Msg("attachment stored")
	return url, nil
}

func (s *attachmentService) Fetch(ctx context.Context, key string) (Attachment, error) {
	if !s.Enabled() {
		return Attachment{}, ErrAttachmentNotFound
	}

	data, err := s.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Attachment{}, ErrAttachmentNotFound
		}
		return Attachment{}, fmt.Errorf("fetch attachment: %w", err)
	}

	return Attachment{
		Name:        key,
		ContentType: detectContentType(data),
		Data:        data,
	}, nil
}

func (s *attachmentService) Remove(ctx context.Context, key string) error {
	if !s.Enabled() {
		return nil
	}
	if err := s.store.Delete(ctx, key); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove attachment: %w", err)
	}
	return nil
}

func detectContentType(data []byte) string {
	detected := mimetype.Detect(data).String()
	if idx := strings.Index(detected, ";"); idx >= 0 {
		detected = detected[:idx]
	}
	return strings.ToLower(strings.TrimSpace(detected))
}

func isAllowedAttachmentType(contentType string) bool {
	switch {
	case strings.HasPrefix(contentType, "image/"),
		strings.HasPrefix(contentType, "video/"),
		strings.HasPrefix(contentType, "audio/"):
		return true
	}
	switch contentType {
	case "application/pdf", "text/plain":
		return true
	default:
		return false
	}
}
