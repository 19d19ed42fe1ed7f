package service

import (
	"bytes"
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestAttachmentServiceRejectsSize(t *testing.T) {
	svc := NewAttachmentService(newMemoryStore(), 1, zerolog.Nop())

	file := buildFileHeader(t, "file.pdf", bytes.Repeat([]byte("a"), 2*1024*1024))

	_, err := svc.Prepare(file)
	require.ErrorIs(t, err, ErrAttachmentTooLarge)
}

func TestAttachmentServiceTypeValidation(t *testing.T) {
	svc := NewAttachmentService(newMemoryStore(), 5, zerolog.Nop())

	zipHeader := []byte{0x50, 0x4B, 0x03, 0x04, 0x14, 0x00, 0x00, 0x00}
	_, err := svc.Prepare(buildFileHeader(t, "archive.zip", zipHeader))
	require.ErrorIs(t, err, ErrAttachmentTypeNotAllowed)

	attachment, err := svc.Prepare(buildFileHeader(t, "notes.txt", []byte("plain text")))
	require.NoError(t, err)
	require.Equal(t, "text/plain", attachment.ContentType)
}

func TestAttachmentServiceOptionalFile(t *testing.T) {
	svc := NewAttachmentService(nil, 5, zerolog.Nop())
	require.False(t, svc.Enabled())

	attachment, err := svc.Prepare(nil)
	require.NoError(t, err)
	require.Nil(t, attachment)

	_, err = svc.Prepare(buildFileHeader(t, "image.png", pngHeader))
	require.ErrorIs(t, err, ErrAttachmentsDisabled)
}

func TestAttachmentServiceStoreFetchRemove(t *testing.T) {
	store := newMemoryStore()
	svc := NewAttachmentService(store, 5, zerolog.Nop())
	ctx := context.Background()

	attachment, err := svc.Prepare(buildFileHeader(t, "image.png", pngHeader))
	require.NoError(t, err)
	require.Equal(t, "image/png", attachment.ContentType)

	url, err := svc.Store(ctx, "report-1", attachment)
	require.NoError(t, err)
	require.Equal(t, "https://files.example.com/report-1", url)

	fetched, err := svc.Fetch(ctx, "report-1")
	require.NoError(t, err)
	require.Equal(t, pngHeader, fetched.Data)
	require.Equal(t, "image/png", fetched.ContentType)

	require.NoError(t, svc.Remove(ctx, "report-1"))
	require.NoError(t, svc.Remove(ctx, "report-1"))

	_, err = svc.Fetch(ctx, "report-1")
	require.ErrorIs(t, err, ErrAttachmentNotFound)
}
