package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/noah-isme/incident-api/internal/dto"
	"github.com/noah-isme/incident-api/internal/models"
	"github.com/noah-isme/incident-api/internal/repository"
)

type reportFixture struct {
	svc      *reportService
	admin    AdminReportService
	repo     repository.ReportRepository
	store    *memoryStore
	activity *memoryActivityRepo
	events   *recordingPublisher
}

func newReportFixture(t *testing.T, cache *redis.Client) reportFixture {
	t.Helper()
	db := setupServiceTestDB(t)
	repo := repository.NewReportRepository(db)
	store := newMemoryStore()
	activityRepo := &memoryActivityRepo{}
	activity := NewActivityService(activityRepo, zerolog.Nop())
	events := &recordingPublisher{}
	attachments := NewAttachmentService(store, 5, zerolog.Nop())
	validate := validator.New(validator.WithRequiredStructEnabled())

	svc := NewReportService(ReportServiceDeps{
		Repo:        repo,
		Attachments: attachments,
		Activity:    activity,
		Events:      events,
		Cache:       cache,
		Validator:   validate,
		Logger:      zerolog.Nop(),
	}).(*reportService)
	svc.retryDelay = time.Millisecond

	admin := NewAdminReportService(AdminReportServiceDeps{
		Repo:        repo,
		Attachments: attachments,
		Activity:    activity,
		Events:      events,
		Validator:   validate,
		Logger:      zerolog.Nop(),
	})

	return reportFixture{svc: svc, admin: admin, repo: repo, store: store, activity: activityRepo, events: events}
}

func validSubmission() dto.ReportSubmitRequest {
	return dto.ReportSubmitRequest{
		IncidentType:    1,
		Description:     "Repeated insulting messages in the class group chat.",
		EmotionalImpact: 3,
	}
}

type flakyCreateRepo struct {
	repository.ReportRepository
	failures []error
	attempts int
}

func (f *flakyCreateRepo) Create(ctx context.Context, report *models.Report) error {
	f.attempts++
	if len(f.failures) > 0 {
		err := f.failures[0]
		f.failures = f.failures[1:]
		return err
	}
	return f.ReportRepository.Create(ctx, report)
}

func TestReportServiceSubmitThenGet(t *testing.T) {
	fx := newReportFixture(t, nil)
	ctx := context.Background()

	resp, err := fx.svc.Submit(ctx, validSubmission(), nil)
	require.NoError(t, err)
	require.Len(t, resp.ReportID, reportIDLength)

	report, err := fx.svc.Get(ctx, resp.ReportID)
	require.NoError(t, err)
	require.Equal(t, resp.ReportID, report.ID)
	require.Equal(t, models.ReportStatusReported, report.Status)
	require.Equal(t, "Cyberbullying", report.IncidentLabel)
	require.Empty(t, report.Messages)
	require.Nil(t, report.Location)
	require.Nil(t, report.File)

	require.Equal(t, []string{models.ActivityReportSubmitted}, fx.activity.actions(resp.ReportID))
	require.Equal(t, []string{EventReportSubmitted}, fx.events.types())
}

func TestReportServiceSubmitValidatesRanges(t *testing.T) {
	fx := newReportFixture(t, nil)
	ctx := context.Background()

	for _, incidentType := range []int{0, 6, -1} {
		req := validSubmission()
		req.IncidentType = incidentType
		_, err := fx.svc.Submit(ctx, req, nil)
		require.True(t, IsValidationError(err), "incident type %d", incidentType)
	}

	for _, impact := range []int{0, 5} {
		req := validSubmission()
		req.EmotionalImpact = impact
		_, err := fx.svc.Submit(ctx, req, nil)
		require.True(t, IsValidationError(err), "emotional impact %d", impact)
	}

	req := validSubmission()
	req.Description = "   "
	_, err := fx.svc.Submit(ctx, req, nil)
	require.True(t, IsValidationError(err))

	for incidentType := 1; incidentType <= 5; incidentType++ {
		req := validSubmission()
		req.IncidentType = incidentType
		req.Description = req.Description + string(rune('a'+incidentType))
		_, err := fx.svc.Submit(ctx, req, nil)
		require.NoError(t, err, "incident type %d", incidentType)
	}
}

func TestReportServiceSubmitStoresAttachmentUnderReportID(t *testing.T) {
	fx := newReportFixture(t, nil)
	ctx := context.Background()

	req := validSubmission()
	req.Address = " Building B, floor 2 "
	resp, err := fx.svc.Submit(ctx, req, buildFileHeader(t, "evidence.png", pngHeader))
	require.NoError(t, err)

	require.True(t, fx.store.has(resp.ReportID))

	report, err := fx.svc.Get(ctx, resp.ReportID)
	require.NoError(t, err)
	require.NotNil(t, report.File)
	require.Equal(t, "https://files.example.com/"+resp.ReportID, *report.File)
	require.NotNil(t, report.Location)
	require.Equal(t, "Building B, floor 2", *report.Location)
}

func TestReportServiceRetriesWithFreshIDOnCollision(t *testing.T) {
	fx := newReportFixture(t, nil)
	flaky := &flakyCreateRepo{ReportRepository: fx.repo, failures: []error{gorm.ErrDuplicatedKey}}
	fx.svc.repo = flaky

	ids := []string{"collidingreportid0000000", "freshreportid00000000000"}
	fx.svc.newID = func() (string, error) {
		id := ids[0]
		ids = ids[1:]
		return id, nil
	}

	resp, err := fx.svc.Submit(context.Background(), validSubmission(), buildFileHeader(t, "evidence.png", pngHeader))
	require.NoError(t, err)
	require.Equal(t, "freshreportid00000000000", resp.ReportID)
	require.Equal(t, 2, flaky.attempts)

	require.False(t, fx.store.has("collidingreportid0000000"))
	require.True(t, fx.store.has("freshreportid00000000000"))
}

func TestReportServiceFailedInsertDiscardsAttachment(t *testing.T) {
	fx := newReportFixture(t, nil)
	failure := errors.New("disk full")
	flaky := &flakyCreateRepo{ReportRepository: fx.repo, failures: []error{failure}}
	fx.svc.repo = flaky
	fx.svc.newID = func() (string, error) { return "orphanreportid0000000000", nil }

	_, err := fx.svc.Submit(context.Background(), validSubmission(), buildFileHeader(t, "evidence.png", pngHeader))
	require.ErrorIs(t, err, failure)
	require.Equal(t, 1, flaky.attempts)
	require.False(t, fx.store.has("orphanreportid0000000000"))
	require.Contains(t, fx.store.deleted, "orphanreportid0000000000")
	require.Empty(t, fx.events.types())
}

func TestReportServiceStorageFailureAbortsSubmit(t *testing.T) {
	fx := newReportFixture(t, nil)
	fx.store.putErr = errStoreDown

	_, err := fx.svc.Submit(context.Background(), validSubmission(), buildFileHeader(t, "evidence.png", pngHeader))
	require.ErrorIs(t, err, errStoreDown)

	list, err := fx.admin.List(context.Background(), dto.ReportListRequest{})
	require.NoError(t, err)
	require.Zero(t, list.Pagination.Total)
}

func newMiniredisClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mini, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mini.Close)

	client := redis.NewClient(&redis.Options{Addr: mini.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mini, client
}

func countReports(t *testing.T, repo repository.ReportRepository) int64 {
	t.Helper()
	_, total, err := repo.List(context.Background(), repository.ReportFilter{Page: 1, Limit: 100, SortBy: repository.ReportSortCreatedAt})
	require.NoError(t, err)
	return total
}

func TestReportServiceReplaysDuplicateFromSameClient(t *testing.T) {
	mini, client := newMiniredisClient(t)
	fx := newReportFixture(t, client)
	ctx := context.Background()

	req := validSubmission()
	req.Fingerprint = "10.0.0.1"

	first, err := fx.svc.Submit(ctx, req, nil)
	require.NoError(t, err)

	again, err := fx.svc.Submit(ctx, req, nil)
	require.NoError(t, err)
	require.Equal(t, first.ReportID, again.ReportID)
	require.EqualValues(t, 1, countReports(t, fx.repo))

	mini.FastForward(10 * time.Minute)
	later, err := fx.svc.Submit(ctx, req, nil)
	require.NoError(t, err)
	require.NotEqual(t, first.ReportID, later.ReportID)
	require.EqualValues(t, 2, countReports(t, fx.repo))
}

func TestReportServiceStoresSameTextFromDifferentClients(t *testing.T) {
	_, client := newMiniredisClient(t)
	fx := newReportFixture(t, client)
	ctx := context.Background()

	first := validSubmission()
	first.Fingerprint = "10.0.0.1"
	second := validSubmission()
	second.Fingerprint = "10.0.0.2"

	a, err := fx.svc.Submit(ctx, first, nil)
	require.NoError(t, err)
	b, err := fx.svc.Submit(ctx, second, nil)
	require.NoError(t, err)

	require.NotEqual(t, a.ReportID, b.ReportID)
	require.EqualValues(t, 2, countReports(t, fx.repo))
}

func TestReportServiceRejectsDuplicateWhileFirstInFlight(t *testing.T) {
	_, client := newMiniredisClient(t)
	fx := newReportFixture(t, client)
	ctx := context.Background()

	req := validSubmission()
	req.Fingerprint = "10.0.0.1"

	key, existing, err := fx.svc.claimSubmission(ctx, req, nil)
	require.NoError(t, err)
	require.NotEmpty(t, key)
	require.Empty(t, existing)

	_, err = fx.svc.Submit(ctx, req, nil)
	require.ErrorIs(t, err, ErrDuplicateSubmission)
	require.EqualValues(t, 0, countReports(t, fx.repo))
}

func TestReportServiceGetUnknownReport(t *testing.T) {
	fx := newReportFixture(t, nil)

	_, err := fx.svc.Get(context.Background(), "doesnotexist000000000000")
	require.ErrorIs(t, err, ErrReportNotFound)

	_, err = fx.svc.Get(context.Background(), "")
	require.ErrorIs(t, err, ErrReportNotFound)
}
