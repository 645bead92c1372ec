package service_test

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docscan/docscan-backend/internal/countries"
	"github.com/docscan/docscan-backend/internal/docprocessing/domain"
	"github.com/docscan/docscan-backend/internal/docprocessing/events"
	"github.com/docscan/docscan-backend/internal/docprocessing/metrics"
	"github.com/docscan/docscan-backend/internal/docprocessing/processor"
	"github.com/docscan/docscan-backend/internal/docprocessing/service"
	"github.com/docscan/docscan-backend/internal/docprocessing/storage"
	"github.com/docscan/docscan-backend/internal/mrz"
	apperrors "github.com/docscan/docscan-backend/pkg/errors"
	"github.com/docscan/docscan-backend/pkg/logger"
	"github.com/docscan/docscan-backend/pkg/messaging"
	mocks "github.com/docscan/docscan-backend/pkg/testutil"
)

const (
	td3Line1 = "P<UTOERIKSSON<<ANNA<MARIA<<<<<<<<<<<<<<<<<<<"
	td3Line2 = "L898902C36UTO7408122F1204159ZE184226B<<<<<10"
)

type fakeAudit struct {
	mu      sync.Mutex
	entries []domain.ProcessingAuditEntry
	err     error
}

func (f *fakeAudit) Create(_ context.Context, entry *domain.ProcessingAuditEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.entries = append(f.entries, *entry)
	return nil
}

func (f *fakeAudit) Entries() []domain.ProcessingAuditEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.ProcessingAuditEntry(nil), f.entries...)
}

// failingProcessor accepts every document type and always fails.
type failingProcessor struct{}

func (failingProcessor) Name() string { return "vision" }

func (failingProcessor) CanProcess(domain.DocumentType) bool { return true }

func (failingProcessor) Process(context.Context, []byte, domain.DocumentType) (*domain.ExtractionResult, error) {
	return nil, errors.New("vision service unavailable")
}

type fixture struct {
	svc       *service.Service
	audit     *fakeAudit
	publisher *mocks.MockPublisher
	metrics   *metrics.Metrics
}

func newFixture(t *testing.T, extra ...processor.Processor) *fixture {
	t.Helper()

	table, err := countries.New([]countries.Entry{{Code: "UTO", Name: "Utopia"}})
	require.NoError(t, err)
	decoder := mrz.NewDecoder(mrz.Options{
		Countries: table,
		Century: mrz.CenturyPolicy{
			Now:                  func() time.Time { return time.Date(2026, time.October, 17, 0, 0, 0, 0, time.UTC) },
			ExpiryLookaheadYears: 20,
		},
	})

	m := metrics.New(prometheus.NewRegistry())
	mrzProc := processor.NewMRZProcessor(decoder, m)
	procs := append(extra, mrzProc)

	f := &fixture{
		audit:     &fakeAudit{},
		publisher: mocks.NewMockPublisher(),
		metrics:   m,
	}
	f.svc = service.NewService(service.Deps{
		Decoder:  decoder,
		MRZ:      mrzProc,
		Registry: processor.NewRegistry(procs...),
		Storage:  storage.NewTempStorage(time.Minute),
		Audit:    f.audit,
		Events:   events.NewExtractionEventPublisher(f.publisher),
		Metrics:  m,
		Logger:   logger.Nop(),
	})
	return f
}

func TestService_DecodeLines(t *testing.T) {
	f := newFixture(t)

	result, err := f.svc.DecodeLines(context.Background(), []string{td3Line1, td3Line2})
	require.NoError(t, err)
	require.NotNil(t, result.Record)
	assert.Equal(t, "Utopia", result.Record.IssuingCountry.Name)
	assert.Equal(t, mrz.SexFemale, result.Record.Sex)
	assert.Equal(t, domain.DocumentTypeMRZText, result.DocumentType)

	// Synchronous decodes are not announced.
	f.publisher.AssertNoEventsPublished(t)
}

func TestService_DecodeLines_Unsupported(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.DecodeLines(context.Background(), []string{td3Line1})
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, http.StatusUnprocessableEntity, appErr.StatusCode)
	assert.ErrorIs(t, err, processor.ErrUnsupportedLayout)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.ProcessorFailures.WithLabelValues("mrz")))
}

func TestService_DecodeLines_BlankLineKeepsPosition(t *testing.T) {
	f := newFixture(t)

	result, err := f.svc.DecodeLines(context.Background(), []string{"", td3Line2})
	require.NoError(t, err)
	require.NotNil(t, result.Record)

	rec := result.Record
	assert.Equal(t, mrz.FormatTD3, rec.Format)
	assert.Empty(t, rec.DocumentType)
	assert.Empty(t, rec.IssuingCountry.Code)
	assert.Empty(t, rec.Surname)
	assert.Empty(t, rec.GivenNames)
	assert.Equal(t, "L898902C3", rec.DocumentNumber)
	assert.Equal(t, "UTO", rec.Nationality.Code)
	assert.Equal(t, "1974-08-12", rec.DateOfBirth.String())
	assert.Contains(t, result.Warnings, "line 1 has 0 characters, padded to 44")
}

func TestService_DecodeLines_CancelledContext(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.svc.DecodeLines(ctx, []string{td3Line1, td3Line2})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestService_StartExtraction(t *testing.T) {
	f := newFixture(t)
	consent := time.Date(2026, time.October, 17, 8, 0, 0, 0, time.UTC)
	data := []byte(td3Line1 + "\n" + td3Line2)

	job, err := f.svc.StartExtraction(context.Background(), data, domain.DocumentTypeMRZText, consent, "user-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusProcessing, job.Status)
	assert.NotEmpty(t, job.JobID)

	f.svc.Wait()

	job, err = f.svc.GetJob(job.JobID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, job.Status)
	require.Len(t, job.Results, 1)
	assert.Equal(t, "mrz", job.Results[0].Processor)

	assert.Equal(t, make([]byte, len(data)), data, "document bytes are zeroed")

	entries := f.audit.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, job.JobID, entries[0].JobID)
	assert.Equal(t, "mrz", entries[0].Processor)
	assert.Equal(t, consent, entries[0].ConsentTimestamp)
	assert.Equal(t, "user-1", entries[0].ConsentGivenBy)
	assert.Contains(t, entries[0].FieldsExtracted, domain.FieldSurname)
	assert.NotContains(t, entries[0].FieldsExtracted, "Eriksson")

	f.publisher.AssertEventPublished(t, messaging.EventMRZDecoded)
	completed := f.publisher.EventsOfType(messaging.EventExtractionCompleted)
	require.Len(t, completed, 1)
	assert.Equal(t, job.JobID, completed[0].(messaging.ExtractionCompletedEvent).JobID)
}

func TestService_StartExtraction_FallsBack(t *testing.T) {
	f := newFixture(t, failingProcessor{})

	job, err := f.svc.StartExtraction(context.Background(), []byte(td3Line1+"\n"+td3Line2), domain.DocumentTypePassport, time.Now(), "")
	require.NoError(t, err)
	f.svc.Wait()

	job, err = f.svc.GetJob(job.JobID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, job.Status)
	assert.Equal(t, "mrz", job.Results[0].Processor)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.ProcessorFailures.WithLabelValues("vision")))
}

func TestService_StartExtraction_AllProcessorsFail(t *testing.T) {
	f := newFixture(t, failingProcessor{})

	job, err := f.svc.StartExtraction(context.Background(), []byte("not an mrz"), domain.DocumentTypeMRZText, time.Now(), "user-2")
	require.NoError(t, err)
	f.svc.Wait()

	job, err = f.svc.GetJob(job.JobID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, job.Status)
	assert.Contains(t, job.Error, "unsupported MRZ layout")

	assert.Empty(t, f.audit.Entries())
	failed := f.publisher.EventsOfType(messaging.EventExtractionFailed)
	require.Len(t, failed, 1)
	assert.Equal(t, "user-2", failed[0].(messaging.ExtractionFailedEvent).UserID)
}

func TestService_StartExtraction_AuditFailureDoesNotFailJob(t *testing.T) {
	f := newFixture(t)
	f.audit.err = errors.New("database down")

	job, err := f.svc.StartExtraction(context.Background(), []byte(td3Line1+"\n"+td3Line2), domain.DocumentTypeMRZText, time.Now(), "")
	require.NoError(t, err)
	f.svc.Wait()

	job, err = f.svc.GetJob(job.JobID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, job.Status)
}

func TestService_StartExtraction_RejectsInput(t *testing.T) {
	f := newFixture(t)

	data := []byte("secret")
	_, err := f.svc.StartExtraction(context.Background(), data, domain.DocumentType("resume"), time.Now(), "")
	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, http.StatusBadRequest, appErr.StatusCode)
	assert.Equal(t, make([]byte, 6), data)

	_, err = f.svc.StartExtraction(context.Background(), nil, domain.DocumentTypePassport, time.Now(), "")
	assert.Error(t, err)
}

func TestService_GetJob_NotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.GetJob("missing")
	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, http.StatusNotFound, appErr.StatusCode)
}

func TestService_ResolveCountry(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, mrz.Country{Code: "UTO", Name: "Utopia"}, f.svc.ResolveCountry("uto"))
	assert.Equal(t, mrz.Country{Code: "ZZZ", Name: "ZZZ"}, f.svc.ResolveCountry("ZZZ"))
}
