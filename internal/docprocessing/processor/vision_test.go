package processor_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docscan/docscan-backend/internal/docprocessing/domain"
	"github.com/docscan/docscan-backend/internal/docprocessing/locator"
	"github.com/docscan/docscan-backend/internal/docprocessing/processor"
)

var pngImage = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0x00}

// visionServer answers with the given status codes in order, then with lines.
func visionServer(t *testing.T, calls *int32, statuses []int, lines []string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(calls, 1)

		assert.Equal(t, "/api/v1/mrz", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "passport", r.FormValue("document_type"))

		if int(n) <= len(statuses) {
			w.WriteHeader(statuses[n-1])
			_, _ = w.Write([]byte(`{"detail":"unavailable"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"mrz_lines":          lines,
			"warnings":           []string{"low contrast"},
			"processing_time_ms": 12,
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newVision(t *testing.T, url string) *processor.VisionProcessor {
	return processor.NewVisionProcessor(processor.VisionConfig{URL: url, MaxAttempts: 3}, processor.NewMRZProcessor(newDecoder(t, false), nil))
}

func TestVisionProcessor_Success(t *testing.T) {
	var calls int32
	srv := visionServer(t, &calls, nil, []string{td3Line1, td3Line2})

	result, err := newVision(t, srv.URL).Process(context.Background(), pngImage, domain.DocumentTypePassport)
	require.NoError(t, err)

	assert.Equal(t, "vision", result.Processor)
	assert.Equal(t, "Eriksson", fieldMap(result)[domain.FieldSurname].Value)
	assert.Equal(t, []string{"low contrast"}, result.Warnings)
	assert.GreaterOrEqual(t, result.ProcessingTimeMs, int64(12))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestVisionProcessor_RetriesServerErrors(t *testing.T) {
	var calls int32
	srv := visionServer(t, &calls, []int{http.StatusBadGateway, http.StatusServiceUnavailable}, []string{td3Line1, td3Line2})

	result, err := newVision(t, srv.URL).Process(context.Background(), pngImage, domain.DocumentTypePassport)
	require.NoError(t, err)
	assert.Equal(t, "UTO", fieldMap(result)[domain.FieldIssuingCountry].Value)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestVisionProcessor_GivesUpAfterMaxAttempts(t *testing.T) {
	var calls int32
	srv := visionServer(t, &calls, []int{500, 500, 500, 500}, nil)

	_, err := newVision(t, srv.URL).Process(context.Background(), pngImage, domain.DocumentTypePassport)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "returned 500")
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestVisionProcessor_ClientErrorNotRetried(t *testing.T) {
	var calls int32
	srv := visionServer(t, &calls, []int{http.StatusUnprocessableEntity}, nil)

	_, err := newVision(t, srv.URL).Process(context.Background(), pngImage, domain.DocumentTypePassport)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "returned 422")
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestVisionProcessor_NoLines(t *testing.T) {
	var calls int32
	srv := visionServer(t, &calls, nil, []string{})

	_, err := newVision(t, srv.URL).Process(context.Background(), pngImage, domain.DocumentTypePassport)
	assert.True(t, errors.Is(err, locator.ErrNoMRZ))
}

func TestVisionProcessor_RejectsNonImage(t *testing.T) {
	var calls int32
	srv := visionServer(t, &calls, nil, nil)

	_, err := newVision(t, srv.URL).Process(context.Background(), []byte(td3Line1), domain.DocumentTypePassport)
	assert.True(t, errors.Is(err, processor.ErrNotImage))
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
}

func TestVisionProcessor_CanProcess(t *testing.T) {
	p := newVision(t, "http://vision")
	assert.True(t, p.CanProcess(domain.DocumentTypePassport))
	assert.True(t, p.CanProcess(domain.DocumentTypeIDCard))
	assert.False(t, p.CanProcess(domain.DocumentTypeMRZText))
}
