package processor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/docscan/docscan-backend/internal/docprocessing/domain"
	"github.com/docscan/docscan-backend/internal/docprocessing/locator"
)

// VisionConfig holds the remote vision service client settings.
type VisionConfig struct {
	URL         string
	Timeout     time.Duration
	MaxAttempts uint
	RetryDelay  time.Duration
}

// VisionProcessor sends document images to a remote vision service that
// returns the raw MRZ lines it read. Fields are decoded locally so every
// processor yields the same record shape.
type VisionProcessor struct {
	visionURL   string
	httpClient  *http.Client
	maxAttempts uint
	retryDelay  time.Duration
	mrz         *MRZProcessor
}

// NewVisionProcessor creates a vision processor decoding through mrzProc.
func NewVisionProcessor(cfg VisionConfig, mrzProc *MRZProcessor) *VisionProcessor {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second // inference can take 10-20s
	}
	attempts := cfg.MaxAttempts
	if attempts == 0 {
		attempts = 1
	}
	return &VisionProcessor{
		visionURL:   cfg.URL,
		httpClient:  &http.Client{Timeout: timeout},
		maxAttempts: attempts,
		retryDelay:  cfg.RetryDelay,
		mrz:         mrzProc,
	}
}

func (p *VisionProcessor) Name() string { return "vision" }

func (p *VisionProcessor) CanProcess(docType domain.DocumentType) bool {
	return isImageDocument(docType)
}

func (p *VisionProcessor) Process(ctx context.Context, imageData []byte, docType domain.DocumentType) (*domain.ExtractionResult, error) {
	if !isImageData(imageData) {
		return nil, fmt.Errorf("vision: %w", ErrNotImage)
	}

	resp, err := retry.DoWithData(
		func() (visionMRZResponse, error) {
			return p.request(ctx, imageData, docType)
		},
		retry.Context(ctx),
		retry.Attempts(p.maxAttempts),
		retry.Delay(p.retryDelay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return nil, err
	}

	if len(resp.Lines) == 0 {
		return nil, fmt.Errorf("vision: %w", locator.ErrNoMRZ)
	}

	result, err := p.mrz.DecodeLines(resp.Lines, docType)
	if err != nil {
		return nil, fmt.Errorf("vision: %w", err)
	}
	result.Processor = p.Name()
	result.Warnings = append(result.Warnings, resp.Warnings...)
	if resp.ProcessingTimeMs > 0 {
		result.ProcessingTimeMs += resp.ProcessingTimeMs
	}
	return result, nil
}

// request performs a single call. Client errors are marked unrecoverable;
// transport failures and 5xx responses are retried.
func (p *VisionProcessor) request(ctx context.Context, imageData []byte, docType domain.DocumentType) (visionMRZResponse, error) {
	var out visionMRZResponse

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", "document.bin")
	if err != nil {
		return out, retry.Unrecoverable(fmt.Errorf("vision: create form file: %w", err))
	}
	if _, err := part.Write(imageData); err != nil {
		return out, retry.Unrecoverable(fmt.Errorf("vision: write image data: %w", err))
	}
	if err := writer.WriteField("document_type", string(docType)); err != nil {
		return out, retry.Unrecoverable(fmt.Errorf("vision: write document_type field: %w", err))
	}
	if err := writer.Close(); err != nil {
		return out, retry.Unrecoverable(fmt.Errorf("vision: close multipart writer: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.visionURL+"/api/v1/mrz", body)
	if err != nil {
		return out, retry.Unrecoverable(fmt.Errorf("vision: create request: %w", err))
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return out, fmt.Errorf("vision: service request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return out, fmt.Errorf("vision: read response body: %w", err)
	}

	switch {
	case resp.StatusCode >= http.StatusInternalServerError:
		return out, fmt.Errorf("vision: service returned %d: %s", resp.StatusCode, string(respBody))
	case resp.StatusCode != http.StatusOK:
		return out, retry.Unrecoverable(fmt.Errorf("vision: service returned %d: %s", resp.StatusCode, string(respBody)))
	}

	if err := json.Unmarshal(respBody, &out); err != nil {
		return out, retry.Unrecoverable(fmt.Errorf("vision: parse response: %w", err))
	}
	return out, nil
}

// visionMRZResponse is the vision service's MRZ reading.
type visionMRZResponse struct {
	Lines            []string `json:"mrz_lines"`
	Warnings         []string `json:"warnings"`
	ProcessingTimeMs int64    `json:"processing_time_ms"`
}
