//go:build !tesseract

package processor

import (
	"context"
	"fmt"

	"github.com/docscan/docscan-backend/internal/docprocessing/domain"
)

// OCRAvailable reports whether local OCR was compiled in.
const OCRAvailable = false

func (p *OCRProcessor) Process(ctx context.Context, imageData []byte, docType domain.DocumentType) (*domain.ExtractionResult, error) {
	return nil, fmt.Errorf("ocr: %w", ErrOCRUnavailable)
}
