//go:build tesseract

package processor

import (
	"context"
	"fmt"

	"github.com/otiai10/gosseract/v2"

	"github.com/docscan/docscan-backend/internal/docprocessing/domain"
	"github.com/docscan/docscan-backend/internal/docprocessing/locator"
)

// OCRAvailable reports whether local OCR was compiled in.
const OCRAvailable = true

func (p *OCRProcessor) Process(ctx context.Context, imageData []byte, docType domain.DocumentType) (*domain.ExtractionResult, error) {
	if !isImageData(imageData) {
		return nil, fmt.Errorf("ocr: %w", ErrNotImage)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	text, err := p.recognize(imageData)
	if err != nil {
		return nil, fmt.Errorf("ocr: %w", err)
	}

	candidate, err := locator.Locate(text)
	if err != nil {
		return nil, fmt.Errorf("ocr: %w", err)
	}

	result := p.mrz.DecodeCandidate(candidate, docType)
	result.Processor = p.Name()
	return result, nil
}

func (p *OCRProcessor) recognize(imageData []byte) (string, error) {
	c := gosseract.NewClient()
	defer c.Close()

	if err := c.SetLanguage(p.languages...); err != nil {
		return "", fmt.Errorf("set languages: %w", err)
	}
	if err := c.SetPageSegMode(gosseract.PageSegMode(p.pageSegMode)); err != nil {
		return "", fmt.Errorf("set page segmentation mode: %w", err)
	}
	if err := c.SetWhitelist(mrzWhitelist); err != nil {
		return "", fmt.Errorf("set whitelist: %w", err)
	}
	if err := c.SetImageFromBytes(imageData); err != nil {
		return "", fmt.Errorf("set image: %w", err)
	}

	text, err := c.Text()
	if err != nil {
		return "", fmt.Errorf("recognize text: %w", err)
	}
	return text, nil
}
