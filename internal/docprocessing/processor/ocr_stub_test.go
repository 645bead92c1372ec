//go:build !tesseract

package processor_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/docscan/docscan-backend/internal/docprocessing/domain"
	"github.com/docscan/docscan-backend/internal/docprocessing/processor"
)

func TestOCRProcessor_Unavailable(t *testing.T) {
	p := processor.NewOCRProcessor(processor.OCRConfig{}, processor.NewMRZProcessor(newDecoder(t, false), nil))

	assert.False(t, processor.OCRAvailable)
	assert.Equal(t, "ocr", p.Name())
	assert.False(t, p.CanProcess(domain.DocumentTypePassport))

	_, err := p.Process(context.Background(), pngImage, domain.DocumentTypePassport)
	assert.True(t, errors.Is(err, processor.ErrOCRUnavailable))
}
