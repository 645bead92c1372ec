package processor

import (
	"errors"

	"github.com/docscan/docscan-backend/internal/docprocessing/domain"
)

// ErrOCRUnavailable is returned when the binary was built without tesseract
// support. Rebuild with -tags tesseract to enable it.
var ErrOCRUnavailable = errors.New("local OCR not enabled; rebuild with -tags tesseract")

// mrzWhitelist restricts recognition to the MRZ character set.
const mrzWhitelist = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789<"

// OCRConfig holds settings for the local tesseract engine.
type OCRConfig struct {
	Languages   []string
	PageSegMode int
}

// OCRProcessor reads document images with a local tesseract engine, locates
// the zone in the recognised text and decodes it through the MRZ processor.
type OCRProcessor struct {
	languages   []string
	pageSegMode int
	mrz         *MRZProcessor
}

// NewOCRProcessor creates a local OCR processor decoding through mrzProc.
func NewOCRProcessor(cfg OCRConfig, mrzProc *MRZProcessor) *OCRProcessor {
	langs := cfg.Languages
	if len(langs) == 0 {
		langs = []string{"eng"}
	}
	return &OCRProcessor{languages: langs, pageSegMode: cfg.PageSegMode, mrz: mrzProc}
}

func (p *OCRProcessor) Name() string { return "ocr" }

func (p *OCRProcessor) CanProcess(docType domain.DocumentType) bool {
	return OCRAvailable && isImageDocument(docType)
}
