package processor

import (
	"bytes"
	"context"
	"errors"

	"github.com/docscan/docscan-backend/internal/docprocessing/domain"
)

var (
	// ErrNotImage is returned by image processors for data that is neither JPEG nor PNG.
	ErrNotImage = errors.New("data is not a JPEG or PNG image")

	// ErrUnsupportedLayout is returned when the input holds neither a TD3 nor a TD1 zone.
	ErrUnsupportedLayout = errors.New("unsupported MRZ layout")
)

// Processor defines the interface for document data extraction.
// Implementations are tried in registration order, so a processor that
// cannot handle the payload should fail fast and let the next one try.
type Processor interface {
	// CanProcess returns true if this processor handles the given document type
	CanProcess(docType domain.DocumentType) bool

	// Process extracts structured data from document bytes.
	// The data must NOT be retained after processing.
	Process(ctx context.Context, data []byte, docType domain.DocumentType) (*domain.ExtractionResult, error)

	// Name returns the processor name for logging/audit
	Name() string
}

// Registry holds all registered processors and dispatches to the right one
type Registry struct {
	processors []Processor
}

// NewRegistry creates a new processor registry
func NewRegistry(processors ...Processor) *Registry {
	return &Registry{processors: processors}
}

// FindProcessor returns the first processor that can handle the given document type
func (r *Registry) FindProcessor(docType domain.DocumentType) Processor {
	for _, p := range r.processors {
		if p.CanProcess(docType) {
			return p
		}
	}
	return nil
}

// FindProcessors returns all processors that can handle the given document type,
// in registration order. If the first processor fails (e.g. the vision
// service rejects plain text), the next one can try.
func (r *Registry) FindProcessors(docType domain.DocumentType) []Processor {
	var result []Processor
	for _, p := range r.processors {
		if p.CanProcess(docType) {
			result = append(result, p)
		}
	}
	return result
}

// Names returns the registered processor names in order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.processors))
	for i, p := range r.processors {
		names[i] = p.Name()
	}
	return names
}

// JPEG and PNG magic bytes for image detection
var (
	jpegMagic = []byte{0xFF, 0xD8, 0xFF}
	pngMagic  = []byte{0x89, 0x50, 0x4E, 0x47}
)

func isImageData(data []byte) bool {
	return bytes.HasPrefix(data, jpegMagic) || bytes.HasPrefix(data, pngMagic)
}

func isImageDocument(docType domain.DocumentType) bool {
	return docType == domain.DocumentTypePassport || docType == domain.DocumentTypeIDCard
}
