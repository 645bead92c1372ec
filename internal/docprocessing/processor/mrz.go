package processor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/docscan/docscan-backend/internal/docprocessing/domain"
	"github.com/docscan/docscan-backend/internal/docprocessing/locator"
	"github.com/docscan/docscan-backend/internal/docprocessing/metrics"
	"github.com/docscan/docscan-backend/internal/mrz"
)

// ErrNotText is returned by the MRZ processor for binary payloads.
var ErrNotText = errors.New("data is not MRZ text")

// Field confidences. Check digit results move them up or down when the
// decoder verifies them.
const (
	confidenceCode     = 0.95
	confidenceDate     = 0.92
	confidenceName     = 0.90
	confidenceVerified = 0.99
	confidenceMismatch = 0.50
)

// MRZProcessor extracts data from Machine Readable Zone (MRZ) text.
// Supports ICAO 9303 TD3 (2 lines x 44 chars, passports) and
// TD1 (3 lines x 30 chars, ID cards).
//
// It works on MRZ text, not on raw images. Image processors hand their
// recognised lines to DecodeLines or DecodeCandidate.
type MRZProcessor struct {
	decoder *mrz.Decoder
	metrics *metrics.Metrics
}

// NewMRZProcessor creates an MRZ processor. m may be nil.
func NewMRZProcessor(decoder *mrz.Decoder, m *metrics.Metrics) *MRZProcessor {
	return &MRZProcessor{decoder: decoder, metrics: m}
}

func (p *MRZProcessor) Name() string {
	return "mrz"
}

func (p *MRZProcessor) CanProcess(docType domain.DocumentType) bool {
	return docType.Valid()
}

func (p *MRZProcessor) Process(ctx context.Context, data []byte, docType domain.DocumentType) (*domain.ExtractionResult, error) {
	if isImageData(data) || !utf8.Valid(data) {
		return nil, fmt.Errorf("mrz: %w", ErrNotText)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return p.DecodeText(string(data), docType)
}

// DecodeLines decodes positional MRZ lines. Whitespace inside lines is
// removed. Two lines decode as TD3 and three as TD1, each kept in place so
// an empty line pads to filler. Any other count is searched for a zone with
// the locator.
func (p *MRZProcessor) DecodeLines(lines []string, docType domain.DocumentType) (*domain.ExtractionResult, error) {
	compacted := make([]string, len(lines))
	for i, l := range lines {
		compacted[i] = locator.Compact(l)
	}

	switch len(compacted) {
	case 2:
		return p.DecodeCandidate(locator.NewCandidate(mrz.FormatTD3, compacted), docType), nil
	case 3:
		return p.DecodeCandidate(locator.NewCandidate(mrz.FormatTD1, compacted), docType), nil
	}
	return p.locate(nonBlank(compacted), docType)
}

// DecodeText decodes free text such as OCR output or a pasted zone. Blank
// lines carry no position here and are dropped before counting.
func (p *MRZProcessor) DecodeText(text string, docType domain.DocumentType) (*domain.ExtractionResult, error) {
	text = strings.ReplaceAll(text, "\r\n", "\n")

	var compacted []string
	for _, l := range strings.Split(text, "\n") {
		compacted = append(compacted, locator.Compact(l))
	}
	lines := nonBlank(compacted)

	if n := len(lines); n == 2 || n == 3 {
		return p.DecodeLines(lines, docType)
	}
	return p.locate(lines, docType)
}

func (p *MRZProcessor) locate(lines []string, docType domain.DocumentType) (*domain.ExtractionResult, error) {
	c, err := locator.Locate(strings.Join(lines, "\n"))
	if err != nil {
		p.metrics.ObserveDecode("none", metrics.OutcomeUnsupported)
		return nil, fmt.Errorf("%w: expected 2 lines (TD3) or 3 lines (TD1), got %d", ErrUnsupportedLayout, len(lines))
	}
	return p.DecodeCandidate(c, docType), nil
}

func nonBlank(lines []string) []string {
	var out []string
	for _, l := range lines {
		if l != "" {
			out = append(out, l)
		}
	}
	return out
}

// DecodeCandidate decodes a located zone. It never fails: date problems,
// odd line lengths and check digit mismatches become warnings.
func (p *MRZProcessor) DecodeCandidate(c locator.Candidate, docType domain.DocumentType) *domain.ExtractionResult {
	start := time.Now()

	var (
		rec mrz.Record
		err error
	)
	if c.Format == mrz.FormatTD1 {
		rec, err = p.decoder.DecodeTD1(c.Lines[0], c.Lines[1], c.Lines[2])
	} else {
		rec, err = p.decoder.DecodeTD3(c.Lines[0], c.Lines[1])
	}

	warnings := lineWarnings(c)

	outcome := metrics.OutcomeOK
	var dateFields []string
	for _, de := range dateErrors(err) {
		outcome = metrics.OutcomeDateErrors
		p.metrics.IncrementDateError(de.Field)
		dateFields = append(dateFields, de.Field)
		warnings = append(warnings, de.Error())
	}
	p.metrics.ObserveDecode(string(rec.Format), outcome)

	if rec.CheckDigits != nil {
		for _, field := range rec.CheckDigits.Failed() {
			p.metrics.IncrementCheckDigitFailure(field)
			warnings = append(warnings, fmt.Sprintf("check digit mismatch: %s", field))
		}
	}

	if w := documentTypeWarning(rec.Format, docType); w != "" {
		warnings = append(warnings, w)
	}

	return &domain.ExtractionResult{
		DocumentType:     docType,
		Processor:        p.Name(),
		Fields:           recordFields(rec, docType),
		Record:           &rec,
		Warnings:         warnings,
		DateErrorFields:  dateFields,
		ProcessingTimeMs: time.Since(start).Milliseconds(),
	}
}

// dateErrors flattens the joined error returned by the decoder.
func dateErrors(err error) []*mrz.DateDecodeError {
	if err == nil {
		return nil
	}
	var errs []error
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		errs = joined.Unwrap()
	} else {
		errs = []error{err}
	}

	var out []*mrz.DateDecodeError
	for _, e := range errs {
		var de *mrz.DateDecodeError
		if errors.As(e, &de) {
			out = append(out, de)
		}
	}
	return out
}

func lineWarnings(c locator.Candidate) []string {
	width := locator.Width(c.Format)
	var warnings []string
	for i, l := range c.Lines {
		n := utf8.RuneCountInString(l)
		switch {
		case n > width:
			warnings = append(warnings, fmt.Sprintf("line %d has %d characters, columns after %d ignored", i+1, n, width))
		case n < width:
			warnings = append(warnings, fmt.Sprintf("line %d has %d characters, padded to %d", i+1, n, width))
		}
	}
	return warnings
}

func documentTypeWarning(format mrz.Format, docType domain.DocumentType) string {
	switch {
	case docType == domain.DocumentTypePassport && format != mrz.FormatTD3:
		return fmt.Sprintf("document type %s but %s zone found", docType, format)
	case docType == domain.DocumentTypeIDCard && format != mrz.FormatTD1:
		return fmt.Sprintf("document type %s but %s zone found", docType, format)
	}
	return ""
}

// recordFields converts a record into extraction fields. Values that could
// not be determined are left out.
func recordFields(rec mrz.Record, docType domain.DocumentType) []domain.ExtractionField {
	checks := rec.CheckDigits
	verified := func(ok bool, base float64) float64 {
		if checks == nil {
			return base
		}
		if ok {
			return confidenceVerified
		}
		return confidenceMismatch
	}

	var (
		docNumberOK, birthOK, expiryOK, personalOK bool
	)
	if checks != nil {
		docNumberOK, birthOK, expiryOK, personalOK = checks.DocumentNumber, checks.DateOfBirth, checks.DateOfExpiry, checks.PersonalNumber
	}

	candidates := []domain.ExtractionField{
		{Key: domain.FieldDocumentType, Value: rec.DocumentType, Confidence: confidenceCode},
		{Key: domain.FieldIssuingCountry, Value: rec.IssuingCountry.Code, Confidence: confidenceCode},
		{Key: domain.FieldDocumentNumber, Value: rec.DocumentNumber, Confidence: verified(docNumberOK, confidenceCode)},
		{Key: domain.FieldNationality, Value: rec.Nationality.Code, Confidence: confidenceCode},
		{Key: domain.FieldDateOfBirth, Value: rec.DateOfBirth.String(), Confidence: verified(birthOK, confidenceDate)},
		{Key: domain.FieldDateOfExpiry, Value: rec.DateOfExpiry.String(), Confidence: verified(expiryOK, confidenceDate)},
		{Key: domain.FieldSex, Value: sexValue(rec.Sex), Confidence: confidenceCode},
		{Key: domain.FieldSurname, Value: rec.Surname, Confidence: confidenceName},
		{Key: domain.FieldGivenNames, Value: rec.GivenNames, Confidence: confidenceName},
		{Key: domain.FieldPersonalNumber, Value: rec.PersonalNumber, Confidence: verified(personalOK, confidenceCode)},
	}

	fields := make([]domain.ExtractionField, 0, len(candidates))
	for _, f := range candidates {
		if f.Value == "" {
			continue
		}
		f.Source = docType
		fields = append(fields, f)
	}
	return fields
}

func sexValue(s mrz.Sex) string {
	if s == mrz.SexUnspecified {
		return ""
	}
	return s.Code()
}
