package mrz

import "errors"

// Format identifies the MRZ layout a record was decoded from.
type Format string

const (
	FormatTD3 Format = "TD3"
	FormatTD1 Format = "TD1"
)

// Record is the decoded content of one MRZ. Every field is always present;
// empty strings and zero dates mark values that could not be determined.
// Records are returned by value and never modified after decoding.
type Record struct {
	Format         Format  `json:"format"`
	DocumentType   string  `json:"document_type"`
	IssuingCountry Country `json:"issuing_country"`
	DocumentNumber string  `json:"document_number"`
	Nationality    Country `json:"nationality"`
	DateOfBirth    Date    `json:"date_of_birth"`
	DateOfExpiry   Date    `json:"date_of_expiry"`
	Sex            Sex     `json:"sex"`
	Surname        string  `json:"surname"`
	GivenNames     string  `json:"given_names"`
	PersonalNumber string  `json:"personal_number"`

	// CheckDigits is only set when the decoder verifies check digits.
	CheckDigits *CheckDigits `json:"check_digits,omitempty"`
}

// Options configure a Decoder. The zero value is usable: codes resolve to
// themselves, the wall clock drives century inference and check digits are
// not verified.
type Options struct {
	Countries         CountryResolver
	Century           CenturyPolicy
	LegacyZeroAsMale  bool
	VerifyCheckDigits bool
}

// Decoder turns MRZ lines into Records. It holds no mutable state.
type Decoder struct {
	countries        CountryResolver
	century          CenturyPolicy
	legacyZeroAsMale bool
	verifyChecks     bool
}

// NewDecoder creates a decoder with the given options.
func NewDecoder(opts Options) *Decoder {
	countries := opts.Countries
	if countries == nil {
		countries = passthroughResolver{}
	}
	return &Decoder{
		countries:        countries,
		century:          opts.Century,
		legacyZeroAsMale: opts.LegacyZeroAsMale,
		verifyChecks:     opts.VerifyCheckDigits,
	}
}

// DecodeTD3 decodes a two-line passport MRZ. The record is always returned;
// the error joins any field-local *DateDecodeError values.
func (d *Decoder) DecodeTD3(line1, line2 string) (Record, error) {
	f := SliceTD3(line1, line2)

	rec := Record{
		Format:         FormatTD3,
		DocumentType:   CleanCode(f.DocumentType),
		IssuingCountry: d.resolve(f.IssuingCountry),
		DocumentNumber: CleanCode(f.DocumentNumber),
		Nationality:    d.resolve(f.Nationality),
		Sex:            DecodeSex(f.Sex, d.legacyZeroAsMale),
		PersonalNumber: CleanCode(f.PersonalNumber),
	}
	rec.Surname, rec.GivenNames = SplitName(f.Name)

	var errs []error
	rec.DateOfBirth, errs = d.date(f.DateOfBirth, BirthDate, errs)
	rec.DateOfExpiry, errs = d.date(f.DateOfExpiry, ExpiryDate, errs)

	if d.verifyChecks {
		checks := f.Verify()
		rec.CheckDigits = &checks
	}

	return rec, errors.Join(errs...)
}

// DecodeTD1 decodes a three-line ID card MRZ. The first optional data
// element is reported as the personal number.
func (d *Decoder) DecodeTD1(line1, line2, line3 string) (Record, error) {
	f := SliceTD1(line1, line2, line3)

	rec := Record{
		Format:         FormatTD1,
		DocumentType:   CleanCode(f.DocumentType),
		IssuingCountry: d.resolve(f.IssuingCountry),
		DocumentNumber: CleanCode(f.DocumentNumber),
		Nationality:    d.resolve(f.Nationality),
		Sex:            DecodeSex(f.Sex, d.legacyZeroAsMale),
		PersonalNumber: CleanCode(f.OptionalData1),
	}
	rec.Surname, rec.GivenNames = SplitName(f.Name)

	var errs []error
	rec.DateOfBirth, errs = d.date(f.DateOfBirth, BirthDate, errs)
	rec.DateOfExpiry, errs = d.date(f.DateOfExpiry, ExpiryDate, errs)

	if d.verifyChecks {
		checks := f.Verify()
		rec.CheckDigits = &checks
	}

	return rec, errors.Join(errs...)
}

// ResolveCountry cleans raw and looks it up. Unknown codes come back as-is.
func (d *Decoder) ResolveCountry(raw string) Country {
	return d.resolve(raw)
}

func (d *Decoder) resolve(raw string) Country {
	code := CleanCode(raw)
	if code == "" {
		return Country{}
	}
	return d.countries.Resolve(code)
}

func (d *Decoder) date(raw string, kind DateKind, errs []error) (Date, []error) {
	date, err := DecodeDate(raw, kind, d.century)
	if err != nil {
		errs = append(errs, err)
	}
	return date, errs
}
