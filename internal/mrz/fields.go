package mrz

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// CleanCode drops filler and anything outside [A-Z0-9] and uppercases the rest.
// Used for document type, document number, country codes and personal number.
func CleanCode(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToUpper(s) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// SplitName splits an MRZ name field into surname and given names on the
// first "<<". Single fillers become spaces and trailing filler is dropped.
// Without a separator the whole field is treated as given names.
func SplitName(field string) (surname, givenNames string) {
	field = strings.ToUpper(field)
	idx := strings.Index(field, fillerString+fillerString)
	if idx < 0 {
		return "", displayName(field)
	}
	return displayName(field[:idx]), displayName(field[idx+2:])
}

// displayName turns "ANNA<MARIA<<<" into "Anna Maria".
func displayName(s string) string {
	words := strings.FieldsFunc(s, func(r rune) bool {
		return r == Filler || unicode.IsSpace(r)
	})
	if len(words) == 0 {
		return ""
	}
	// Casers keep state and must not be shared between goroutines.
	return cases.Title(language.Und).String(strings.Join(words, " "))
}

// Sex is the holder's sex as printed in the MRZ.
type Sex int

const (
	SexUnspecified Sex = iota
	SexMale
	SexFemale
)

func (s Sex) String() string {
	switch s {
	case SexMale:
		return "Male"
	case SexFemale:
		return "Female"
	default:
		return "Unspecified"
	}
}

// Code returns the single MRZ character for s.
func (s Sex) Code() string {
	switch s {
	case SexMale:
		return "M"
	case SexFemale:
		return "F"
	default:
		return fillerString
	}
}

// MarshalJSON encodes the sex as its display name.
func (s Sex) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON accepts the display names produced by MarshalJSON.
func (s *Sex) UnmarshalJSON(data []byte) error {
	var v string
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch v {
	case "Male":
		*s = SexMale
	case "Female":
		*s = SexFemale
	case "Unspecified", "":
		*s = SexUnspecified
	default:
		return fmt.Errorf("mrz: unknown sex %q", v)
	}
	return nil
}

// DecodeSex maps M and F; everything else is unspecified. Some older scanners
// emit 0 for M, which is only honoured with legacyZeroAsMale.
func DecodeSex(raw string, legacyZeroAsMale bool) Sex {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "M":
		return SexMale
	case "F":
		return SexFemale
	case "0":
		if legacyZeroAsMale {
			return SexMale
		}
	}
	return SexUnspecified
}

// Country is an alpha-3 code and its display name. Name equals Code when the
// code is not known.
type Country struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// CountryResolver turns a cleaned country code into a Country.
type CountryResolver interface {
	Resolve(code string) Country
}

// passthroughResolver is used when no table is configured.
type passthroughResolver struct{}

func (passthroughResolver) Resolve(code string) Country {
	return Country{Code: code, Name: code}
}
