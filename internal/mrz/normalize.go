package mrz

import (
	"strings"
	"unicode/utf8"
)

// Filler pads unused columns and separates name components.
const Filler = '<'

// Line lengths of the supported layouts.
const (
	TD3LineLength = 44
	TD1LineLength = 30
)

const fillerString = string(Filler)

// NormalizeLine uppercases raw and right-pads it with filler up to length
// characters. Longer input is returned uppercased but never truncated; callers
// that isolated more than one MRZ line have to deal with that themselves.
func NormalizeLine(raw string, length int) string {
	upper := strings.ToUpper(raw)
	n := utf8.RuneCountInString(upper)
	if n >= length {
		return upper
	}
	return upper + strings.Repeat(fillerString, length-n)
}

// NormalizeTD3 normalizes a passport line to 44 characters.
func NormalizeTD3(raw string) string {
	return NormalizeLine(raw, TD3LineLength)
}

// NormalizeTD1 normalizes an ID card line to 30 characters.
func NormalizeTD1(raw string) string {
	return NormalizeLine(raw, TD1LineLength)
}

// IsFiller reports whether s consists only of filler characters.
// The empty string counts as filler.
func IsFiller(s string) bool {
	return strings.Trim(s, fillerString) == ""
}
