package mrz

import (
	"strings"
	"unicode/utf8"
)

// EncodeTD3 renders a record back into two 44-character passport lines with
// freshly computed check digits. Names longer than the 39-column name field
// are cut off, as issuing authorities do.
func EncodeTD3(rec Record) (line1, line2 string) {
	name := encodeName(rec.Surname) + fillerString + fillerString + encodeName(rec.GivenNames)

	line1 = fit(rec.DocumentType, 2) +
		fit(rec.IssuingCountry.Code, 3) +
		fit(name, 39)

	docNumber := fit(rec.DocumentNumber, 9)
	dob := rec.DateOfBirth.YYMMDD()
	expiry := rec.DateOfExpiry.YYMMDD()
	personal := fit(rec.PersonalNumber, 14)

	personalCheck := checkDigitChar(personal)
	if IsFiller(personal) {
		personalCheck = fillerString
	}

	var b strings.Builder
	b.WriteString(docNumber)
	b.WriteString(checkDigitChar(docNumber))
	b.WriteString(fit(rec.Nationality.Code, 3))
	b.WriteString(dob)
	b.WriteString(checkDigitChar(dob))
	b.WriteString(rec.Sex.Code())
	b.WriteString(expiry)
	b.WriteString(checkDigitChar(expiry))
	b.WriteString(personal)
	b.WriteString(personalCheck)

	partial := []rune(b.String())
	composite := string(partial[0:10]) + string(partial[13:20]) + string(partial[21:43])
	b.WriteString(checkDigitChar(composite))

	return line1, b.String()
}

// encodeName uppercases a display name and turns spaces into fillers.
func encodeName(s string) string {
	return strings.Join(strings.Fields(strings.ToUpper(s)), fillerString)
}

// fit pads s with filler or cuts it to exactly n characters.
func fit(s string, n int) string {
	s = strings.ToUpper(s)
	if utf8.RuneCountInString(s) > n {
		return string([]rune(s)[:n])
	}
	return NormalizeLine(s, n)
}
