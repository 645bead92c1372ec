package mrz

import "strconv"

var checkWeights = [3]int{7, 3, 1}

// CheckDigit computes the ICAO 9303 7-3-1 check digit of s. Digits count
// their value, A-Z count 10-35, filler and anything unexpected count 0.
func CheckDigit(s string) int {
	sum := 0
	for i, r := range []rune(s) {
		var v int
		switch {
		case r >= '0' && r <= '9':
			v = int(r - '0')
		case r >= 'A' && r <= 'Z':
			v = int(r-'A') + 10
		case r >= 'a' && r <= 'z':
			v = int(r-'a') + 10
		}
		sum += v * checkWeights[i%3]
	}
	return sum % 10
}

// checkDigitChar returns the check digit of s as a single character.
func checkDigitChar(s string) string {
	return strconv.Itoa(CheckDigit(s))
}

// verifyCheck compares the printed check character against the field. A
// filler check is accepted for an all-filler optional field.
func verifyCheck(field, check string, optional bool) bool {
	if optional && IsFiller(field) && (check == fillerString || check == "0") {
		return true
	}
	if len(check) != 1 || check[0] < '0' || check[0] > '9' {
		return false
	}
	return int(check[0]-'0') == CheckDigit(field)
}

// CheckDigits reports which printed check digits match their fields.
type CheckDigits struct {
	DocumentNumber bool `json:"document_number"`
	DateOfBirth    bool `json:"date_of_birth"`
	DateOfExpiry   bool `json:"date_of_expiry"`
	PersonalNumber bool `json:"personal_number"`
	Composite      bool `json:"composite"`
}

// Valid reports whether every check digit matched.
func (c CheckDigits) Valid() bool {
	return c.DocumentNumber && c.DateOfBirth && c.DateOfExpiry && c.PersonalNumber && c.Composite
}

// Failed lists the names of mismatching check digits.
func (c CheckDigits) Failed() []string {
	var failed []string
	if !c.DocumentNumber {
		failed = append(failed, "document_number")
	}
	if !c.DateOfBirth {
		failed = append(failed, "date_of_birth")
	}
	if !c.DateOfExpiry {
		failed = append(failed, "date_of_expiry")
	}
	if !c.PersonalNumber {
		failed = append(failed, "personal_number")
	}
	if !c.Composite {
		failed = append(failed, "composite")
	}
	return failed
}

// Verify checks every check digit of a sliced TD3 record.
func (f TD3Fields) Verify() CheckDigits {
	return CheckDigits{
		DocumentNumber: verifyCheck(f.DocumentNumber, f.DocumentNumberCheck, false),
		DateOfBirth:    verifyCheck(f.DateOfBirth, f.DateOfBirthCheck, false),
		DateOfExpiry:   verifyCheck(f.DateOfExpiry, f.DateOfExpiryCheck, false),
		PersonalNumber: verifyCheck(f.PersonalNumber, f.PersonalNumberCheck, true),
		Composite:      verifyCheck(f.composite, f.CompositeCheck, false),
	}
}

// Verify checks every check digit of a sliced TD1 record. TD1 has no
// separately checked personal number, so that flag is always true.
func (f TD1Fields) Verify() CheckDigits {
	return CheckDigits{
		DocumentNumber: verifyCheck(f.DocumentNumber, f.DocumentNumberCheck, false),
		DateOfBirth:    verifyCheck(f.DateOfBirth, f.DateOfBirthCheck, false),
		DateOfExpiry:   verifyCheck(f.DateOfExpiry, f.DateOfExpiryCheck, false),
		PersonalNumber: true,
		Composite:      verifyCheck(f.composite, f.CompositeCheck, false),
	}
}

// VerifyTD3 slices two raw lines and checks their digits.
func VerifyTD3(line1, line2 string) CheckDigits {
	return SliceTD3(line1, line2).Verify()
}
