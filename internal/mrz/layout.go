package mrz

// Span is a fixed column range on one MRZ line, 0-indexed and end-exclusive.
type Span struct {
	Line  int
	Start int
	End   int
}

// extract returns the characters of the span. Columns past the end of a line
// come back empty, which cannot happen for normalized lines.
func (s Span) extract(lines [][]rune) string {
	if s.Line >= len(lines) {
		return ""
	}
	line := lines[s.Line]
	start, end := s.Start, s.End
	if start > len(line) {
		start = len(line)
	}
	if end > len(line) {
		end = len(line)
	}
	return string(line[start:end])
}

// TD3 column map (two-line passport layout).
var (
	TD3DocumentType        = Span{0, 0, 2}
	TD3IssuingCountry      = Span{0, 2, 5}
	TD3Name                = Span{0, 5, 44}
	TD3DocumentNumber      = Span{1, 0, 9}
	TD3DocumentNumberCheck = Span{1, 9, 10}
	TD3Nationality         = Span{1, 10, 13}
	TD3DateOfBirth         = Span{1, 13, 19}
	TD3DateOfBirthCheck    = Span{1, 19, 20}
	TD3Sex                 = Span{1, 20, 21}
	TD3DateOfExpiry        = Span{1, 21, 27}
	TD3DateOfExpiryCheck   = Span{1, 27, 28}
	TD3PersonalNumber      = Span{1, 28, 42}
	TD3PersonalNumberCheck = Span{1, 42, 43}
	TD3CompositeCheck      = Span{1, 43, 44}
)

// TD1 column map (three-line ID card layout).
var (
	TD1DocumentType        = Span{0, 0, 2}
	TD1IssuingCountry      = Span{0, 2, 5}
	TD1DocumentNumber      = Span{0, 5, 14}
	TD1DocumentNumberCheck = Span{0, 14, 15}
	TD1OptionalData1       = Span{0, 15, 30}
	TD1DateOfBirth         = Span{1, 0, 6}
	TD1DateOfBirthCheck    = Span{1, 6, 7}
	TD1Sex                 = Span{1, 7, 8}
	TD1DateOfExpiry        = Span{1, 8, 14}
	TD1DateOfExpiryCheck   = Span{1, 14, 15}
	TD1Nationality         = Span{1, 15, 18}
	TD1OptionalData2       = Span{1, 18, 29}
	TD1CompositeCheck      = Span{1, 29, 30}
	TD1Name                = Span{2, 0, 30}
)

// TD3Fields holds the raw, undecoded substrings of a TD3 record.
type TD3Fields struct {
	DocumentType        string
	IssuingCountry      string
	Name                string
	DocumentNumber      string
	DocumentNumberCheck string
	Nationality         string
	DateOfBirth         string
	DateOfBirthCheck    string
	Sex                 string
	DateOfExpiry        string
	DateOfExpiryCheck   string
	PersonalNumber      string
	PersonalNumberCheck string
	CompositeCheck      string

	// composite is the concatenation the composite check digit covers.
	composite string
}

// SliceTD3 normalizes both lines and cuts them along the TD3 column map.
// Characters past column 44 are ignored.
func SliceTD3(line1, line2 string) TD3Fields {
	lines := [][]rune{
		[]rune(NormalizeTD3(line1)),
		[]rune(NormalizeTD3(line2)),
	}

	return TD3Fields{
		DocumentType:        TD3DocumentType.extract(lines),
		IssuingCountry:      TD3IssuingCountry.extract(lines),
		Name:                TD3Name.extract(lines),
		DocumentNumber:      TD3DocumentNumber.extract(lines),
		DocumentNumberCheck: TD3DocumentNumberCheck.extract(lines),
		Nationality:         TD3Nationality.extract(lines),
		DateOfBirth:         TD3DateOfBirth.extract(lines),
		DateOfBirthCheck:    TD3DateOfBirthCheck.extract(lines),
		Sex:                 TD3Sex.extract(lines),
		DateOfExpiry:        TD3DateOfExpiry.extract(lines),
		DateOfExpiryCheck:   TD3DateOfExpiryCheck.extract(lines),
		PersonalNumber:      TD3PersonalNumber.extract(lines),
		PersonalNumberCheck: TD3PersonalNumberCheck.extract(lines),
		CompositeCheck:      TD3CompositeCheck.extract(lines),
		composite: Span{1, 0, 10}.extract(lines) +
			Span{1, 13, 20}.extract(lines) +
			Span{1, 21, 43}.extract(lines),
	}
}

// TD1Fields holds the raw, undecoded substrings of a TD1 record.
type TD1Fields struct {
	DocumentType        string
	IssuingCountry      string
	DocumentNumber      string
	DocumentNumberCheck string
	OptionalData1       string
	DateOfBirth         string
	DateOfBirthCheck    string
	Sex                 string
	DateOfExpiry        string
	DateOfExpiryCheck   string
	Nationality         string
	OptionalData2       string
	CompositeCheck      string
	Name                string

	composite string
}

// SliceTD1 normalizes the three lines and cuts them along the TD1 column map.
func SliceTD1(line1, line2, line3 string) TD1Fields {
	lines := [][]rune{
		[]rune(NormalizeTD1(line1)),
		[]rune(NormalizeTD1(line2)),
		[]rune(NormalizeTD1(line3)),
	}

	return TD1Fields{
		DocumentType:        TD1DocumentType.extract(lines),
		IssuingCountry:      TD1IssuingCountry.extract(lines),
		DocumentNumber:      TD1DocumentNumber.extract(lines),
		DocumentNumberCheck: TD1DocumentNumberCheck.extract(lines),
		OptionalData1:       TD1OptionalData1.extract(lines),
		DateOfBirth:         TD1DateOfBirth.extract(lines),
		DateOfBirthCheck:    TD1DateOfBirthCheck.extract(lines),
		Sex:                 TD1Sex.extract(lines),
		DateOfExpiry:        TD1DateOfExpiry.extract(lines),
		DateOfExpiryCheck:   TD1DateOfExpiryCheck.extract(lines),
		Nationality:         TD1Nationality.extract(lines),
		OptionalData2:       TD1OptionalData2.extract(lines),
		CompositeCheck:      TD1CompositeCheck.extract(lines),
		Name:                TD1Name.extract(lines),
		composite: Span{0, 5, 30}.extract(lines) +
			Span{1, 0, 7}.extract(lines) +
			Span{1, 8, 15}.extract(lines) +
			Span{1, 18, 29}.extract(lines),
	}
}
