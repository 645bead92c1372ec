// Package locator finds machine readable zone lines in raw OCR text. It only
// selects lines; field interpretation is left to the mrz package.
package locator

import (
	"errors"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/docscan/docscan-backend/internal/mrz"
)

// ErrNoMRZ is returned when the text contains no plausible zone.
var ErrNoMRZ = errors.New("no machine readable zone found")

const (
	minLineLength = 20
	minMRZRatio   = 0.85
	// lineSlack is how far an OCR line may deviate from the nominal width.
	lineSlack = 4
)

// Candidate is a located zone.
type Candidate struct {
	Format mrz.Format
	Lines  []string
	// Overlength holds the 1-based numbers of lines longer than the nominal
	// width. Those lines are kept intact.
	Overlength []int
}

// Locate picks the last TD3 pair or TD1 triple from text. Whitespace inside
// lines is dropped and letters are uppercased.
func Locate(text string) (Candidate, error) {
	var lines []string
	for _, raw := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		line := Compact(raw)
		if looksLikeMRZ(line) {
			lines = append(lines, line)
		}
	}

	for end := len(lines) - 1; end >= 0; end-- {
		if end >= 1 && near(lines[end-1:end+1], mrz.TD3LineLength) {
			return NewCandidate(mrz.FormatTD3, lines[end-1:end+1]), nil
		}
		if end >= 2 && near(lines[end-2:end+1], mrz.TD1LineLength) {
			return NewCandidate(mrz.FormatTD1, lines[end-2:end+1]), nil
		}
	}
	return Candidate{}, ErrNoMRZ
}

// NewCandidate wraps already separated zone lines, recording which of them
// exceed the nominal width of format.
func NewCandidate(format mrz.Format, lines []string) Candidate {
	width := Width(format)
	c := Candidate{Format: format, Lines: append([]string(nil), lines...)}
	for i, l := range lines {
		if utf8.RuneCountInString(l) > width {
			c.Overlength = append(c.Overlength, i+1)
		}
	}
	return c
}

func near(lines []string, width int) bool {
	for _, l := range lines {
		n := utf8.RuneCountInString(l)
		if n < width-lineSlack || n > width+lineSlack {
			return false
		}
	}
	return true
}

// Width returns the nominal line length of format.
func Width(format mrz.Format) int {
	if format == mrz.FormatTD1 {
		return mrz.TD1LineLength
	}
	return mrz.TD3LineLength
}

// Compact drops whitespace and uppercases letters.
func Compact(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(unicode.ToUpper(r))
	}
	return b.String()
}

func looksLikeMRZ(line string) bool {
	n := utf8.RuneCountInString(line)
	if n < minLineLength {
		return false
	}
	valid := 0
	for _, r := range line {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == mrz.Filler {
			valid++
		}
	}
	return float64(valid)/float64(n) > minMRZRatio
}
