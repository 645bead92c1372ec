package mrz

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrInvalidDate is wrapped by every DateDecodeError.
var ErrInvalidDate = errors.New("invalid MRZ date")

// DateKind selects the century rule applied to a two-digit year.
type DateKind int

const (
	BirthDate DateKind = iota
	ExpiryDate
)

func (k DateKind) String() string {
	if k == ExpiryDate {
		return "date_of_expiry"
	}
	return "date_of_birth"
}

// DateDecodeError reports a date slice that is neither a calendar date nor
// entirely filler. The record's date stays zero.
type DateDecodeError struct {
	Field string
	Raw   string
	Err   error
}

func (e *DateDecodeError) Error() string {
	return fmt.Sprintf("%s: cannot decode %q: %v", e.Field, e.Raw, e.Err)
}

func (e *DateDecodeError) Unwrap() error {
	return e.Err
}

// Date is a calendar date without time or location. The zero value means
// the date could not be determined.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf returns the calendar date of t.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// IsZero reports whether the date is undetermined.
func (d Date) IsZero() bool {
	return d == Date{}
}

// Time returns midnight UTC of the date, or the zero time.
func (d Date) Time() time.Time {
	if d.IsZero() {
		return time.Time{}
	}
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// String formats the date as 2006-01-02, or "" when undetermined.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// YYMMDD formats the date the way the MRZ stores it. Undetermined dates
// become six fillers.
func (d Date) YYMMDD() string {
	if d.IsZero() {
		return "<<<<<<"
	}
	return fmt.Sprintf("%02d%02d%02d", d.Year%100, int(d.Month), d.Day)
}

// MarshalJSON encodes the date as a string; undetermined dates are "".
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON accepts "2006-01-02" or "".
func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return err
	}
	*d = DateOf(t)
	return nil
}

// DefaultExpiryLookaheadYears bounds how far in the future an expiry date may lie.
const DefaultExpiryLookaheadYears = 20

// CenturyPolicy resolves two-digit MRZ years into full years.
//
// Birth dates are never in the future: a year above the current two-digit
// year belongs to the previous century, and so does a date later this year
// than today. Expiry dates are placed in the
// current century unless that puts them more than ExpiryLookaheadYears past
// now, in which case they move back a century.
type CenturyPolicy struct {
	// Now supplies the reference time. Nil means time.Now.
	Now func() time.Time
	// ExpiryLookaheadYears; values <= 0 select DefaultExpiryLookaheadYears.
	ExpiryLookaheadYears int
}

// DefaultCenturyPolicy uses the wall clock and the default lookahead.
func DefaultCenturyPolicy() CenturyPolicy {
	return CenturyPolicy{Now: time.Now, ExpiryLookaheadYears: DefaultExpiryLookaheadYears}
}

func (p CenturyPolicy) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

// Year expands yy (0-99) into a full year. Birth years are resolved by year
// alone; DecodeDate applies the day-level check.
func (p CenturyPolicy) Year(yy int, kind DateKind) int {
	current := p.now().Year()
	century := current - current%100

	if kind == BirthDate {
		if yy > current%100 {
			return century - 100 + yy
		}
		return century + yy
	}

	lookahead := p.ExpiryLookaheadYears
	if lookahead <= 0 {
		lookahead = DefaultExpiryLookaheadYears
	}
	year := century + yy
	switch {
	case year > current+lookahead:
		year -= 100
	case year <= current+lookahead-100:
		year += 100
	}
	return year
}

// DecodeDate parses a YYMMDD slice. An all-filler slice yields the zero date
// and no error; anything else that is not a valid calendar date yields the
// zero date and a *DateDecodeError.
func DecodeDate(raw string, kind DateKind, policy CenturyPolicy) (Date, error) {
	if IsFiller(raw) {
		return Date{}, nil
	}

	fail := func(reason string) (Date, error) {
		return Date{}, &DateDecodeError{
			Field: kind.String(),
			Raw:   raw,
			Err:   fmt.Errorf("%w: %s", ErrInvalidDate, reason),
		}
	}

	if len(raw) != 6 {
		return fail("expected 6 digits")
	}
	var digits [6]int
	for i := 0; i < 6; i++ {
		c := raw[i]
		if c < '0' || c > '9' {
			return fail("non-digit character")
		}
		digits[i] = int(c - '0')
	}

	yy := digits[0]*10 + digits[1]
	mm := digits[2]*10 + digits[3]
	dd := digits[4]*10 + digits[5]
	if mm < 1 || mm > 12 {
		return fail("month out of range")
	}

	year := policy.Year(yy, kind)
	t := time.Date(year, time.Month(mm), dd, 0, 0, 0, 0, time.UTC)
	if dd < 1 || t.Day() != dd {
		return fail("day out of range")
	}
	if kind == BirthDate && t.After(DateOf(policy.now().UTC()).Time()) {
		year -= 100
		if time.Date(year, time.Month(mm), dd, 0, 0, 0, 0, time.UTC).Day() != dd {
			return fail("day out of range")
		}
	}
	return Date{Year: year, Month: time.Month(mm), Day: dd}, nil
}
