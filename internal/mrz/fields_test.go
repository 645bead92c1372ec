package mrz_test

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/docscan/docscan-backend/internal/mrz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanCode(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"P<", "P"},
		{"D<<", "D"},
		{"uto", "UTO"},
		{"L898902C3", "L898902C3"},
		{"ZE184226B<<<<<", "ZE184226B"},
		{"A-B C", "ABC"},
		{"<<<", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, mrz.CleanCode(tt.raw))
		})
	}
}

func TestSplitName(t *testing.T) {
	tests := []struct {
		name        string
		field       string
		wantSurname string
		wantGiven   string
	}{
		{"surname and given names", "ERIKSSON<<ANNA<MARIA<<<<<<", "Eriksson", "Anna Maria"},
		{"compound surname", "VAN<DER<BERG<<JAN<<<<", "Van Der Berg", "Jan"},
		{"surname only", "MUSTERMANN<<<<<<<<<<<", "Mustermann", ""},
		{"no separator", "ERIKSSON<ANNA", "", "Eriksson Anna"},
		{"only filler", "<<<<<<<<<<<<", "", ""},
		{"empty", "", "", ""},
		{"leading separator", "<<ANNA<<<<<", "", "Anna"},
		{"lowercase input", "eriksson<<anna", "Eriksson", "Anna"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			surname, given := mrz.SplitName(tt.field)
			assert.Equal(t, tt.wantSurname, surname)
			assert.Equal(t, tt.wantGiven, given)
		})
	}
}

func TestDecodeSex(t *testing.T) {
	tests := []struct {
		raw    string
		legacy bool
		want   mrz.Sex
	}{
		{"M", false, mrz.SexMale},
		{"F", false, mrz.SexFemale},
		{"m", false, mrz.SexMale},
		{"<", false, mrz.SexUnspecified},
		{"X", false, mrz.SexUnspecified},
		{"0", false, mrz.SexUnspecified},
		{"0", true, mrz.SexMale},
		{"", false, mrz.SexUnspecified},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, mrz.DecodeSex(tt.raw, tt.legacy))
		})
	}
}

func TestSex_JSON(t *testing.T) {
	data, err := json.Marshal(mrz.SexFemale)
	require.NoError(t, err)
	assert.JSONEq(t, `"Female"`, string(data))

	var s mrz.Sex
	require.NoError(t, json.Unmarshal([]byte(`"Male"`), &s))
	assert.Equal(t, mrz.SexMale, s)
	assert.Error(t, json.Unmarshal([]byte(`"Other"`), &s))
}

func TestCenturyPolicy_Year(t *testing.T) {
	policy := fixedPolicy() // 2026, lookahead 20

	tests := []struct {
		name string
		yy   int
		kind mrz.DateKind
		want int
	}{
		{"birth last century", 74, mrz.BirthDate, 1974},
		{"birth this year", 26, mrz.BirthDate, 2026},
		{"birth next year means last century", 27, mrz.BirthDate, 1927},
		{"birth early this century", 5, mrz.BirthDate, 2005},
		{"expiry past", 12, mrz.ExpiryDate, 2012},
		{"expiry within lookahead", 46, mrz.ExpiryDate, 2046},
		{"expiry beyond lookahead", 47, mrz.ExpiryDate, 1947},
		{"expiry late last century", 99, mrz.ExpiryDate, 1999},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, policy.Year(tt.yy, tt.kind))
		})
	}
}

func TestCenturyPolicy_ExpiryWrapsForward(t *testing.T) {
	policy := mrz.CenturyPolicy{
		Now: func() time.Time { return time.Date(2095, time.January, 1, 0, 0, 0, 0, time.UTC) },
	}
	assert.Equal(t, 2105, policy.Year(5, mrz.ExpiryDate))
	assert.Equal(t, 2090, policy.Year(90, mrz.ExpiryDate))
}

func TestDecodeDate(t *testing.T) {
	policy := fixedPolicy()

	tests := []struct {
		name    string
		raw     string
		kind    mrz.DateKind
		want    mrz.Date
		wantErr bool
	}{
		{"birth", "740812", mrz.BirthDate, mrz.Date{Year: 1974, Month: time.August, Day: 12}, false},
		{"expiry", "310101", mrz.ExpiryDate, mrz.Date{Year: 2031, Month: time.January, Day: 1}, false},
		{"birth later this year", "261201", mrz.BirthDate, mrz.Date{Year: 1926, Month: time.December, Day: 1}, false},
		{"birth earlier this year", "260101", mrz.BirthDate, mrz.Date{Year: 2026, Month: time.January, Day: 1}, false},
		{"birth today", "261017", mrz.BirthDate, mrz.Date{Year: 2026, Month: time.October, Day: 17}, false},
		{"expiry later this year", "261201", mrz.ExpiryDate, mrz.Date{Year: 2026, Month: time.December, Day: 1}, false},
		{"leap day", "000229", mrz.BirthDate, mrz.Date{Year: 2000, Month: time.February, Day: 29}, false},
		{"all filler", "<<<<<<", mrz.BirthDate, mrz.Date{}, false},
		{"ocr letter", "74O812", mrz.BirthDate, mrz.Date{}, true},
		{"month 13", "741312", mrz.BirthDate, mrz.Date{}, true},
		{"february 30", "740230", mrz.BirthDate, mrz.Date{}, true},
		{"day zero", "740800", mrz.BirthDate, mrz.Date{}, true},
		{"partial filler", "74<<<<", mrz.BirthDate, mrz.Date{}, true},
		{"too short", "7408", mrz.BirthDate, mrz.Date{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := mrz.DecodeDate(tt.raw, tt.kind, policy)
			assert.Equal(t, tt.want, got)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			var dateErr *mrz.DateDecodeError
			require.True(t, errors.As(err, &dateErr))
			assert.Equal(t, tt.raw, dateErr.Raw)
			assert.ErrorIs(t, err, mrz.ErrInvalidDate)
		})
	}
}

func TestDate_Formatting(t *testing.T) {
	d := mrz.Date{Year: 1974, Month: time.August, Day: 12}
	assert.Equal(t, "1974-08-12", d.String())
	assert.Equal(t, "740812", d.YYMMDD())
	assert.Equal(t, time.Date(1974, time.August, 12, 0, 0, 0, 0, time.UTC), d.Time())

	var zero mrz.Date
	assert.Equal(t, "", zero.String())
	assert.Equal(t, "<<<<<<", zero.YYMMDD())
	assert.True(t, zero.Time().IsZero())

	data, err := json.Marshal(d)
	require.NoError(t, err)
	assert.JSONEq(t, `"1974-08-12"`, string(data))

	var back mrz.Date
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, d, back)
}
