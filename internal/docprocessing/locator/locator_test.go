package locator_test

import (
	"testing"

	"github.com/docscan/docscan-backend/internal/docprocessing/locator"
	"github.com/docscan/docscan-backend/internal/mrz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	td3Line1 = "P<UTOERIKSSON<<ANNA<MARIA<<<<<<<<<<<<<<<<<<<"
	td3Line2 = "L898902C36UTO7408122F1204159ZE184226B<<<<<10"

	td1Line1 = "I<UTOD231458907<<<<<<<<<<<<<<<"
	td1Line2 = "7408122F1204159UTO<<<<<<<<<<<6"
	td1Line3 = "ERIKSSON<<ANNA<MARIA<<<<<<<<<<"
)

func TestLocate(t *testing.T) {
	tests := []struct {
		name       string
		text       string
		wantFormat mrz.Format
		wantLines  []string
		overlength []int
	}{
		{
			name:       "td3 below free text",
			text:       "PASSPORT\nUtopia Republic\nSurname: Eriksson\n\n" + td3Line1 + "\n" + td3Line2 + "\n",
			wantFormat: mrz.FormatTD3,
			wantLines:  []string{td3Line1, td3Line2},
		},
		{
			name:       "ocr spacing and lowercase",
			text:       "p<uto eriksson<<anna<maria <<<<<<<<<<<<<<<<<<<\r\nL898902C36 UTO7408122F1204159ZE184226B<<<<<10",
			wantFormat: mrz.FormatTD3,
			wantLines:  []string{td3Line1, td3Line2},
		},
		{
			name:       "td1 card",
			text:       "IDENTITY CARD\n" + td1Line1 + "\n" + td1Line2 + "\n" + td1Line3,
			wantFormat: mrz.FormatTD1,
			wantLines:  []string{td1Line1, td1Line2, td1Line3},
		},
		{
			name:       "overlength line kept intact",
			text:       td3Line1 + "\n" + td3Line2 + "<<",
			wantFormat: mrz.FormatTD3,
			wantLines:  []string{td3Line1, td3Line2 + "<<"},
			overlength: []int{2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := locator.Locate(tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.wantFormat, c.Format)
			assert.Equal(t, tt.wantLines, c.Lines)
			assert.Equal(t, tt.overlength, c.Overlength)
		})
	}
}

func TestLocate_NoMRZ(t *testing.T) {
	for _, text := range []string{
		"",
		"just a paragraph of ordinary text that is long enough to matter",
		td3Line1, // a single line is not a zone
		"I<UTOD231458907<<<<<<<<<<<<<<<\n7408122F1204159UTO<<<<<<<<<<<6",
	} {
		_, err := locator.Locate(text)
		assert.ErrorIs(t, err, locator.ErrNoMRZ)
	}
}

func TestNewCandidate(t *testing.T) {
	c := locator.NewCandidate(mrz.FormatTD1, []string{
		"I<UTOD231458907<<<<<<<<<<<<<<<XX",
		"7408122F1204159UTO<<<<<<<<<<<6",
		"ERIKSSON<<ANNA<MARIA",
	})
	assert.Equal(t, []int{1}, c.Overlength)
	assert.Len(t, c.Lines, 3)
}

func TestCompact(t *testing.T) {
	assert.Equal(t, "P<UTOERIKSSON", locator.Compact(" p<uto eriks\tson "))
	assert.Equal(t, 44, locator.Width(mrz.FormatTD3))
	assert.Equal(t, 30, locator.Width(mrz.FormatTD1))
}
