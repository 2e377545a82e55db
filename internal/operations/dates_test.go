package operations

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func frParser() *DateParser {
	return &DateParser{Locale: "fr", Loc: ParisLocation()}
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, ParisLocation())
}

func TestDateParser_Parse(t *testing.T) {
	now := time.Date(2024, time.March, 15, 10, 0, 0, 0, ParisLocation())
	p := frParser()

	tests := []struct {
		in   string
		want time.Time
	}{
		{"15-mar", day(2024, time.March, 15)},
		{"16-mar", day(2024, time.March, 16)},
		{"17-mar", day(2023, time.March, 17)},
		{"05-dec", day(2023, time.December, 5)},
		{"05-déc", day(2023, time.December, 5)},
		{"05-Dã©c", day(2023, time.December, 5)},
		{"05-DEC.", day(2023, time.December, 5)},
		{"12-févr.", day(2024, time.February, 12)},
		{"12-fevr", day(2024, time.February, 12)},
		{"03-août", day(2023, time.August, 3)},
		{"03-aoã»t", day(2023, time.August, 3)},
		{"03-aug", day(2023, time.August, 3)},
		{"10-juil.", day(2023, time.July, 10)},
		{"01-jan", day(2024, time.January, 1)},
		{" 2-may ", day(2023, time.May, 2)},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := p.Parse(tt.in, now)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s, want %s", got, tt.want)
		})
	}
}

func TestDateParser_FutureShiftIsExactlyOneYear(t *testing.T) {
	now := time.Date(2025, time.January, 10, 12, 0, 0, 0, ParisLocation())
	p := frParser()

	for _, in := range []string{"20-jan", "15-fevr", "30-nov", "31-dec"} {
		got, err := p.Parse(in, now)
		require.NoError(t, err)
		assert.Equal(t, 2024, got.Year(), in)
		assert.False(t, got.After(now.Add(24*time.Hour)), in)
	}
	for _, in := range []string{"01-jan", "10-jan", "11-jan"} {
		got, err := p.Parse(in, now)
		require.NoError(t, err)
		assert.Equal(t, 2025, got.Year(), in)
	}
}

func TestDateParser_LeapDay(t *testing.T) {
	now := time.Date(2025, time.March, 15, 0, 0, 0, 0, ParisLocation())
	p := frParser()

	got, err := p.Parse("29-fev", now)
	require.NoError(t, err)
	assert.True(t, day(2024, time.February, 29).Equal(got))
}

func TestDateParser_EnglishLocaleFirst(t *testing.T) {
	now := time.Date(2024, time.December, 20, 0, 0, 0, 0, ParisLocation())
	p := frParser()
	p.Locale = "en"

	got, err := p.Parse("02-mar", now)
	require.NoError(t, err)
	assert.Equal(t, time.March, got.Month())
}

func TestDateParser_Invalid(t *testing.T) {
	now := time.Date(2024, time.March, 15, 0, 0, 0, 0, ParisLocation())
	p := frParser()

	for _, in := range []string{"", "foo", "32-jan", "00-jan", "05-xyz", "aa-dec", "31-avr", "05-dã¼c"} {
		_, err := p.Parse(in, now)
		assert.Error(t, err, in)
	}
}
