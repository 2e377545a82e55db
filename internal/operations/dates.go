package operations

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Accented letters of the exports sometimes arrive double encoded. Known forms, lower cased.
var mangledAccents = strings.NewReplacer(
	"ã©", "e", // é
	"ã¨", "e", // è
	"ãª", "e", // ê
	"ã»", "u", // û
	"ã´", "o", // ô
)

// Month names accepted per locale, without accents nor trailing period.
var monthNames = map[string]map[string]time.Month{
	"fr": {
		"janv": time.January, "janvier": time.January,
		"fevr": time.February, "fev": time.February, "fevrier": time.February,
		"mars": time.March,
		"avr":  time.April, "avril": time.April,
		"mai":  time.May,
		"juin": time.June,
		"juil": time.July, "juillet": time.July,
		"aout": time.August,
		"sept": time.September, "septembre": time.September,
		"oct": time.October, "octobre": time.October,
		"nov": time.November, "novembre": time.November,
		"dec": time.December, "decembre": time.December,
	},
	"en": {
		"jan": time.January, "january": time.January,
		"feb": time.February, "february": time.February,
		"mar": time.March, "march": time.March,
		"apr": time.April, "april": time.April,
		"may": time.May,
		"jun": time.June, "june": time.June,
		"jul": time.July, "july": time.July,
		"aug": time.August, "august": time.August,
		"sep": time.September, "sept": time.September, "september": time.September,
		"oct": time.October, "october": time.October,
		"nov": time.November, "november": time.November,
		"dec": time.December, "december": time.December,
	},
}

// DateParser reads the "DD-mon" dates of legacy exports. The export has no year and covers
// roughly the last six months.
type DateParser struct {
	// Locale is tried first, then French, then English.
	Locale string
	Loc    *time.Location
}

// NewDateParser returns a parser for the locale in Europe/Paris.
func NewDateParser(locale string) *DateParser {
	return &DateParser{Locale: locale, Loc: ParisLocation()}
}

func foldAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// normalizeDate lower-cases s and replaces accented or mangled letters.
func normalizeDate(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = mangledAccents.Replace(s)
	return foldAccents(s)
}

func (p *DateParser) month(token string) (time.Month, bool) {
	token = strings.TrimSuffix(token, ".")
	for _, locale := range []string{p.Locale, "fr", "en"} {
		if m, ok := monthNames[locale][token]; ok {
			return m, true
		}
	}
	return 0, false
}

// Parse returns the date at midnight. Dates more than one day ahead of now belong to the
// previous year.
func (p *DateParser) Parse(s string, now time.Time) (time.Time, error) {
	clean := normalizeDate(s)
	dayPart, monthPart, ok := strings.Cut(clean, "-")
	if !ok {
		dayPart, monthPart, ok = strings.Cut(clean, " ")
	}
	if !ok {
		return time.Time{}, fmt.Errorf("Parse: %q: not a day-month date", s)
	}

	day, err := strconv.Atoi(strings.TrimSpace(dayPart))
	if err != nil || day < 1 || day > 31 {
		return time.Time{}, fmt.Errorf("Parse: %q: invalid day", s)
	}
	month, ok := p.month(strings.TrimSpace(monthPart))
	if !ok {
		return time.Time{}, fmt.Errorf("Parse: %q: unknown month", s)
	}

	loc := p.Loc
	if loc == nil {
		loc = ParisLocation()
	}
	now = now.In(loc)

	year := now.Year()
	date := time.Date(year, month, day, 0, 0, 0, 0, loc)
	if date.Day() != day {
		// 29 February out of a leap year can only be from an earlier year
		year--
		date = time.Date(year, month, day, 0, 0, 0, 0, loc)
		if date.Day() != day {
			return time.Time{}, fmt.Errorf("Parse: %q: invalid day for month", s)
		}
		return date, nil
	}

	if date.After(now.Add(24 * time.Hour)) {
		date = date.AddDate(-1, 0, 0)
	}
	return date, nil
}
