package dates

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ErrInvalidDate is returned for calendar dates that do not exist.
var ErrInvalidDate = errors.New("invalid calendar date")

var monthNames = map[string]time.Month{
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
}

const monthAlt = `jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|june?|july?|aug(?:ust)?|sep(?:t(?:ember)?)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?`

var (
	isoDate      = regexp.MustCompile(`\b(\d{4})[-/](\d{1,2})[-/](\d{1,2})\b`)
	monthDayDate = regexp.MustCompile(`(?i)\b(` + monthAlt + `)\.?\s+(\d{1,2})(?:st|nd|rd|th)?(?:,?\s+(\d{4}))?\b`)
	dayMonthDate = regexp.MustCompile(`(?i)\b(\d{1,2})(?:st|nd|rd|th)?\s+(?:of\s+)?(` + monthAlt + `)(?:,?\s+(\d{4}))?\b`)
	slashDate    = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})(?:/(\d{4}|\d{2}))?\b`)
)

// maxYearOffset bounds explicit years around the reference year.
const maxYearOffset = 100

// calendarDate builds a midnight date in ref's location and rejects
// overflowing values such as February 30.
func calendarDate(year, month, day int, ref time.Time) (time.Time, error) {
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, fmt.Errorf("%w: %04d-%02d-%02d", ErrInvalidDate, year, month, day)
	}
	if year < ref.Year()-maxYearOffset || year > ref.Year()+maxYearOffset {
		return time.Time{}, fmt.Errorf("%w: year %d out of range", ErrInvalidDate, year)
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, ref.Location())
	if t.Day() != day || int(t.Month()) != month {
		return time.Time{}, fmt.Errorf("%w: %04d-%02d-%02d", ErrInvalidDate, year, month, day)
	}
	return t, nil
}

func parseYear(s string, ref time.Time) int {
	if s == "" {
		return ref.Year()
	}
	y, err := strconv.Atoi(s)
	if err != nil {
		return ref.Year()
	}
	if len(s) == 2 {
		y += 2000
	}
	return y
}

// explicit finds calendar dates. ISO spans are masked before the slash form
// runs so "2025-11-05" is not read a second time as "11/05".
func (r *Resolver) explicit(text string, ref time.Time) []Candidate {
	var out []Candidate
	work := []byte(text)

	add := func(raw string, y, m, d int) {
		t, err := calendarDate(y, m, d, ref)
		if err != nil {
			r.logger.Debug("skipping invalid date", zap.String("raw", raw), zap.Error(err))
			return
		}
		out = append(out, Candidate{RawText: raw, Resolved: t, Kind: KindExplicit})
	}

	for _, loc := range isoDate.FindAllStringSubmatchIndex(string(work), -1) {
		raw := text[loc[0]:loc[1]]
		y, _ := strconv.Atoi(text[loc[2]:loc[3]])
		m, _ := strconv.Atoi(text[loc[4]:loc[5]])
		d, _ := strconv.Atoi(text[loc[6]:loc[7]])
		add(raw, y, m, d)
		mask(work, loc[0], loc[1])
	}

	for _, loc := range monthDayDate.FindAllStringSubmatchIndex(string(work), -1) {
		raw := text[loc[0]:loc[1]]
		month := monthNames[strings.ToLower(text[loc[2]:loc[3]])]
		d, _ := strconv.Atoi(text[loc[4]:loc[5]])
		year := ""
		if loc[6] >= 0 {
			year = text[loc[6]:loc[7]]
		}
		add(raw, parseYear(year, ref), int(month), d)
		mask(work, loc[0], loc[1])
	}

	for _, loc := range dayMonthDate.FindAllStringSubmatchIndex(string(work), -1) {
		raw := text[loc[0]:loc[1]]
		d, _ := strconv.Atoi(text[loc[2]:loc[3]])
		month := monthNames[strings.ToLower(text[loc[4]:loc[5]])]
		year := ""
		if loc[6] >= 0 {
			year = text[loc[6]:loc[7]]
		}
		add(raw, parseYear(year, ref), int(month), d)
		mask(work, loc[0], loc[1])
	}

	for _, loc := range slashDate.FindAllStringSubmatchIndex(string(work), -1) {
		raw := text[loc[0]:loc[1]]
		m, _ := strconv.Atoi(text[loc[2]:loc[3]])
		d, _ := strconv.Atoi(text[loc[4]:loc[5]])
		year := ""
		if loc[6] >= 0 {
			year = text[loc[6]:loc[7]]
		}
		add(raw, parseYear(year, ref), m, d)
	}

	return out
}
