package dates

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// maxRelativeAmount caps "in N units" so absurd inputs resolve to nothing.
const maxRelativeAmount = 1000

var amountWords = map[string]int{
	"a": 1, "an": 1, "one": 1, "two": 2, "three": 3, "four": 4, "five": 5,
	"six": 6, "seven": 7, "eight": 8, "nine": 9, "ten": 10, "eleven": 11,
	"twelve": 12, "a couple of": 2, "a few": 3,
}

// relativeRules resolve phrases against the reference instant. Order
// matters: each hit is masked so "day after tomorrow" is not read again as
// "tomorrow" and "end of next week" not again as "next week".
var relativeRules = []struct {
	pattern *regexp.Regexp
	resolve func(match []string, ref time.Time) (time.Time, bool)
}{
	// "no later than noon/tomorrow/EOD"
	{
		pattern: regexp.MustCompile(`(?i)\bno later than\s+(noon|midday|tonight|today|tomorrow|eod|cob|end of (?:the )?day)\b`),
		resolve: func(m []string, ref time.Time) (time.Time, bool) {
			switch strings.ToLower(m[1]) {
			case "noon", "midday":
				return atClock(ref, 12, 0), true
			case "tonight":
				return atClock(ref, 20, 0), true
			case "today":
				return ref, true
			case "tomorrow":
				return ref.AddDate(0, 0, 1), true
			default:
				return atClock(ref, 17, 0), true
			}
		},
	},
	// "day after tomorrow"
	{
		pattern: regexp.MustCompile(`(?i)\b(?:the\s+)?day after tomorrow\b`),
		resolve: func(_ []string, ref time.Time) (time.Time, bool) {
			return ref.AddDate(0, 0, 2), true
		},
	},
	{
		pattern: regexp.MustCompile(`(?i)\btomorrow\b`),
		resolve: func(_ []string, ref time.Time) (time.Time, bool) {
			return ref.AddDate(0, 0, 1), true
		},
	},
	{
		pattern: regexp.MustCompile(`(?i)\btonight\b`),
		resolve: func(_ []string, ref time.Time) (time.Time, bool) {
			return atClock(ref, 20, 0), true
		},
	},
	{
		pattern: regexp.MustCompile(`(?i)\btoday\b`),
		resolve: func(_ []string, ref time.Time) (time.Time, bool) {
			return ref, true
		},
	},
	{
		pattern: regexp.MustCompile(`(?i)\byesterday\b`),
		resolve: func(_ []string, ref time.Time) (time.Time, bool) {
			return ref.AddDate(0, 0, -1), true
		},
	},
	// "in 3 days", "within two weeks", "in a couple of months"
	{
		pattern: regexp.MustCompile(`(?i)\b(?:in|within)\s+(\d{1,4}|a couple of|a few|an?|one|two|three|four|five|six|seven|eight|nine|ten|eleven|twelve)\s+(hours?|days?|weeks?|months?|years?)\b`),
		resolve: func(m []string, ref time.Time) (time.Time, bool) {
			n, ok := amountWords[strings.ToLower(m[1])]
			if !ok {
				v, err := strconv.Atoi(m[1])
				if err != nil {
					return time.Time{}, false
				}
				n = v
			}
			if n <= 0 || n > maxRelativeAmount {
				return time.Time{}, false
			}
			return addUnits(ref, n, m[2]), true
		},
	},
	// "end of next week/month"
	{
		pattern: regexp.MustCompile(`(?i)\bend of next (week|month)\b`),
		resolve: func(m []string, ref time.Time) (time.Time, bool) {
			if strings.EqualFold(m[1], "week") {
				return endOfWeek(ref).AddDate(0, 0, 7), true
			}
			return endOfMonth(firstOfNextMonth(ref)), true
		},
	},
	// "end of the week/month/year", "end of this month"
	{
		pattern: regexp.MustCompile(`(?i)\bend of (?:the |this )?(week|month|year)\b`),
		resolve: func(m []string, ref time.Time) (time.Time, bool) {
			return endOf(ref, m[1]), true
		},
	},
	// "start of next week", "beginning of the month"
	{
		pattern: regexp.MustCompile(`(?i)\b(?:start|beginning) of (?:the |next )?(week|month)\b`),
		resolve: func(m []string, ref time.Time) (time.Time, bool) {
			if strings.EqualFold(m[1], "week") {
				return midnight(ref).AddDate(0, 0, daysUntil(ref.Weekday(), time.Monday, true)), true
			}
			if ref.Day() == 1 {
				return midnight(ref), true
			}
			return firstOfNextMonth(ref), true
		},
	},
	// "early/mid/late (next) week", "middle of the week"
	{
		pattern: regexp.MustCompile(`(?i)\b(early|mid|middle of|late)[- ](?:the )?(next )?week\b`),
		resolve: func(m []string, ref time.Time) (time.Time, bool) {
			offset := 0
			switch strings.ToLower(m[1]) {
			case "mid", "middle of":
				offset = 2
			case "late":
				offset = 4
			}
			monday := midnight(ref).AddDate(0, 0, -((int(ref.Weekday()) + 6) % 7))
			target := monday.AddDate(0, 0, offset)
			if m[2] != "" {
				return target.AddDate(0, 0, 7), true
			}
			if target.Before(midnight(ref)) {
				target = target.AddDate(0, 0, 7)
			}
			return target, true
		},
	},
	// "EOD", "COB", "end of day", "close of business"
	{
		pattern: regexp.MustCompile(`(?i)\b(?:eod|cob|end of (?:the )?(?:business )?day|close of business)\b`),
		resolve: func(_ []string, ref time.Time) (time.Time, bool) {
			return atClock(ref, 17, 0), true
		},
	},
	{
		pattern: regexp.MustCompile(`(?i)\b(before|after) lunch\b`),
		resolve: func(m []string, ref time.Time) (time.Time, bool) {
			if strings.EqualFold(m[1], "before") {
				return atClock(ref, 12, 0), true
			}
			return atClock(ref, 13, 0), true
		},
	},
	{
		pattern: regexp.MustCompile(`(?i)\b(?:noon|midday)\b`),
		resolve: func(_ []string, ref time.Time) (time.Time, bool) {
			return atClock(ref, 12, 0), true
		},
	},
	// "next week/month/year"
	{
		pattern: regexp.MustCompile(`(?i)\bnext (week|month|year)\b`),
		resolve: func(m []string, ref time.Time) (time.Time, bool) {
			return addUnits(ref, 1, m[1]), true
		},
	},
	// "this week/month/year" means by the end of it
	{
		pattern: regexp.MustCompile(`(?i)\bthis (week|month|year)\b`),
		resolve: func(m []string, ref time.Time) (time.Time, bool) {
			return endOf(ref, m[1]), true
		},
	},
	// "ASAP", "urgently"
	{
		pattern: regexp.MustCompile(`(?i)\b(?:asap|as soon as possible|urgent(?:ly)?)\b`),
		resolve: func(_ []string, ref time.Time) (time.Time, bool) {
			return ref.AddDate(0, 0, 1), true
		},
	},
}

func relative(text string, ref time.Time) []Candidate {
	var out []Candidate
	work := []byte(text)
	for _, rule := range relativeRules {
		locs := rule.pattern.FindAllStringSubmatchIndex(string(work), -1)
		for _, loc := range locs {
			match := make([]string, len(loc)/2)
			for i := range match {
				if loc[2*i] >= 0 {
					match[i] = text[loc[2*i]:loc[2*i+1]]
				}
			}
			if t, ok := rule.resolve(match, ref); ok {
				out = append(out, Candidate{RawText: match[0], Resolved: t, Kind: KindRelative})
			}
			mask(work, loc[0], loc[1])
		}
	}
	return out
}

// addUnits adds n units. Months count as 30 days and years as 365.
func addUnits(ref time.Time, n int, unit string) time.Time {
	unit = strings.TrimSuffix(strings.ToLower(unit), "s")
	switch unit {
	case "hour":
		return ref.Add(time.Duration(n) * time.Hour)
	case "week":
		return ref.AddDate(0, 0, 7*n)
	case "month":
		return ref.AddDate(0, 0, 30*n)
	case "year":
		return ref.AddDate(0, 0, 365*n)
	default:
		return ref.AddDate(0, 0, n)
	}
}

func endOf(ref time.Time, unit string) time.Time {
	switch strings.ToLower(unit) {
	case "week":
		return endOfWeek(ref)
	case "month":
		return endOfMonth(ref)
	default:
		return time.Date(ref.Year(), time.December, 31, 0, 0, 0, 0, ref.Location())
	}
}

// endOfWeek returns the coming Sunday, or today when ref is a Sunday.
func endOfWeek(ref time.Time) time.Time {
	return midnight(ref).AddDate(0, 0, (7-int(ref.Weekday()))%7)
}

func endOfMonth(ref time.Time) time.Time {
	return firstOfNextMonth(ref).AddDate(0, 0, -1)
}

func firstOfNextMonth(ref time.Time) time.Time {
	return time.Date(ref.Year(), ref.Month()+1, 1, 0, 0, 0, 0, ref.Location())
}
