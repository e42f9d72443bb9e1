package dates

import (
	"regexp"
	"strings"
	"time"
)

// dayNames maps weekday names and common abbreviations to time.Weekday.
var dayNames = map[string]time.Weekday{
	"sunday": time.Sunday, "sun": time.Sunday,
	"monday": time.Monday, "mon": time.Monday,
	"tuesday": time.Tuesday, "tue": time.Tuesday, "tues": time.Tuesday,
	"wednesday": time.Wednesday, "wed": time.Wednesday,
	"thursday": time.Thursday, "thu": time.Thursday, "thur": time.Thursday, "thurs": time.Thursday,
	"friday": time.Friday, "fri": time.Friday,
	"saturday": time.Saturday, "sat": time.Saturday,
}

var (
	modifiedWeekday = regexp.MustCompile(`(?i)\b(next|this|coming)\s+(monday|tuesday|wednesday|thursday|friday|saturday|sunday|mon|tues?|wed|thu(?:rs?)?|fri|sat|sun)\b`)
	// Abbreviations are too ambiguous without a modifier ("sun", "wed").
	anyWeekday = regexp.MustCompile(`(?i)\b(?:(next|this|last|coming)\s+)?(monday|tuesday|wednesday|thursday|friday|saturday|sunday)\b`)
)

// afternoonHour is the hour after which "this <weekday>" on that same
// weekday means next week's occurrence.
const afternoonHour = 12

// daysUntil returns the forward distance from current to target. When
// skipToday is set a zero distance becomes a full week.
func daysUntil(current, target time.Weekday, skipToday bool) int {
	d := (int(target) - int(current) + 7) % 7
	if d == 0 && skipToday {
		d = 7
	}
	return d
}

func weekday(text string, ref time.Time) []Candidate {
	var out []Candidate

	for _, m := range modifiedWeekday.FindAllStringSubmatch(text, -1) {
		target, ok := dayNames[strings.ToLower(m[2])]
		if !ok {
			continue
		}
		var d int
		switch strings.ToLower(m[1]) {
		case "this":
			d = daysUntil(ref.Weekday(), target, ref.Hour() > afternoonHour)
		default:
			d = daysUntil(ref.Weekday(), target, true)
		}
		out = append(out, Candidate{RawText: m[0], Resolved: ref.AddDate(0, 0, d), Kind: KindWeekday})
	}

	// Only the first unmodified weekday counts; later ones in the same
	// utterance are usually alternatives ("Monday or Tuesday").
	for _, m := range anyWeekday.FindAllStringSubmatch(text, -1) {
		if m[1] != "" {
			continue
		}
		target := dayNames[strings.ToLower(m[2])]
		d := daysUntil(ref.Weekday(), target, true)
		out = append(out, Candidate{RawText: m[0], Resolved: ref.AddDate(0, 0, d), Kind: KindWeekday})
		break
	}

	return out
}
