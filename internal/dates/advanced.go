package dates

import (
	"context"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"
)

// advancedPhrases pick out deadline phrases worth sending to the advanced
// parser. Group 1 is the phrase handed over.
var advancedPhrases = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bby\s+((?:next\s+)?(?:monday|tuesday|wednesday|thursday|friday|saturday|sunday))\b`),
	regexp.MustCompile(`(?i)\bby\s+(next\s+\w+)`),
	regexp.MustCompile(`(?i)\bby\s+(?:the\s+)?(end\s+of\s+\w+)`),
	regexp.MustCompile(`(?i)\bby\s+((?:` + monthAlt + `)\.?\s+\d{1,2}(?:st|nd|rd|th)?)\b`),
	regexp.MustCompile(`(?i)\bdeadline\s+(?:is|of)\s+(\w+\s+\d{1,2}(?:st|nd|rd|th)?)\b`),
	regexp.MustCompile(`(?i)\bdue\s+(?:on\s+|by\s+)?(\w+\s+\d{1,2}(?:st|nd|rd|th)?)\b`),
}

// advancedPhrasesIn returns distinct phrases in discovery order.
func advancedPhrasesIn(text string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, re := range advancedPhrases {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			phrase := strings.TrimSpace(m[1])
			key := strings.ToLower(phrase)
			if phrase == "" || seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, phrase)
		}
	}
	return out
}

func (r *Resolver) advancedTier(ctx context.Context, text string, ref time.Time) []Candidate {
	if r.advanced == nil {
		return nil
	}

	var out []Candidate
	for _, phrase := range advancedPhrasesIn(text) {
		if ctx.Err() != nil {
			r.logger.Debug("advanced date parsing cancelled", zap.Error(ctx.Err()))
			return out
		}
		callCtx, cancel := context.WithTimeout(ctx, r.timeout)
		t, found, err := r.advanced.ParseDate(callCtx, phrase, ref, true)
		cancel()
		if err != nil {
			r.logger.Warn("advanced date parser failed",
				zap.String("phrase", phrase),
				zap.Error(err),
			)
			continue
		}
		if !found || t.IsZero() {
			continue
		}
		out = append(out, Candidate{RawText: phrase, Resolved: t, Kind: KindAdvanced})
	}
	return out
}
