package patterns

import (
	"regexp"
	"strings"
)

// endIndicators truncate a captured task body. They are tried in order and
// the first one that matches wins.
var endIndicators = []*regexp.Regexp{
	regexp.MustCompile(`\.(?:\s+[A-Z]|\s*$)`),
	regexp.MustCompile(`\?`),
	regexp.MustCompile(`!`),
	regexp.MustCompile(`(?i)\s(?:and|but|or|so|because|if|when|where|who|what|how)\s`),
}

var (
	fillers        = regexp.MustCompile(`(?i)\b(?:you know|I mean|um+|uh+|basically|actually|kind of|sort of)\b|(?:^|,)\s*like\s*,`)
	trailingFiller = regexp.MustCompile(`(?i)\s+(?:a|an|the|to|for|with|by|on|in|at|of|and|or)$`)
	trailingPunct  = regexp.MustCompile(`[\s.,;:!?\-]+$`)
	leadingPunct   = regexp.MustCompile(`^[\s.,;:!?\-]+`)
)

// CleanDescription turns a captured task body into a readable description.
// It truncates at the first sentence or clause boundary, drops speech
// fillers and strips dangling articles, prepositions and punctuation.
func CleanDescription(captured string) string {
	desc := strings.TrimSpace(captured)

	for _, re := range endIndicators {
		if loc := re.FindStringIndex(desc); loc != nil {
			desc = desc[:loc[0]]
			break
		}
	}

	desc = fillers.ReplaceAllString(desc, " ")
	desc = strings.Join(strings.Fields(desc), " ")
	desc = leadingPunct.ReplaceAllString(desc, "")

	for {
		before := desc
		desc = trailingPunct.ReplaceAllString(desc, "")
		desc = trailingFiller.ReplaceAllString(desc, "")
		if desc == before {
			break
		}
	}

	return desc
}
