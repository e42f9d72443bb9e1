package dedup

import (
	"context"
	"strings"
	"unicode"

	"github.com/fyrsmithlabs/actionitems/internal/task"
)

// DefaultLexicalThreshold is the Jaccard overlap above which two
// descriptions are duplicates.
const DefaultLexicalThreshold = 0.7

// stopwords are dropped before word overlap is measured.
var stopwords = map[string]bool{
	"a": true, "an": true, "the": true, "to": true, "for": true, "of": true,
	"and": true, "or": true, "on": true, "in": true, "at": true, "by": true,
	"with": true, "this": true, "that": true, "these": true, "those": true,
	"our": true, "my": true, "your": true, "their": true, "it": true, "is": true,
}

// Normalize lower-cases text, replaces punctuation with spaces and collapses
// whitespace.
func Normalize(text string) string {
	mapped := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			return unicode.ToLower(r)
		}
		return ' '
	}, text)
	return strings.Join(strings.Fields(mapped), " ")
}

// words returns the set of words in normalized text. With content set,
// stopwords are left out.
func words(normalized string, content bool) map[string]bool {
	set := make(map[string]bool)
	for _, w := range strings.Fields(normalized) {
		if !content || !stopwords[w] {
			set[w] = true
		}
	}
	return set
}

// Jaccard returns the word overlap of two descriptions after normalisation
// and stopword removal.
func Jaccard(a, b string) float64 {
	na, nb := Normalize(a), Normalize(b)
	return jaccard(words(na, true), words(nb, true))
}

func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	var inter int
	for w := range a {
		if b[w] {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}

// contains reports whether one normalized description appears inside the
// other on word boundaries. Empty descriptions never contain anything.
func contains(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	pa, pb := " "+a+" ", " "+b+" "
	return strings.Contains(pa, pb) || strings.Contains(pb, pa)
}

// Lexical clusters candidates by word overlap and containment. Overlap is
// measured over all words and again over content words; either one above the
// threshold makes a duplicate.
type Lexical struct {
	threshold float64
}

// NewLexical creates a lexical deduplicator. A non-positive threshold
// selects DefaultLexicalThreshold.
func NewLexical(threshold float64) *Lexical {
	if threshold <= 0 {
		threshold = DefaultLexicalThreshold
	}
	return &Lexical{threshold: threshold}
}

type lexicalKey struct {
	normalized string
	all        map[string]bool
	content    map[string]bool
}

func newLexicalKey(text string) lexicalKey {
	n := Normalize(text)
	return lexicalKey{normalized: n, all: words(n, false), content: words(n, true)}
}

// Duplicate reports whether two descriptions describe the same task.
func (l *Lexical) Duplicate(a, b string) bool {
	return l.duplicate(newLexicalKey(a), newLexicalKey(b))
}

func (l *Lexical) duplicate(a, b lexicalKey) bool {
	return jaccard(a.all, b.all) > l.threshold ||
		jaccard(a.content, b.content) > l.threshold ||
		contains(a.normalized, b.normalized)
}

// Deduplicate implements Deduplicator.
func (l *Lexical) Deduplicate(_ context.Context, cands []*task.Candidate) Outcome {
	keys := make([]lexicalKey, len(cands))
	for i, c := range cands {
		keys[i] = newLexicalKey(c.Description)
	}
	clusters := cluster(len(cands), func(i, j int) bool {
		return l.duplicate(keys[i], keys[j])
	})
	return collapse(cands, clusters, StrategyLexical)
}
