package people

import (
	"bufio"
	_ "embed"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"unicode/utf8"

	prose "github.com/jdkato/prose/v2"
	"go.uber.org/zap"
)

//go:embed names.txt
var defaultNames string

// defaultMinNameLength is the shortest unknown word accepted as a name.
const defaultMinNameLength = 3

// NameValidator decides whether a capitalised token is a person's name.
type NameValidator interface {
	IsName(name string) bool
}

// notNames are capitalised words that open sentences or address groups and
// are never treated as a person.
var notNames = map[string]bool{
	"speaker": true, "team": true, "group": true, "everyone": true, "everybody": true,
	"someone": true, "somebody": true, "anyone": true, "anybody": true, "nobody": true,
	"i": true, "we": true, "you": true, "they": true, "he": true, "she": true, "it": true,
	"let": true, "lets": true, "please": true, "the": true, "and": true, "but": true,
	"so": true, "okay": true, "ok": true, "yes": true, "yeah": true, "also": true,
	"then": true, "maybe": true, "well": true, "now": true, "just": true, "sure": true,
	"great": true, "thanks": true, "hey": true, "hi": true, "hello": true, "good": true,
	"this": true, "that": true, "what": true, "when": true, "where": true, "who": true,
	"how": true, "why": true, "all": true, "our": true, "my": true, "your": true,
	"their": true, "his": true, "her": true, "its": true, "there": true, "here": true,
	"can": true, "could": true, "would": true, "should": true, "will": true, "must": true,
	"if": true, "or": true, "not": true, "no": true, "do": true, "does": true, "did": true,
	"has": true, "have": true, "had": true, "is": true, "are": true, "was": true,
	"were": true, "be": true, "been": true, "one": true, "two": true, "first": true,
	"after": true, "before": true, "once": true, "right": true, "actually": true,
	"basically": true, "alright": true, "perfect": true, "awesome": true, "cool": true,
	"anyway": true, "again": true, "sorry": true, "oh": true, "um": true, "uh": true,
	"today": true, "tomorrow": true, "next": true, "last": true, "for": true, "with": true,
	"monday": true, "tuesday": true, "wednesday": true, "thursday": true, "friday": true,
	"saturday": true, "sunday": true, "january": true, "february": true, "march": true,
	"april": true, "may": true, "june": true, "july": true, "august": true,
	"september": true, "october": true, "november": true, "december": true,
}

// Gazetteer accepts names from a word list. Unless strict, unknown words of
// at least MinLength runes are also accepted.
type Gazetteer struct {
	names     map[string]bool
	minLength int
	strict    bool
}

// GazetteerOption configures a Gazetteer.
type GazetteerOption func(*Gazetteer)

// WithStrict rejects any name missing from the word list.
func WithStrict(strict bool) GazetteerOption {
	return func(g *Gazetteer) { g.strict = strict }
}

// WithMinLength sets the minimum length for unknown names.
func WithMinLength(n int) GazetteerOption {
	return func(g *Gazetteer) {
		if n > 0 {
			g.minLength = n
		}
	}
}

// NewGazetteer builds a validator from a newline-separated word list.
func NewGazetteer(r io.Reader, opts ...GazetteerOption) (*Gazetteer, error) {
	g := &Gazetteer{
		names:     make(map[string]bool),
		minLength: defaultMinNameLength,
	}
	for _, opt := range opts {
		opt(g)
	}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		g.names[strings.ToLower(line)] = true
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading gazetteer: %w", err)
	}
	return g, nil
}

// DefaultGazetteer returns the built-in word list validator.
func DefaultGazetteer(opts ...GazetteerOption) *Gazetteer {
	g, err := NewGazetteer(strings.NewReader(defaultNames), opts...)
	if err != nil {
		// the embedded list is static; a read error here is a build defect
		panic(err)
	}
	return g
}

// LoadGazetteer reads a word list from disk.
func LoadGazetteer(path string, opts ...GazetteerOption) (*Gazetteer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening gazetteer: %w", err)
	}
	defer f.Close()
	return NewGazetteer(f, opts...)
}

// Len returns the number of listed names.
func (g *Gazetteer) Len() int {
	return len(g.names)
}

// IsName implements NameValidator.
func (g *Gazetteer) IsName(name string) bool {
	lower := strings.ToLower(strings.TrimSpace(name))
	if lower == "" || notNames[lower] {
		return false
	}
	if g.names[lower] {
		return true
	}
	return !g.strict && utf8.RuneCountInString(lower) >= g.minLength
}

// NERValidator asks a named-entity recognizer whether a token reads as a
// PERSON. Names on the fallback list are accepted without running the model.
// Verdicts are cached per name.
type NERValidator struct {
	fallback *Gazetteer
	logger   *zap.Logger

	mu    sync.Mutex
	cache map[string]bool
}

// NewNERValidator creates a validator backed by prose's entity extractor.
// fallback may be nil.
func NewNERValidator(fallback *Gazetteer, logger *zap.Logger) *NERValidator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NERValidator{
		fallback: fallback,
		logger:   logger,
		cache:    make(map[string]bool),
	}
}

// IsName implements NameValidator.
func (v *NERValidator) IsName(name string) bool {
	name = strings.TrimSpace(name)
	lower := strings.ToLower(name)
	if lower == "" || notNames[lower] {
		return false
	}
	if v.fallback != nil && v.fallback.names[lower] {
		return true
	}

	v.mu.Lock()
	verdict, ok := v.cache[lower]
	v.mu.Unlock()
	if ok {
		return verdict
	}

	verdict = v.classify(name)

	v.mu.Lock()
	v.cache[lower] = verdict
	v.mu.Unlock()
	return verdict
}

// classify places the token in a neutral carrier sentence so the tagger has
// context to work with.
func (v *NERValidator) classify(name string) bool {
	doc, err := prose.NewDocument("Yesterday I spoke with " + name + " about the project.")
	if err != nil {
		v.logger.Debug("entity extraction failed", zap.String("name", name), zap.Error(err))
		return false
	}
	for _, ent := range doc.Entities() {
		if ent.Label == "PERSON" && strings.Contains(ent.Text, name) {
			return true
		}
	}
	return false
}

var (
	_ NameValidator = (*Gazetteer)(nil)
	_ NameValidator = (*NERValidator)(nil)
)
