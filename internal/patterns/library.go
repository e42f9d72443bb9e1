// Package patterns holds the rule tables that detect task-like language in
// transcript segments: task-detection rules, urgency boosts and exclusion
// filters. A Library is compiled once and is safe for concurrent use.
package patterns

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/fyrsmithlabs/actionitems/internal/task"
)

// MinSegmentLength is the shortest trimmed segment text considered at all.
const MinSegmentLength = 10

// ErrInvalidRule is returned when a rule table entry cannot be compiled.
var ErrInvalidRule = errors.New("invalid pattern rule")

// Rule maps a regular expression to a base priority and task type. The first
// capture group holds the task body.
type Rule struct {
	ID       string        `yaml:"id" json:"id"`
	Pattern  string        `yaml:"pattern" json:"pattern"`
	Priority task.Priority `yaml:"priority" json:"priority"`
	Type     task.Type     `yaml:"type" json:"type"`
}

// UrgencyRule boosts urgency when its pattern matches.
type UrgencyRule struct {
	ID      string  `yaml:"id" json:"id"`
	Pattern string  `yaml:"pattern" json:"pattern"`
	Boost   float64 `yaml:"boost" json:"boost"`
}

// ExclusionRule drops a segment when Pattern matches and Unless does not.
type ExclusionRule struct {
	ID      string `yaml:"id" json:"id"`
	Pattern string `yaml:"pattern" json:"pattern"`
	Unless  string `yaml:"unless,omitempty" json:"unless,omitempty"`
}

// Match is one raw hit of a rule against segment text.
type Match struct {
	RuleID   string
	Priority task.Priority
	Type     task.Type
	Captured string
	Start    int
	End      int
}

type compiledRule struct {
	Rule
	regex *regexp.Regexp
}

type compiledUrgency struct {
	UrgencyRule
	regex *regexp.Regexp
}

type compiledExclusion struct {
	ExclusionRule
	regex  *regexp.Regexp
	unless *regexp.Regexp
}

// Library is an immutable, compiled set of rule tables.
type Library struct {
	version    string
	rules      []compiledRule
	byID       map[string]int
	urgency    []compiledUrgency
	exclusions []compiledExclusion
	taskWords  *regexp.Regexp
}

// Tables groups the raw rule tables a Library is compiled from.
type Tables struct {
	Version    string          `yaml:"version"`
	Rules      []Rule          `yaml:"rules"`
	Urgency    []UrgencyRule   `yaml:"urgency"`
	Exclusions []ExclusionRule `yaml:"exclusions"`
}

// DefaultTables returns the built-in rule tables.
func DefaultTables() Tables {
	return Tables{
		Version:    Version,
		Rules:      DefaultRules(),
		Urgency:    DefaultUrgencyRules(),
		Exclusions: DefaultExclusions(),
	}
}

// NewDefault compiles the built-in tables.
func NewDefault() (*Library, error) {
	return New(DefaultTables())
}

// New compiles rule tables. All patterns are matched case-insensitively.
// Any invalid entry fails construction.
func New(t Tables) (*Library, error) {
	lib := &Library{
		version:   t.Version,
		byID:      make(map[string]int, len(t.Rules)),
		taskWords: regexp.MustCompile(`(?i)` + taskWords),
	}
	if lib.version == "" {
		lib.version = Version
	}

	for _, r := range t.Rules {
		if r.ID == "" {
			return nil, fmt.Errorf("%w: rule with empty id", ErrInvalidRule)
		}
		if _, dup := lib.byID[r.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate rule id %q", ErrInvalidRule, r.ID)
		}
		switch r.Priority {
		case task.PriorityHigh, task.PriorityMedium, task.PriorityLow:
		default:
			return nil, fmt.Errorf("%w: rule %q has unknown priority %q", ErrInvalidRule, r.ID, r.Priority)
		}
		if r.Type == "" {
			return nil, fmt.Errorf("%w: rule %q has no task type", ErrInvalidRule, r.ID)
		}
		re, err := regexp.Compile(`(?i)` + r.Pattern)
		if err != nil {
			return nil, fmt.Errorf("%w: rule %q: %v", ErrInvalidRule, r.ID, err)
		}
		if re.NumSubexp() < 1 {
			return nil, fmt.Errorf("%w: rule %q has no capture group", ErrInvalidRule, r.ID)
		}
		lib.byID[r.ID] = len(lib.rules)
		lib.rules = append(lib.rules, compiledRule{Rule: r, regex: re})
	}

	for _, u := range t.Urgency {
		if u.Boost < 1.0 {
			return nil, fmt.Errorf("%w: urgency rule %q boost %.2f below 1.0", ErrInvalidRule, u.ID, u.Boost)
		}
		re, err := regexp.Compile(`(?i)` + u.Pattern)
		if err != nil {
			return nil, fmt.Errorf("%w: urgency rule %q: %v", ErrInvalidRule, u.ID, err)
		}
		lib.urgency = append(lib.urgency, compiledUrgency{UrgencyRule: u, regex: re})
	}

	for _, x := range t.Exclusions {
		re, err := regexp.Compile(`(?i)` + x.Pattern)
		if err != nil {
			return nil, fmt.Errorf("%w: exclusion %q: %v", ErrInvalidRule, x.ID, err)
		}
		ce := compiledExclusion{ExclusionRule: x, regex: re}
		if x.Unless != "" {
			if ce.unless, err = regexp.Compile(`(?i)` + x.Unless); err != nil {
				return nil, fmt.Errorf("%w: exclusion %q unless: %v", ErrInvalidRule, x.ID, err)
			}
		}
		lib.exclusions = append(lib.exclusions, ce)
	}

	return lib, nil
}

// Version identifies the compiled tables.
func (l *Library) Version() string {
	return l.version
}

// Rules returns the rule table in evaluation order.
func (l *Library) Rules() []Rule {
	out := make([]Rule, len(l.rules))
	for i, r := range l.rules {
		out[i] = r.Rule
	}
	return out
}

// Rule looks up a rule by id.
func (l *Library) Rule(id string) (Rule, bool) {
	i, ok := l.byID[id]
	if !ok {
		return Rule{}, false
	}
	return l.rules[i].Rule, true
}

// Eligible reports whether a segment should be pattern-matched at all. When
// it is not, reason names the filter that rejected it.
func (l *Library) Eligible(text string) (ok bool, reason string) {
	text = strings.TrimSpace(text)
	if len(text) < MinSegmentLength {
		return false, "too_short"
	}
	if len(strings.Fields(text)) <= 3 && !l.taskWords.MatchString(text) {
		return false, "fragment"
	}
	if id, excluded := l.Excluded(text); excluded {
		return false, id
	}
	return true, ""
}

// Excluded reports the first exclusion rule that rejects text.
func (l *Library) Excluded(text string) (string, bool) {
	text = strings.TrimSpace(text)
	for _, x := range l.exclusions {
		if !x.regex.MatchString(text) {
			continue
		}
		if x.unless != nil && x.unless.MatchString(text) {
			continue
		}
		return x.ID, true
	}
	return "", false
}

// Match runs every rule against text and returns all hits, ordered by rule
// then by position.
func (l *Library) Match(text string) []Match {
	var matches []Match
	for _, r := range l.rules {
		for _, loc := range r.regex.FindAllStringSubmatchIndex(text, -1) {
			if len(loc) < 4 || loc[2] < 0 {
				continue
			}
			matches = append(matches, Match{
				RuleID:   r.ID,
				Priority: r.Priority,
				Type:     r.Type,
				Captured: text[loc[2]:loc[3]],
				Start:    loc[0],
				End:      loc[1],
			})
		}
	}
	return matches
}

// Urgency returns the largest matching boost (1.0 when none match) and the
// corresponding level.
func (l *Library) Urgency(text string) (task.Urgency, float64) {
	boost := 1.0
	for _, u := range l.urgency {
		if u.Boost > boost && u.regex.MatchString(text) {
			boost = u.Boost
		}
	}
	return task.UrgencyFromBoost(boost), boost
}
