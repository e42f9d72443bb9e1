package scoring

import (
	"regexp"
	"strings"
)

// actionVerbs are verbs that mark a concrete deliverable.
var actionVerbs = map[string]bool{
	"complete": true, "finish": true, "deliver": true, "submit": true, "send": true,
	"provide": true, "create": true, "build": true, "develop": true, "implement": true,
	"design": true, "review": true, "check": true, "verify": true, "validate": true,
	"confirm": true, "schedule": true, "arrange": true, "organize": true,
	"coordinate": true, "update": true, "revise": true, "modify": true,
	"prepare": true, "draft": true, "analyze": true, "evaluate": true, "assess": true,
	"test": true, "write": true, "fix": true, "share": true, "book": true,
	"email": true, "contact": true, "document": true, "publish": true,
	"deploy": true, "migrate": true, "investigate": true, "follow": true,
	"compile": true, "setup": true, "file": true, "present": true,
}

// IsActionVerb reports whether word, or a simple inflection of it, is an
// action verb.
func IsActionVerb(word string) bool {
	w := strings.ToLower(strings.Trim(word, ".,;:!?'\""))
	if w == "" {
		return false
	}
	if actionVerbs[w] {
		return true
	}
	for _, suffix := range []string{"ing", "ed", "es", "s", "d"} {
		stem, ok := strings.CutSuffix(w, suffix)
		if !ok || stem == "" {
			continue
		}
		if actionVerbs[stem] || actionVerbs[stem+"e"] {
			return true
		}
		// doubled consonant: submitted, submitting
		if n := len(stem); n > 2 && stem[n-1] == stem[n-2] && actionVerbs[stem[:n-1]] {
			return true
		}
	}
	return false
}

// ContainsActionVerb reports whether any word of text is an action verb.
func ContainsActionVerb(text string) bool {
	for _, w := range strings.Fields(text) {
		if IsActionVerb(w) {
			return true
		}
	}
	return false
}

type modal struct {
	re       *regexp.Regexp
	strength float64
}

func modalRule(phrase string, strength float64) modal {
	return modal{re: regexp.MustCompile(`\b` + regexp.QuoteMeta(phrase) + `\b`), strength: strength}
}

// modals rank commitment strength.
var modals = []modal{
	modalRule("must", 1.0),
	modalRule("have to", 1.0),
	modalRule("has to", 1.0),
	modalRule("need to", 0.95),
	modalRule("needs to", 0.95),
	modalRule("will", 0.9),
	modalRule("shall", 0.85),
	modalRule("going to", 0.8),
	modalRule("gonna", 0.75),
	modalRule("should", 0.7),
	modalRule("ought to", 0.7),
	modalRule("can", 0.5),
	modalRule("could", 0.4),
	modalRule("might", 0.3),
	modalRule("may", 0.3),
}

var (
	politeMarkers         = regexp.MustCompile(`\b(?:please|could you|can you|would you)\b`)
	responsibilityMarkers = regexp.MustCompile(`\b(?:responsible|assigned|tasked)\b`)
	deadlineMarkers       = regexp.MustCompile(`\b(?:deadline|due|by)\b`)
	hedgeMarkers          = regexp.MustCompile(`\b(?:maybe|perhaps|possibly|might want to)\b`)

	urgencySignals = []struct {
		re    *regexp.Regexp
		boost float64
	}{
		{regexp.MustCompile(`\b(?:asap|urgent|immediate|critical)\b`), 0.5},
		{regexp.MustCompile(`\b(?:today|tonight|right now|right away)\b`), 0.3},
		{regexp.MustCompile(`\b(?:important|priority|essential)\b`), 0.2},
	}

	imperativeOpeners = regexp.MustCompile(`^(?:please|can you|could you|would you|let's|lets)\b`)
	declarative       = regexp.MustCompile(`\b(?:will|should|need to|have to)\s+[a-z]+`)
)
