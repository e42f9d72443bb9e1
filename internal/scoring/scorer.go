// Package scoring combines independent heuristic signals into a single
// confidence score for a candidate task.
//
// Nine features are each normalised to [0,1] and combined with a weight
// vector summing to 1.0:
//
//	confidence = 0.3 + 0.7 * sum(weight_i * feature_i), clamped to [0,1]
//
// Scoring is deterministic and stateless.
package scoring

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/fyrsmithlabs/actionitems/internal/task"
)

// Feature names one scoring signal.
type Feature string

const (
	FeatureAssignee   Feature = "has_assignee"
	FeatureDueDate    Feature = "has_due_date"
	FeatureStartDate  Feature = "has_start_date"
	FeatureLength     Feature = "task_length"
	FeatureActionVerb Feature = "has_action_verb"
	FeatureModal      Feature = "modal_verb_strength"
	FeatureContext    Feature = "context_quality"
	FeatureUrgency    Feature = "urgency_level"
	FeatureStructure  Feature = "sentence_structure"
)

// Features lists every feature in evaluation order.
var Features = []Feature{
	FeatureAssignee, FeatureDueDate, FeatureStartDate, FeatureLength,
	FeatureActionVerb, FeatureModal, FeatureContext, FeatureUrgency, FeatureStructure,
}

const (
	baseConfidence = 0.3
	featureScale   = 0.7
	weightEpsilon  = 1e-6
)

// ErrInvalidWeights is returned when a weight vector is incomplete, negative
// or does not sum to 1.
var ErrInvalidWeights = errors.New("invalid feature weights")

// Weights maps each feature to its contribution.
type Weights map[Feature]float64

// DefaultWeights returns the standard weight vector.
func DefaultWeights() Weights {
	return Weights{
		FeatureAssignee:   0.20,
		FeatureDueDate:    0.15,
		FeatureStartDate:  0.05,
		FeatureLength:     0.10,
		FeatureActionVerb: 0.15,
		FeatureModal:      0.10,
		FeatureContext:    0.10,
		FeatureUrgency:    0.10,
		FeatureStructure:  0.05,
	}
}

// Validate checks that every feature has a non-negative weight and that the
// weights sum to 1.
func (w Weights) Validate() error {
	var sum float64
	for _, f := range Features {
		v, ok := w[f]
		if !ok {
			return fmt.Errorf("%w: missing %s", ErrInvalidWeights, f)
		}
		if v < 0 {
			return fmt.Errorf("%w: %s is negative", ErrInvalidWeights, f)
		}
		sum += v
	}
	if math.Abs(sum-1) > weightEpsilon {
		return fmt.Errorf("%w: sum is %.4f", ErrInvalidWeights, sum)
	}
	return nil
}

// Scorer computes candidate confidence.
type Scorer struct {
	weights Weights
}

// New creates a scorer with the given weights.
func New(weights Weights) (*Scorer, error) {
	if err := weights.Validate(); err != nil {
		return nil, err
	}
	cp := make(Weights, len(weights))
	for k, v := range weights {
		cp[k] = v
	}
	return &Scorer{weights: cp}, nil
}

// NewDefault creates a scorer with DefaultWeights.
func NewDefault() *Scorer {
	return &Scorer{weights: DefaultWeights()}
}

// Explanation breaks a score down per feature.
type Explanation struct {
	Confidence float64             `json:"confidence"`
	Features   map[Feature]float64 `json:"features"`
	Weights    map[Feature]float64 `json:"weights"`
	Breakdown  map[Feature]float64 `json:"breakdown"`
}

// Score returns the confidence for c.
func (s *Scorer) Score(c *task.Candidate) float64 {
	return s.combine(extract(c))
}

// Explain returns the confidence with its per-feature contributions.
func (s *Scorer) Explain(c *task.Candidate) Explanation {
	features := extract(c)
	exp := Explanation{
		Confidence: s.combine(features),
		Features:   features,
		Weights:    make(map[Feature]float64, len(s.weights)),
		Breakdown:  make(map[Feature]float64, len(s.weights)),
	}
	for _, f := range Features {
		exp.Weights[f] = s.weights[f]
		exp.Breakdown[f] = features[f] * s.weights[f]
	}
	return exp
}

func (s *Scorer) combine(features map[Feature]float64) float64 {
	var sum float64
	for _, f := range Features {
		sum += features[f] * s.weights[f]
	}
	return clamp(baseConfidence + featureScale*sum)
}

func extract(c *task.Candidate) map[Feature]float64 {
	description := strings.ToLower(c.Description)
	source := strings.ToLower(strings.TrimSpace(c.SourceText))

	return map[Feature]float64{
		FeatureAssignee:   indicator(c.HasAssignee()),
		FeatureDueDate:    indicator(c.HasDueDate()),
		FeatureStartDate:  indicator(c.HasStartDate()),
		FeatureLength:     lengthScore(len(strings.Fields(description))),
		FeatureActionVerb: actionVerbScore(description),
		FeatureModal:      ModalStrength(source),
		FeatureContext:    contextQuality(source),
		FeatureUrgency:    urgencyLevel(source),
		FeatureStructure:  sentenceStructure(source),
	}
}

func indicator(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// lengthScore peaks for descriptions of 15 to 60 words.
func lengthScore(words int) float64 {
	switch {
	case words >= 15 && words <= 60:
		return 1.0
	case (words >= 10 && words < 15) || (words > 60 && words <= 80):
		return 0.7
	case words >= 5 && words < 10:
		return 0.5
	default:
		return 0.3
	}
}

func actionVerbScore(description string) float64 {
	if ContainsActionVerb(description) {
		return 1.0
	}
	return 0.3
}

// ModalStrength returns the strongest modal found in lower-cased text, or 0.
func ModalStrength(text string) float64 {
	var best float64
	for _, m := range modals {
		if m.strength > best && m.re.MatchString(text) {
			best = m.strength
		}
	}
	return best
}

func contextQuality(text string) float64 {
	score := 0.5
	if politeMarkers.MatchString(text) {
		score += 0.2
	}
	if responsibilityMarkers.MatchString(text) {
		score += 0.2
	}
	if deadlineMarkers.MatchString(text) {
		score += 0.1
	}
	if hedgeMarkers.MatchString(text) {
		score -= 0.2
	}
	if strings.HasSuffix(text, "?") {
		score -= 0.1
	}
	return clamp(score)
}

func urgencyLevel(text string) float64 {
	score := 0.5
	for _, sig := range urgencySignals {
		if sig.re.MatchString(text) {
			score = math.Min(score+sig.boost, 1.0)
		}
	}
	return score
}

// isImperative treats a sentence as a command when it opens with a request
// marker or an action verb.
func isImperative(text string) bool {
	if imperativeOpeners.MatchString(text) {
		return true
	}
	words := strings.Fields(text)
	return len(words) > 0 && IsActionVerb(words[0])
}

func sentenceStructure(text string) float64 {
	score := 0.5
	words := len(strings.Fields(text))
	if isImperative(text) {
		score += 0.3
	}
	if declarative.MatchString(text) {
		score += 0.2
	}
	if strings.Contains(text, ".") || words > 8 {
		score += 0.1
	}
	if words < 5 {
		score -= 0.2
	}
	return clamp(score)
}

func clamp(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
