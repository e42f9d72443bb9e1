package extractor

import (
	"errors"
	"fmt"
	"time"

	"github.com/fyrsmithlabs/actionitems/internal/arbiter"
	"github.com/fyrsmithlabs/actionitems/internal/dedup"
	"github.com/fyrsmithlabs/actionitems/internal/task"
)

// Method selects the extraction strategy.
type Method string

const (
	// MethodRules runs the rule-based pipeline.
	MethodRules Method = "rules"
	// MethodLLM asks the completion service for the whole list and falls
	// back to the rule-based pipeline when that fails.
	MethodLLM Method = "llm"
)

// Defaults.
const (
	DefaultWorkers              = 1
	DefaultMinDescriptionLength = 10
	DefaultDateTimeout          = 2 * time.Second
)

// ErrInvalidOptions is returned by New for out-of-range options.
var ErrInvalidOptions = errors.New("invalid extractor options")

// DedupOptions selects the deduplication strategy. A zero threshold selects
// the strategy's default.
type DedupOptions struct {
	Strategy  string
	Threshold float64
}

// ArbiterOptions enables arbitration of ambiguous tasks.
type ArbiterOptions struct {
	Enabled             bool
	ConfidenceThreshold float64
	Concurrency         int
	Timeout             time.Duration
}

// Options tunes one Extractor.
type Options struct {
	// ReferenceTime anchors relative dates. Zero means the time of each
	// Extract call.
	ReferenceTime time.Time
	Method        Method
	Dedup         DedupOptions
	Arbiter       ArbiterOptions
	// Workers bounds the per-segment stage and date prefetch. One runs
	// them sequentially.
	Workers              int
	MinDescriptionLength int
	ReviewThreshold      float64
	// DateTimeout bounds each call to the advanced date parser.
	DateTimeout time.Duration
}

// DefaultOptions returns rule-based extraction with lexical deduplication
// and arbitration disabled.
func DefaultOptions() Options {
	a := arbiter.DefaultConfig()
	return Options{
		Method: MethodRules,
		Dedup:  DedupOptions{Strategy: dedup.StrategyLexical},
		Arbiter: ArbiterOptions{
			ConfidenceThreshold: a.ConfidenceThreshold,
			Concurrency:         a.Concurrency,
			Timeout:             a.Timeout,
		},
		Workers:              DefaultWorkers,
		MinDescriptionLength: DefaultMinDescriptionLength,
		ReviewThreshold:      task.DefaultReviewThreshold,
		DateTimeout:          DefaultDateTimeout,
	}
}

// Validate checks the options.
func (o Options) Validate() error {
	switch o.Method {
	case MethodRules, MethodLLM, "":
	default:
		return fmt.Errorf("%w: unknown method %q", ErrInvalidOptions, o.Method)
	}
	if o.Dedup.Strategy != "" && !dedup.ValidStrategy(o.Dedup.Strategy) {
		return fmt.Errorf("%w: unknown dedup strategy %q", ErrInvalidOptions, o.Dedup.Strategy)
	}
	if o.Dedup.Threshold != 0 {
		if err := dedup.ValidateThreshold(o.Dedup.Threshold); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidOptions, err)
		}
	}
	if o.Arbiter.Enabled {
		if err := o.arbiterConfig().Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidOptions, err)
		}
	}
	if o.Workers < 1 {
		return fmt.Errorf("%w: workers must be at least 1, got %d", ErrInvalidOptions, o.Workers)
	}
	if o.MinDescriptionLength < 1 {
		return fmt.Errorf("%w: minimum description length must be positive, got %d", ErrInvalidOptions, o.MinDescriptionLength)
	}
	if o.ReviewThreshold < 0 || o.ReviewThreshold > 1 {
		return fmt.Errorf("%w: review threshold %v out of range [0,1]", ErrInvalidOptions, o.ReviewThreshold)
	}
	if o.DateTimeout <= 0 {
		return fmt.Errorf("%w: date timeout must be positive, got %s", ErrInvalidOptions, o.DateTimeout)
	}
	return nil
}

func (o Options) arbiterConfig() arbiter.Config {
	return arbiter.Config{
		ConfidenceThreshold:  o.Arbiter.ConfidenceThreshold,
		Concurrency:          o.Arbiter.Concurrency,
		Timeout:              o.Arbiter.Timeout,
		MinDescriptionLength: o.MinDescriptionLength,
	}
}
