// Package dates extracts temporal expressions from meeting speech and
// resolves them against a reference instant.
//
// Four tiers run over every piece of text and their results are unioned:
//
//   - explicit: calendar dates such as "November 5", "2025-11-05" or "11/05"
//   - relative: phrases such as "tomorrow", "in 3 days" or "end of month"
//   - weekday: "next Friday", "this Monday" or a bare "Thursday"
//   - advanced: residual deadline phrases handed to an AdvancedParser
package dates

import (
	"context"
	"slices"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/actionitems/internal/task"
)

// maxInputLength bounds the text scanned per call.
const maxInputLength = 10000

// defaultAdvancedTimeout bounds a single AdvancedParser call.
const defaultAdvancedTimeout = 2 * time.Second

// Kind names the tier that produced a candidate.
type Kind string

const (
	KindExplicit Kind = "explicit"
	KindRelative Kind = "relative"
	KindWeekday  Kind = "weekday"
	KindAdvanced Kind = "advanced"
)

// Candidate is one resolved temporal expression.
type Candidate struct {
	RawText  string
	Resolved time.Time
	Kind     Kind
}

// AdvancedParser resolves free-form deadline phrases. Implementations must
// honour ctx cancellation. found is false when the phrase holds no date.
type AdvancedParser interface {
	ParseDate(ctx context.Context, phrase string, ref time.Time, preferFuture bool) (t time.Time, found bool, err error)
}

// Resolver extracts dates from text. It is safe for concurrent use.
type Resolver struct {
	advanced AdvancedParser
	timeout  time.Duration
	logger   *zap.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithAdvancedParser enables the advanced tier.
func WithAdvancedParser(p AdvancedParser) Option {
	return func(r *Resolver) { r.advanced = p }
}

// WithTimeout bounds each advanced parser call.
func WithTimeout(d time.Duration) Option {
	return func(r *Resolver) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewResolver creates a Resolver. Without an advanced parser only the three
// built-in tiers run.
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{
		timeout: defaultAdvancedTimeout,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// HasAdvanced reports whether the advanced tier is enabled.
func (r *Resolver) HasAdvanced() bool {
	return r.advanced != nil
}

// Extract runs all tiers over text. Duplicates across tiers are kept.
func (r *Resolver) Extract(ctx context.Context, text string, ref time.Time) []Candidate {
	if text == "" || ref.IsZero() {
		return nil
	}
	if len(text) > maxInputLength {
		text = text[:maxInputLength]
	}

	var out []Candidate
	out = append(out, r.explicit(text, ref)...)
	out = append(out, relative(text, ref)...)
	out = append(out, weekday(text, ref)...)
	out = append(out, r.advancedTier(ctx, text, ref)...)
	return out
}

// Span is the task-level view of the dates found around a task.
type Span struct {
	Start     *time.Time
	Due       *time.Time
	Mentioned []string
}

// Summarize turns pooled candidates into a Span. Dates are compared as
// calendar days, so "tomorrow" and "11/6" name the same day. One distinct day
// becomes the due date. With two or more, the earliest is the start date and
// the latest the due date; intermediate days only appear in Mentioned. Start
// and due are midnight in the candidate's location.
func Summarize(cands []Candidate) Span {
	var span Span
	if len(cands) == 0 {
		return span
	}

	span.Mentioned = make([]string, 0, len(cands))
	var distinct []time.Time
	for _, c := range cands {
		d := midnight(c.Resolved)
		span.Mentioned = append(span.Mentioned, d.Format(task.DateLayout))
		if !slices.ContainsFunc(distinct, d.Equal) {
			distinct = append(distinct, d)
		}
	}
	sort.Slice(distinct, func(i, j int) bool { return distinct[i].Before(distinct[j]) })

	due := distinct[len(distinct)-1]
	span.Due = &due
	if len(distinct) > 1 {
		start := distinct[0]
		span.Start = &start
	}
	return span
}

// mask blanks out [start,end) so later rules in the same tier skip it.
func mask(b []byte, start, end int) {
	for i := start; i < end && i < len(b); i++ {
		b[i] = ' '
	}
}

func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func atClock(t time.Time, hour, minute int) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, hour, minute, 0, 0, t.Location())
}
