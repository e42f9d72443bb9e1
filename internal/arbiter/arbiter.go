// Package arbiter hands ambiguous extracted tasks to a completion service for
// validation and rewrite.
//
// Arbitration is strictly best effort. A task is only sent when the gate
// selects it, every call runs under its own timeout, and any transport or
// parse failure leaves the task exactly as it was. Results are merged back by
// task identity so concurrent completion order does not matter.
package arbiter

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fyrsmithlabs/actionitems/internal/llm"
	"github.com/fyrsmithlabs/actionitems/internal/task"
	"github.com/fyrsmithlabs/actionitems/internal/transcript"
)

// InstrumentationName is the name used for OTEL instrumentation.
const InstrumentationName = "github.com/fyrsmithlabs/actionitems/internal/arbiter"

// Defaults.
const (
	DefaultConfidenceThreshold = 0.7
	DefaultConcurrency         = 4
	DefaultTimeout             = 15 * time.Second
	DefaultMinDescription      = 10

	// minDescriptionChars gates descriptions too short to stand alone.
	minDescriptionChars = 20
	// adoptConfidence is the service confidence required before it can
	// raise a task's stored confidence.
	adoptConfidence = 0.7

	requestTemperature = 0.3
	requestMaxTokens   = 300
)

var (
	// ErrInvalidConfig is returned by New for out-of-range settings.
	ErrInvalidConfig = errors.New("invalid arbiter configuration")

	// ErrNoService is returned by New without a completion service.
	ErrNoService = errors.New("arbiter requires a completion service")
)

// invalidAssignees are assignee strings that pattern capture produces but
// that never name a person.
var invalidAssignees = map[string]bool{
	"that": true, "this": true, "it": true, "yes": true, "no": true,
	"okay": true, "ok": true, "alright": true, "yeah": true, "yep": true,
	"sure": true, "right": true, "good": true, "great": true, "perfect": true,
}

var danglingStarts = []string{"for the", "with", "and", "or", "but"}

// Config tunes gating and fan-out.
type Config struct {
	ConfidenceThreshold float64
	Concurrency         int
	Timeout             time.Duration

	// MinDescriptionLength is the shortest rewritten description, in
	// characters, that replaces the extracted one. Zero accepts any.
	MinDescriptionLength int
}

// DefaultConfig returns the default arbiter settings.
func DefaultConfig() Config {
	return Config{
		ConfidenceThreshold:  DefaultConfidenceThreshold,
		Concurrency:          DefaultConcurrency,
		Timeout:              DefaultTimeout,
		MinDescriptionLength: DefaultMinDescription,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.ConfidenceThreshold < 0 || c.ConfidenceThreshold > 1 {
		return fmt.Errorf("%w: confidence threshold %v out of range [0,1]", ErrInvalidConfig, c.ConfidenceThreshold)
	}
	if c.Concurrency <= 0 {
		return fmt.Errorf("%w: concurrency must be positive, got %d", ErrInvalidConfig, c.Concurrency)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("%w: timeout must be positive, got %s", ErrInvalidConfig, c.Timeout)
	}
	if c.MinDescriptionLength < 0 {
		return fmt.Errorf("%w: minimum description length must not be negative, got %d", ErrInvalidConfig, c.MinDescriptionLength)
	}
	return nil
}

// Arbiter clarifies gated tasks through a completion service.
type Arbiter struct {
	service llm.CompletionService
	cfg     Config
	logger  *zap.Logger
	tracer  trace.Tracer
}

// New creates an Arbiter.
func New(service llm.CompletionService, cfg Config, logger *zap.Logger) (*Arbiter, error) {
	if service == nil {
		return nil, ErrNoService
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Arbiter{
		service: service,
		cfg:     cfg,
		logger:  logger,
		tracer:  otel.Tracer(InstrumentationName),
	}, nil
}

// ShouldClarify reports whether t needs arbitration and why.
func (a *Arbiter) ShouldClarify(t *task.Task) (bool, string) {
	if t.Confidence < a.cfg.ConfidenceThreshold {
		return true, "low_confidence"
	}
	if invalidAssignees[strings.ToLower(strings.TrimSpace(t.Assignee))] {
		return true, "invalid_assignee"
	}
	desc := strings.TrimSpace(t.Description)
	if utf8.RuneCountInString(desc) < minDescriptionChars {
		return true, "short_description"
	}
	lower := strings.ToLower(desc)
	for _, start := range danglingStarts {
		if lower == start || strings.HasPrefix(lower, start+" ") {
			return true, "dangling_start"
		}
	}
	return false, ""
}

// Request is one arbitration pass over a transcript's tasks.
type Request struct {
	Tasks    []task.Task
	Document *transcript.Document
	// Speakers are the display names an assignee may be rewritten to.
	Speakers []string
	// Lookup maps speaker ids to display names for the context window.
	Lookup func(string) string
}

// Report is the outcome of ClarifyAll.
type Report struct {
	// Tasks holds every input task in input order, clarified where the
	// service answered. Tasks judged invalid have Removed set.
	Tasks     []task.Task
	Gated     int
	Clarified int
	Removed   int
	Failed    int
}

// Kept returns the tasks not flagged for removal.
func (r Report) Kept() []task.Task {
	out := make([]task.Task, 0, len(r.Tasks)-r.Removed)
	for _, t := range r.Tasks {
		if !t.Removed {
			out = append(out, t)
		}
	}
	return out
}

// ClarifyAll arbitrates every gated task with bounded concurrency. It never
// fails; tasks whose clarification fails are returned unchanged.
func (a *Arbiter) ClarifyAll(ctx context.Context, req Request) Report {
	report := Report{Tasks: make([]task.Task, len(req.Tasks))}
	copy(report.Tasks, req.Tasks)

	type job struct {
		key string
		t   task.Task
	}
	var jobs []job
	for i := range report.Tasks {
		t := &report.Tasks[i]
		gated, reason := a.ShouldClarify(t)
		if !gated {
			continue
		}
		a.logger.Debug("task gated for arbitration",
			zap.String("task.id", t.ID),
			zap.String("reason", reason),
			zap.Float64("confidence", t.Confidence),
		)
		jobs = append(jobs, job{key: identity(i, t), t: *t})
	}
	report.Gated = len(jobs)
	if len(jobs) == 0 {
		return report
	}

	var (
		mu      sync.Mutex
		results = make(map[string]task.Task, len(jobs))
	)
	var g errgroup.Group
	g.SetLimit(a.cfg.Concurrency)
	for _, j := range jobs {
		g.Go(func() error {
			clarified, err := a.Clarify(ctx, j.t, req)
			if err != nil {
				a.logger.Warn("arbitration failed, keeping task",
					zap.String("task.id", j.t.ID),
					zap.Error(err),
				)
				return nil
			}
			mu.Lock()
			results[j.key] = clarified
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	for i := range report.Tasks {
		clarified, ok := results[identity(i, &report.Tasks[i])]
		if !ok {
			continue
		}
		report.Tasks[i] = clarified
		report.Clarified++
		if clarified.Removed {
			report.Removed++
		}
	}
	report.Failed = report.Gated - report.Clarified
	return report
}

// identity keys a task for merging. Tasks without an id fall back to their
// position.
func identity(i int, t *task.Task) string {
	if t.ID != "" {
		return t.ID
	}
	return "#" + strconv.Itoa(i)
}

// Clarify sends one task to the completion service and merges the answer.
func (a *Arbiter) Clarify(ctx context.Context, t task.Task, req Request) (task.Task, error) {
	ctx, span := a.tracer.Start(ctx, "arbiter.clarify", trace.WithAttributes(
		attribute.String("task.id", t.ID),
		attribute.Float64("task.confidence", t.Confidence),
	))
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, a.cfg.Timeout)
	defer cancel()

	prompt := BuildPrompt(&t, ContextLines(req.Document, t.SegmentIndex, req.Lookup), req.Speakers)
	raw, err := a.service.Complete(ctx, llm.CompletionRequest{
		System:      systemPrompt,
		Prompt:      prompt,
		MaxTokens:   requestMaxTokens,
		Temperature: requestTemperature,
		JSONMode:    true,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "completion failed")
		return t, fmt.Errorf("completion: %w", err)
	}

	c, err := ParseClarification(raw)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "unparseable response")
		return t, err
	}

	merged := Merge(t, c, req.Speakers)
	if utf8.RuneCountInString(merged.Description) < a.cfg.MinDescriptionLength {
		a.logger.Debug("rewritten description too short, keeping original",
			zap.String("task_id", t.ID),
			zap.Int("length", utf8.RuneCountInString(merged.Description)),
		)
		merged.Description = t.Description
	}
	span.SetAttributes(
		attribute.Bool("task.valid", !merged.Removed),
		attribute.Float64("clarification.confidence", c.Confidence),
	)
	return merged, nil
}

// Merge applies a clarification to t. Invalid tasks are flagged for removal.
// The description is replaced when the service supplied one. The assignee is
// replaced only by a known speaker. Confidence is only ever raised, and only
// when the service is itself confident.
func Merge(t task.Task, c Clarification, speakers []string) task.Task {
	t.LLMClarified = true
	t.LLMReasoning = strings.TrimSpace(c.Reasoning)
	if !c.Valid() {
		t.Removed = true
		return t
	}

	if desc := strings.TrimSpace(c.Description); desc != "" {
		t.Description = desc
	}
	if name, ok := knownSpeaker(c.Assignee, speakers); ok {
		t.Assignee = name
	}
	if c.Confidence > adoptConfidence && c.Confidence > t.Confidence {
		t.Confidence = min(c.Confidence, 1)
	}
	return t
}

func knownSpeaker(name string, speakers []string) (string, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", false
	}
	for _, s := range speakers {
		if strings.EqualFold(s, name) {
			return s, true
		}
	}
	return "", false
}
