// Package extractor sequences the extraction pipeline over one transcript.
//
// A run moves through fixed stages and never revisits one:
//
//	speaker map built -> candidates collected -> deduplicated -> enriched
//	  -> arbitrated (optional) -> sorted
//
// The speaker map is built in a single ordered pass before any assignee is
// resolved and is read-only afterwards. Per-segment work after that point is
// independent and may run on several workers; candidates are put back in
// segment order before deduplication. Extract is total: collaborator failures
// degrade the output and are logged, they are never returned.
package extractor

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/actionitems/internal/arbiter"
	"github.com/fyrsmithlabs/actionitems/internal/dates"
	"github.com/fyrsmithlabs/actionitems/internal/dedup"
	"github.com/fyrsmithlabs/actionitems/internal/embeddings"
	"github.com/fyrsmithlabs/actionitems/internal/llm"
	"github.com/fyrsmithlabs/actionitems/internal/logging"
	"github.com/fyrsmithlabs/actionitems/internal/patterns"
	"github.com/fyrsmithlabs/actionitems/internal/people"
	"github.com/fyrsmithlabs/actionitems/internal/scoring"
	"github.com/fyrsmithlabs/actionitems/internal/task"
	"github.com/fyrsmithlabs/actionitems/internal/transcript"
)

// InstrumentationName is the name used for OTEL instrumentation.
const InstrumentationName = "github.com/fyrsmithlabs/actionitems/internal/extractor"

// ErrNoCompletionService is returned by New when the LLM method is selected
// without a completion service.
var ErrNoCompletionService = errors.New("llm method requires a completion service")

// Dependencies are the collaborators of an Extractor. Every field is
// optional: nil selects the built-in default, or disables the capability.
type Dependencies struct {
	Library    *patterns.Library
	DateParser dates.AdvancedParser
	Names      people.NameValidator
	Scorer     *scoring.Scorer
	Embeddings embeddings.Provider
	Completion llm.CompletionService
}

// Extractor turns transcripts into ordered task lists. It holds no per-run
// state and is safe for concurrent use.
type Extractor struct {
	opts    Options
	library *patterns.Library
	dates   *dates.Resolver
	people  *people.Resolver
	scorer  *scoring.Scorer
	dedup   dedup.Deduplicator
	arbiter *arbiter.Arbiter
	fewShot *FewShot
	logger  *zap.Logger
	tracer  trace.Tracer
	now     func() time.Time
}

// New validates opts and wires the pipeline.
func New(opts Options, deps Dependencies, logger *zap.Logger) (*Extractor, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if opts.Method == "" {
		opts.Method = MethodRules
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	library := deps.Library
	if library == nil {
		var err error
		if library, err = patterns.NewDefault(); err != nil {
			return nil, fmt.Errorf("loading pattern library: %w", err)
		}
	}
	scorer := deps.Scorer
	if scorer == nil {
		scorer = scoring.NewDefault()
	}
	dd, err := dedup.New(opts.Dedup.Strategy, opts.Dedup.Threshold, deps.Embeddings, logger.Named("dedup"))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidOptions, err)
	}
	resolver := dates.NewResolver(
		dates.WithAdvancedParser(deps.DateParser),
		dates.WithTimeout(opts.DateTimeout),
		dates.WithLogger(logger.Named("dates")),
	)

	e := &Extractor{
		opts:    opts,
		library: library,
		dates:   resolver,
		people:  people.NewResolver(deps.Names, logger.Named("people")),
		scorer:  scorer,
		dedup:   dd,
		logger:  logger,
		tracer:  otel.Tracer(InstrumentationName),
		now:     time.Now,
	}

	if opts.Arbiter.Enabled {
		if deps.Completion == nil {
			logger.Warn("arbitration enabled without a completion service, extracting rule-based only")
		} else if e.arbiter, err = arbiter.New(deps.Completion, opts.arbiterConfig(), logger.Named("arbiter")); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidOptions, err)
		}
	}
	if opts.Method == MethodLLM {
		if deps.Completion == nil {
			return nil, ErrNoCompletionService
		}
		e.fewShot = NewFewShot(deps.Completion, resolver, logger.Named("fewshot"))
	}

	logger.Debug("extractor ready",
		zap.String("patterns.version", library.Version()),
		zap.String("method", string(opts.Method)),
		zap.String("dedup.strategy", opts.Dedup.Strategy),
		zap.Bool("arbiter", e.arbiter != nil),
		zap.Bool("dates.advanced", resolver.HasAdvanced()),
	)
	return e, nil
}

// Extract runs the configured strategy against doc with the configured
// reference time.
func (e *Extractor) Extract(ctx context.Context, doc *transcript.Document) *task.Result {
	return e.ExtractAt(ctx, doc, e.opts.ReferenceTime)
}

// ExtractAt is Extract with an explicit reference time. A zero ref means now.
func (e *Extractor) ExtractAt(ctx context.Context, doc *transcript.Document, ref time.Time) *task.Result {
	start := time.Now()
	if ref.IsZero() {
		ref = e.now()
	}

	ctx = logging.WithRunID(ctx, uuid.NewString())
	if doc != nil {
		ctx = logging.WithTranscriptFile(ctx, doc.Metadata.File)
	}
	log := e.logger.With(logging.ContextFields(ctx)...)

	ctx, span := e.tracer.Start(ctx, "extractor.extract", trace.WithAttributes(
		attribute.Int("transcript.segments", doc.Len()),
		attribute.String("extractor.method", string(e.opts.Method)),
	))
	defer span.End()

	var result *task.Result
	if e.fewShot != nil {
		tasks, err := e.fewShot.Extract(ctx, doc, ref)
		if err == nil {
			SortTasks(tasks)
			result = task.NewResult(tasks, task.MethodLLMFewShot)
		} else {
			FallbacksTotal.WithLabelValues(string(task.MethodLLMFewShot)).Inc()
			span.RecordError(err)
			log.Warn("few-shot extraction failed, using rule-based pipeline", zap.Error(err))
		}
	}
	if result == nil {
		result = e.runRules(ctx, log, doc, ref)
	}

	elapsed := time.Since(start)
	RunsTotal.WithLabelValues(string(result.ExtractionMethod)).Inc()
	RunDuration.Observe(elapsed.Seconds())
	span.SetAttributes(
		attribute.Int("extractor.items", result.TotalItems),
		attribute.String("extractor.result_method", string(result.ExtractionMethod)),
	)
	log.Info("extraction complete",
		zap.String("method", string(result.ExtractionMethod)),
		zap.Int("items", result.TotalItems),
		zap.Time("reference", ref),
		zap.Duration("duration", elapsed),
	)
	return result
}

// runRules is the rule-based pipeline.
func (e *Extractor) runRules(ctx context.Context, log *zap.Logger, doc *transcript.Document, ref time.Time) *task.Result {
	speakers := e.people.BuildSpeakerMap(doc)
	log.Debug("speaker map built", zap.Int("bindings", speakers.Len()))

	cands := e.collect(ctx, log, doc, speakers, ref)
	Candidates.WithLabelValues("collected").Add(float64(len(cands)))

	outcome := e.dedup.Deduplicate(ctx, cands)
	Candidates.WithLabelValues("duplicate").Add(float64(outcome.Dropped))
	log.Debug("candidates deduplicated",
		zap.String("strategy", outcome.Strategy),
		zap.Int("candidates", len(cands)),
		zap.Int("clusters", outcome.Clusters),
		zap.Int("dropped", outcome.Dropped),
	)

	tasks := make([]task.Task, 0, len(outcome.Kept))
	for _, c := range outcome.Kept {
		tasks = append(tasks, e.finalize(c, speakers))
	}

	method := task.MethodRuleBased
	if e.arbiter != nil {
		method = task.MethodRuleBasedWithLLM
		report := e.arbiter.ClarifyAll(ctx, arbiter.Request{
			Tasks:    tasks,
			Document: doc,
			Speakers: speakers.KnownSpeakers(doc.Speakers()),
			Lookup:   speakers.Lookup,
		})
		Candidates.WithLabelValues("removed").Add(float64(report.Removed))
		log.Debug("arbitration finished",
			zap.Int("gated", report.Gated),
			zap.Int("clarified", report.Clarified),
			zap.Int("removed", report.Removed),
			zap.Int("failed", report.Failed),
		)
		tasks = report.Kept()
		for i := range tasks {
			tasks[i].Status = task.DeriveStatus(tasks[i].Urgency, tasks[i].Confidence, tasks[i].LLMClarified, e.opts.ReviewThreshold)
		}
	}

	SortTasks(tasks)
	Candidates.WithLabelValues("emitted").Add(float64(len(tasks)))
	return task.NewResult(tasks, method)
}

// finalize resolves the assignee, formats dates and derives the status.
func (e *Extractor) finalize(c *task.Candidate, speakers *people.SpeakerMap) task.Task {
	t := task.Task{
		ID:             c.ID,
		Description:    c.Description,
		Assignee:       c.Assignee.Resolve(c.Speaker, speakers.Lookup),
		Speaker:        c.Speaker,
		Priority:       c.Priority,
		Urgency:        c.Urgency,
		TaskType:       c.Type,
		StartDate:      c.StartDate,
		DueDate:        c.DueDate,
		MentionedDates: c.MentionedDates,
		SourceText:     c.SourceText,
		Confidence:     c.Confidence,
		SegmentIndex:   c.SegmentIndex,
	}
	if t.MentionedDates == nil {
		t.MentionedDates = []string{}
	}
	if t.StartDate != nil {
		t.StartDateFormatted = t.StartDate.Format(task.DisplayLayout)
	}
	if t.DueDate != nil {
		t.DueDateFormatted = t.DueDate.Format(task.DisplayLayout)
	}
	t.Status = task.DeriveStatus(t.Urgency, t.Confidence, false, e.opts.ReviewThreshold)
	return t
}

// farFuture sorts undated tasks after dated ones.
var farFuture = time.Date(2099, time.December, 31, 0, 0, 0, 0, time.UTC)

// SortTasks orders tasks by urgency, then priority, then descending
// confidence, then due date with undated tasks last.
func SortTasks(tasks []task.Task) {
	due := func(t *task.Task) time.Time {
		if t.DueDate == nil {
			return farFuture
		}
		return *t.DueDate
	}
	sort.SliceStable(tasks, func(i, j int) bool {
		a, b := &tasks[i], &tasks[j]
		if x, y := a.Urgency.Tier(), b.Urgency.Tier(); x != y {
			return x < y
		}
		if x, y := a.Priority.Tier(), b.Priority.Tier(); x != y {
			return x < y
		}
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		return due(a).Before(due(b))
	})
}
