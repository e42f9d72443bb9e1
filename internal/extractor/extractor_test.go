package extractor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/fyrsmithlabs/actionitems/internal/dates"
	"github.com/fyrsmithlabs/actionitems/internal/llm"
	"github.com/fyrsmithlabs/actionitems/internal/task"
	"github.com/fyrsmithlabs/actionitems/internal/telemetry"
	"github.com/fyrsmithlabs/actionitems/internal/transcript"
)

// wednesday is 2025-11-05 10:00 UTC.
var wednesday = time.Date(2025, time.November, 5, 10, 0, 0, 0, time.UTC)

// day is a resolved task date: midnight of the calendar day.
func day(m time.Month, d int) time.Time {
	return time.Date(2025, m, d, 0, 0, 0, 0, time.UTC)
}

func seg(speaker, text string) transcript.Segment {
	return transcript.Segment{Speaker: speaker, Text: text}
}

func doc(segs ...transcript.Segment) *transcript.Document {
	return &transcript.Document{Metadata: transcript.Metadata{File: "standup.json"}, Transcript: segs}
}

func newExtractor(t *testing.T, mutate func(*Options), deps Dependencies) *Extractor {
	t.Helper()
	opts := DefaultOptions()
	opts.ReferenceTime = wednesday
	if mutate != nil {
		mutate(&opts)
	}
	e, err := New(opts, deps, zap.NewNop())
	require.NoError(t, err)
	return e
}

// meeting is a realistic transcript used for whole-pipeline properties.
func meeting() *transcript.Document {
	return doc(
		seg("Speaker_01", "Good morning everyone, thanks for joining"),
		seg("Speaker_01", "Alex, can you take care of the billing?"),
		seg("Speaker_02", "Sure, I'll send the invoice tomorrow."),
		seg("Speaker_01", "We need to fix the login bug immediately"),
		seg("Speaker_03", "I will review the security audit by Friday"),
		seg("Speaker_01", "Jordan, please update the roadmap document before the end of the month"),
		seg("Speaker_04", "Okay."),
		seg("Speaker_02", "Maybe we could look at the onboarding flow next week"),
		seg("", "orphan text without a speaker"),
		seg("Speaker_01", "Thanks, bye"),
	)
}

type fakeCompletion struct {
	mu      sync.Mutex
	reply   string
	err     error
	calls   int
	prompts []string
}

func (f *fakeCompletion) Complete(ctx context.Context, req llm.CompletionRequest) (string, error) {
	f.mu.Lock()
	f.calls++
	f.prompts = append(f.prompts, req.Prompt)
	f.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return f.reply, f.err
}

func TestOptions_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Options)
		ok     bool
	}{
		{name: "defaults", mutate: func(*Options) {}, ok: true},
		{name: "empty method", mutate: func(o *Options) { o.Method = "" }, ok: true},
		{name: "unknown method", mutate: func(o *Options) { o.Method = "magic" }},
		{name: "unknown strategy", mutate: func(o *Options) { o.Dedup.Strategy = "fuzzy" }},
		{name: "semantic", mutate: func(o *Options) { o.Dedup.Strategy = "semantic"; o.Dedup.Threshold = 0.8 }, ok: true},
		{name: "threshold above one", mutate: func(o *Options) { o.Dedup.Threshold = 1.2 }},
		{name: "negative threshold", mutate: func(o *Options) { o.Dedup.Threshold = -0.1 }},
		{name: "arbiter threshold", mutate: func(o *Options) { o.Arbiter.Enabled = true; o.Arbiter.ConfidenceThreshold = 2 }},
		{name: "arbiter concurrency", mutate: func(o *Options) { o.Arbiter.Enabled = true; o.Arbiter.Concurrency = 0 }},
		{name: "disabled arbiter ignores settings", mutate: func(o *Options) { o.Arbiter.Concurrency = 0 }, ok: true},
		{name: "zero workers", mutate: func(o *Options) { o.Workers = 0 }},
		{name: "zero min length", mutate: func(o *Options) { o.MinDescriptionLength = 0 }},
		{name: "review threshold", mutate: func(o *Options) { o.ReviewThreshold = 1.5 }},
		{name: "date timeout", mutate: func(o *Options) { o.DateTimeout = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			tt.mutate(&opts)
			err := opts.Validate()
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, ErrInvalidOptions)
		})
	}
}

func TestNew(t *testing.T) {
	t.Run("invalid options fail fast", func(t *testing.T) {
		opts := DefaultOptions()
		opts.Workers = -1
		_, err := New(opts, Dependencies{}, nil)
		assert.ErrorIs(t, err, ErrInvalidOptions)
	})

	t.Run("llm method needs a service", func(t *testing.T) {
		opts := DefaultOptions()
		opts.Method = MethodLLM
		_, err := New(opts, Dependencies{}, nil)
		assert.ErrorIs(t, err, ErrNoCompletionService)
	})

	t.Run("arbiter without service degrades", func(t *testing.T) {
		core, logs := observer.New(zapcore.WarnLevel)
		opts := DefaultOptions()
		opts.Arbiter.Enabled = true
		e, err := New(opts, Dependencies{}, zap.New(core))
		require.NoError(t, err)
		assert.Nil(t, e.arbiter)
		assert.Equal(t, 1, logs.FilterMessageSnippet("without a completion service").Len())
	})
}

func TestExtract_RequestWithDeadline(t *testing.T) {
	e := newExtractor(t, nil, Dependencies{})

	res := e.Extract(context.Background(), doc(
		seg("Speaker_01", "John, can you prepare the report by next Monday?"),
	))

	require.Equal(t, 1, res.TotalItems)
	got := res.ActionItems[0]
	assert.Equal(t, task.TypeRequest, got.TaskType)
	assert.Equal(t, task.PriorityHigh, got.Priority)
	assert.Equal(t, "John", got.Assignee)
	assert.Equal(t, "Speaker_01", got.Speaker)
	require.NotNil(t, got.DueDate)
	assert.Equal(t, day(time.November, 10), *got.DueDate)
	assert.Equal(t, "November 10, 2025", got.DueDateFormatted)
	assert.Nil(t, got.StartDate)
	assert.Equal(t, []string{"2025-11-10"}, got.MentionedDates)
	assert.Equal(t, task.MethodRuleBased, res.ExtractionMethod)
	assert.Equal(t, "success", res.Status)
}

func TestExtract_DueDatesWithWhenParser(t *testing.T) {
	tests := []struct {
		name     string
		segments []transcript.Segment
		segment  int
		single   bool
		assignee string
		due      time.Time
	}{
		{
			name:     "request with weekday deadline",
			segments: []transcript.Segment{seg("Speaker_01", "John, can you prepare the report by next Monday?")},
			single:   true,
			assignee: "John",
			due:      day(time.November, 10),
		},
		{
			name: "self commitment for tomorrow",
			segments: []transcript.Segment{
				seg("Speaker_01", "Alex, can you take care of the billing?"),
				seg("Speaker_02", "Sure, I'll send the invoice tomorrow."),
			},
			segment:  1,
			single:   true,
			assignee: "Alex",
			due:      day(time.November, 6),
		},
		{
			name:     "explicit month day",
			segments: []transcript.Segment{seg("Speaker_01", "Alex, please send the deck by November 20")},
			due:      day(time.November, 20),
		},
		{
			name:     "relative and explicit name one day",
			segments: []transcript.Segment{seg("Speaker_01", "Jordan, please send the contract tomorrow, that is 11/6")},
			due:      day(time.November, 6),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newExtractor(t, nil, Dependencies{DateParser: dates.NewWhenParser()})

			res := e.Extract(context.Background(), doc(tt.segments...))

			var got []task.Task
			for _, it := range res.ActionItems {
				if it.SegmentIndex == tt.segment {
					got = append(got, it)
				}
			}
			require.NotEmpty(t, got)
			if tt.single {
				require.Len(t, got, 1)
				assert.Equal(t, tt.assignee, got[0].Assignee)
			}
			for _, it := range got {
				require.NotNil(t, it.DueDate, it.Description)
				assert.Equal(t, tt.due, *it.DueDate)
				assert.Nil(t, it.StartDate)
			}
		})
	}
}

func TestExtract_SelfCommitmentResolvesSpeakerName(t *testing.T) {
	e := newExtractor(t, nil, Dependencies{})

	res := e.Extract(context.Background(), doc(
		seg("Speaker_01", "Alex, can you take care of the billing?"),
		seg("Speaker_02", "Sure, I'll send the invoice tomorrow."),
	))

	var fromReply []task.Task
	for _, it := range res.ActionItems {
		if it.SegmentIndex == 1 {
			fromReply = append(fromReply, it)
		}
	}
	require.Len(t, fromReply, 1)
	got := fromReply[0]
	assert.Equal(t, "Alex", got.Assignee)
	assert.Equal(t, task.TypeSelfCommitment, got.TaskType)
	require.NotNil(t, got.DueDate)
	assert.Equal(t, day(time.November, 6), *got.DueDate)
}

func TestExtract_GreetingYieldsNothing(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	opts := DefaultOptions()
	opts.ReferenceTime = wednesday
	e, err := New(opts, Dependencies{}, zap.New(core))
	require.NoError(t, err)

	res := e.Extract(context.Background(), doc(
		seg("Speaker_01", "Good morning everyone, thanks for joining"),
	))

	assert.Equal(t, 0, res.TotalItems)
	assert.NotNil(t, res.ActionItems)

	skipped := logs.FilterMessage("segment skipped").All()
	require.Len(t, skipped, 1)
	assert.Equal(t, "greeting", skipped[0].ContextMap()["reason"])

	done := logs.FilterMessage("extraction complete").All()
	require.Len(t, done, 1)
	assert.NotEmpty(t, done[0].ContextMap()["run.id"])
	assert.Equal(t, "standup.json", done[0].ContextMap()["transcript.file"])
}

func TestExtract_EmptyAndNilDocuments(t *testing.T) {
	e := newExtractor(t, nil, Dependencies{})
	for _, d := range []*transcript.Document{nil, doc()} {
		res := e.Extract(context.Background(), d)
		assert.Equal(t, 0, res.TotalItems)
		assert.Equal(t, "success", res.Status)
	}
}

func TestExtract_InvalidSegmentsSkipped(t *testing.T) {
	e := newExtractor(t, nil, Dependencies{})
	res := e.Extract(context.Background(), doc(
		seg("", "We need to fix the login bug immediately"),
		seg("Speaker_01", "   "),
	))
	assert.Equal(t, 0, res.TotalItems)
}

func TestExtract_UrgencyForcesHighPriority(t *testing.T) {
	e := newExtractor(t, nil, Dependencies{})

	res := e.Extract(context.Background(), doc(
		seg("Speaker_01", "We need to fix the login bug immediately"),
	))

	require.NotZero(t, res.TotalItems)
	for _, it := range res.ActionItems {
		assert.Equal(t, task.PriorityHigh, it.Priority, it.Description)
		assert.Equal(t, task.UrgencyCritical, it.Urgency)
		assert.Equal(t, task.StatusUrgent, it.Status)
	}
}

func TestExtract_Properties(t *testing.T) {
	e := newExtractor(t, nil, Dependencies{})
	ctx := context.Background()

	first := e.Extract(ctx, meeting())
	second := e.Extract(ctx, meeting())
	assert.Equal(t, first, second, "identical input gives identical output")

	parallel := newExtractor(t, func(o *Options) { o.Workers = 4 }, Dependencies{})
	assert.Equal(t, first, parallel.Extract(ctx, meeting()), "worker count does not change output")

	require.NotZero(t, first.TotalItems)
	assert.Equal(t, len(first.ActionItems), first.TotalItems)
	for i, it := range first.ActionItems {
		assert.GreaterOrEqual(t, it.Confidence, 0.0)
		assert.LessOrEqual(t, it.Confidence, 1.0)
		assert.GreaterOrEqual(t, len(it.Description), DefaultMinDescriptionLength)
		assert.NotEmpty(t, it.ID)
		assert.NotEmpty(t, it.Assignee)
		assert.NotNil(t, it.MentionedDates)
		if i > 0 {
			assert.LessOrEqual(t, first.ActionItems[i-1].Urgency.Tier(), it.Urgency.Tier(), "sorted by urgency")
		}
		assert.NotEqual(t, 0, it.SegmentIndex, "greeting produced a task")
		assert.NotEqual(t, 8, it.SegmentIndex, "speakerless segment produced a task")
	}
}

func TestExtract_ArbiterRemovesInvalidTasks(t *testing.T) {
	svc := &fakeCompletion{reply: `{"is_valid_task": false, "reasoning": "small talk"}`}
	e := newExtractor(t, func(o *Options) {
		o.Arbiter.Enabled = true
		o.Arbiter.ConfidenceThreshold = 1
	}, Dependencies{Completion: svc})

	res := e.Extract(context.Background(), doc(
		seg("Speaker_01", "Alex, can you take care of the billing?"),
		seg("Speaker_02", "Sure, I'll send the invoice tomorrow."),
	))

	assert.Equal(t, task.MethodRuleBasedWithLLM, res.ExtractionMethod)
	assert.Equal(t, 0, res.TotalItems)
	assert.NotZero(t, svc.calls)
	assert.Contains(t, svc.prompts[0], "KNOWN SPEAKERS: Speaker_01, Alex")
}

func TestExtract_ArbiterClarifies(t *testing.T) {
	svc := &fakeCompletion{reply: `{"is_valid_task": true, "description": "Send the billing invoice to the client", "assignee": "alex", "reasoning": "explicit commitment", "confidence": 0.95}`}
	e := newExtractor(t, func(o *Options) {
		o.Arbiter.Enabled = true
		o.Arbiter.ConfidenceThreshold = 1
	}, Dependencies{Completion: svc})

	res := e.Extract(context.Background(), doc(
		seg("Speaker_01", "Alex, can you take care of the billing?"),
		seg("Speaker_02", "Sure, I'll send the invoice tomorrow."),
	))

	require.NotZero(t, res.TotalItems)
	for _, it := range res.ActionItems {
		assert.True(t, it.LLMClarified)
		assert.Equal(t, "explicit commitment", it.LLMReasoning)
		assert.Equal(t, "Alex", it.Assignee)
		assert.GreaterOrEqual(t, it.Confidence, 0.95)
		assert.NotEqual(t, task.StatusNeedsReview, it.Status)
	}
}

func TestExtract_UnreachableArbiterKeepsTasks(t *testing.T) {
	d := doc(
		seg("Speaker_01", "Alex, can you take care of the billing?"),
		seg("Speaker_02", "Sure, I'll send the invoice tomorrow."),
	)
	baseline := newExtractor(t, nil, Dependencies{}).Extract(context.Background(), d)

	svc := &fakeCompletion{err: errors.New("dial tcp 127.0.0.1:1: connect: connection refused")}
	e := newExtractor(t, func(o *Options) {
		o.Arbiter.Enabled = true
		o.Arbiter.ConfidenceThreshold = 1
	}, Dependencies{Completion: svc})
	res := e.Extract(context.Background(), d)

	assert.Equal(t, task.MethodRuleBasedWithLLM, res.ExtractionMethod)
	assert.Equal(t, baseline.ActionItems, res.ActionItems)
	for _, it := range res.ActionItems {
		assert.False(t, it.LLMClarified)
	}
}

func TestExtract_CancelledContextKeepsRuleBasedOutput(t *testing.T) {
	svc := &fakeCompletion{reply: `{"is_valid_task": false}`}
	e := newExtractor(t, func(o *Options) {
		o.Arbiter.Enabled = true
		o.Arbiter.ConfidenceThreshold = 1
	}, Dependencies{Completion: svc})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := e.Extract(ctx, meeting())

	assert.NotZero(t, res.TotalItems, "cancellation degrades to rule-based output")
}

func TestExtractAt_OverridesReference(t *testing.T) {
	e := newExtractor(t, nil, Dependencies{})
	ref := time.Date(2025, time.December, 1, 9, 0, 0, 0, time.UTC)

	res := e.ExtractAt(context.Background(), doc(
		seg("Speaker_01", "I will send the budget tomorrow"),
	), ref)

	require.NotZero(t, res.TotalItems)
	require.NotNil(t, res.ActionItems[0].DueDate)
	assert.Equal(t, ref.AddDate(0, 0, 1), *res.ActionItems[0].DueDate)
}

func TestExtract_PoolsNeighbouringDates(t *testing.T) {
	e := newExtractor(t, nil, Dependencies{})

	res := e.Extract(context.Background(), doc(
		seg("Speaker_01", "We kick off the migration tomorrow"),
		seg("Speaker_01", "Priya will finish the data migration plan"),
		seg("Speaker_02", "It has to be done within two weeks"),
	))

	var plan *task.Task
	for i := range res.ActionItems {
		if res.ActionItems[i].SegmentIndex == 1 {
			plan = &res.ActionItems[i]
			break
		}
	}
	require.NotNil(t, plan)
	require.NotNil(t, plan.StartDate)
	require.NotNil(t, plan.DueDate)
	assert.Equal(t, day(time.November, 6), *plan.StartDate)
	assert.Equal(t, day(time.November, 19), *plan.DueDate)
	assert.Equal(t, []string{"2025-11-06", "2025-11-19"}, plan.MentionedDates)
}

func TestExtract_ArbiterShortRewriteKeepsDescription(t *testing.T) {
	svc := &fakeCompletion{reply: `{"is_valid_task": true, "description": "Send it", "assignee": "", "reasoning": "terse", "confidence": 0.9}`}
	e := newExtractor(t, func(o *Options) {
		o.Arbiter.Enabled = true
		o.Arbiter.ConfidenceThreshold = 1
	}, Dependencies{Completion: svc})

	res := e.Extract(context.Background(), doc(
		seg("Speaker_01", "Alex, can you send the billing invoice to the client?"),
	))

	require.NotEmpty(t, res.ActionItems)
	for _, it := range res.ActionItems {
		assert.True(t, it.LLMClarified)
		assert.GreaterOrEqual(t, len([]rune(it.Description)), DefaultMinDescriptionLength, it.Description)
	}
}

func TestExtract_MinDescriptionCountsCharacters(t *testing.T) {
	e := newExtractor(t, func(o *Options) { o.MinDescriptionLength = 12 }, Dependencies{})

	// "überprüfen" is 10 characters and 12 bytes.
	res := e.Extract(context.Background(), doc(
		seg("Speaker_01", "I will überprüfen"),
	))
	assert.Empty(t, res.ActionItems)
}

func TestSortTasks(t *testing.T) {
	due := day(time.November, 7)
	later := day(time.November, 20)
	tasks := []task.Task{
		{ID: "low", Urgency: task.UrgencyNormal, Priority: task.PriorityLow, Confidence: 0.9},
		{ID: "undated", Urgency: task.UrgencyNormal, Priority: task.PriorityHigh, Confidence: 0.8},
		{ID: "later", Urgency: task.UrgencyNormal, Priority: task.PriorityHigh, Confidence: 0.8, DueDate: &later},
		{ID: "sooner", Urgency: task.UrgencyNormal, Priority: task.PriorityHigh, Confidence: 0.8, DueDate: &due},
		{ID: "confident", Urgency: task.UrgencyNormal, Priority: task.PriorityHigh, Confidence: 0.95},
		{ID: "critical", Urgency: task.UrgencyCritical, Priority: task.PriorityMedium, Confidence: 0.4},
	}
	SortTasks(tasks)

	ids := make([]string, len(tasks))
	for i, tk := range tasks {
		ids[i] = tk.ID
	}
	assert.Equal(t, []string{"critical", "confident", "sooner", "later", "undated", "low"}, ids)
}

func TestExtract_RecordsSpan(t *testing.T) {
	rec := telemetry.NewRecorder().Install(t)
	e := newExtractor(t, nil, Dependencies{})

	result := e.Extract(context.Background(), meeting())

	span := rec.RequireSpan(t, "extractor.extract")
	segments, _ := telemetry.SpanAttr(span, "transcript.segments")
	assert.Equal(t, int64(len(meeting().Transcript)), segments)
	items, _ := telemetry.SpanAttr(span, "extractor.items")
	assert.Equal(t, int64(result.TotalItems), items)
	method, _ := telemetry.SpanAttr(span, "extractor.result_method")
	assert.Equal(t, string(task.MethodRuleBased), method)
}
