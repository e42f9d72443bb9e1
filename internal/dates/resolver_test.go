package dates

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/fyrsmithlabs/actionitems/internal/task"
)

// wednesday is 2025-11-05 10:00 UTC.
var wednesday = time.Date(2025, time.November, 5, 10, 0, 0, 0, time.UTC)

func day(m time.Month, d, hour int) time.Time {
	return time.Date(2025, m, d, hour, 0, 0, 0, time.UTC)
}

func resolvedTimes(cands []Candidate) []time.Time {
	out := make([]time.Time, len(cands))
	for i, c := range cands {
		out[i] = c.Resolved
	}
	return out
}

func TestExtract_Weekday(t *testing.T) {
	r := NewResolver()
	ctx := context.Background()

	tests := []struct {
		name string
		text string
		ref  time.Time
		want []time.Time
	}{
		{"next friday is two days ahead", "let's ship it next Friday", wednesday, []time.Time{day(11, 7, 10)}},
		{"this friday is the nearer occurrence", "this Friday works", wednesday, []time.Time{day(11, 7, 10)}},
		{"next same weekday is a week out", "next Wednesday", wednesday, []time.Time{day(11, 12, 10)}},
		{"this same weekday in the morning is today", "this Wednesday", wednesday, []time.Time{day(11, 5, 10)}},
		{"this same weekday in the afternoon is next week", "this Wednesday", day(11, 5, 15), []time.Time{day(11, 12, 15)}},
		{"bare weekday is next occurrence", "on Monday please", wednesday, []time.Time{day(11, 10, 10)}},
		{"only first bare weekday counts", "Monday or Tuesday", wednesday, []time.Time{day(11, 10, 10)}},
		{"last weekday ignored", "we met last Monday", wednesday, nil},
		{"abbreviation with modifier", "next thurs", wednesday, []time.Time{day(11, 6, 10)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := resolvedTimes(r.Extract(ctx, tt.text, tt.ref))
			if tt.want == nil {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtract_Relative(t *testing.T) {
	r := NewResolver()
	ctx := context.Background()

	tests := []struct {
		text string
		want []time.Time
	}{
		{"send it tomorrow", []time.Time{day(11, 6, 10)}},
		{"the day after tomorrow", []time.Time{day(11, 7, 10)}},
		{"done today", []time.Time{day(11, 5, 10)}},
		{"finished yesterday", []time.Time{day(11, 4, 10)}},
		{"in 3 days", []time.Time{day(11, 8, 10)}},
		{"within two weeks", []time.Time{day(11, 19, 10)}},
		{"in a month", []time.Time{day(12, 5, 10)}},
		{"in 5 hours", []time.Time{day(11, 5, 15)}},
		{"by end of week", []time.Time{day(11, 9, 0)}},
		{"by the end of the month", []time.Time{day(11, 30, 0)}},
		{"end of year", []time.Time{day(12, 31, 0)}},
		{"end of next week", []time.Time{day(11, 16, 0)}},
		{"end of next month", []time.Time{day(12, 31, 0)}},
		{"start of next week", []time.Time{day(11, 10, 0)}},
		{"early next week", []time.Time{day(11, 10, 0)}},
		{"late week", []time.Time{day(11, 7, 0)}},
		{"early week", []time.Time{day(11, 10, 0)}},
		{"by EOD", []time.Time{day(11, 5, 17)}},
		{"before lunch", []time.Time{day(11, 5, 12)}},
		{"no later than noon", []time.Time{day(11, 5, 12)}},
		{"next week", []time.Time{day(11, 12, 10)}},
		{"next month", []time.Time{day(12, 5, 10)}},
		{"sometime this month", []time.Time{day(11, 30, 0)}},
		{"ASAP", []time.Time{day(11, 6, 10)}},
		{"in 5000 days", nil},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got := resolvedTimes(r.Extract(ctx, tt.text, wednesday))
			if tt.want == nil {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtract_Explicit(t *testing.T) {
	r := NewResolver()
	ctx := context.Background()

	tests := []struct {
		text string
		want []time.Time
	}{
		{"deliver on November 12", []time.Time{day(11, 12, 0)}},
		{"Nov 12th, 2026", []time.Time{time.Date(2026, time.November, 12, 0, 0, 0, 0, time.UTC)}},
		{"the 12th of December", []time.Time{day(12, 12, 0)}},
		{"cutover 2025/12/01", []time.Time{day(12, 1, 0)}},
		{"ship 2025-12-01", []time.Time{day(12, 1, 0)}},
		{"on 12/24", []time.Time{day(12, 24, 0)}},
		{"February 30", nil},
		{"13/45", nil},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got := resolvedTimes(r.Extract(ctx, tt.text, wednesday))
			if tt.want == nil {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtract_Kinds(t *testing.T) {
	r := NewResolver()
	cands := r.Extract(context.Background(), "November 12 or tomorrow or next Friday", wednesday)
	require.Len(t, cands, 3)
	assert.Equal(t, KindExplicit, cands[0].Kind)
	assert.Equal(t, KindRelative, cands[1].Kind)
	assert.Equal(t, KindWeekday, cands[2].Kind)
	assert.Equal(t, "next Friday", cands[2].RawText)
}

func TestExtract_ZeroReference(t *testing.T) {
	r := NewResolver()
	assert.Nil(t, r.Extract(context.Background(), "tomorrow", time.Time{}))
	assert.Nil(t, r.Extract(context.Background(), "", wednesday))
}

type fakeParser struct {
	calls  []string
	result time.Time
	found  bool
	err    error
	block  bool
}

func (f *fakeParser) ParseDate(ctx context.Context, phrase string, _ time.Time, preferFuture bool) (time.Time, bool, error) {
	f.calls = append(f.calls, phrase)
	if !preferFuture {
		return time.Time{}, false, errors.New("expected future preference")
	}
	if f.block {
		<-ctx.Done()
		return time.Time{}, false, ctx.Err()
	}
	return f.result, f.found, f.err
}

func TestExtract_Advanced(t *testing.T) {
	fake := &fakeParser{result: day(11, 7, 9), found: true}
	r := NewResolver(WithAdvancedParser(fake))
	assert.True(t, r.HasAdvanced())

	cands := r.Extract(context.Background(), "the deadline is November 20, get it in by Friday", wednesday)

	assert.Equal(t, []string{"Friday", "November 20"}, fake.calls)
	var advanced int
	for _, c := range cands {
		if c.Kind == KindAdvanced {
			advanced++
			assert.Equal(t, day(11, 7, 9), c.Resolved)
		}
	}
	assert.Equal(t, 2, advanced)
}

func TestExtract_AdvancedFailureDegrades(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	fake := &fakeParser{err: errors.New("service down")}
	r := NewResolver(WithAdvancedParser(fake), WithLogger(zap.New(core)))

	cands := r.Extract(context.Background(), "finish it by next Friday", wednesday)

	require.Len(t, cands, 1, "built-in weekday tier still resolves")
	assert.Equal(t, KindWeekday, cands[0].Kind)
	assert.Equal(t, 1, logs.FilterMessage("advanced date parser failed").Len())
}

func TestExtract_AdvancedTimeout(t *testing.T) {
	fake := &fakeParser{block: true}
	r := NewResolver(WithAdvancedParser(fake), WithTimeout(10*time.Millisecond))

	start := time.Now()
	cands := r.Extract(context.Background(), "by Friday", wednesday)
	assert.Less(t, time.Since(start), time.Second)
	for _, c := range cands {
		assert.NotEqual(t, KindAdvanced, c.Kind)
	}
}

func TestSummarize(t *testing.T) {
	a := Candidate{Resolved: day(11, 6, 10)}
	b := Candidate{Resolved: day(11, 10, 0)}
	c := Candidate{Resolved: day(11, 20, 0)}

	t.Run("empty", func(t *testing.T) {
		span := Summarize(nil)
		assert.Nil(t, span.Due)
		assert.Nil(t, span.Start)
		assert.Empty(t, span.Mentioned)
	})

	t.Run("single date is due", func(t *testing.T) {
		span := Summarize([]Candidate{a})
		require.NotNil(t, span.Due)
		assert.Nil(t, span.Start)
		assert.Equal(t, day(11, 6, 0), *span.Due)
		assert.Equal(t, []string{"2025-11-06"}, span.Mentioned)
	})

	t.Run("duplicates collapse", func(t *testing.T) {
		span := Summarize([]Candidate{a, a})
		assert.Nil(t, span.Start)
		assert.Equal(t, []string{"2025-11-06", "2025-11-06"}, span.Mentioned)
	})

	t.Run("same day at different times is one date", func(t *testing.T) {
		explicit := Candidate{Resolved: day(11, 6, 0), Kind: KindExplicit}
		span := Summarize([]Candidate{a, explicit})
		require.NotNil(t, span.Due)
		assert.Nil(t, span.Start)
		assert.Equal(t, day(11, 6, 0), *span.Due)
	})

	t.Run("earliest is start latest is due", func(t *testing.T) {
		span := Summarize([]Candidate{c, a, b})
		require.NotNil(t, span.Start)
		require.NotNil(t, span.Due)
		assert.Equal(t, day(11, 6, 0), *span.Start)
		assert.Equal(t, c.Resolved, *span.Due)
		assert.Equal(t, []string{"2025-11-20", "2025-11-06", "2025-11-10"}, span.Mentioned)
	})
}

func TestSummarize_RelativeAndExplicitSameDay(t *testing.T) {
	r := NewResolver()
	cands := r.Extract(context.Background(), "send it tomorrow, that is 11/6", wednesday)
	require.GreaterOrEqual(t, len(cands), 2)

	span := Summarize(cands)
	require.NotNil(t, span.Due)
	assert.Nil(t, span.Start)
	assert.Equal(t, "2025-11-06", span.Due.Format(task.DateLayout))
	assert.Zero(t, span.Due.Hour())
}

func TestSummarize_WhenParserSameDay(t *testing.T) {
	r := NewResolver(WithAdvancedParser(NewWhenParser()))
	span := Summarize(r.Extract(context.Background(), "Alex, please send the deck by November 20", wednesday))

	require.NotNil(t, span.Due)
	assert.Nil(t, span.Start)
	assert.Equal(t, "2025-11-20", span.Due.Format(task.DateLayout))
}

func TestWhenParser(t *testing.T) {
	p := NewWhenParser()

	got, found, err := p.ParseDate(context.Background(), "tomorrow", wednesday, true)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "2025-11-06", got.Format("2006-01-02"))

	_, found, err = p.ParseDate(context.Background(), "zzz qqq", wednesday, true)
	require.NoError(t, err)
	assert.False(t, found)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err = p.ParseDate(ctx, "tomorrow", wednesday, true)
	assert.ErrorIs(t, err, context.Canceled)
}
