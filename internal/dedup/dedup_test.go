package dedup

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

	"github.com/fyrsmithlabs/actionitems/internal/embeddings"
	"github.com/fyrsmithlabs/actionitems/internal/task"
)

func cand(desc string, conf float64) *task.Candidate {
	return &task.Candidate{Description: desc, Confidence: conf}
}

func descriptions(cs []*task.Candidate) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.Description
	}
	return out
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "review the q3 budget", Normalize("  Review the Q3-budget! "))
	assert.Equal(t, "", Normalize("?!"))
}

func TestJaccard(t *testing.T) {
	assert.InDelta(t, 0.75, Jaccard("review the security audit", "review security audit for Q3"), 1e-9)
	assert.InDelta(t, 1.0, Jaccard("Send the deck", "send deck"), 1e-9)
	assert.InDelta(t, 0.0, Jaccard("", ""), 1e-9)
	assert.InDelta(t, 0.0, Jaccard("book flights", "approve invoice"), 1e-9)
}

func TestLexical_Duplicate(t *testing.T) {
	l := NewLexical(0)
	tests := []struct {
		a, b string
		want bool
	}{
		{"review the security audit", "review security audit for Q3", true},
		{"send the report", "send the report to finance and legal by Friday", true},
		{"test", "contest entries", false},
		{"update the roadmap", "update the hiring plan", false},
		// 0.75 over all words, 0.6 over content words.
		{"send the report to the team for review", "send the report to the board for review", true},
		{"", "anything", false},
	}
	for _, tt := range tests {
		t.Run(tt.a+"|"+tt.b, func(t *testing.T) {
			assert.Equal(t, tt.want, l.Duplicate(tt.a, tt.b))
		})
	}
}

func TestLexical_WordOverlapIncludesStopwords(t *testing.T) {
	a := cand("send the report to the team for review", 0.8)
	b := cand("send the report to the board for review", 0.6)
	require.InDelta(t, 0.6, Jaccard(a.Description, b.Description), 1e-9)

	out := NewLexical(0).Deduplicate(context.Background(), []*task.Candidate{a, b})

	require.Len(t, out.Kept, 1)
	assert.Same(t, a, out.Kept[0])
	assert.Equal(t, 1, out.Dropped)
}

// Scenario: the second phrasing carries a due date, so it survives.
func TestLexical_KeepsDatedCandidate(t *testing.T) {
	due := time.Date(2025, 9, 30, 0, 0, 0, 0, time.UTC)
	first := cand("review the security audit", 0.8)
	second := cand("review security audit for Q3", 0.7)
	second.DueDate = &due

	out := NewLexical(0).Deduplicate(context.Background(), []*task.Candidate{first, second})

	require.Len(t, out.Kept, 1)
	assert.Same(t, second, out.Kept[0])
	assert.Equal(t, StrategyLexical, out.Strategy)
	assert.Equal(t, 1, out.Clusters)
	assert.Equal(t, 1, out.Dropped)
}

func TestLexical_GreedyClusters(t *testing.T) {
	cs := []*task.Candidate{
		cand("prepare the quarterly report", 0.6),
		cand("book the offsite venue", 0.9),
		cand("prepare quarterly report", 0.7),
		cand("book offsite venue", 0.5),
		cand("hire a designer", 0.5),
	}
	out := NewLexical(0).Deduplicate(context.Background(), cs)
	assert.Equal(t, []string{"prepare quarterly report", "book the offsite venue", "hire a designer"}, descriptions(out.Kept))
	assert.Equal(t, 2, out.Dropped)
}

func TestSelectBest(t *testing.T) {
	due := time.Now()

	assigned := cand("a", 0.5)
	assigned.Assignee = task.Name("Alex")
	dated := cand("b", 0.9)
	dated.DueDate = &due
	assert.Same(t, assigned, SelectBest([]*task.Candidate{dated, assigned}), "assignee outranks due date")

	hi := cand("short", 0.9)
	lo := cand("much longer text", 0.5)
	assert.Same(t, hi, SelectBest([]*task.Candidate{lo, hi}), "confidence outranks length")

	short := cand("abc", 0.5)
	long := cand("abcdef", 0.5)
	assert.Same(t, long, SelectBest([]*task.Candidate{short, long}))

	x := cand("same", 0.5)
	y := cand("same", 0.5)
	assert.Same(t, x, SelectBest([]*task.Candidate{x, y}), "ties keep the first")

	assert.Nil(t, SelectBest(nil))
}

type fakeProvider struct {
	vectors map[string][]float32
	err     error
	calls   int
}

func (f *fakeProvider) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i, s := range texts {
		out[i] = f.vectors[s]
	}
	return out, nil
}

func (f *fakeProvider) Dimension() int { return 3 }
func (f *fakeProvider) Close() error   { return nil }

func TestSemantic_Clusters(t *testing.T) {
	p := &fakeProvider{vectors: map[string][]float32{
		"circulate the minutes":      {1, 0, 0},
		"share meeting notes":        {0.95, 0.1, 0},
		"renew the ssl certificates": {0, 1, 0},
		"rotate tls certs":           {0, 0.9, 0.2},
		"order lunch":                {0, 0, 1},
	}}
	cs := []*task.Candidate{
		cand("circulate the minutes", 0.6),
		cand("renew the ssl certificates", 0.8),
		cand("share meeting notes", 0.7),
		cand("order lunch", 0.5),
		cand("rotate tls certs", 0.6),
	}

	out := NewSemantic(p, 0, nil, nil).Deduplicate(context.Background(), cs)

	assert.Equal(t, StrategySemantic, out.Strategy)
	assert.Equal(t, []string{"share meeting notes", "renew the ssl certificates", "order lunch"}, descriptions(out.Kept))
	assert.Equal(t, 1, p.calls)
}

func TestSemantic_FallsBack(t *testing.T) {
	cs := []*task.Candidate{
		cand("review the security audit", 0.8),
		cand("review security audit for Q3", 0.7),
	}

	tests := []struct {
		name     string
		provider embeddings.Provider
		warn     bool
	}{
		{"nil provider", nil, false},
		{"disabled provider", embeddings.Disabled{}, false},
		{"provider error", &fakeProvider{err: errors.New("connection refused")}, true},
		{"zero vector", &fakeProvider{vectors: map[string][]float32{
			"review the security audit":    {0, 0},
			"review security audit for Q3": {1, 0},
		}}, true},
		{"mixed dimensions", &fakeProvider{vectors: map[string][]float32{
			"review the security audit":    {1, 0},
			"review security audit for Q3": {1, 0, 0},
		}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, logs := observer.New(zapcore.DebugLevel)
			out := NewSemantic(tt.provider, 0.8, nil, zap.New(core)).Deduplicate(context.Background(), cs)

			assert.Equal(t, StrategyLexical, out.Strategy)
			require.Len(t, out.Kept, 1)
			warned := logs.FilterLevelExact(zapcore.WarnLevel).Len() > 0
			assert.Equal(t, tt.warn, warned)
		})
	}
}

func TestSemantic_SmallInputSkipsProvider(t *testing.T) {
	p := &fakeProvider{}
	only := cand("one task", 0.5)
	out := NewSemantic(p, 0.8, nil, nil).Deduplicate(context.Background(), []*task.Candidate{only})
	assert.Equal(t, []*task.Candidate{only}, out.Kept)
	assert.Zero(t, p.calls)

	out = NewSemantic(p, 0.8, nil, nil).Deduplicate(context.Background(), nil)
	assert.Empty(t, out.Kept)
}

func TestNew(t *testing.T) {
	d, err := New(StrategyLexical, 0, nil, nil)
	require.NoError(t, err)
	assert.IsType(t, &Lexical{}, d)

	d, err = New(StrategySemantic, 0.85, nil, nil)
	require.NoError(t, err)
	assert.IsType(t, &Semantic{}, d)

	_, err = New("fuzzy", 0, nil, nil)
	assert.Error(t, err)

	assert.True(t, ValidStrategy("semantic"))
	assert.False(t, ValidStrategy("fuzzy"))
	assert.NoError(t, ValidateThreshold(0.8))
	assert.Error(t, ValidateThreshold(0))
	assert.Error(t, ValidateThreshold(1.2))
}
