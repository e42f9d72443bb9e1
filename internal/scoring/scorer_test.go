package scoring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/actionitems/internal/task"
)

func TestDefaultWeights_Valid(t *testing.T) {
	require.NoError(t, DefaultWeights().Validate())
}

func TestNew_RejectsBadWeights(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(Weights)
	}{
		{"missing feature", func(w Weights) { delete(w, FeatureModal) }},
		{"negative", func(w Weights) { w[FeatureModal] = -0.1; w[FeatureAssignee] = 0.4 }},
		{"does not sum to one", func(w Weights) { w[FeatureAssignee] = 0.5 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := DefaultWeights()
			tt.mutate(w)
			_, err := New(w)
			assert.ErrorIs(t, err, ErrInvalidWeights)
		})
	}
}

func TestScore_WorkedExample(t *testing.T) {
	due := time.Date(2025, 11, 10, 0, 0, 0, 0, time.UTC)
	c := &task.Candidate{
		Description: "prepare the report",
		Assignee:    task.Name("John"),
		DueDate:     &due,
		SourceText:  "John, can you prepare the report by next Monday?",
	}

	exp := NewDefault().Explain(c)

	assert.InDelta(t, 1.0, exp.Features[FeatureAssignee], 1e-9)
	assert.InDelta(t, 1.0, exp.Features[FeatureDueDate], 1e-9)
	assert.InDelta(t, 0.0, exp.Features[FeatureStartDate], 1e-9)
	assert.InDelta(t, 0.3, exp.Features[FeatureLength], 1e-9)
	assert.InDelta(t, 1.0, exp.Features[FeatureActionVerb], 1e-9)
	assert.InDelta(t, 0.5, exp.Features[FeatureModal], 1e-9)
	assert.InDelta(t, 0.7, exp.Features[FeatureContext], 1e-9)
	assert.InDelta(t, 0.5, exp.Features[FeatureUrgency], 1e-9)
	assert.InDelta(t, 0.6, exp.Features[FeatureStructure], 1e-9)
	assert.InDelta(t, 0.811, exp.Confidence, 1e-9)
	assert.InDelta(t, exp.Confidence, NewDefault().Score(c), 1e-12)

	var sum float64
	for _, v := range exp.Breakdown {
		sum += v
	}
	assert.InDelta(t, exp.Confidence, baseConfidence+featureScale*sum, 1e-9)
}

func TestScore_Bounds(t *testing.T) {
	s := NewDefault()
	due := time.Now()

	empty := &task.Candidate{}
	assert.InDelta(t, 0.3+0.7*(0.1*0.3+0.15*0.3+0.1*0.5+0.1*0.5+0.05*0.3), s.Score(empty), 1e-9)

	loaded := &task.Candidate{
		Description: "finish the quarterly security review and submit the signed report to the compliance team with all supporting evidence attached",
		Assignee:    task.CurrentSpeaker(),
		DueDate:     &due,
		StartDate:   &due,
		SourceText:  "Please, you must finish the quarterly security review ASAP, it is important and you are responsible, the deadline is today.",
	}
	got := s.Score(loaded)
	assert.LessOrEqual(t, got, 1.0)
	assert.Greater(t, got, 0.9)
}

func TestLengthScore(t *testing.T) {
	tests := []struct {
		words int
		want  float64
	}{
		{0, 0.3}, {4, 0.3}, {5, 0.5}, {9, 0.5}, {10, 0.7}, {14, 0.7},
		{15, 1.0}, {60, 1.0}, {61, 0.7}, {80, 0.7}, {81, 0.3},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, lengthScore(tt.words), "words=%d", tt.words)
	}
}

func TestModalStrength(t *testing.T) {
	tests := []struct {
		text string
		want float64
	}{
		{"you must do it", 1.0},
		{"we have to ship", 1.0},
		{"she needs to call", 0.95},
		{"i will send it", 0.9},
		{"we shall see", 0.85},
		{"i'm going to fix it", 0.8},
		{"gonna do it", 0.75},
		{"you should check", 0.7},
		{"we can try", 0.5},
		{"maybe you could", 0.4},
		{"it might help", 0.3},
		{"nothing here", 0},
		{"you can and you must", 1.0},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, ModalStrength(tt.text))
		})
	}
}

func TestContextQuality(t *testing.T) {
	assert.InDelta(t, 0.5, contextQuality("plain words"), 1e-9)
	assert.InDelta(t, 1.0, contextQuality("please, you are responsible, due friday"), 1e-9)
	assert.InDelta(t, 0.2, contextQuality("maybe someday?"), 1e-9)
}

func TestUrgencyLevel(t *testing.T) {
	assert.InDelta(t, 0.5, urgencyLevel("whenever"), 1e-9)
	assert.InDelta(t, 0.8, urgencyLevel("today please"), 1e-9)
	assert.InDelta(t, 1.0, urgencyLevel("urgent and important, today"), 1e-9)
}

func TestSentenceStructure(t *testing.T) {
	tests := []struct {
		text string
		want float64
	}{
		{"send the deck", 0.6},
		{"please send the deck to finance.", 0.9},
		{"we will review the draft tomorrow morning with everyone involved", 0.8},
		{"the weather", 0.3},
		{"should review", 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.InDelta(t, tt.want, sentenceStructure(tt.text), 1e-9)
		})
	}
}

func TestIsActionVerb(t *testing.T) {
	for _, w := range []string{"send", "Sending", "reviewed", "updates", "prepared", "submitted", "testing,"} {
		assert.True(t, IsActionVerb(w), w)
	}
	for _, w := range []string{"", "the", "meeting", "sun", "is"} {
		assert.False(t, IsActionVerb(w), w)
	}
}
