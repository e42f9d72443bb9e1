package task

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAdjustPriority(t *testing.T) {
	tests := []struct {
		name  string
		base  Priority
		boost float64
		want  Priority
	}{
		{"critical forces high from low", PriorityLow, 1.4, PriorityHigh},
		{"critical forces high from medium", PriorityMedium, 1.5, PriorityHigh},
		{"high boost upgrades medium", PriorityMedium, 1.2, PriorityHigh},
		{"high boost upgrades low one step", PriorityLow, 1.2, PriorityMedium},
		{"elevated upgrades low", PriorityLow, 1.1, PriorityMedium},
		{"elevated leaves medium", PriorityMedium, 1.1, PriorityMedium},
		{"normal leaves base", PriorityLow, 1.0, PriorityLow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AdjustPriority(tt.base, tt.boost))
		})
	}
}

func TestUrgencyFromBoost(t *testing.T) {
	assert.Equal(t, UrgencyCritical, UrgencyFromBoost(1.5))
	assert.Equal(t, UrgencyCritical, UrgencyFromBoost(1.4))
	assert.Equal(t, UrgencyHigh, UrgencyFromBoost(1.3))
	assert.Equal(t, UrgencyElevated, UrgencyFromBoost(1.1))
	assert.Equal(t, UrgencyNormal, UrgencyFromBoost(1.0))
}

func TestTiers(t *testing.T) {
	assert.Less(t, UrgencyCritical.Tier(), UrgencyHigh.Tier())
	assert.Less(t, UrgencyElevated.Tier(), UrgencyNormal.Tier())
	assert.Less(t, PriorityHigh.Tier(), PriorityMedium.Tier())
	assert.Less(t, PriorityMedium.Tier(), PriorityLow.Tier())
}

func TestAssigneeRef(t *testing.T) {
	lookup := func(speaker string) string {
		if speaker == "Speaker_02" {
			return "Alex"
		}
		return speaker
	}

	var zero AssigneeRef
	assert.False(t, zero.IsAssigned())
	assert.Equal(t, UnassignedName, zero.Resolve("Speaker_01", lookup))

	n := Name("John")
	got, ok := n.NameValue()
	assert.True(t, ok)
	assert.Equal(t, "John", got)
	assert.Equal(t, "John", n.Resolve("Speaker_02", lookup))

	cs := CurrentSpeaker()
	assert.True(t, cs.IsAssigned())
	assert.Equal(t, "Alex", cs.Resolve("Speaker_02", lookup))
	assert.Equal(t, "Speaker_09", cs.Resolve("Speaker_09", lookup))
	assert.Equal(t, "Speaker_09", cs.Resolve("Speaker_09", nil))

	assert.Equal(t, Unassigned(), Name(""))
}

func TestSummarize(t *testing.T) {
	tasks := []Task{
		{Assignee: "Alex", Priority: PriorityHigh, Urgency: UrgencyCritical, Status: StatusUrgent},
		{Assignee: "Alex", Priority: PriorityMedium, Urgency: UrgencyNormal, Status: StatusPending, LLMClarified: true},
		{Assignee: UnassignedName, Priority: PriorityLow, Urgency: UrgencyNormal, Status: StatusNeedsReview},
	}

	s := Summarize(tasks)
	assert.Equal(t, 3, s.Total)
	assert.Equal(t, 1, s.ByPriority[PriorityHigh])
	assert.Equal(t, 2, s.ByUrgency[UrgencyNormal])
	assert.Equal(t, 1, s.Clarified)
	assert.Equal(t, []string{"Alex", UnassignedName}, s.Assignees())
}

func TestNewResult(t *testing.T) {
	r := NewResult(nil, MethodRuleBased)
	assert.Equal(t, "success", r.Status)
	assert.NotNil(t, r.ActionItems)
	assert.Equal(t, 0, r.TotalItems)
	assert.Equal(t, MethodRuleBased, r.ExtractionMethod)
}

func TestDeriveStatus(t *testing.T) {
	tests := []struct {
		name       string
		urgency    Urgency
		confidence float64
		clarified  bool
		want       Status
	}{
		{"critical", UrgencyCritical, 0.2, false, StatusUrgent},
		{"high", UrgencyHigh, 0.9, false, StatusUrgent},
		{"elevated low confidence", UrgencyElevated, 0.4, false, StatusNeedsReview},
		{"clarified low confidence", UrgencyNormal, 0.4, true, StatusPending},
		{"at threshold", UrgencyNormal, 0.5, false, StatusPending},
		{"normal", UrgencyNormal, 0.8, false, StatusPending},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveStatus(tt.urgency, tt.confidence, tt.clarified, DefaultReviewThreshold))
		})
	}
}
