// Package task defines the records that flow through the action-item
// extraction pipeline: candidate tasks produced by pattern matches and the
// finalized tasks handed to callers.
package task

import (
	"time"
)

// Date layouts used for mentioned and formatted dates.
const (
	DateLayout    = "2006-01-02"
	DisplayLayout = "January 02, 2006"
)

// UnassignedName is the assignee string emitted for tasks with no owner.
const UnassignedName = "Unassigned"

// Priority is the coarse importance of a task.
type Priority string

const (
	PriorityHigh   Priority = "High"
	PriorityMedium Priority = "Medium"
	PriorityLow    Priority = "Low"
)

// Tier orders priorities for sorting; lower sorts first.
func (p Priority) Tier() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	default:
		return 2
	}
}

// Urgency is a lexical signal distinct from priority.
type Urgency string

const (
	UrgencyNormal   Urgency = "normal"
	UrgencyElevated Urgency = "elevated"
	UrgencyHigh     Urgency = "high"
	UrgencyCritical Urgency = "critical"
)

// Tier orders urgency levels for sorting; lower sorts first.
func (u Urgency) Tier() int {
	switch u {
	case UrgencyCritical:
		return 0
	case UrgencyHigh:
		return 1
	case UrgencyElevated:
		return 2
	default:
		return 3
	}
}

// UrgencyFromBoost maps a multiplicative urgency boost to its level.
func UrgencyFromBoost(boost float64) Urgency {
	switch {
	case boost >= 1.4:
		return UrgencyCritical
	case boost >= 1.2:
		return UrgencyHigh
	case boost >= 1.1:
		return UrgencyElevated
	default:
		return UrgencyNormal
	}
}

// AdjustPriority escalates a rule's base priority by the urgency boost.
//
//	boost >= 1.4  any      -> High
//	boost >= 1.2  Medium   -> High
//	boost >= 1.1  Low      -> Medium
func AdjustPriority(base Priority, boost float64) Priority {
	switch {
	case boost >= 1.4:
		return PriorityHigh
	case boost >= 1.2 && base == PriorityMedium:
		return PriorityHigh
	case boost >= 1.1 && base == PriorityLow:
		return PriorityMedium
	default:
		return base
	}
}

// Type tags the kind of commitment a pattern recognised.
type Type string

const (
	TypeExplicit       Type = "explicit"
	TypeUrgent         Type = "urgent"
	TypeAssignment     Type = "assignment"
	TypeRequest        Type = "request"
	TypeCommitment     Type = "commitment"
	TypeSelfCommitment Type = "self_commitment"
	TypeCollaborative  Type = "collaborative"
	TypeFollowUp       Type = "follow_up"
	TypeDocumentation  Type = "documentation"
	TypeUpdate         Type = "update"
	TypeCreation       Type = "creation"
	TypeCommunication  Type = "communication"
	TypeScheduling     Type = "scheduling"
	TypeReview         Type = "review"
	TypeAnalysis       Type = "analysis"
	TypeTesting        Type = "testing"
	TypeDelivery       Type = "delivery"
	TypeCompletion     Type = "completion"
	TypeOwnership      Type = "ownership"
	TypeManagement     Type = "management"
	TypeSuggestion     Type = "suggestion"
	TypeOffer          Type = "offer"
	TypeConditional    Type = "conditional"
	TypeGenerated      Type = "generated"
)

// Status is derived from urgency and confidence during enrichment.
type Status string

const (
	StatusPending     Status = "pending"
	StatusUrgent      Status = "urgent"
	StatusNeedsReview Status = "needs_review"
)

// DefaultReviewThreshold is the confidence below which an unclarified task
// needs review.
const DefaultReviewThreshold = 0.5

// DeriveStatus computes a task's status: urgent when urgency is High or
// above, otherwise needs_review when confidence is below reviewThreshold and
// arbitration has not clarified it, otherwise pending.
func DeriveStatus(u Urgency, confidence float64, clarified bool, reviewThreshold float64) Status {
	switch {
	case u.Tier() <= UrgencyHigh.Tier():
		return StatusUrgent
	case confidence < reviewThreshold && !clarified:
		return StatusNeedsReview
	default:
		return StatusPending
	}
}

// Candidate is an unconfirmed task produced by a single pattern match.
type Candidate struct {
	ID             string
	Description    string
	Assignee       AssigneeRef
	Speaker        string
	Priority       Priority
	Urgency        Urgency
	UrgencyBoost   float64
	Type           Type
	RuleID         string
	StartDate      *time.Time
	DueDate        *time.Time
	MentionedDates []string
	SourceText     string
	Confidence     float64
	SegmentIndex   int
}

// HasAssignee reports whether the candidate names an owner.
func (c *Candidate) HasAssignee() bool {
	return c.Assignee.IsAssigned()
}

// HasDueDate reports whether a due date was resolved.
func (c *Candidate) HasDueDate() bool {
	return c.DueDate != nil
}

// HasStartDate reports whether a start date was resolved.
func (c *Candidate) HasStartDate() bool {
	return c.StartDate != nil
}

// Task is a finalized action item.
type Task struct {
	ID                 string     `json:"id"`
	Description        string     `json:"description"`
	Assignee           string     `json:"assignee"`
	Speaker            string     `json:"speaker"`
	Priority           Priority   `json:"priority"`
	Urgency            Urgency    `json:"urgency"`
	TaskType           Type       `json:"task_type"`
	StartDate          *time.Time `json:"start_date,omitempty"`
	DueDate            *time.Time `json:"due_date,omitempty"`
	StartDateFormatted string     `json:"start_date_formatted,omitempty"`
	DueDateFormatted   string     `json:"due_date_formatted,omitempty"`
	MentionedDates     []string   `json:"mentioned_dates"`
	SourceText         string     `json:"source_text"`
	Confidence         float64    `json:"confidence"`
	Status             Status     `json:"status"`
	SegmentIndex       int        `json:"segment_index"`
	LLMClarified       bool       `json:"llm_clarified"`
	LLMReasoning       string     `json:"llm_reasoning,omitempty"`

	// Removed is set by arbitration when the task was judged not to be a task.
	Removed bool `json:"-"`
}

// IsAssigned reports whether the task has a concrete owner.
func (t *Task) IsAssigned() bool {
	return t.Assignee != "" && t.Assignee != UnassignedName
}
