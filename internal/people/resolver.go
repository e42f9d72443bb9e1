// Package people resolves who a task belongs to: it binds diarization
// speaker ids to names and extracts assignee mentions from single segments.
package people

import (
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/actionitems/internal/task"
	"github.com/fyrsmithlabs/actionitems/internal/transcript"
)

// Resolver builds speaker maps and resolves assignees. It holds no per-run
// state and is safe for concurrent use when its validator is.
type Resolver struct {
	validator NameValidator
	logger    *zap.Logger
}

// NewResolver creates a resolver. A nil validator selects the built-in
// gazetteer.
func NewResolver(validator NameValidator, logger *zap.Logger) *Resolver {
	if validator == nil {
		validator = DefaultGazetteer()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{validator: validator, logger: logger}
}

// ExtractAssignees runs every template family against text and returns the
// hits in template order, duplicates removed.
func (r *Resolver) ExtractAssignees(text string) []task.AssigneeRef {
	var out []task.AssigneeRef
	seen := make(map[task.AssigneeRef]bool)
	add := func(ref task.AssigneeRef) {
		if !ref.IsAssigned() || seen[ref] {
			return
		}
		seen[ref] = true
		out = append(out, ref)
	}

	for _, tmpl := range assigneeTemplates {
		if tmpl.self {
			if tmpl.regex.MatchString(text) {
				add(task.CurrentSpeaker())
			}
			continue
		}
		for _, sub := range tmpl.regex.FindAllStringSubmatch(text, -1) {
			for _, n := range sub[1:] {
				if n != "" && r.validator.IsName(n) {
					add(task.Name(n))
				}
			}
		}
	}
	return out
}

// ResolveAssignee picks the assignee for a candidate. In order: the first
// named mention, a current-speaker marker, the speaker of a self commitment,
// a different next speaker who accepts, otherwise unassigned. next may be
// nil at the end of the transcript.
func (r *Resolver) ResolveAssignee(refs []task.AssigneeRef, taskType task.Type, speaker string, next *transcript.Segment, m *SpeakerMap) task.AssigneeRef {
	for _, ref := range refs {
		if n, ok := ref.NameValue(); ok {
			return task.Name(m.CanonicalName(n))
		}
	}
	for _, ref := range refs {
		if ref.Kind() == task.AssigneeCurrentSpeaker {
			return ref
		}
	}
	if taskType == task.TypeSelfCommitment {
		return task.CurrentSpeaker()
	}
	if next != nil && next.Valid() && next.Speaker != speaker && IsAffirmative(transcript.NormalizeText(next.Text)) {
		return task.Name(m.Lookup(next.Speaker))
	}
	return task.Unassigned()
}
