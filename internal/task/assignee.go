package task

// AssigneeKind discriminates AssigneeRef variants.
type AssigneeKind int

const (
	AssigneeUnassigned AssigneeKind = iota
	AssigneeName
	AssigneeCurrentSpeaker
)

// AssigneeRef is a tagged union of Name(string), CurrentSpeaker and
// Unassigned. The zero value is Unassigned.
type AssigneeRef struct {
	kind AssigneeKind
	name string
}

// Name returns a reference to an explicitly named person.
func Name(name string) AssigneeRef {
	if name == "" {
		return Unassigned()
	}
	return AssigneeRef{kind: AssigneeName, name: name}
}

// CurrentSpeaker returns a reference to whoever spoke the segment.
func CurrentSpeaker() AssigneeRef {
	return AssigneeRef{kind: AssigneeCurrentSpeaker}
}

// Unassigned returns the empty reference.
func Unassigned() AssigneeRef {
	return AssigneeRef{}
}

// Kind returns the variant.
func (a AssigneeRef) Kind() AssigneeKind {
	return a.kind
}

// NameValue returns the name for Name references.
func (a AssigneeRef) NameValue() (string, bool) {
	if a.kind != AssigneeName {
		return "", false
	}
	return a.name, true
}

// IsAssigned reports whether the reference points at someone.
func (a AssigneeRef) IsAssigned() bool {
	return a.kind != AssigneeUnassigned
}

// Resolve turns the reference into a concrete assignee string. lookup maps a
// speaker id to its canonical name.
func (a AssigneeRef) Resolve(speaker string, lookup func(string) string) string {
	switch a.kind {
	case AssigneeName:
		return a.name
	case AssigneeCurrentSpeaker:
		if lookup == nil {
			return speaker
		}
		return lookup(speaker)
	default:
		return UnassignedName
	}
}

func (a AssigneeRef) String() string {
	switch a.kind {
	case AssigneeName:
		return "Name(" + a.name + ")"
	case AssigneeCurrentSpeaker:
		return "CurrentSpeaker"
	default:
		return "Unassigned"
	}
}
