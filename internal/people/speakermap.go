package people

import (
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/actionitems/internal/transcript"
)

// lookAhead is how many following segments are scanned for an acceptance
// after a name is mentioned.
const lookAhead = 3

// SpeakerMap binds diarization speaker ids to names. It is immutable once
// built and safe to share across goroutines.
type SpeakerMap struct {
	byID   map[string]string
	byName map[string]string
}

// EmptySpeakerMap returns a map with no bindings.
func EmptySpeakerMap() *SpeakerMap {
	return &SpeakerMap{byID: map[string]string{}, byName: map[string]string{}}
}

// NewSpeakerMap freezes explicit bindings, for callers that already know who
// is who. Later duplicates of a speaker or a name are ignored.
func NewSpeakerMap(bindings map[string]string) *SpeakerMap {
	m := EmptySpeakerMap()
	ids := make([]string, 0, len(bindings))
	for id := range bindings {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		m.bind(id, bindings[id])
	}
	return m
}

func (m *SpeakerMap) bind(speaker, name string) bool {
	if speaker == "" || name == "" {
		return false
	}
	if _, ok := m.byID[speaker]; ok {
		return false
	}
	if _, ok := m.byName[name]; ok {
		return false
	}
	m.byID[speaker] = name
	m.byName[name] = speaker
	return true
}

// Name returns the name bound to speaker.
func (m *SpeakerMap) Name(speaker string) (string, bool) {
	if m == nil {
		return "", false
	}
	n, ok := m.byID[speaker]
	return n, ok
}

// Lookup returns the bound name, or the speaker id itself when unbound.
func (m *SpeakerMap) Lookup(speaker string) string {
	if n, ok := m.Name(speaker); ok {
		return n
	}
	return speaker
}

// CanonicalName returns the bound spelling of name, compared
// case-insensitively, or name itself when it is not bound.
func (m *SpeakerMap) CanonicalName(name string) string {
	if m == nil {
		return name
	}
	if _, ok := m.byName[name]; ok {
		return name
	}
	for bound := range m.byName {
		if strings.EqualFold(bound, name) {
			return bound
		}
	}
	return name
}

// Len returns the number of bindings.
func (m *SpeakerMap) Len() int {
	if m == nil {
		return 0
	}
	return len(m.byID)
}

// Bindings returns a copy of the speaker id to name bindings.
func (m *SpeakerMap) Bindings() map[string]string {
	out := make(map[string]string, m.Len())
	if m == nil {
		return out
	}
	for k, v := range m.byID {
		out[k] = v
	}
	return out
}

// KnownSpeakers maps each speaker id to its display name, in the given order
// with duplicates removed.
func (m *SpeakerMap) KnownSpeakers(speakers []string) []string {
	seen := make(map[string]bool, len(speakers))
	out := make([]string, 0, len(speakers))
	for _, s := range speakers {
		n := m.Lookup(s)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}

// BuildSpeakerMap makes the single pass over doc that binds speakers to
// names. A name mentioned in one segment is bound to the first different
// speaker who accepts within the next three segments. First binding wins for
// both the speaker and the name.
func (r *Resolver) BuildSpeakerMap(doc *transcript.Document) *SpeakerMap {
	m := EmptySpeakerMap()
	if doc == nil {
		return m
	}
	segs := doc.Transcript
	for i, seg := range segs {
		if !seg.Valid() {
			continue
		}
		text := transcript.NormalizeText(seg.Text)
		for _, mentioned := range r.mentions(text) {
			if _, bound := m.byName[mentioned]; bound {
				continue
			}
			for j := i + 1; j < len(segs) && j <= i+lookAhead; j++ {
				resp := segs[j]
				if !resp.Valid() || resp.Speaker == seg.Speaker {
					continue
				}
				if !IsAffirmative(transcript.NormalizeText(resp.Text)) {
					continue
				}
				if m.bind(resp.Speaker, mentioned) {
					r.logger.Debug("speaker bound",
						zap.String("speaker", resp.Speaker),
						zap.String("name", mentioned),
						zap.Int("segment", j),
					)
				}
				break
			}
		}
	}
	return m
}

// mentions returns validated names addressed or referred to in text, in
// pattern order without duplicates.
func (r *Resolver) mentions(text string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, re := range mentionPatterns {
		for _, sub := range re.FindAllStringSubmatch(text, -1) {
			n := sub[1]
			if seen[n] || !r.validator.IsName(n) {
				continue
			}
			seen[n] = true
			out = append(out, n)
		}
	}
	return out
}
