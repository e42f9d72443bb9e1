// Package transcript models speaker-tagged meeting transcripts produced by a
// transcription and diarization step, and loads them from JSON.
package transcript

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Metadata describes the recording a transcript came from.
type Metadata struct {
	File     string  `json:"file,omitempty"`
	Duration float64 `json:"duration,omitempty"`
	Language string  `json:"language,omitempty"`
}

// Segment is one utterance attributed to one speaker.
type Segment struct {
	Text    string   `json:"text"`
	Speaker string   `json:"speaker"`
	Start   *float64 `json:"start,omitempty"`
	End     *float64 `json:"end,omitempty"`
}

// Valid reports whether the segment carries both text and a speaker.
func (s Segment) Valid() bool {
	return strings.TrimSpace(s.Text) != "" && strings.TrimSpace(s.Speaker) != ""
}

// Document is the input to extraction.
type Document struct {
	Metadata   Metadata  `json:"metadata"`
	Transcript []Segment `json:"transcript"`
}

// Len returns the number of segments.
func (d *Document) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Transcript)
}

// Speakers returns distinct speaker ids in order of first appearance.
func (d *Document) Speakers() []string {
	if d == nil {
		return nil
	}
	seen := make(map[string]bool)
	var out []string
	for _, seg := range d.Transcript {
		if seg.Speaker == "" || seen[seg.Speaker] {
			continue
		}
		seen[seg.Speaker] = true
		out = append(out, seg.Speaker)
	}
	return out
}

// Window returns segments in [idx-before, idx+after] clamped to bounds,
// along with the index of the first returned segment.
func (d *Document) Window(idx, before, after int) ([]Segment, int) {
	if d == nil || idx < 0 || idx >= len(d.Transcript) {
		return nil, 0
	}
	lo := idx - before
	if lo < 0 {
		lo = 0
	}
	hi := idx + after + 1
	if hi > len(d.Transcript) {
		hi = len(d.Transcript)
	}
	return d.Transcript[lo:hi], lo
}

var quoteReplacer = strings.NewReplacer(
	"’", "'",
	"‘", "'",
	"“", `"`,
	"”", `"`,
	"\u00a0", " ",
)

// NormalizeText applies NFC normalisation, folds typographic quotes to ASCII
// and collapses runs of whitespace.
func NormalizeText(text string) string {
	text = norm.NFC.String(text)
	text = quoteReplacer.Replace(text)
	return strings.Join(strings.Fields(text), " ")
}
