package arbiter

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/fyrsmithlabs/actionitems/internal/task"
	"github.com/fyrsmithlabs/actionitems/internal/transcript"
)

// contextRadius is the number of segments shown either side of the task's
// own segment, five lines at most.
const contextRadius = 2

const systemPrompt = "You validate action items extracted from meeting transcripts. " +
	"Answer with a single JSON object."

var errNoJSON = errors.New("no JSON object in response")

// Clarification is the completion service's verdict on one task.
type Clarification struct {
	IsValidTask *bool   `json:"is_valid_task"`
	Description string  `json:"description"`
	Assignee    string  `json:"assignee"`
	Reasoning   string  `json:"reasoning"`
	Confidence  float64 `json:"confidence"`
}

// Valid reports whether the task was accepted. A missing flag counts as
// accepted.
func (c Clarification) Valid() bool {
	return c.IsValidTask == nil || *c.IsValidTask
}

// ContextLines renders the "speaker: text" lines around the segment at idx,
// naming speakers through lookup when it knows them.
func ContextLines(doc *transcript.Document, idx int, lookup func(string) string) []string {
	window, _ := doc.Window(idx, contextRadius, contextRadius)
	lines := make([]string, 0, len(window))
	for _, seg := range window {
		if !seg.Valid() {
			continue
		}
		speaker := seg.Speaker
		if lookup != nil {
			if name := lookup(seg.Speaker); name != "" {
				speaker = name
			}
		}
		lines = append(lines, speaker+": "+strings.TrimSpace(seg.Text))
	}
	return lines
}

// BuildPrompt renders the clarification request for t.
func BuildPrompt(t *task.Task, context []string, speakers []string) string {
	var b strings.Builder
	b.WriteString("CONTEXT:\n")
	for _, line := range context {
		b.WriteString(line)
		b.WriteByte('\n')
	}

	b.WriteString("\nEXTRACTED TASK:\n")
	fmt.Fprintf(&b, "Description: %s\n", t.Description)
	fmt.Fprintf(&b, "Assignee: %s\n", t.Assignee)
	fmt.Fprintf(&b, "Source: %s\n", t.SourceText)
	fmt.Fprintf(&b, "Confidence: %.2f\n", t.Confidence)

	b.WriteString("\nKNOWN SPEAKERS: ")
	if len(speakers) == 0 {
		b.WriteString("(none)")
	} else {
		b.WriteString(strings.Join(speakers, ", "))
	}

	b.WriteString(`

RULES:
- Decide whether this is a real action item someone committed to or was asked to do.
- Rewrite the description as a short imperative phrase without filler.
- The assignee must be one of the known speakers or "Unassigned".
- Give a confidence between 0 and 1.

Respond with JSON only:
{"is_valid_task": true, "description": "...", "assignee": "...", "reasoning": "...", "confidence": 0.0}`)
	return b.String()
}

// ParseClarification decodes a completion response. Code fences and
// surrounding prose are ignored. Malformed or truncated JSON is an error, so
// the caller keeps the task as extracted.
func ParseClarification(raw string) (Clarification, error) {
	body := extractObject(raw)
	if body == "" {
		return Clarification{}, errNoJSON
	}
	var c Clarification
	if err := json.Unmarshal([]byte(body), &c); err != nil {
		return Clarification{}, fmt.Errorf("decoding clarification: %w", err)
	}
	return c, nil
}

// extractObject returns the text from the first '{' to the last '}'.
func extractObject(raw string) string {
	start := strings.IndexByte(raw, '{')
	end := strings.LastIndexByte(raw, '}')
	if start < 0 || end < start {
		return ""
	}
	return raw[start : end+1]
}
