package extractor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kaptinlin/jsonrepair"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/actionitems/internal/dates"
	"github.com/fyrsmithlabs/actionitems/internal/llm"
	"github.com/fyrsmithlabs/actionitems/internal/task"
	"github.com/fyrsmithlabs/actionitems/internal/transcript"
)

const (
	fewShotMaxTokens   = 2000
	fewShotTemperature = 0.1
	// fewShotMinConfidence drops items the service itself doubts.
	fewShotMinConfidence     = 0.5
	fewShotDefaultConfidence = 0.7
	unknownSpeaker           = "Unknown"
)

var errNoActionItems = errors.New("response has no action_items object")

const fewShotSystem = "You are an expert at extracting action items from meeting transcripts. " +
	"You identify tasks, assignees, and deadlines accurately."

const fewShotExamples = `EXAMPLES:

TRANSCRIPT:
Manager: We need someone to prepare the quarterly report.
Laura: I'll handle that by next Monday.
Manager: Great, thanks.

OUTPUT:
{"action_items": [{"description": "prepare the quarterly report", "assignee": "Laura", "due_date": "next Monday", "confidence": 0.95}]}

TRANSCRIPT:
Manager: Brian, could you create the architecture diagram?
Brian: Sure, I'll get that done.
Manager: Also, Paul and Laura, could you both work together on the security audit by month end?
Paul: Sounds good.
Laura: Yes, we'll handle it.

OUTPUT:
{"action_items": [{"description": "create the architecture diagram", "assignee": "Brian", "due_date": null, "confidence": 0.95}, {"description": "work on the security audit", "assignee": "Laura and Paul", "due_date": "by month end", "confidence": 0.95}]}

TRANSCRIPT:
Manager: Someone needs to update the documentation.
Team: We should do that soon.
Manager: Let's make sure it gets done.

OUTPUT:
{"action_items": [{"description": "update the documentation", "assignee": "Unassigned", "due_date": null, "confidence": 0.7}]}`

// FewShot extracts the whole task list with one completion request. It has no
// pattern matching of its own and is only as good as the model behind it.
type FewShot struct {
	service llm.CompletionService
	dates   *dates.Resolver
	logger  *zap.Logger
}

// NewFewShot creates a few-shot extractor. resolver turns the deadline
// phrases the model returns into dates and may be nil.
func NewFewShot(service llm.CompletionService, resolver *dates.Resolver, logger *zap.Logger) *FewShot {
	if resolver == nil {
		resolver = dates.NewResolver()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FewShot{service: service, dates: resolver, logger: logger}
}

type fewShotItem struct {
	Description string   `json:"description"`
	Assignee    string   `json:"assignee"`
	DueDate     *string  `json:"due_date"`
	Confidence  *float64 `json:"confidence"`
}

// Extract asks the service for every action item in doc.
func (f *FewShot) Extract(ctx context.Context, doc *transcript.Document, ref time.Time) ([]task.Task, error) {
	raw, err := f.service.Complete(ctx, llm.CompletionRequest{
		System:      fewShotSystem,
		Prompt:      BuildFewShotPrompt(doc),
		MaxTokens:   fewShotMaxTokens,
		Temperature: fewShotTemperature,
		JSONMode:    true,
	})
	if err != nil {
		return nil, fmt.Errorf("completion: %w", err)
	}
	items, err := parseFewShot(raw)
	if err != nil {
		return nil, err
	}

	tasks := make([]task.Task, 0, len(items))
	for _, it := range items {
		t, ok := f.toTask(ctx, it, ref)
		if !ok {
			f.logger.Debug("generated item dropped", zap.String("description", it.Description))
			continue
		}
		t.ID = fmt.Sprintf("llm-%d", len(tasks)+1)
		tasks = append(tasks, t)
	}
	return tasks, nil
}

func (f *FewShot) toTask(ctx context.Context, it fewShotItem, ref time.Time) (task.Task, bool) {
	desc := strings.TrimSpace(it.Description)
	if len(strings.Fields(desc)) < 2 {
		return task.Task{}, false
	}
	confidence := fewShotDefaultConfidence
	if it.Confidence != nil {
		confidence = *it.Confidence
	}
	if confidence < fewShotMinConfidence {
		return task.Task{}, false
	}

	assignee := strings.TrimSpace(strings.ReplaceAll(it.Assignee, "Speaker_", ""))
	if assignee == "" {
		assignee = task.UnassignedName
	}

	t := task.Task{
		Description:    desc,
		Assignee:       assignee,
		Speaker:        unknownSpeaker,
		Priority:       task.PriorityMedium,
		Urgency:        task.UrgencyNormal,
		TaskType:       task.TypeGenerated,
		MentionedDates: []string{},
		SourceText:     desc,
		Confidence:     min(confidence, 1),
		SegmentIndex:   -1,
	}
	if it.DueDate != nil && strings.TrimSpace(*it.DueDate) != "" {
		span := dates.Summarize(f.dates.Extract(ctx, *it.DueDate, ref))
		t.StartDate, t.DueDate, t.MentionedDates = span.Start, span.Due, span.Mentioned
		if t.MentionedDates == nil {
			t.MentionedDates = []string{}
		}
		if t.StartDate != nil {
			t.StartDateFormatted = t.StartDate.Format(task.DisplayLayout)
		}
		if t.DueDate != nil {
			t.DueDateFormatted = t.DueDate.Format(task.DisplayLayout)
		}
	}
	t.Status = task.DeriveStatus(t.Urgency, t.Confidence, false, task.DefaultReviewThreshold)
	return t, true
}

// BuildFewShotPrompt renders the transcript with worked examples.
func BuildFewShotPrompt(doc *transcript.Document) string {
	var participants []string
	seen := make(map[string]bool)
	var b strings.Builder
	var segments []transcript.Segment
	if doc != nil {
		segments = doc.Transcript
	}
	for _, seg := range segments {
		if !seg.Valid() {
			continue
		}
		speaker := strings.TrimPrefix(seg.Speaker, "Speaker_")
		if !seen[speaker] {
			seen[speaker] = true
			participants = append(participants, speaker)
		}
		fmt.Fprintf(&b, "%s: %s\n", speaker, strings.TrimSpace(seg.Text))
	}
	list := "unknown"
	if len(participants) > 0 {
		list = strings.Join(participants, ", ")
	}

	return "Extract action items from the following meeting transcript.\n\n" +
		"PARTICIPANTS: " + list + "\n\n" +
		"TRANSCRIPT:\n" + b.String() + "\n" +
		`Return JSON in this exact format:
{"action_items": [{"description": "clear, actionable task", "assignee": "Name" or "Name1 and Name2" or "Unassigned", "due_date": "deadline as spoken" or null, "confidence": 0.0}]}

RULES:
- Assignees are plain names from the participants list, never with a "Speaker_" prefix.
- Descriptions start with a verb and name an object, never fragments like "for the visuals".
- Keep deadlines in the words used in the conversation, or null when none was given.
- Only include items with confidence of at least 0.5.

` + fewShotExamples + "\n\nReturn ONLY the JSON for the transcript above."
}

func parseFewShot(raw string) ([]fewShotItem, error) {
	start := strings.IndexByte(raw, '{')
	end := strings.LastIndexByte(raw, '}')
	if start < 0 || end < start {
		return nil, errNoActionItems
	}
	body := raw[start : end+1]

	var out struct {
		ActionItems []fewShotItem `json:"action_items"`
	}
	if err := json.Unmarshal([]byte(body), &out); err != nil {
		repaired, rerr := jsonrepair.JSONRepair(body)
		if rerr != nil {
			return nil, fmt.Errorf("repairing action items: %w", rerr)
		}
		if err := json.Unmarshal([]byte(repaired), &out); err != nil {
			return nil, fmt.Errorf("decoding action items: %w", err)
		}
	}
	return out.ActionItems, nil
}
