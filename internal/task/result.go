package task

import "sort"

// Method names the strategy that produced a Result.
type Method string

const (
	MethodRuleBased        Method = "rule_based"
	MethodRuleBasedWithLLM Method = "rule_based_with_llm"
	MethodLLMFewShot       Method = "llm_few_shot"
)

// Result wraps an ordered task list for callers.
type Result struct {
	Status           string `json:"status"`
	ActionItems      []Task `json:"action_items"`
	TotalItems       int    `json:"total_items"`
	ExtractionMethod Method `json:"extraction_method"`
}

// NewResult builds a success wrapper around tasks.
func NewResult(tasks []Task, method Method) *Result {
	if tasks == nil {
		tasks = []Task{}
	}
	return &Result{
		Status:           "success",
		ActionItems:      tasks,
		TotalItems:       len(tasks),
		ExtractionMethod: method,
	}
}

// Summary aggregates counts over a task list.
type Summary struct {
	Total      int              `json:"total"`
	ByPriority map[Priority]int `json:"by_priority"`
	ByUrgency  map[Urgency]int  `json:"by_urgency"`
	ByStatus   map[Status]int   `json:"by_status"`
	ByAssignee map[string]int   `json:"by_assignee"`
	WithDue    int              `json:"with_due_date"`
	Clarified  int              `json:"llm_clarified"`
}

// Summarize counts tasks by priority, urgency, status and assignee.
func Summarize(tasks []Task) Summary {
	s := Summary{
		Total:      len(tasks),
		ByPriority: make(map[Priority]int),
		ByUrgency:  make(map[Urgency]int),
		ByStatus:   make(map[Status]int),
		ByAssignee: make(map[string]int),
	}
	for i := range tasks {
		t := &tasks[i]
		s.ByPriority[t.Priority]++
		s.ByUrgency[t.Urgency]++
		s.ByStatus[t.Status]++
		s.ByAssignee[t.Assignee]++
		if t.DueDate != nil {
			s.WithDue++
		}
		if t.LLMClarified {
			s.Clarified++
		}
	}
	return s
}

// Assignees returns assignee names sorted by descending task count.
func (s Summary) Assignees() []string {
	names := make([]string, 0, len(s.ByAssignee))
	for name := range s.ByAssignee {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if s.ByAssignee[names[i]] != s.ByAssignee[names[j]] {
			return s.ByAssignee[names[i]] > s.ByAssignee[names[j]]
		}
		return names[i] < names[j]
	})
	return names
}
