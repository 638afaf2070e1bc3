package model

import "teamload/internal/week"

// DefaultCategory is used when a task carries no category.
const DefaultCategory = "other"

// Priority orders pending work; the empty value ranks below every explicit one.
type Priority string

const (
	PriorityNone Priority = ""
	PriorityLow  Priority = "low"
	PriorityMid  Priority = "mid"
	PriorityHigh Priority = "high"
)

// ParsePriority maps unknown values to PriorityNone.
func ParsePriority(s string) Priority {
	switch p := Priority(s); p {
	case PriorityHigh, PriorityMid, PriorityLow:
		return p
	default:
		return PriorityNone
	}
}

func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMid:
		return 2
	case PriorityLow:
		return 1
	default:
		return 0
	}
}

// Task is one weighted item of work in a member's week.
type Task struct {
	ID           string   `json:"id"`
	MemberID     string   `json:"memberId"`
	Content      string   `json:"content"`
	Weight       int      `json:"weight"`
	Category     string   `json:"category"`
	WorkWeek     week.Key `json:"workWeek"`
	Notes        string   `json:"notes"`
	Priority     Priority `json:"priority,omitempty"`
	RepeatWeekly bool     `json:"repeatWeekly"`
	AssignedTo   string   `json:"assignedTo,omitempty"`
	Order        int      `json:"order"`
	IsDone       bool     `json:"isDone"`
	CreatedAt    int64    `json:"createdAt"`
}

// Assignee is who should do the task: AssignedTo, or the owner when unset.
func (t Task) Assignee() string {
	if t.AssignedTo != "" {
		return t.AssignedTo
	}
	return t.MemberID
}

// TaskPatch carries the mutable fields of a task; nil fields are left alone.
type TaskPatch struct {
	Content      *string   `json:"content,omitempty"`
	Weight       *int      `json:"weight,omitempty"`
	Category     *string   `json:"category,omitempty"`
	Notes        *string   `json:"notes,omitempty"`
	Priority     *Priority `json:"priority,omitempty"`
	RepeatWeekly *bool     `json:"repeatWeekly,omitempty"`
	AssignedTo   *string   `json:"assignedTo,omitempty"`
	Order        *int      `json:"order,omitempty"`
	IsDone       *bool     `json:"isDone,omitempty"`
}

func (p TaskPatch) Empty() bool {
	return p.Content == nil && p.Weight == nil && p.Category == nil && p.Notes == nil &&
		p.Priority == nil && p.RepeatWeekly == nil && p.AssignedTo == nil && p.Order == nil && p.IsDone == nil
}

// Apply returns t with the patch fields overlaid.
func (p TaskPatch) Apply(t Task) Task {
	if p.Content != nil {
		t.Content = *p.Content
	}
	if p.Weight != nil {
		t.Weight = *p.Weight
	}
	if p.Category != nil {
		t.Category = *p.Category
		if t.Category == "" {
			t.Category = DefaultCategory
		}
	}
	if p.Notes != nil {
		t.Notes = *p.Notes
	}
	if p.Priority != nil {
		t.Priority = ParsePriority(string(*p.Priority))
	}
	if p.RepeatWeekly != nil {
		t.RepeatWeekly = *p.RepeatWeekly
	}
	if p.AssignedTo != nil {
		t.AssignedTo = *p.AssignedTo
	}
	if p.Order != nil {
		t.Order = *p.Order
	}
	if p.IsDone != nil {
		t.IsDone = *p.IsDone
	}
	return t
}
