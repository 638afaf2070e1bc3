package service

import (
	"context"
	"fmt"
	"html"
	"strings"

	"teamload/internal/model"
	"teamload/internal/week"
)

// DigestService builds the weekly team digest sent to chat.
type DigestService struct {
	tasks      *TaskService
	members    *MemberService
	categories *CategoryService
}

func NewDigestService(tasks *TaskService, members *MemberService, categories *CategoryService) *DigestService {
	return &DigestService{tasks: tasks, members: members, categories: categories}
}

// WeeklyDigest summarises the current week for the whole team as Telegram
// HTML. Recurrence runs first so repeating work is counted.
func (s *DigestService) WeeklyDigest(ctx context.Context) (string, error) {
	wk := s.tasks.CurrentWeek()
	current, err := s.tasks.LoadWeek(ctx, wk, "")
	all := s.tasks.List(ctx, "")
	members := s.members.List(ctx)
	categories := s.categories.List(ctx)

	summary := Summarize(wk, current, InWeek(all, week.Prev(wk)))
	forecast := CapacityForecast(members, all, wk)

	var b strings.Builder
	fmt.Fprintf(&b, "📋 <b>Team load</b>\n🗓 %s\n\n", html.EscapeString(summary.Label))
	fmt.Fprintf(&b, "Points: <b>%d</b> (%d done, %d pending)\n", summary.Total, summary.Completed, summary.Pending)
	fmt.Fprintf(&b, "Completion: %d%% (last week %d%%)\n", summary.CompletionRate, summary.PrevCompletionRate)
	if summary.Delta != 0 {
		fmt.Fprintf(&b, "Change vs last week: %+d\n", summary.Delta)
	}

	b.WriteString("\n👥 <b>Capacity</b>\n")
	if len(forecast) == 0 {
		b.WriteString("— no members\n")
	}
	for _, mc := range forecast {
		b.WriteString(FormatCapacity(mc))
	}

	if top := CategoryBreakdown(current, categories); len(top) > 0 && top[0].Points > 0 {
		fmt.Fprintf(&b, "\n🏷 Top category: %s (%d pts)\n", html.EscapeString(top[0].Name), top[0].Points)
	}
	return strings.TrimSpace(b.String()), err
}

// FormatCapacity renders one member line of the digest.
func FormatCapacity(mc MemberCapacity) string {
	icon := "🟢"
	switch mc.Status {
	case StatusWarn:
		icon = "🟡"
	case StatusOver:
		icon = "🔴"
	}
	return fmt.Sprintf("%s %s: %d/%d (%.0f%%), next week %d\n",
		icon, html.EscapeString(mc.Name), mc.CurrentLoad, mc.Capacity, mc.UsageRate, mc.NextLoad)
}

// FormatTaskLine renders a task as a numbered list entry.
func FormatTaskLine(n int, t model.Task, categories []model.Category) string {
	mark := "⬜"
	if t.IsDone {
		mark = "✅"
	}
	line := fmt.Sprintf("%d. %s %s <i>(%s, %d pts)</i>",
		n, mark, html.EscapeString(strings.TrimSpace(t.Content)),
		html.EscapeString(CategoryName(categories, t.Category)), t.Weight)
	if t.Priority != model.PriorityNone {
		line += " ❗" + string(t.Priority)
	}
	return line + "\n"
}
