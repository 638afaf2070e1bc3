package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"teamload/internal/model"
	"teamload/internal/repository"
	"teamload/internal/week"
)

// Clock returns the current moment in the team's time zone.
type Clock func() time.Time

// reorderConcurrency bounds parallel order writes against the store.
const reorderConcurrency = 4

// TaskInput represents data required to create a task.
type TaskInput struct {
	MemberID     string         `json:"memberId"`
	Content      string         `json:"content"`
	Weight       int            `json:"weight"`
	Category     string         `json:"category"`
	WorkWeek     week.Key       `json:"workWeek"`
	Notes        string         `json:"notes"`
	Priority     model.Priority `json:"priority"`
	RepeatWeekly bool           `json:"repeatWeekly"`
	AssignedTo   string         `json:"assignedTo"`
	Order        int            `json:"order"`
}

// ReorderItem sets the manual order of one task.
type ReorderItem struct {
	ID    string `json:"id"`
	Order int    `json:"order"`
}

// TaskService loads weekly task sets, propagates repeating tasks and applies
// task mutations.
type TaskService struct {
	repo  *repository.TaskRepository
	log   *zap.Logger
	now   Clock
	newID func() string
}

func NewTaskService(repo *repository.TaskRepository, log *zap.Logger, now Clock) *TaskService {
	if now == nil {
		now = time.Now
	}
	return &TaskService{
		repo:  repo,
		log:   log.Named("task_service"),
		now:   now,
		newID: uuid.NewString,
	}
}

func (s *TaskService) Now() time.Time { return s.now() }

// CurrentWeek is the week key of the real current moment.
func (s *TaskService) CurrentWeek() week.Key {
	return week.KeyOf(s.now())
}

// List returns every task, optionally owned by one member. A failed read is
// logged and yields an empty set.
func (s *TaskService) List(ctx context.Context, owner string) []model.Task {
	tasks, err := s.repo.List(ctx, repository.TaskFilter{MemberID: owner})
	if err != nil {
		s.log.Warn("list tasks", zap.String("owner", owner), zap.Error(err))
		return []model.Task{}
	}
	return tasks
}

// LoadWeek returns the tasks of wk, optionally owned by one member.
//
// When wk is the real current week, repeating tasks of the previous real week
// are cloned into it first, unless the week already holds a task with the same
// content and category. Browsing any other week never writes. The returned
// error joins clone failures; the task set is valid even when it is non-nil.
func (s *TaskService) LoadWeek(ctx context.Context, wk week.Key, owner string) ([]model.Task, error) {
	all := s.List(ctx, owner)
	weekTasks := InWeek(all, wk)

	current := s.CurrentWeek()
	if wk != current {
		return weekTasks, nil
	}

	prev := week.Prev(current)
	var (
		created int
		errs    []error
	)
	for _, candidate := range all {
		if candidate.WorkWeek != prev || !candidate.RepeatWeekly {
			continue
		}
		if alreadyPropagated(weekTasks, candidate) {
			continue
		}
		clone := s.recurrenceClone(candidate, current)
		if err := s.repo.Append(ctx, clone); err != nil {
			s.log.Error("propagate repeating task",
				zap.String("source", candidate.ID), zap.String("week", string(current)), zap.Error(err))
			errs = append(errs, fmt.Errorf("propagate %s: %w", candidate.ID, err))
			continue
		}
		s.log.Info("propagated repeating task",
			zap.String("source", candidate.ID), zap.String("id", clone.ID), zap.String("week", string(current)))
		created++
	}

	if created > 0 {
		weekTasks = InWeek(s.List(ctx, owner), wk)
	}
	return weekTasks, errors.Join(errs...)
}

// Propagate runs recurrence for the current week across the whole team and
// reports how many tasks the week holds afterwards.
func (s *TaskService) Propagate(ctx context.Context) (int, error) {
	tasks, err := s.LoadWeek(ctx, s.CurrentWeek(), "")
	return len(tasks), err
}

// alreadyPropagated matches on content and category, not on lineage: two
// distinct tasks that share both are treated as the same.
func alreadyPropagated(weekTasks []model.Task, candidate model.Task) bool {
	for _, t := range weekTasks {
		if t.Content == candidate.Content && t.Category == candidate.Category {
			return true
		}
	}
	return false
}

// cloneInto copies the task into another week as a fresh, pending task.
func (s *TaskService) cloneInto(src model.Task, wk week.Key) model.Task {
	clone := src
	clone.ID = s.newID()
	clone.WorkWeek = wk
	clone.IsDone = false
	clone.CreatedAt = s.now().UnixMilli()
	return clone
}

// recurrenceClone carries only the template's member, content, weight,
// category, notes and priority. The assignee falls back to the owner and the
// manual order starts at zero.
func (s *TaskService) recurrenceClone(src model.Task, wk week.Key) model.Task {
	return model.Task{
		ID:           s.newID(),
		MemberID:     src.MemberID,
		Content:      src.Content,
		Weight:       src.Weight,
		Category:     src.Category,
		WorkWeek:     wk,
		Notes:        src.Notes,
		Priority:     src.Priority,
		RepeatWeekly: true,
		CreatedAt:    s.now().UnixMilli(),
	}
}

// InWeek keeps the tasks of one week, preserving order.
func InWeek(tasks []model.Task, wk week.Key) []model.Task {
	out := make([]model.Task, 0, len(tasks))
	for _, t := range tasks {
		if t.WorkWeek == wk {
			out = append(out, t)
		}
	}
	return out
}

// ActiveOrder returns the pending tasks sorted by priority rank, then weight,
// then creation time, all descending. Equal keys keep their input order.
func ActiveOrder(tasks []model.Task) []model.Task {
	active := make([]model.Task, 0, len(tasks))
	for _, t := range tasks {
		if !t.IsDone {
			active = append(active, t)
		}
	}
	sort.SliceStable(active, func(i, j int) bool {
		a, b := active[i], active[j]
		if ra, rb := a.Priority.Rank(), b.Priority.Rank(); ra != rb {
			return ra > rb
		}
		if a.Weight != b.Weight {
			return a.Weight > b.Weight
		}
		return a.CreatedAt > b.CreatedAt
	})
	return active
}

// ByOrder sorts a copy of tasks by their manual order field.
func ByOrder(tasks []model.Task) []model.Task {
	out := append([]model.Task(nil), tasks...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

func (s *TaskService) Get(ctx context.Context, id string) (model.Task, error) {
	return s.repo.Get(ctx, id)
}

// Create validates input and appends a new task. The category defaults to
// "other" and the week to the current one. Member emails are stored lowercased.
func (s *TaskService) Create(ctx context.Context, input TaskInput) (model.Task, error) {
	input.MemberID = normalizeEmail(input.MemberID)
	input.AssignedTo = normalizeEmail(input.AssignedTo)
	if strings.TrimSpace(input.Content) == "" {
		return model.Task{}, invalid("content", "is required")
	}
	if strings.TrimSpace(input.MemberID) == "" {
		return model.Task{}, invalid("memberId", "is required")
	}
	wk := input.WorkWeek
	if wk == "" {
		wk = s.CurrentWeek()
	} else {
		parsed, err := week.Parse(string(wk))
		if err != nil {
			return model.Task{}, invalid("workWeek", "must be YYYY-MM-DD")
		}
		wk = parsed
	}
	category := input.Category
	if category == "" {
		category = model.DefaultCategory
	}

	task := model.Task{
		ID:           s.newID(),
		MemberID:     input.MemberID,
		Content:      input.Content,
		Weight:       input.Weight,
		Category:     category,
		WorkWeek:     wk,
		Notes:        input.Notes,
		Priority:     model.ParsePriority(string(input.Priority)),
		RepeatWeekly: input.RepeatWeekly,
		AssignedTo:   input.AssignedTo,
		Order:        input.Order,
		CreatedAt:    s.now().UnixMilli(),
	}
	if err := s.repo.Append(ctx, task); err != nil {
		return model.Task{}, err
	}
	return task, nil
}

// Edit applies a partial update. Unknown ids are ignored.
func (s *TaskService) Edit(ctx context.Context, id string, patch model.TaskPatch) error {
	if id == "" {
		return invalid("id", "is required")
	}
	if patch.Empty() {
		return invalid("fields", "nothing to update")
	}
	if patch.AssignedTo != nil {
		assignee := normalizeEmail(*patch.AssignedTo)
		patch.AssignedTo = &assignee
	}
	return s.repo.UpdateFields(ctx, id, patch)
}

// Toggle flips the completion flag of a stored task. Unknown ids are ignored.
func (s *TaskService) Toggle(ctx context.Context, id string) error {
	task, err := s.repo.Get(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	done := !task.IsDone
	return s.repo.UpdateFields(ctx, id, model.TaskPatch{IsDone: &done})
}

// Delete removes a task. Unknown ids are ignored.
func (s *TaskService) Delete(ctx context.Context, id string) error {
	if id == "" {
		return invalid("id", "is required")
	}
	return s.repo.DeleteByID(ctx, id)
}

// ClearCompleted deletes every done task of the set one by one. A failed
// deletion does not stop the rest; removed lists the ids that are gone.
func (s *TaskService) ClearCompleted(ctx context.Context, tasks []model.Task) (removed []string, err error) {
	var errs []error
	for _, t := range tasks {
		if !t.IsDone {
			continue
		}
		if derr := s.repo.DeleteByID(ctx, t.ID); derr != nil {
			s.log.Warn("clear completed task", zap.String("id", t.ID), zap.Error(derr))
			errs = append(errs, fmt.Errorf("delete %s: %w", t.ID, derr))
			continue
		}
		removed = append(removed, t.ID)
	}
	return removed, errors.Join(errs...)
}

// CopyToNextWeek creates a pending copy of task in the following week. The
// source task is left as is.
func (s *TaskService) CopyToNextWeek(ctx context.Context, task model.Task) (model.Task, error) {
	clone := s.cloneInto(task, week.Next(task.WorkWeek))
	if err := s.repo.Append(ctx, clone); err != nil {
		return model.Task{}, err
	}
	return clone, nil
}

// CopyPendingToNextWeek copies every pending task of the set forward, each
// independently of the others.
func (s *TaskService) CopyPendingToNextWeek(ctx context.Context, tasks []model.Task) ([]model.Task, error) {
	var (
		copied []model.Task
		errs   []error
	)
	for _, t := range tasks {
		if t.IsDone {
			continue
		}
		clone, err := s.CopyToNextWeek(ctx, t)
		if err != nil {
			s.log.Warn("copy pending task", zap.String("id", t.ID), zap.Error(err))
			errs = append(errs, fmt.Errorf("copy %s: %w", t.ID, err))
			continue
		}
		copied = append(copied, clone)
	}
	return copied, errors.Join(errs...)
}

// Reorder persists the order of each item independently. Writes run in
// parallel with a small bound; every failure is reported, none aborts the rest.
func (s *TaskService) Reorder(ctx context.Context, items []ReorderItem) error {
	var (
		mu   sync.Mutex
		errs []error
		g    errgroup.Group
	)
	g.SetLimit(reorderConcurrency)
	for _, item := range items {
		item := item
		g.Go(func() error {
			order := item.Order
			if err := s.repo.UpdateFields(ctx, item.ID, model.TaskPatch{Order: &order}); err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("reorder %s: %w", item.ID, err))
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}

// OrderOf turns a sequence into reorder items, using each position as order.
func OrderOf(tasks []model.Task) []ReorderItem {
	items := make([]ReorderItem, len(tasks))
	for i, t := range tasks {
		items[i] = ReorderItem{ID: t.ID, Order: i}
	}
	return items
}
