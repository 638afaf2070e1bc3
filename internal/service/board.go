package service

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/google/uuid"

	"teamload/internal/model"
	"teamload/internal/week"
)

var (
	// ErrStaleView is returned when a load finished after the board switched
	// to another week or owner; its result was discarded.
	ErrStaleView = errors.New("board view changed while loading")
	// ErrNotOnBoard is returned for mutations of a task the board does not hold.
	ErrNotOnBoard = errors.New("task is not on the board")
)

// View identifies what a board shows.
type View struct {
	Week  week.Key
	Owner string
}

// Optimistic is a mutation already applied to the board. Confirm persists it;
// when the store rejects the write the board is rolled back and the error is
// returned.
type Optimistic[T any] struct {
	Applied T
	confirm func(ctx context.Context) (T, error)
}

func (o Optimistic[T]) Confirm(ctx context.Context) (T, error) {
	if o.confirm == nil {
		return o.Applied, nil
	}
	return o.confirm(ctx)
}

// Board is a local, optimistically updated copy of one view's tasks.
type Board struct {
	svc *TaskService

	mu    sync.Mutex
	view  View
	gen   uint64
	tasks []model.Task
}

func NewBoard(svc *TaskService, view View) *Board {
	return &Board{svc: svc, view: view}
}

func (b *Board) View() View {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.view
}

// SetView switches the board and invalidates loads still in flight.
func (b *Board) SetView(v View) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.view = v
	b.gen++
	b.tasks = nil
}

func (b *Board) Tasks() []model.Task {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.tasks)
}

// Refresh loads the view from the store. Clone failures during recurrence
// are returned alongside a successful load.
func (b *Board) Refresh(ctx context.Context) ([]model.Task, error) {
	b.mu.Lock()
	view, gen := b.view, b.gen
	b.mu.Unlock()

	tasks, err := b.svc.LoadWeek(ctx, view.Week, view.Owner)

	b.mu.Lock()
	defer b.mu.Unlock()
	if gen != b.gen {
		return nil, ErrStaleView
	}
	b.tasks = tasks
	b.gen++
	return slices.Clone(tasks), err
}

// update swaps the task with the same id, if the board still holds it.
func (b *Board) update(gen uint64, task model.Task) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if gen != b.gen {
		return
	}
	for i := range b.tasks {
		if b.tasks[i].ID == task.ID {
			b.tasks[i] = task
			return
		}
	}
}

func (b *Board) find(id string) (int, model.Task, bool) {
	for i, t := range b.tasks {
		if t.ID == id {
			return i, t, true
		}
	}
	return -1, model.Task{}, false
}

// Edit applies patch locally and returns the pending mutation.
func (b *Board) Edit(id string, patch model.TaskPatch) (Optimistic[model.Task], error) {
	b.mu.Lock()
	i, prior, ok := b.find(id)
	if !ok {
		b.mu.Unlock()
		return Optimistic[model.Task]{}, ErrNotOnBoard
	}
	applied := patch.Apply(prior)
	b.tasks[i] = applied
	gen := b.gen
	b.mu.Unlock()

	return Optimistic[model.Task]{
		Applied: applied,
		confirm: func(ctx context.Context) (model.Task, error) {
			if err := b.svc.Edit(ctx, id, patch); err != nil {
				b.update(gen, prior)
				return prior, err
			}
			return applied, nil
		},
	}, nil
}

// Toggle flips isDone locally.
func (b *Board) Toggle(id string) (Optimistic[model.Task], error) {
	b.mu.Lock()
	_, prior, ok := b.find(id)
	b.mu.Unlock()
	if !ok {
		return Optimistic[model.Task]{}, ErrNotOnBoard
	}
	done := !prior.IsDone
	return b.Edit(id, model.TaskPatch{IsDone: &done})
}

// Add shows a placeholder task immediately; Confirm replaces it with the
// stored task or removes it when creation fails.
func (b *Board) Add(input TaskInput) Optimistic[model.Task] {
	b.mu.Lock()
	if input.WorkWeek == "" {
		input.WorkWeek = b.view.Week
	}
	category := input.Category
	if category == "" {
		category = model.DefaultCategory
	}
	placeholder := model.Task{
		ID:           "tmp-" + uuid.NewString(),
		MemberID:     input.MemberID,
		Content:      input.Content,
		Weight:       input.Weight,
		Category:     category,
		WorkWeek:     input.WorkWeek,
		Notes:        input.Notes,
		Priority:     model.ParsePriority(string(input.Priority)),
		RepeatWeekly: input.RepeatWeekly,
		AssignedTo:   input.AssignedTo,
		Order:        input.Order,
		CreatedAt:    b.svc.now().UnixMilli(),
	}
	b.tasks = append([]model.Task{placeholder}, b.tasks...)
	gen := b.gen
	b.mu.Unlock()

	return Optimistic[model.Task]{
		Applied: placeholder,
		confirm: func(ctx context.Context) (model.Task, error) {
			created, err := b.svc.Create(ctx, input)
			b.mu.Lock()
			defer b.mu.Unlock()
			if gen != b.gen {
				return created, err
			}
			i, _, ok := b.find(placeholder.ID)
			if !ok {
				return created, err
			}
			if err != nil {
				b.tasks = slices.Delete(b.tasks, i, i+1)
				return model.Task{}, err
			}
			b.tasks[i] = created
			return created, nil
		},
	}
}

// Delete removes the task locally; a failed store delete puts it back.
func (b *Board) Delete(id string) (Optimistic[[]model.Task], error) {
	b.mu.Lock()
	i, removed, ok := b.find(id)
	if !ok {
		b.mu.Unlock()
		return Optimistic[[]model.Task]{}, ErrNotOnBoard
	}
	b.tasks = slices.Delete(b.tasks, i, i+1)
	applied := slices.Clone(b.tasks)
	gen := b.gen
	b.mu.Unlock()

	return Optimistic[[]model.Task]{
		Applied: applied,
		confirm: func(ctx context.Context) ([]model.Task, error) {
			if err := b.svc.Delete(ctx, id); err != nil {
				b.restore(gen, i, removed)
				return b.Tasks(), err
			}
			return b.Tasks(), nil
		},
	}, nil
}

func (b *Board) restore(gen uint64, at int, task model.Task) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if gen != b.gen {
		return
	}
	if at > len(b.tasks) {
		at = len(b.tasks)
	}
	b.tasks = slices.Insert(b.tasks, at, task)
}

// ClearCompleted hides every done task; Confirm deletes them one by one and
// brings back only the ones whose deletion failed.
func (b *Board) ClearCompleted() Optimistic[[]model.Task] {
	b.mu.Lock()
	var done, kept []model.Task
	for _, t := range b.tasks {
		if t.IsDone {
			done = append(done, t)
		} else {
			kept = append(kept, t)
		}
	}
	b.tasks = kept
	applied := slices.Clone(kept)
	gen := b.gen
	b.mu.Unlock()

	return Optimistic[[]model.Task]{
		Applied: applied,
		confirm: func(ctx context.Context) ([]model.Task, error) {
			removed, err := b.svc.ClearCompleted(ctx, done)
			if err != nil {
				gone := make(map[string]bool, len(removed))
				for _, id := range removed {
					gone[id] = true
				}
				b.mu.Lock()
				if gen == b.gen {
					for _, t := range done {
						if !gone[t.ID] {
							b.tasks = append(b.tasks, t)
						}
					}
				}
				b.mu.Unlock()
			}
			return b.Tasks(), err
		},
	}
}

// Reorder shows tasks in the order of ids. Tasks not named keep their
// relative order after the named ones. A failed write reloads the view.
func (b *Board) Reorder(ids []string) Optimistic[[]model.Task] {
	b.mu.Lock()
	pos := make(map[string]int, len(ids))
	for i, id := range ids {
		pos[id] = i
	}
	ordered := slices.Clone(b.tasks)
	slices.SortStableFunc(ordered, func(a, c model.Task) int {
		pa, oka := pos[a.ID]
		pc, okc := pos[c.ID]
		switch {
		case oka && okc:
			return pa - pc
		case oka:
			return -1
		case okc:
			return 1
		default:
			return 0
		}
	})
	for i := range ordered {
		ordered[i].Order = i
	}
	b.tasks = ordered
	applied := slices.Clone(ordered)
	b.mu.Unlock()

	return Optimistic[[]model.Task]{
		Applied: applied,
		confirm: func(ctx context.Context) ([]model.Task, error) {
			if err := b.svc.Reorder(ctx, OrderOf(applied)); err != nil {
				tasks, rerr := b.Refresh(ctx)
				if errors.Is(rerr, ErrStaleView) {
					return nil, err
				}
				return tasks, err
			}
			return applied, nil
		},
	}
}
