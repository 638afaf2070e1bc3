package service

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"teamload/internal/model"
	"teamload/internal/repository"
	"teamload/internal/week"
)

const (
	thisWeek week.Key = "2026-10-19"
	lastWeek week.Key = "2026-10-12"
	nextWeek week.Key = "2026-10-26"
)

func TestCurrentWeekUsesClock(t *testing.T) {
	f := newFixture(t, wednesday)
	assert.Equal(t, thisWeek, f.tasks.CurrentWeek())
}

func TestLoadWeekPropagatesRepeatingTasksOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, wednesday)
	f.seed(t,
		model.Task{ID: "standup", MemberID: "alice@x.com", Content: "Standup notes", Weight: 1, Category: "meeting", WorkWeek: lastWeek, RepeatWeekly: true, IsDone: true, Order: 3},
		model.Task{ID: "oneoff", MemberID: "alice@x.com", Content: "Fix banner", Weight: 2, Category: "design", WorkWeek: lastWeek},
	)

	got, err := f.tasks.LoadWeek(ctx, thisWeek, "")
	require.NoError(t, err)
	require.Len(t, got, 1)
	clone := got[0]
	assert.NotEqual(t, "standup", clone.ID)
	assert.Equal(t, "Standup notes", clone.Content)
	assert.Equal(t, thisWeek, clone.WorkWeek)
	assert.True(t, clone.RepeatWeekly)
	assert.False(t, clone.IsDone)
	assert.Zero(t, clone.Order)
	assert.Equal(t, wednesday.UnixMilli(), clone.CreatedAt)

	again, err := f.tasks.LoadWeek(ctx, thisWeek, "")
	require.NoError(t, err)
	assert.Len(t, again, 1)
	assert.Len(t, f.stored(t), 3)

	source, err := f.tasks.Get(ctx, "standup")
	require.NoError(t, err)
	assert.True(t, source.IsDone, "source task is untouched")
}

func TestLoadWeekCloneDropsAssigneeAndOrder(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, wednesday)
	f.seed(t,
		model.Task{ID: "tpl", MemberID: "alice@x.com", AssignedTo: "bob@x.com", Content: "Weekly cut", Weight: 4, Category: "edit", Notes: "raw", Priority: model.PriorityHigh, WorkWeek: lastWeek, RepeatWeekly: true, Order: 7},
	)

	got, err := f.tasks.LoadWeek(ctx, thisWeek, "")
	require.NoError(t, err)
	require.Len(t, got, 1)
	clone := got[0]
	assert.Empty(t, clone.AssignedTo)
	assert.Zero(t, clone.Order)
	assert.Equal(t, "raw", clone.Notes)
	assert.Equal(t, model.PriorityHigh, clone.Priority)
	assert.Equal(t, 4, MemberLoad(got, "alice@x.com"))
	assert.Equal(t, 0, MemberLoad(got, "bob@x.com"))
}

func TestLoadWeekOtherWeeksNeverWrite(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, wednesday)
	f.seed(t,
		model.Task{ID: "r1", MemberID: "alice@x.com", Content: "Weekly report", Category: "ops", WorkWeek: lastWeek, RepeatWeekly: true},
		model.Task{ID: "r2", MemberID: "alice@x.com", Content: "Backup check", Category: "ops", WorkWeek: thisWeek, RepeatWeekly: true},
	)

	prev, err := f.tasks.LoadWeek(ctx, lastWeek, "")
	require.NoError(t, err)
	assert.Len(t, prev, 1)

	next, err := f.tasks.LoadWeek(ctx, nextWeek, "")
	require.NoError(t, err)
	assert.Empty(t, next)

	assert.Len(t, f.stored(t), 2)
}

func TestLoadWeekMatchesOnContentAndCategory(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, wednesday)
	f.seed(t,
		model.Task{ID: "old", MemberID: "alice@x.com", Content: "Proofread", Category: "edit", WorkWeek: lastWeek, RepeatWeekly: true},
		model.Task{ID: "manual", MemberID: "bob@x.com", Content: "Proofread", Category: "edit", WorkWeek: thisWeek},
	)

	got, err := f.tasks.LoadWeek(ctx, thisWeek, "")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "manual", got[0].ID)
}

func TestLoadWeekOwnerFilter(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, wednesday)
	f.seed(t,
		model.Task{ID: "a", MemberID: "alice@x.com", Content: "Cut trailer", Category: "edit", WorkWeek: lastWeek, RepeatWeekly: true},
		model.Task{ID: "b", MemberID: "bob@x.com", Content: "Mix audio", Category: "sound", WorkWeek: lastWeek, RepeatWeekly: true},
	)

	got, err := f.tasks.LoadWeek(ctx, thisWeek, "alice@x.com")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Cut trailer", got[0].Content)
	assert.Len(t, f.stored(t), 3, "only the owner's repeating task is cloned")
}

func TestLoadWeekCloneFailureKeepsOthers(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, wednesday)
	f.seed(t,
		model.Task{ID: "a", MemberID: "alice@x.com", Content: "Sync", Category: "meeting", WorkWeek: lastWeek, RepeatWeekly: true},
		model.Task{ID: "b", MemberID: "alice@x.com", Content: "Retro", Category: "meeting", WorkWeek: lastWeek, RepeatWeekly: true},
	)
	f.tasksTable.failAppendOf("Sync")

	got, err := f.tasks.LoadWeek(ctx, thisWeek, "")
	require.Error(t, err)
	assert.True(t, repository.IsWriteError(err))
	require.Len(t, got, 1)
	assert.Equal(t, "Retro", got[0].Content)
}

func TestLoadWeekReadFailureDegradesToEmpty(t *testing.T) {
	f := newFixture(t, wednesday)
	f.seed(t, model.Task{ID: "a", MemberID: "alice@x.com", Content: "x", WorkWeek: thisWeek})
	f.tasksTable.setFailReads(true)

	got, err := f.tasks.LoadWeek(context.Background(), thisWeek, "")
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NotNil(t, got)
}

func TestPropagateCountsCurrentWeek(t *testing.T) {
	f := newFixture(t, wednesday)
	f.seed(t,
		model.Task{ID: "a", MemberID: "alice@x.com", Content: "Sync", Category: "meeting", WorkWeek: lastWeek, RepeatWeekly: true},
		model.Task{ID: "b", MemberID: "bob@x.com", Content: "Deploy", Category: "ops", WorkWeek: thisWeek},
	)
	n, err := f.tasks.Propagate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestActiveOrder(t *testing.T) {
	a := model.Task{ID: "A", Priority: model.PriorityHigh, Weight: 2}
	b := model.Task{ID: "B", Priority: model.PriorityHigh, Weight: 5}
	c := model.Task{ID: "C", Priority: model.PriorityMid, Weight: 5}
	done := model.Task{ID: "D", Priority: model.PriorityHigh, Weight: 9, IsDone: true}
	older := model.Task{ID: "E", Weight: 1, CreatedAt: 100}
	newer := model.Task{ID: "F", Weight: 1, CreatedAt: 200}

	got := ActiveOrder([]model.Task{a, older, done, c, newer, b})
	ids := make([]string, len(got))
	for i, t := range got {
		ids[i] = t.ID
	}
	if diff := cmp.Diff([]string{"B", "A", "C", "F", "E"}, ids); diff != "" {
		t.Errorf("ActiveOrder mismatch (-want +got):\n%s", diff)
	}
}

func TestCreateValidatesAndDefaults(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, wednesday)

	_, err := f.tasks.Create(ctx, TaskInput{MemberID: "alice@x.com", Content: "  "})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "content", verr.Field)

	_, err = f.tasks.Create(ctx, TaskInput{Content: "Write copy"})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "memberId", verr.Field)

	_, err = f.tasks.Create(ctx, TaskInput{MemberID: "alice@x.com", Content: "x", WorkWeek: "next tuesday"})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "workWeek", verr.Field)
	assert.Empty(t, f.stored(t), "rejected input never reaches the store")

	task, err := f.tasks.Create(ctx, TaskInput{MemberID: "alice@x.com", Content: "Write copy", Weight: 3, WorkWeek: "2026-10-22", Priority: "urgent"})
	require.NoError(t, err)
	assert.NotEmpty(t, task.ID)
	assert.Equal(t, model.DefaultCategory, task.Category)
	assert.Equal(t, thisWeek, task.WorkWeek, "week is re-anchored to its Monday")
	assert.Equal(t, model.PriorityNone, task.Priority)

	stored, err := f.tasks.Get(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, task, stored)
}

func TestEditToggleDelete(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, wednesday)
	f.seed(t, model.Task{ID: "a", MemberID: "alice@x.com", Content: "Draft", Weight: 2, Category: "edit", WorkWeek: thisWeek})

	require.NoError(t, f.tasks.Edit(ctx, "a", model.TaskPatch{Weight: ptr(5), Notes: ptr("see doc")}))
	require.NoError(t, f.tasks.Toggle(ctx, "a"))
	got, err := f.tasks.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 5, got.Weight)
	assert.Equal(t, "see doc", got.Notes)
	assert.True(t, got.IsDone)

	var verr *ValidationError
	assert.ErrorAs(t, f.tasks.Edit(ctx, "a", model.TaskPatch{}), &verr)
	assert.ErrorAs(t, f.tasks.Delete(ctx, ""), &verr)

	assert.NoError(t, f.tasks.Toggle(ctx, "missing"))
	assert.NoError(t, f.tasks.Edit(ctx, "missing", model.TaskPatch{Weight: ptr(1)}))
	require.NoError(t, f.tasks.Delete(ctx, "a"))
	assert.NoError(t, f.tasks.Delete(ctx, "a"))
	assert.Empty(t, f.stored(t))
}

func TestClearCompletedIsPerItem(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, wednesday)
	tasks := []model.Task{
		{ID: "d1", MemberID: "alice@x.com", Content: "one", WorkWeek: thisWeek, IsDone: true},
		{ID: "d2", MemberID: "alice@x.com", Content: "two", WorkWeek: thisWeek, IsDone: true},
		{ID: "d3", MemberID: "alice@x.com", Content: "three", WorkWeek: thisWeek, IsDone: true},
		{ID: "p1", MemberID: "alice@x.com", Content: "four", WorkWeek: thisWeek},
	}
	f.seed(t, tasks...)
	f.tasksTable.failWritesTo("d2")

	removed, err := f.tasks.ClearCompleted(ctx, tasks)
	require.Error(t, err)
	assert.ErrorIs(t, err, errQuota)
	assert.Equal(t, []string{"d1", "d3"}, removed)

	left := f.stored(t)
	require.Len(t, left, 2)
	assert.Equal(t, "d2", left[0].ID)
	assert.Equal(t, "p1", left[1].ID)
}

func TestCopyToNextWeek(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, wednesday)
	src := model.Task{ID: "a", MemberID: "alice@x.com", Content: "Storyboard", Weight: 4, Category: "design", WorkWeek: thisWeek, IsDone: true, Priority: model.PriorityHigh, AssignedTo: "bob@x.com"}
	f.seed(t, src)

	clone, err := f.tasks.CopyToNextWeek(ctx, src)
	require.NoError(t, err)
	assert.NotEqual(t, src.ID, clone.ID)
	assert.Equal(t, nextWeek, clone.WorkWeek)
	assert.False(t, clone.IsDone)
	assert.Equal(t, src.Priority, clone.Priority)
	assert.Equal(t, src.AssignedTo, clone.AssignedTo)

	orig, err := f.tasks.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, src, orig)
}

func TestCopyPendingToNextWeek(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, wednesday)
	tasks := []model.Task{
		{ID: "a", MemberID: "alice@x.com", Content: "pending one", WorkWeek: thisWeek},
		{ID: "b", MemberID: "alice@x.com", Content: "finished", WorkWeek: thisWeek, IsDone: true},
		{ID: "c", MemberID: "alice@x.com", Content: "pending two", WorkWeek: thisWeek},
	}
	f.seed(t, tasks...)
	f.tasksTable.failAppendOf("pending one")

	copied, err := f.tasks.CopyPendingToNextWeek(ctx, tasks)
	require.Error(t, err)
	require.Len(t, copied, 1)
	assert.Equal(t, "pending two", copied[0].Content)
	assert.Len(t, InWeek(f.stored(t), nextWeek), 1)
}

func TestReorderReportsEveryFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, wednesday)
	f.seed(t,
		model.Task{ID: "a", MemberID: "alice@x.com", Content: "a", WorkWeek: thisWeek},
		model.Task{ID: "b", MemberID: "alice@x.com", Content: "b", WorkWeek: thisWeek},
		model.Task{ID: "c", MemberID: "alice@x.com", Content: "c", WorkWeek: thisWeek},
	)
	f.tasksTable.failWritesTo("b")

	err := f.tasks.Reorder(ctx, []ReorderItem{{ID: "c", Order: 0}, {ID: "b", Order: 1}, {ID: "a", Order: 2}})
	require.Error(t, err)
	assert.ErrorIs(t, err, errQuota)
	assert.Contains(t, err.Error(), "reorder b")

	byID := map[string]int{}
	for _, task := range f.stored(t) {
		byID[task.ID] = task.Order
	}
	assert.Equal(t, map[string]int{"a": 2, "b": 0, "c": 0}, byID)
}

func TestByOrderAndOrderOf(t *testing.T) {
	tasks := []model.Task{{ID: "x", Order: 2}, {ID: "y", Order: 0}, {ID: "z", Order: 1}}
	sorted := ByOrder(tasks)
	assert.Equal(t, "y", sorted[0].ID)
	assert.Equal(t, "x", tasks[0].ID, "input is not mutated")
	assert.Equal(t, []ReorderItem{{ID: "y", Order: 0}, {ID: "z", Order: 1}, {ID: "x", Order: 2}}, OrderOf(sorted))
}
