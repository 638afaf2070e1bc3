package service

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"teamload/internal/model"
	"teamload/internal/week"
)

func TestMemberLoadOverCapacity(t *testing.T) {
	alice := model.Member{ID: "alice@x.com", Email: "alice@x.com", Name: "Alice", MaxPoints: 15}
	tasks := []model.Task{
		{ID: "1", MemberID: "alice@x.com", Weight: 10, WorkWeek: thisWeek},
		{ID: "2", MemberID: "alice@x.com", Weight: 8, WorkWeek: thisWeek},
		{ID: "3", MemberID: "bob@x.com", Weight: 4, WorkWeek: thisWeek},
	}

	load := MemberLoad(tasks, alice.ID)
	assert.Equal(t, 18, load)
	assert.True(t, OverLimit(load, alice.Capacity()))
	assert.Equal(t, StatusOver, StatusOf(load, alice.Capacity()))
	assert.InDelta(t, 120.0, UsageRate(load, alice.Capacity()), 0.001)

	assert.False(t, OverLimit(12, 15))
	assert.Equal(t, StatusWarn, StatusOf(15, 0), "zero capacity means the default")
}

func TestStatusOfBoundaries(t *testing.T) {
	cases := []struct {
		load int
		want CapacityStatus
	}{
		{0, StatusOK},
		{12, StatusOK},
		{13, StatusWarn},
		{15, StatusWarn},
		{16, StatusOver},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, StatusOf(tc.load, 15), "load %d", tc.load)
	}
	assert.False(t, OverLimit(15, 15))
	assert.True(t, OverLimit(16, 15))
}

func TestMemberLoadFollowsAssignee(t *testing.T) {
	tasks := []model.Task{
		{ID: "1", MemberID: "alice@x.com", AssignedTo: "bob@x.com", Weight: 5},
		{ID: "2", MemberID: "bob@x.com", Weight: 2},
	}
	assert.Equal(t, 0, MemberLoad(tasks, "alice@x.com"))
	assert.Equal(t, 7, MemberLoad(tasks, "bob@x.com"))
}

func TestTopCategory(t *testing.T) {
	top, ok := TopCategory([]model.Task{
		{Category: "edit", Weight: 3},
		{Category: "sound", Weight: 5},
		{Category: "edit", Weight: 4},
	})
	assert.True(t, ok)
	assert.Equal(t, "edit", top)

	top, ok = TopCategory([]model.Task{{Category: "a", Weight: 2}, {Category: "b", Weight: 2}})
	assert.True(t, ok)
	assert.Equal(t, "a", top, "ties go to the first seen")

	_, ok = TopCategory(nil)
	assert.False(t, ok)
}

func TestWeeklyTrend(t *testing.T) {
	tasks := []model.Task{
		{WorkWeek: lastWeek, Weight: 3, IsDone: true},
		{WorkWeek: lastWeek, Weight: 2},
		{WorkWeek: thisWeek, Weight: 4},
	}
	got := WeeklyTrend(week.Last(thisWeek, 3), tasks)
	want := []TrendPoint{
		{Week: "2026-10-05", Label: "10/5"},
		{Week: lastWeek, Label: "10/12", Total: 5, Completed: 3},
		{Week: thisWeek, Label: "10/19", Total: 4},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("WeeklyTrend mismatch (-want +got):\n%s", diff)
	}
}

func TestCategoryBreakdown(t *testing.T) {
	categories := []model.Category{{ID: "edit", Name: "Editing"}, {ID: "sound", Name: "Sound"}}
	tasks := []model.Task{
		{Category: "edit", Weight: 1},
		{Category: "sound", Weight: 4},
		{Category: "misc", Weight: 2},
	}
	got := CategoryBreakdown(tasks, categories)
	want := []CategoryStat{
		{CategoryID: "sound", Name: "Sound", Count: 1, Points: 4},
		{CategoryID: "misc", Name: "misc", Count: 1, Points: 2},
		{CategoryID: "edit", Name: "Editing", Count: 1, Points: 1},
	}
	assert.Equal(t, want, got)
}

func TestCapacityForecast(t *testing.T) {
	members := []model.Member{{ID: "alice@x.com", Name: "Alice", MaxPoints: 10}, {ID: "bob@x.com", Name: "Bob"}}
	tasks := []model.Task{
		{MemberID: "alice@x.com", Weight: 9, WorkWeek: thisWeek},
		{MemberID: "alice@x.com", Weight: 3, WorkWeek: nextWeek},
		{MemberID: "bob@x.com", Weight: 16, WorkWeek: thisWeek},
	}
	got := CapacityForecast(members, tasks, thisWeek)
	assert.Equal(t, 9, got[0].CurrentLoad)
	assert.Equal(t, 3, got[0].NextLoad)
	assert.Equal(t, StatusWarn, got[0].Status)
	assert.Equal(t, model.DefaultCapacity, got[1].Capacity)
	assert.True(t, got[1].OverLimit)
}

func TestSummarize(t *testing.T) {
	current := []model.Task{{Weight: 3, IsDone: true}, {Weight: 1}}
	previous := []model.Task{{Weight: 2, IsDone: true}}
	s := Summarize(thisWeek, current, previous)
	assert.Equal(t, 4, s.Total)
	assert.Equal(t, 3, s.Completed)
	assert.Equal(t, 1, s.PendingCount)
	assert.Equal(t, 75, s.CompletionRate)
	assert.Equal(t, 100, s.PrevCompletionRate)
	assert.Equal(t, 2, s.Delta)
	assert.Equal(t, "10/19 - 10/25", s.Label)

	empty := Summarize(thisWeek, nil, nil)
	assert.Zero(t, empty.CompletionRate)
}

func TestMonthly(t *testing.T) {
	oct := time.Date(2026, time.October, 5, 9, 0, 0, 0, time.UTC).UnixMilli()
	sep := time.Date(2026, time.September, 30, 9, 0, 0, 0, time.UTC).UnixMilli()
	members := []model.Member{{ID: "alice@x.com", Name: "Alice"}, {ID: "bob@x.com", Name: "Bob"}}
	categories := []model.Category{{ID: "edit", Name: "Editing"}}
	tasks := []model.Task{
		{MemberID: "alice@x.com", Category: "edit", Weight: 3, IsDone: true, CreatedAt: oct},
		{MemberID: "alice@x.com", Category: "edit", Weight: 9, CreatedAt: oct},
		{MemberID: "bob@x.com", Category: "edit", Weight: 5, IsDone: true, CreatedAt: sep},
	}

	r := Monthly(wednesday, tasks, members, categories)
	assert.Equal(t, "2026-10", r.Month)
	assert.Equal(t, 3, r.TotalPoints)
	assert.Equal(t, 1, r.CompletedCount)
	assert.Equal(t, "Alice", r.Members[0].Name)
	assert.Equal(t, "Editing", r.Members[0].TopCategory)
	assert.Equal(t, "-", r.Members[1].TopCategory)
}

func TestFilterAndGroup(t *testing.T) {
	tasks := []model.Task{
		{ID: "1", MemberID: "a", Category: "edit", IsDone: true},
		{ID: "2", MemberID: "b", Category: "edit"},
		{ID: "3", MemberID: "a", Category: "sound"},
	}
	assert.Len(t, FilterTasks(tasks, "all", StatusAll), 3)
	assert.Len(t, FilterTasks(tasks, "edit", StatusPending), 1)
	assert.Len(t, FilterTasks(tasks, "", StatusDone), 1)

	groups := GroupByMember(tasks)
	assert.Len(t, groups["a"], 2)
	assert.Equal(t, "x", MemberName(nil, "x"))
}
