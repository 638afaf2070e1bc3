package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"teamload/internal/model"
	"teamload/internal/repository"
)

var errQuota = errors.New("quota exceeded")

// wednesday is inside the week of 2026-10-19.
var wednesday = time.Date(2026, time.October, 21, 10, 30, 0, 0, time.UTC)

func fixedClock(t time.Time) Clock { return func() time.Time { return t } }

func ptr[T any](v T) *T { return &v }

// flakyTable fails writes touching selected rows. Appends are matched on the
// content cell since ids are generated; updates and deletes on the id cell.
type flakyTable struct {
	repository.Table

	mu          sync.Mutex
	failReads   bool
	failContent map[string]bool
	failIDs     map[string]bool
	beforeRows  func()
}

func newFlakyTable(inner repository.Table) *flakyTable {
	return &flakyTable{Table: inner, failContent: map[string]bool{}, failIDs: map[string]bool{}}
}

func (f *flakyTable) failAppendOf(content string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failContent[content] = true
}

func (f *flakyTable) failWritesTo(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failIDs[id] = true
}

func (f *flakyTable) setFailReads(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failReads = v
}

func (f *flakyTable) onRows(hook func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.beforeRows = hook
}

func (f *flakyTable) Rows(ctx context.Context) ([][]string, error) {
	f.mu.Lock()
	fail, hook := f.failReads, f.beforeRows
	f.mu.Unlock()
	if hook != nil {
		hook()
	}
	if fail {
		return nil, errQuota
	}
	return f.Table.Rows(ctx)
}

func (f *flakyTable) Append(ctx context.Context, row []string) error {
	f.mu.Lock()
	fail := len(row) > 2 && f.failContent[row[2]]
	f.mu.Unlock()
	if fail {
		return errQuota
	}
	return f.Table.Append(ctx, row)
}

func (f *flakyTable) UpdateRow(ctx context.Context, index int, row []string) error {
	f.mu.Lock()
	fail := len(row) > 0 && f.failIDs[row[0]]
	f.mu.Unlock()
	if fail {
		return errQuota
	}
	return f.Table.UpdateRow(ctx, index, row)
}

func (f *flakyTable) DeleteRow(ctx context.Context, index int) error {
	rows, err := f.Table.Rows(ctx)
	if err != nil {
		return err
	}
	f.mu.Lock()
	fail := index < len(rows) && len(rows[index]) > 0 && f.failIDs[rows[index][0]]
	f.mu.Unlock()
	if fail {
		return errQuota
	}
	return f.Table.DeleteRow(ctx, index)
}

type fixture struct {
	backend    *repository.MemoryBackend
	tasksTable *flakyTable
	taskRepo   *repository.TaskRepository
	tasks      *TaskService
	members    *MemberService
	categories *CategoryService
}

func newFixture(t *testing.T, now time.Time) *fixture {
	t.Helper()
	ctx := context.Background()
	log := zap.NewNop()
	backend := repository.NewMemoryBackend()
	tasksTable := newFlakyTable(backend.Table(repository.TasksTable))

	taskRepo := repository.NewTaskRepository(tasksTable, log)
	memberRepo := repository.NewMemberRepository(backend.Table(repository.MembersTable), log)
	categoryRepo := repository.NewCategoryRepository(backend.Table(repository.CategoriesTable), log)
	require.NoError(t, taskRepo.Init(ctx))
	require.NoError(t, memberRepo.Init(ctx))
	require.NoError(t, categoryRepo.Init(ctx))

	f := &fixture{
		backend:    backend,
		tasksTable: tasksTable,
		taskRepo:   taskRepo,
		tasks:      NewTaskService(taskRepo, log, fixedClock(now)),
		members:    NewMemberService(memberRepo, log, fixedClock(now)),
		categories: NewCategoryService(categoryRepo, log),
	}
	require.NoError(t, f.categories.Seed(ctx))
	return f
}

func (f *fixture) seed(t *testing.T, tasks ...model.Task) {
	t.Helper()
	for _, task := range tasks {
		require.NoError(t, f.taskRepo.Append(context.Background(), task))
	}
}

func (f *fixture) stored(t *testing.T) []model.Task {
	t.Helper()
	all, err := f.taskRepo.List(context.Background(), repository.TaskFilter{})
	require.NoError(t, err)
	return all
}
