package repository

import (
	"context"

	"go.uber.org/zap"

	"teamload/internal/model"
)

// TaskFilter narrows List to one owner; the zero value lists every task.
type TaskFilter struct {
	MemberID string
}

// TaskRepository maps tasks onto the Tasks table.
type TaskRepository struct {
	table Table
	log   *zap.Logger
}

func NewTaskRepository(table Table, log *zap.Logger) *TaskRepository {
	return &TaskRepository{table: table, log: log.Named("tasks")}
}

// Init writes the header row of an empty table.
func (r *TaskRepository) Init(ctx context.Context) error {
	return r.table.EnsureHeader(ctx, TaskHeader)
}

func (r *TaskRepository) List(ctx context.Context, filter TaskFilter) ([]model.Task, error) {
	rows, err := r.table.Rows(ctx)
	if err != nil {
		return nil, &StoreReadError{Table: r.table.Name(), Err: err}
	}
	tasks := make([]model.Task, 0, len(rows))
	for _, row := range rows {
		if cell(row, taskColID) == "" {
			continue
		}
		task := DecodeTask(row)
		if filter.MemberID != "" && task.MemberID != filter.MemberID {
			continue
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}

func (r *TaskRepository) Get(ctx context.Context, id string) (model.Task, error) {
	rows, err := r.table.Rows(ctx)
	if err != nil {
		return model.Task{}, &StoreReadError{Table: r.table.Name(), Err: err}
	}
	idx := findRow(rows, id)
	if idx < 0 {
		return model.Task{}, ErrNotFound
	}
	return DecodeTask(rows[idx]), nil
}

func (r *TaskRepository) Append(ctx context.Context, task model.Task) error {
	if err := r.table.Append(ctx, EncodeTask(task)); err != nil {
		return &StoreWriteError{Table: r.table.Name(), Op: "append", Err: err}
	}
	return nil
}

// UpdateFields overlays patch onto the stored task. A missing id is a no-op.
func (r *TaskRepository) UpdateFields(ctx context.Context, id string, patch model.TaskPatch) error {
	found, err := rewriteByID(ctx, r.table, id, func(row []string) []string {
		return EncodeTask(patch.Apply(DecodeTask(row)))
	})
	if err != nil {
		return err
	}
	if !found {
		r.log.Debug("update of unknown task ignored", zap.String("id", id))
	}
	return nil
}

// DeleteByID removes the task. A missing id is a no-op.
func (r *TaskRepository) DeleteByID(ctx context.Context, id string) error {
	found, err := deleteByID(ctx, r.table, id)
	if err != nil {
		return err
	}
	if !found {
		r.log.Debug("delete of unknown task ignored", zap.String("id", id))
	}
	return nil
}
