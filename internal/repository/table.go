package repository

import "context"

// Table is one sheet of the tabular store. Rows are addressed by their
// zero-based position among the data rows; the header row is not counted.
// Cells are strings; a short row reads as empty trailing cells.
type Table interface {
	Name() string
	Rows(ctx context.Context) ([][]string, error)
	Append(ctx context.Context, row []string) error
	UpdateRow(ctx context.Context, index int, row []string) error
	DeleteRow(ctx context.Context, index int) error
	// EnsureHeader writes header when the table has no rows at all.
	EnsureHeader(ctx context.Context, header []string) error
}

// Backend hands out tables by name.
type Backend interface {
	Table(name string) Table
	Close() error
}

// Table names used by the repositories.
const (
	TasksTable      = "Tasks"
	MembersTable    = "Members"
	CategoriesTable = "Categories"
)

// findRow returns the position of the first row whose first cell equals id.
func findRow(rows [][]string, id string) int {
	for i, row := range rows {
		if len(row) > 0 && row[0] == id {
			return i
		}
	}
	return -1
}

// rewriteByID re-reads the table, finds the row with the given id and writes
// back rewrite(row). A missing id is a no-op. The read and the write are not
// atomic: a concurrent writer of the same row between them is overwritten.
func rewriteByID(ctx context.Context, t Table, id string, rewrite func(row []string) []string) (bool, error) {
	rows, err := t.Rows(ctx)
	if err != nil {
		return false, &StoreWriteError{Table: t.Name(), Op: "update", Err: err}
	}
	idx := findRow(rows, id)
	if idx < 0 {
		return false, nil
	}
	if err := t.UpdateRow(ctx, idx, rewrite(rows[idx])); err != nil {
		return false, &StoreWriteError{Table: t.Name(), Op: "update", Err: err}
	}
	return true, nil
}

// deleteByID removes the row with the given id; a missing id is a no-op.
func deleteByID(ctx context.Context, t Table, id string) (bool, error) {
	rows, err := t.Rows(ctx)
	if err != nil {
		return false, &StoreWriteError{Table: t.Name(), Op: "delete", Err: err}
	}
	idx := findRow(rows, id)
	if idx < 0 {
		return false, nil
	}
	if err := t.DeleteRow(ctx, idx); err != nil {
		return false, &StoreWriteError{Table: t.Name(), Op: "delete", Err: err}
	}
	return true, nil
}
