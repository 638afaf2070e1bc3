package repository

import (
	"context"
	"fmt"
	"slices"
	"sync"
)

// MemoryBackend keeps tables in process memory. It backs tests and local runs
// without a database.
type MemoryBackend struct {
	mu     sync.Mutex
	tables map[string]*memoryTable
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{tables: make(map[string]*memoryTable)}
}

func (b *MemoryBackend) Table(name string) Table {
	b.mu.Lock()
	defer b.mu.Unlock()
	t, ok := b.tables[name]
	if !ok {
		t = &memoryTable{name: name}
		b.tables[name] = t
	}
	return t
}

func (b *MemoryBackend) Close() error { return nil }

type memoryTable struct {
	name   string
	mu     sync.Mutex
	header []string
	rows   [][]string
}

func (t *memoryTable) Name() string { return t.name }

func (t *memoryTable) Rows(ctx context.Context) ([][]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([][]string, len(t.rows))
	for i, row := range t.rows {
		out[i] = slices.Clone(row)
	}
	return out, nil
}

func (t *memoryTable) Append(ctx context.Context, row []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rows = append(t.rows, slices.Clone(row))
	return nil
}

func (t *memoryTable) UpdateRow(ctx context.Context, index int, row []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if index < 0 || index >= len(t.rows) {
		return fmt.Errorf("row %d out of range", index)
	}
	t.rows[index] = slices.Clone(row)
	return nil
}

func (t *memoryTable) DeleteRow(ctx context.Context, index int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if index < 0 || index >= len(t.rows) {
		return fmt.Errorf("row %d out of range", index)
	}
	t.rows = slices.Delete(t.rows, index, index+1)
	return nil
}

func (t *memoryTable) EnsureHeader(ctx context.Context, header []string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.header == nil {
		t.header = slices.Clone(header)
	}
	return nil
}
