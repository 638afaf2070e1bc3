package repository

import (
	"context"

	"go.uber.org/zap"

	"teamload/internal/model"
)

// CategoryRepository reads the externally seeded Categories table.
type CategoryRepository struct {
	table Table
	log   *zap.Logger
}

func NewCategoryRepository(table Table, log *zap.Logger) *CategoryRepository {
	return &CategoryRepository{table: table, log: log.Named("categories")}
}

func (r *CategoryRepository) Init(ctx context.Context) error {
	return r.table.EnsureHeader(ctx, CategoryHeader)
}

func (r *CategoryRepository) List(ctx context.Context) ([]model.Category, error) {
	rows, err := r.table.Rows(ctx)
	if err != nil {
		return nil, &StoreReadError{Table: r.table.Name(), Err: err}
	}
	categories := make([]model.Category, 0, len(rows))
	for _, row := range rows {
		if cell(row, categoryColID) == "" {
			continue
		}
		categories = append(categories, DecodeCategory(row))
	}
	return categories, nil
}

// Seed appends categories whose id is not present yet. Used by local setups;
// production categories are maintained in the sheet directly.
func (r *CategoryRepository) Seed(ctx context.Context, categories []model.Category) error {
	rows, err := r.table.Rows(ctx)
	if err != nil {
		return &StoreReadError{Table: r.table.Name(), Err: err}
	}
	for _, c := range categories {
		if findRow(rows, c.ID) >= 0 {
			continue
		}
		if err := r.table.Append(ctx, EncodeCategory(c)); err != nil {
			return &StoreWriteError{Table: r.table.Name(), Op: "append", Err: err}
		}
		r.log.Info("seeded category", zap.String("id", c.ID))
	}
	return nil
}
