package service

import (
	"context"

	"go.uber.org/zap"

	"teamload/internal/model"
	"teamload/internal/repository"
)

// DefaultCategories seed local stores that have no category sheet.
var DefaultCategories = []model.Category{
	{ID: "dev", Name: "Development", DefaultPoints: 3},
	{ID: "design", Name: "Design", DefaultPoints: 2},
	{ID: "edit", Name: "Editing", DefaultPoints: 2},
	{ID: "meeting", Name: "Meeting", DefaultPoints: 1},
	{ID: "ops", Name: "Operations", DefaultPoints: 1},
	{ID: model.DefaultCategory, Name: "Other", DefaultPoints: 1},
}

type CategoryService struct {
	repo *repository.CategoryRepository
	log  *zap.Logger
}

func NewCategoryService(repo *repository.CategoryRepository, log *zap.Logger) *CategoryService {
	return &CategoryService{repo: repo, log: log.Named("category_service")}
}

// List returns the categories. A failed read yields an empty list.
func (s *CategoryService) List(ctx context.Context) []model.Category {
	categories, err := s.repo.List(ctx)
	if err != nil {
		s.log.Warn("list categories", zap.Error(err))
		return []model.Category{}
	}
	return categories
}

func (s *CategoryService) Seed(ctx context.Context) error {
	return s.repo.Seed(ctx, DefaultCategories)
}
