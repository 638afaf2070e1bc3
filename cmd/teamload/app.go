package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"teamload/internal/config"
	"teamload/internal/repository"
	"teamload/internal/service"
)

// app wires the store and services shared by every command.
type app struct {
	cfg     config.Config
	log     *zap.Logger
	loc     *time.Location
	backend repository.Backend

	tasks      *service.TaskService
	members    *service.MemberService
	categories *service.CategoryService
	digest     *service.DigestService
}

func openBackend(ctx context.Context, cfg config.Config, log *zap.Logger) (repository.Backend, error) {
	switch cfg.Store.Backend {
	case config.BackendMemory:
		return repository.NewMemoryBackend(), nil
	case config.BackendSQLite:
		return repository.NewSQLiteBackend(cfg.Store.DatabaseURL, log)
	case config.BackendSheets:
		return repository.NewSheetsBackend(ctx, cfg.Sheets.SpreadsheetID, cfg.Sheets.CredentialsFile, log)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

// tableNames maps logical tables to sheet tabs; local backends keep the defaults.
func tableNames(cfg config.Config) (tasks, members, categories string) {
	if cfg.Store.Backend != config.BackendSheets {
		return repository.TasksTable, repository.MembersTable, repository.CategoriesTable
	}
	return cfg.Sheets.TasksTab, cfg.Sheets.MembersTab, cfg.Sheets.CategoriesTab
}

func newApp(ctx context.Context, cfg config.Config, log *zap.Logger) (*app, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	backend, err := openBackend(ctx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	tasksTab, membersTab, categoriesTab := tableNames(cfg)
	taskRepo := repository.NewTaskRepository(backend.Table(tasksTab), log)
	memberRepo := repository.NewMemberRepository(backend.Table(membersTab), log)
	categoryRepo := repository.NewCategoryRepository(backend.Table(categoriesTab), log)
	for _, initTable := range []func(context.Context) error{taskRepo.Init, memberRepo.Init, categoryRepo.Init} {
		if err := initTable(ctx); err != nil {
			_ = backend.Close()
			return nil, fmt.Errorf("init store: %w", err)
		}
	}

	clock := func() time.Time { return time.Now().In(loc) }
	a := &app{
		cfg:        cfg,
		log:        log,
		loc:        loc,
		backend:    backend,
		tasks:      service.NewTaskService(taskRepo, log, clock),
		members:    service.NewMemberService(memberRepo, log, clock),
		categories: service.NewCategoryService(categoryRepo, log),
	}
	a.digest = service.NewDigestService(a.tasks, a.members, a.categories)

	// The spreadsheet's category tab is maintained by hand.
	if cfg.Store.Backend != config.BackendSheets {
		if err := a.categories.Seed(ctx); err != nil {
			log.Warn("seed categories", zap.Error(err))
		}
	}
	return a, nil
}

func (a *app) Close() error {
	return a.backend.Close()
}
