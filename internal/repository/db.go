package repository

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// sheetRow stores one row of a named table. Rows keep their insertion order by
// primary key, which is what positional addressing relies on.
type sheetRow struct {
	ID        uint     `gorm:"primaryKey"`
	Tab       string   `gorm:"index:idx_tab_header"`
	Header    bool     `gorm:"index:idx_tab_header;default:false"`
	Cells     []string `gorm:"serializer:json"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (sheetRow) TableName() string { return "sheet_rows" }

// SQLiteBackend keeps the tabular store in a local SQLite file.
type SQLiteBackend struct {
	db *gorm.DB
}

// NewSQLiteBackend opens a SQLite database and runs migrations.
func NewSQLiteBackend(dsn string, log *zap.Logger) (*SQLiteBackend, error) {
	if dsn == "" {
		dsn = "teamload.db"
	}

	if err := ensureDirForSQLite(dsn); err != nil {
		return nil, err
	}

	dbLogger := logger.New(
		zap.NewStdLog(log.Named("gorm")),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: dbLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	if err := db.AutoMigrate(&sheetRow{}); err != nil {
		return nil, fmt.Errorf("migrate db: %w", err)
	}

	return &SQLiteBackend{db: db}, nil
}

func (b *SQLiteBackend) Table(name string) Table {
	return &sqliteTable{db: b.db, name: name}
}

func (b *SQLiteBackend) Close() error {
	sqlDB, err := b.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

type sqliteTable struct {
	db   *gorm.DB
	name string
}

func (t *sqliteTable) Name() string { return t.name }

func (t *sqliteTable) scope(ctx context.Context) *gorm.DB {
	return t.db.WithContext(ctx).Where("tab = ? AND header = ?", t.name, false).Order("id ASC")
}

func (t *sqliteTable) Rows(ctx context.Context) ([][]string, error) {
	var rows []sheetRow
	if err := t.scope(ctx).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([][]string, len(rows))
	for i, row := range rows {
		out[i] = row.Cells
	}
	return out, nil
}

func (t *sqliteTable) Append(ctx context.Context, cells []string) error {
	row := sheetRow{Tab: t.name, Cells: cells}
	if err := t.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("append row: %w", err)
	}
	return nil
}

func (t *sqliteTable) rowAt(ctx context.Context, index int) (*sheetRow, error) {
	if index < 0 {
		return nil, fmt.Errorf("row %d out of range", index)
	}
	var rows []sheetRow
	if err := t.scope(ctx).Offset(index).Limit(1).Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("row %d out of range", index)
	}
	return &rows[0], nil
}

func (t *sqliteTable) UpdateRow(ctx context.Context, index int, cells []string) error {
	row, err := t.rowAt(ctx, index)
	if err != nil {
		return err
	}
	row.Cells = cells
	if err := t.db.WithContext(ctx).Save(row).Error; err != nil {
		return fmt.Errorf("update row: %w", err)
	}
	return nil
}

func (t *sqliteTable) DeleteRow(ctx context.Context, index int) error {
	row, err := t.rowAt(ctx, index)
	if err != nil {
		return err
	}
	if err := t.db.WithContext(ctx).Delete(&sheetRow{}, row.ID).Error; err != nil {
		return fmt.Errorf("delete row: %w", err)
	}
	return nil
}

func (t *sqliteTable) EnsureHeader(ctx context.Context, header []string) error {
	var count int64
	if err := t.db.WithContext(ctx).Model(&sheetRow{}).Where("tab = ?", t.name).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	row := sheetRow{Tab: t.name, Header: true, Cells: header}
	return t.db.WithContext(ctx).Create(&row).Error
}

// ensureDirForSQLite creates parent dir for SQLite file if needed.
func ensureDirForSQLite(dsn string) error {
	// Ignore DSNs with explicit mode=memory or network.
	if strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory") {
		return nil
	}
	// Strip file: prefix if present.
	clean := strings.TrimPrefix(dsn, "file:")
	clean = strings.Split(clean, "?")[0]
	dir := filepath.Dir(clean)
	if dir == "." || dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create db dir %q: %w", dir, err)
	}
	return nil
}
