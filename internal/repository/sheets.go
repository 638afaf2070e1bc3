package repository

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// SheetsBackend stores tables as tabs of one Google spreadsheet. The first row
// of every tab is the header.
type SheetsBackend struct {
	svc           *sheets.Service
	spreadsheetID string
	log           *zap.Logger

	mu       sync.Mutex
	sheetIDs map[string]int64
}

// NewSheetsBackend authenticates with a service account key file, or with
// application default credentials when the file is empty.
func NewSheetsBackend(ctx context.Context, spreadsheetID, credentialsFile string, log *zap.Logger, extra ...option.ClientOption) (*SheetsBackend, error) {
	if spreadsheetID == "" {
		return nil, fmt.Errorf("spreadsheet id is required")
	}
	opts := []option.ClientOption{option.WithScopes(sheets.SpreadsheetsScope)}
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	opts = append(opts, extra...)
	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets client: %w", err)
	}
	return &SheetsBackend{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		log:           log.Named("sheets"),
		sheetIDs:      make(map[string]int64),
	}, nil
}

func (b *SheetsBackend) Table(name string) Table {
	return &sheetsTable{backend: b, name: name}
}

func (b *SheetsBackend) Close() error { return nil }

// sheetID resolves the numeric id of a tab, needed for row deletion.
func (b *SheetsBackend) sheetID(ctx context.Context, title string) (int64, error) {
	b.mu.Lock()
	id, ok := b.sheetIDs[title]
	b.mu.Unlock()
	if ok {
		return id, nil
	}

	meta, err := b.svc.Spreadsheets.Get(b.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("get spreadsheet: %w", err)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, s := range meta.Sheets {
		if s.Properties != nil {
			b.sheetIDs[s.Properties.Title] = s.Properties.SheetId
		}
	}
	id, ok = b.sheetIDs[title]
	if !ok {
		return 0, fmt.Errorf("tab %q not found", title)
	}
	return id, nil
}

type sheetsTable struct {
	backend *SheetsBackend
	name    string
}

func (t *sheetsTable) Name() string { return t.name }

func (t *sheetsTable) values(ctx context.Context) ([][]string, error) {
	resp, err := t.backend.svc.Spreadsheets.Values.Get(t.backend.spreadsheetID, t.name).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	out := make([][]string, len(resp.Values))
	for i, row := range resp.Values {
		cells := make([]string, len(row))
		for j, v := range row {
			cells[j] = fmt.Sprint(v)
		}
		out[i] = cells
	}
	return out, nil
}

func (t *sheetsTable) Rows(ctx context.Context) ([][]string, error) {
	all, err := t.values(ctx)
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, nil
	}
	return all[1:], nil
}

func toValues(row []string) [][]interface{} {
	cells := make([]interface{}, len(row))
	for i, c := range row {
		cells[i] = c
	}
	return [][]interface{}{cells}
}

func (t *sheetsTable) Append(ctx context.Context, row []string) error {
	_, err := t.backend.svc.Spreadsheets.Values.Append(t.backend.spreadsheetID, t.name, &sheets.ValueRange{
		Values: toValues(row),
	}).ValueInputOption("RAW").Context(ctx).Do()
	return err
}

// UpdateRow rewrites the row in place. Data row i lives on sheet row i+2.
func (t *sheetsTable) UpdateRow(ctx context.Context, index int, row []string) error {
	rng := fmt.Sprintf("%s!A%d", t.name, index+2)
	_, err := t.backend.svc.Spreadsheets.Values.Update(t.backend.spreadsheetID, rng, &sheets.ValueRange{
		Values: toValues(row),
	}).ValueInputOption("RAW").Context(ctx).Do()
	return err
}

func (t *sheetsTable) DeleteRow(ctx context.Context, index int) error {
	sheetID, err := t.backend.sheetID(ctx, t.name)
	if err != nil {
		return err
	}
	// Dimension ranges are zero-based and include the header row.
	start := int64(index + 1)
	_, err = t.backend.svc.Spreadsheets.BatchUpdate(t.backend.spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			DeleteDimension: &sheets.DeleteDimensionRequest{
				Range: &sheets.DimensionRange{
					SheetId:    sheetID,
					Dimension:  "ROWS",
					StartIndex: start,
					EndIndex:   start + 1,
				},
			},
		}},
	}).Context(ctx).Do()
	return err
}

func (t *sheetsTable) EnsureHeader(ctx context.Context, header []string) error {
	all, err := t.values(ctx)
	if err != nil {
		return err
	}
	if len(all) > 0 {
		return nil
	}
	t.backend.log.Info("initialising header", zap.String("tab", t.name))
	return t.Append(ctx, header)
}
