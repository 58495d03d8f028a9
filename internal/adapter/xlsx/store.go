// Package xlsx stores tables as sheets of one workbook file, the closest
// stand-in for the spreadsheet the pipeline was built around.
package xlsx

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/xuri/excelize/v2"

	"toggl-freee/internal/ports"
	"toggl-freee/internal/table"
)

const scratchSheet = "__scratch__"

// Store implements ports.TableStore on an .xlsx workbook. Each table is a sheet.
type Store struct {
	path string
	log  *slog.Logger
	mu   sync.Mutex
}

func NewStore(path string, log *slog.Logger) *Store {
	return &Store{path: path, log: log}
}

// ReadTable returns the sheet's used range, first row as header.
func (s *Store) ReadTable(_ context.Context, name string) (table.Table, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := excelize.OpenFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return table.Table{}, fmt.Errorf("%s: %w", name, ports.ErrTableNotFound)
		}
		return table.Table{}, fmt.Errorf("open workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	idx, err := f.GetSheetIndex(name)
	if err != nil {
		return table.Table{}, err
	}
	if idx == -1 {
		return table.Table{}, fmt.Errorf("%s: %w", name, ports.ErrTableNotFound)
	}
	rows, err := f.GetRows(name)
	if err != nil {
		return table.Table{}, fmt.Errorf("read sheet %s: %w", name, err)
	}
	return table.FromValues(rows), nil
}

// WriteTable replaces the sheet's content, creating the workbook and the
// sheet when missing.
func (s *Store) WriteTable(_ context.Context, name string, t table.Table) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, created, err := s.open()
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	if err := replaceSheet(f, name); err != nil {
		return err
	}
	if created && name != "Sheet1" {
		if err := f.DeleteSheet("Sheet1"); err != nil {
			return err
		}
	}

	for i, row := range t.Values() {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		values := make([]any, len(row))
		for j, v := range row {
			values[j] = v
		}
		if err := f.SetSheetRow(name, cell, &values); err != nil {
			return fmt.Errorf("write sheet %s row %d: %w", name, i+1, err)
		}
	}

	idx, err := f.GetSheetIndex(name)
	if err != nil {
		return err
	}
	f.SetActiveSheet(idx)
	if err := f.SaveAs(s.path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	s.log.Info("xlsx table written", slog.String("table", name), slog.Int("rows", t.Len()))
	return nil
}

func (s *Store) open() (*excelize.File, bool, error) {
	f, err := excelize.OpenFile(s.path)
	if err == nil {
		return f, false, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, false, fmt.Errorf("open workbook: %w", err)
	}
	return excelize.NewFile(), true, nil
}

// replaceSheet leaves an empty sheet called name. A workbook cannot lose its
// last sheet, so a scratch sheet stands in while the old one is dropped.
func replaceSheet(f *excelize.File, name string) error {
	idx, err := f.GetSheetIndex(name)
	if err != nil {
		return err
	}
	if idx != -1 {
		if _, err := f.NewSheet(scratchSheet); err != nil {
			return err
		}
		if err := f.DeleteSheet(name); err != nil {
			return err
		}
	}
	if _, err := f.NewSheet(name); err != nil {
		return err
	}
	if idx != -1 {
		return f.DeleteSheet(scratchSheet)
	}
	return nil
}
