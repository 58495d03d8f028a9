// Package sqltable implements ports.TableStore on any database/sql driver
// whose placeholder is "?" (MySQL, SQLite). The schema comes from
// internal/migrate.
package sqltable

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"toggl-freee/internal/ports"
	"toggl-freee/internal/table"
)

// Store keeps each table as a header row in sheet_tables and its data rows in
// sheet_rows, cells encoded as a JSON array.
type Store struct {
	db  *sql.DB
	log *slog.Logger
}

func New(db *sql.DB, log *slog.Logger) *Store {
	return &Store{db: db, log: log}
}

func (s *Store) ReadTable(ctx context.Context, name string) (table.Table, error) {
	var headerJSON string
	err := s.db.QueryRowContext(ctx, "SELECT header FROM sheet_tables WHERE name = ?", name).Scan(&headerJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return table.Table{}, fmt.Errorf("%s: %w", name, ports.ErrTableNotFound)
	}
	if err != nil {
		return table.Table{}, err
	}
	var t table.Table
	if err := json.Unmarshal([]byte(headerJSON), &t.Header); err != nil {
		return table.Table{}, fmt.Errorf("decode header of %s: %w", name, err)
	}

	rows, err := s.db.QueryContext(ctx, "SELECT cells FROM sheet_rows WHERE table_name = ? ORDER BY row_index", name)
	if err != nil {
		return table.Table{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var cellsJSON string
		if err := rows.Scan(&cellsJSON); err != nil {
			return table.Table{}, err
		}
		var cells []string
		if err := json.Unmarshal([]byte(cellsJSON), &cells); err != nil {
			return table.Table{}, fmt.Errorf("decode row of %s: %w", name, err)
		}
		t.Rows = append(t.Rows, cells)
	}
	return t, rows.Err()
}

// WriteTable replaces the table in one transaction.
func (s *Store) WriteTable(ctx context.Context, name string, t table.Table) error {
	headerJSON, err := json.Marshal(t.Header)
	if err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM sheet_rows WHERE table_name = ?", name); err != nil {
		tx.Rollback()
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM sheet_tables WHERE name = ?", name); err != nil {
		tx.Rollback()
		return err
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO sheet_tables (name, header, updated_at) VALUES (?, ?, ?)",
		name, string(headerJSON), time.Now().UTC(),
	); err != nil {
		tx.Rollback()
		return err
	}

	stmt, err := tx.PrepareContext(ctx, "INSERT INTO sheet_rows (table_name, row_index, cells) VALUES (?, ?, ?)")
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for i, row := range t.Rows {
		if row == nil {
			row = []string{}
		}
		cellsJSON, _ := json.Marshal(row)
		if _, err := stmt.ExecContext(ctx, name, i, string(cellsJSON)); err != nil {
			tx.Rollback()
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	s.log.Info("sql table written", slog.String("table", name), slog.Int("rows", t.Len()))
	return nil
}

// Close closes the underlying DB.
func (s *Store) Close() error { return s.db.Close() }
