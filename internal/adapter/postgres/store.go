// Package postgres implements ports.TableStore on PostgreSQL through a pgx
// pool. Cells are stored as text[] so rows keep their width.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"toggl-freee/internal/ports"
	"toggl-freee/internal/table"
)

const schema = `
CREATE TABLE IF NOT EXISTS sheet_tables (
    name TEXT PRIMARY KEY,
    header TEXT[] NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS sheet_rows (
    table_name TEXT NOT NULL REFERENCES sheet_tables(name) ON DELETE CASCADE,
    row_index INTEGER NOT NULL,
    cells TEXT[] NOT NULL,
    PRIMARY KEY (table_name, row_index)
);`

// Store wraps the connection pool.
type Store struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

// Open connects, pings and makes sure the schema exists.
func Open(ctx context.Context, dsn string, log *slog.Logger) (*Store, error) {
	if dsn == "" {
		return nil, errors.New("postgres: DSN is required")
	}
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}
	poolConfig.MaxConns = 5
	poolConfig.MinConns = 1
	poolConfig.MaxConnLifetime = 30 * time.Minute
	poolConfig.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ensure schema: %w", err)
	}
	return &Store{pool: pool, log: log}, nil
}

func (s *Store) ReadTable(ctx context.Context, name string) (table.Table, error) {
	var t table.Table
	err := s.pool.QueryRow(ctx, "SELECT header FROM sheet_tables WHERE name = $1", name).Scan(&t.Header)
	if errors.Is(err, pgx.ErrNoRows) {
		return table.Table{}, fmt.Errorf("%s: %w", name, ports.ErrTableNotFound)
	}
	if err != nil {
		return table.Table{}, err
	}

	rows, err := s.pool.Query(ctx, "SELECT cells FROM sheet_rows WHERE table_name = $1 ORDER BY row_index", name)
	if err != nil {
		return table.Table{}, err
	}
	cells, err := pgx.CollectRows(rows, pgx.RowTo[[]string])
	if err != nil {
		return table.Table{}, err
	}
	if len(cells) > 0 {
		t.Rows = cells
	}
	return t, nil
}

func (s *Store) WriteTable(ctx context.Context, name string, t table.Table) error {
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, "DELETE FROM sheet_tables WHERE name = $1", name); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, "INSERT INTO sheet_tables (name, header) VALUES ($1, $2)", name, nonNil(t.Header)); err != nil {
			return err
		}
		batch := &pgx.Batch{}
		for i, row := range t.Rows {
			batch.Queue("INSERT INTO sheet_rows (table_name, row_index, cells) VALUES ($1, $2, $3)", name, i, nonNil(row))
		}
		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		return err
	}
	s.log.Info("postgres table written", slog.String("table", name), slog.Int("rows", t.Len()))
	return nil
}

func (s *Store) withTx(ctx context.Context, fn func(pgx.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return fmt.Errorf("transaction error: %v, rollback error: %v", err, rbErr)
		}
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Close closes the pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// nonNil keeps NOT NULL text[] columns from receiving SQL NULL.
func nonNil(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}
