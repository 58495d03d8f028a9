package mysql

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	driver "github.com/go-sql-driver/mysql"
)

// Open opens a MySQL connection pool using the provided DSN and verifies it.
// Example DSN: user:pass@tcp(host:3306)/dbname
// parseTime and multiStatements are forced on; migrations need the latter.
func Open(ctx context.Context, dsn string, log *slog.Logger) (*sql.DB, error) {
	if dsn == "" {
		return nil, errors.New("mysql: DSN is required")
	}
	cfg, err := driver.ParseDSN(dsn)
	if err != nil {
		return nil, err
	}
	cfg.ParseTime = true
	cfg.MultiStatements = true
	connector, err := driver.NewConnector(cfg)
	if err != nil {
		return nil, err
	}
	db := sql.OpenDB(connector)
	// Conservative pool defaults; runs are sequential.
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	c, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(c); err != nil {
		db.Close()
		return nil, err
	}
	log.Info("mysql connected", slog.String("addr", cfg.Addr), slog.String("db", cfg.DBName))
	return db, nil
}
