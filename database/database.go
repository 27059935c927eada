package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

const pingTimeout = 5 * time.Second

// Database reads the electricity price catalog. The table is filled by
// a separate collector; this program only ever reads from it.
type Database struct {
	logger *slog.Logger
	db     *sql.DB
}

func New(ctx context.Context, dsn string) (*Database, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("error when opening database: %w", err)
	}

	db.SetMaxOpenConns(2)
	db.SetConnMaxIdleTime(time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("error when connecting to database: %w", err)
	}

	return &Database{
		logger: slog.Default().With(slog.String("module", "database")),
		db:     db,
	}, nil
}

func (d *Database) SetLogger(logger *slog.Logger) {
	d.logger = logger
}

func (d *Database) Close() {
	d.db.Close()
}
