package pg

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// ErrMigrationsFailed indicates schema migrations could not be applied.
var ErrMigrationsFailed = errors.New("pg.migrations_failed")

// Migrate applies embedded goose migrations against the pool. Goose needs a
// database/sql handle, so the pool is bridged through pgx stdlib; the bridge
// shares the pool's connections and is closed when migrations finish.
func Migrate(ctx context.Context, pool *pgxpool.Pool, migrations fs.FS, log *slog.Logger) error {
	db := stdlib.OpenDBFromPool(pool)
	defer func() {
		if err := db.Close(); err != nil && log != nil {
			log.ErrorContext(ctx, "failed to close migration db handle", slog.String("error", err.Error()))
		}
	}()

	provider, err := goose.NewProvider(goose.DialectPostgres, db, migrations)
	if err != nil {
		return errors.Join(ErrMigrationsFailed, err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return errors.Join(ErrMigrationsFailed, err)
	}

	if log != nil {
		for _, r := range results {
			log.InfoContext(ctx, "applied migration", slog.String("source", r.Source.Path))
		}
	}

	return nil
}
