package pg

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrInvalidConnectionString indicates the connection string failed
	// to parse.
	ErrInvalidConnectionString = errors.New("pg.invalid_connection_string")

	// ErrNotReady indicates all connection attempts failed.
	ErrNotReady = errors.New("pg.not_ready")

	// ErrHealthcheckFailed indicates a failed ping.
	ErrHealthcheckFailed = errors.New("pg.healthcheck_failed")
)

// Config holds PostgreSQL connection configuration.
type Config struct {
	ConnectionString  string        `env:"PG_CONN_URL,required"`
	MaxOpenConns      int32         `env:"PG_MAX_OPEN_CONNS" envDefault:"10"`
	MaxIdleConns      int32         `env:"PG_MAX_IDLE_CONNS" envDefault:"5"`
	HealthCheckPeriod time.Duration `env:"PG_HEALTHCHECK_PERIOD" envDefault:"1m"`
	MaxConnIdleTime   time.Duration `env:"PG_MAX_CONN_IDLE_TIME" envDefault:"10m"`
	MaxConnLifetime   time.Duration `env:"PG_MAX_CONN_LIFETIME" envDefault:"30m"`
	RetryAttempts     int           `env:"PG_RETRY_ATTEMPTS" envDefault:"3"`
	RetryInterval     time.Duration `env:"PG_RETRY_INTERVAL" envDefault:"5s"`
}

// Connect establishes a pgx connection pool, backing off linearly between
// attempts so simultaneous service restarts don't stampede the database.
func Connect(ctx context.Context, cfg Config) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.ConnectionString)
	if err != nil {
		return nil, errors.Join(ErrInvalidConnectionString, err)
	}
	poolConfig.MaxConns = cfg.MaxOpenConns
	poolConfig.MinConns = cfg.MaxIdleConns
	poolConfig.HealthCheckPeriod = cfg.HealthCheckPeriod
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime

	for i := range max(cfg.RetryAttempts, 1) {
		pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
		if err == nil {
			if err = pool.Ping(ctx); err == nil {
				return pool, nil
			}
			pool.Close()
		}

		select {
		case <-ctx.Done():
			return nil, errors.Join(ErrNotReady, ctx.Err())
		case <-time.After(time.Duration(i+1) * cfg.RetryInterval):
		}
	}

	return nil, ErrNotReady
}

// Healthcheck returns a readiness probe bound to the pool.
func Healthcheck(pool *pgxpool.Pool) func(context.Context) error {
	return func(ctx context.Context) error {
		if err := pool.Ping(ctx); err != nil {
			return errors.Join(ErrHealthcheckFailed, err)
		}
		return nil
	}
}
