package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// Config holds MongoDB connection configuration.
type Config struct {
	ConnectionURL   string        `env:"MONGODB_URL,required"`
	ConnectTimeout  time.Duration `env:"MONGODB_CONNECT_TIMEOUT" envDefault:"10s"`
	MaxPoolSize     uint64        `env:"MONGODB_MAX_POOL_SIZE" envDefault:"100"`
	MinPoolSize     uint64        `env:"MONGODB_MIN_POOL_SIZE" envDefault:"1"`
	MaxConnIdleTime time.Duration `env:"MONGODB_MAX_CONN_IDLE_TIME" envDefault:"300s"`
	RetryWrites     bool          `env:"MONGODB_RETRY_WRITES" envDefault:"true"`
	RetryReads      bool          `env:"MONGODB_RETRY_READS" envDefault:"true"`
	RetryAttempts   int           `env:"MONGODB_RETRY_ATTEMPTS" envDefault:"3"`
	RetryInterval   time.Duration `env:"MONGODB_RETRY_INTERVAL" envDefault:"5s"`
}

// Connect establishes a MongoDB client, retrying up to RetryAttempts
// times with RetryInterval between attempts.
func Connect(ctx context.Context, cfg Config) (*mongo.Client, error) {
	opts := options.Client().
		ApplyURI(cfg.ConnectionURL).
		SetConnectTimeout(cfg.ConnectTimeout).
		SetMaxPoolSize(cfg.MaxPoolSize).
		SetMinPoolSize(cfg.MinPoolSize).
		SetMaxConnIdleTime(cfg.MaxConnIdleTime).
		SetRetryWrites(cfg.RetryWrites).
		SetRetryReads(cfg.RetryReads)

	var lastErr error
	for range max(cfg.RetryAttempts, 1) {
		client, err := mongo.Connect(opts)
		if err == nil {
			if err = client.Ping(ctx, nil); err == nil {
				return client, nil
			}
			_ = client.Disconnect(ctx)
		}
		lastErr = err

		select {
		case <-ctx.Done():
			return nil, errors.Join(ErrNotReady, ctx.Err())
		case <-time.After(cfg.RetryInterval):
		}
	}

	return nil, errors.Join(ErrNotReady, lastErr)
}

// ConnectDatabase connects and returns a handle on the named database.
func ConnectDatabase(ctx context.Context, cfg Config, database string) (*mongo.Database, error) {
	client, err := Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return client.Database(database), nil
}

// Healthcheck returns a readiness probe bound to the client.
func Healthcheck(client *mongo.Client) func(context.Context) error {
	return func(ctx context.Context) error {
		if err := client.Ping(ctx, nil); err != nil {
			return errors.Join(ErrHealthcheckFailed, err)
		}
		return nil
	}
}
