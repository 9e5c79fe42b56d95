package pgrepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
)

const (
	connectAttempts = 30
	connectRetry    = 3 * time.Second

	poolMaxConns        = 10
	poolMaxConnLifetime = 30 * time.Minute
)

// Connect поднимает пул соединений с ретраями и прогоняет миграции.
// База может стартовать позже приложения, поэтому ждем ее до connectAttempts попыток.
func Connect(ctx context.Context, migrationsDir, dsn string, l *logrus.Logger) (*pgxpool.Pool, error) {
	var pool *pgxpool.Pool
	var lastErr error

	for attempt := 1; attempt <= connectAttempts; attempt++ {
		pool, lastErr = newPool(ctx, dsn)
		if lastErr == nil {
			break
		}
		l.WithError(lastErr).
			WithField("attempt", fmt.Sprintf("%d/%d", attempt, connectAttempts)).
			Warnf("postgres is not ready, retrying in %.f seconds", connectRetry.Seconds())

		select {
		case <-ctx.Done():
			return nil, ctx.Err() //nolint:wrapcheck
		case <-time.After(connectRetry):
		}
	}
	if lastErr != nil {
		return nil, fmt.Errorf("connecting to postgres after %d attempts: %w", connectAttempts, lastErr)
	}

	if err := runMigrations(migrationsDir, dsn); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

func newPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	poolConfig, confErr := pgxpool.ParseConfig(dsn)
	if confErr != nil {
		return nil, fmt.Errorf("parsing postgres dsn: %w", confErr)
	}
	poolConfig.MaxConns = poolMaxConns
	poolConfig.MaxConnLifetime = poolMaxConnLifetime

	pool, poolErr := pgxpool.NewWithConfig(ctx, poolConfig)
	if poolErr != nil {
		return nil, fmt.Errorf("creating pool: %w", poolErr)
	}
	if pingErr := pool.Ping(ctx); pingErr != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging postgres: %w", pingErr)
	}
	return pool, nil
}

func runMigrations(dir string, dsn string) error {
	m, mErr := migrate.New("file://"+dir, dsn)
	if mErr != nil {
		return fmt.Errorf("creating migrate instance: %w", mErr)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrating schema: %w", err)
	}
	return nil
}
