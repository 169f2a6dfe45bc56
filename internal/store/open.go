package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Open connects to the database named by driver ("postgres" or "sqlite"),
// applies the schema and returns the repository with a function releasing
// its connections.
func Open(ctx context.Context, driver, dsn string) (Repository, func(), error) {
	switch driver {
	case "postgres":
		config, err := pgxpool.ParseConfig(dsn)
		if err != nil {
			return nil, nil, fmt.Errorf("unable to parse database URL: %w", err)
		}

		// Configure connection pool for high-traffic scenarios
		config.MaxConns = 100
		config.MinConns = 20
		config.MaxConnLifetime = 30 * time.Minute
		config.MaxConnIdleTime = 5 * time.Minute

		// Disable prepared statements to work with PgBouncer transaction pooling
		config.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

		pool, err := pgxpool.NewWithConfig(ctx, config)
		if err != nil {
			return nil, nil, fmt.Errorf("unable to connect to database: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("database ping failed: %w", err)
		}
		if err := EnsurePostgresSchema(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return NewPostgresRepository(pool), pool.Close, nil

	case "sqlite":
		db, err := OpenSQLite(ctx, dsn)
		if err != nil {
			return nil, nil, err
		}
		return NewSQLiteRepository(db), func() { _ = db.Close() }, nil
	}
	return nil, nil, fmt.Errorf("unsupported database driver %q", driver)
}
