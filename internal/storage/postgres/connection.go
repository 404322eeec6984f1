package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ternarybob/arbor"

	"github.com/openkenya/hazina/internal/common"
)

const (
	maxConns    = 8
	pingTimeout = 5 * time.Second
)

// PostgresDB manages the Postgres connection pool
type PostgresDB struct {
	pool   *pgxpool.Pool
	logger arbor.ILogger
	config *common.DatabaseConfig
}

// NewPostgresDB opens a connection pool, verifies it, and runs migrations
func NewPostgresDB(ctx context.Context, logger arbor.ILogger, config *common.DatabaseConfig) (*PostgresDB, error) {
	poolConfig, err := pgxpool.ParseConfig(config.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}
	poolConfig.MaxConns = maxConns

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	p := &PostgresDB{
		pool:   pool,
		logger: logger,
		config: config,
	}

	if err := p.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to reach database: %w", err)
	}

	if err := p.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	logger.Info().Str("host", config.Host).Str("database", config.Name).Msg("Postgres database initialized")
	return p, nil
}

// Pool returns the underlying connection pool
func (p *PostgresDB) Pool() *pgxpool.Pool {
	return p.pool
}

// Ping verifies the database connection
func (p *PostgresDB) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return p.pool.Ping(ctx)
}

// Close closes the connection pool
func (p *PostgresDB) Close() {
	if p.pool != nil {
		p.pool.Close()
	}
}
