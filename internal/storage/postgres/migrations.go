package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// migrate runs database migrations
func (p *PostgresDB) migrate(ctx context.Context) error {
	if err := p.createMigrationsTable(ctx); err != nil {
		return err
	}

	migrations := []migration{
		{version: 1, name: "initial_schema", up: migrateV1},
		{version: 2, name: "fact_tables", up: migrateV2},
		{version: 3, name: "debt_tables", up: migrateV3},
		{version: 4, name: "ingestion_jobs", up: migrateV4},
	}

	for _, m := range migrations {
		if err := p.runMigration(ctx, m); err != nil {
			return fmt.Errorf("migration %d (%s) failed: %w", m.version, m.name, err)
		}
	}

	return nil
}

type migration struct {
	version int
	name    string
	up      func(context.Context, pgx.Tx) error
}

func (p *PostgresDB) createMigrationsTable(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`
	_, err := p.pool.Exec(ctx, query)
	return err
}

func (p *PostgresDB) runMigration(ctx context.Context, m migration) error {
	var count int
	err := p.pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM schema_migrations WHERE version = $1", m.version).Scan(&count)
	if err != nil {
		return err
	}

	if count > 0 {
		return nil // Already applied
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := m.up(ctx, tx); err != nil {
		return err
	}

	_, err = tx.Exec(ctx,
		"INSERT INTO schema_migrations (version, name) VALUES ($1, $2)",
		m.version, m.name)
	if err != nil {
		return err
	}

	p.logger.Debug().Int("version", m.version).Str("name", m.name).Msg("Applied migration")
	return tx.Commit(ctx)
}

// migrateV1 creates the reference and provenance tables
func migrateV1(ctx context.Context, tx pgx.Tx) error {
	_, err := tx.Exec(ctx, initialSchemaSQL)
	return err
}

// migrateV2 creates the fact tables
func migrateV2(ctx context.Context, tx pgx.Tx) error {
	_, err := tx.Exec(ctx, factTablesSQL)
	return err
}

// migrateV3 creates the debt register and reference aggregates
func migrateV3(ctx context.Context, tx pgx.Tx) error {
	_, err := tx.Exec(ctx, debtTablesSQL)
	return err
}

// migrateV4 creates the ingestion job log
func migrateV4(ctx context.Context, tx pgx.Tx) error {
	_, err := tx.Exec(ctx, ingestionJobsSQL)
	return err
}
