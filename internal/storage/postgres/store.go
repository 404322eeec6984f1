// Package postgres implements the persistence surface. The loader is the
// only writer and works through per-document transactions; reads serve
// the query contract consumed by the external read-side API and the
// admin commands.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/ternarybob/arbor"

	"github.com/openkenya/hazina/internal/interfaces"
	"github.com/openkenya/hazina/internal/models"
)

// Store is the pgx-backed implementation of interfaces.Store.
type Store struct {
	db     *PostgresDB
	logger arbor.ILogger
}

var _ interfaces.Store = (*Store)(nil)

// NewStore wraps an initialized database.
func NewStore(db *PostgresDB, logger arbor.ILogger) *Store {
	return &Store{
		db:     db,
		logger: logger,
	}
}

// WithinTx runs fn inside one transaction. The transaction commits when
// fn returns nil and rolls back on error or panic; this is the loader's
// per-document unit of work.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx interfaces.StoreTx) error) error {
	tx, err := s.db.Pool().Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(ctx, &storeTx{tx: tx, logger: s.logger}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (s *Store) Close() {
	s.db.Close()
}

// storeTx is the write surface bound to one open transaction.
type storeTx struct {
	tx     pgx.Tx
	logger arbor.ILogger
}

var _ interfaces.StoreTx = (*storeTx)(nil)

// marshalJSON encodes v for a jsonb column, never failing the caller for
// plain data structs.
func marshalJSON(v interface{}) ([]byte, error) {
	if v == nil {
		return []byte("null"), nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal jsonb value: %w", err)
	}
	return data, nil
}

// unmarshalJSON decodes a jsonb column into out, tolerating NULLs.
func unmarshalJSON(data []byte, out interface{}) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, out)
}

// provenanceJSON encodes a provenance list, substituting a minimal entry
// when a record somehow arrives without one so the non-empty invariant
// holds at the row level.
func provenanceJSON(provenance []models.Provenance, documentID int64) ([]byte, error) {
	if len(provenance) == 0 {
		provenance = []models.Provenance{{SourceDocumentID: documentID}}
	}
	return marshalJSON(provenance)
}
