package postgres

import (
	"context"
	"fmt"

	"github.com/openkenya/hazina/internal/models"
)

// CreateJob inserts the ingestion job row at run start.
func (s *Store) CreateJob(ctx context.Context, job *models.IngestionJob) error {
	errorsJSON, err := marshalJSON(job.Errors)
	if err != nil {
		return err
	}
	if _, err := s.db.Pool().Exec(ctx,
		`INSERT INTO ingestion_jobs
		 (id, domain, status, dry_run, records_processed, records_created, records_updated,
		  errors, started_at, completed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		job.ID, job.Domain, job.Status, job.DryRun, job.RecordsProcessed,
		job.RecordsCreated, job.RecordsUpdated, errorsJSON, job.StartedAt, job.CompletedAt); err != nil {
		return fmt.Errorf("insert ingestion job %s: %w", job.ID, err)
	}
	return nil
}

// UpdateJob writes the job's terminal state and counters.
func (s *Store) UpdateJob(ctx context.Context, job *models.IngestionJob) error {
	errorsJSON, err := marshalJSON(job.Errors)
	if err != nil {
		return err
	}
	tag, err := s.db.Pool().Exec(ctx,
		`UPDATE ingestion_jobs
		 SET status = $2, records_processed = $3, records_created = $4, records_updated = $5,
		     errors = $6, completed_at = $7
		 WHERE id = $1`,
		job.ID, job.Status, job.RecordsProcessed, job.RecordsCreated, job.RecordsUpdated,
		errorsJSON, job.CompletedAt)
	if err != nil {
		return fmt.Errorf("update ingestion job %s: %w", job.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update ingestion job %s: not found", job.ID)
	}
	return nil
}
