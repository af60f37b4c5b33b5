package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/jwalitptl/studio-api/internal/model"
	apperrors "github.com/jwalitptl/studio-api/pkg/errors"
)

func (r *destinationRepository) Create(ctx context.Context, destination *model.PushDestination) error {
	query := `
		INSERT INTO push_destinations (
			id, worker_id, endpoint, credential, label, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (worker_id, endpoint) DO UPDATE
		SET credential = EXCLUDED.credential,
			label = EXCLUDED.label,
			updated_at = EXCLUDED.updated_at
	`
	_, err := r.db.ExecContext(ctx, query,
		destination.ID,
		destination.WorkerID,
		destination.Endpoint,
		destination.Credential,
		destination.Label,
		destination.CreatedAt,
		destination.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create push destination: %w", err)
	}
	return nil
}

func (r *destinationRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM push_destinations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete push destination: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperrors.NewNotFound("push destination", nil)
	}
	return nil
}

func (r *destinationRepository) ListForWorker(ctx context.Context, workerID model.WorkerID) ([]*model.PushDestination, error) {
	query := `
		SELECT id, worker_id, endpoint, credential, label, created_at, updated_at
		FROM push_destinations
		WHERE worker_id = $1
		ORDER BY created_at ASC
	`
	var destinations []*model.PushDestination
	if err := r.db.SelectContext(ctx, &destinations, query, workerID); err != nil {
		return nil, fmt.Errorf("failed to list push destinations: %w", err)
	}
	return destinations, nil
}
