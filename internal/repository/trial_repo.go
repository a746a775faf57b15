package repository

import (
	"context"
	"errors"
	"fmt"

	"app/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TrialRepository defines methods for accessing a user's one-shot trial
// record. There is no create method here: trial grants happen at signup,
// outside this service. This layer only reads and marks records used.
type TrialRepository interface {
	// GetByUserID returns (nil, nil) when the user has no trial record.
	GetByUserID(ctx context.Context, userID string) (*model.TrialRecord, error)
	// MarkUsed flips trial_used to true. The flag is monotonic; rows where it
	// is already true are left untouched.
	MarkUsed(ctx context.Context, userID string) error
}

type trialRepo struct {
	pool *pgxpool.Pool
}

// NewTrialRepo creates a new TrialRepository.
func NewTrialRepo(pool *pgxpool.Pool) TrialRepository {
	return &trialRepo{pool: pool}
}

func (r *trialRepo) GetByUserID(ctx context.Context, userID string) (*model.TrialRecord, error) {
	const q = `
        SELECT user_id, trial_end_time, trial_used, created_at, updated_at
        FROM user_trials
        WHERE user_id = $1
    `
	var tr model.TrialRecord
	err := r.pool.QueryRow(ctx, q, userID).Scan(
		&tr.UserID,
		&tr.TrialEndTime,
		&tr.TrialUsed,
		&tr.CreatedAt,
		&tr.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch trial record for user %s: %w", userID, err)
	}
	return &tr, nil
}

func (r *trialRepo) MarkUsed(ctx context.Context, userID string) error {
	const q = `
        UPDATE user_trials
        SET trial_used = TRUE, updated_at = NOW()
        WHERE user_id = $1 AND trial_used = FALSE;
    `
	_, err := r.pool.Exec(ctx, q, userID)
	if err != nil {
		return fmt.Errorf("mark trial used for user %s: %w", userID, err)
	}
	return nil
}
