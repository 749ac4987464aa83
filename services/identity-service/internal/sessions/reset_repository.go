package sessions

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/toxifacil/toxifacil/libs/db"
)

// ResetRepository stores single-use password-reset tokens (hashed at rest,
// same scheme as refresh tokens).
type ResetRepository struct {
	pool *db.Pool
}

func NewResetRepository(pool *db.Pool) *ResetRepository {
	return &ResetRepository{pool: pool}
}

func (r *ResetRepository) Create(ctx context.Context, userID string, rawToken string, expiresAt time.Time) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO password_reset_tokens (id, user_id, token_hash, expires_at)
		VALUES ($1, $2, $3, $4)
	`, uuid.NewString(), userID, HashToken(rawToken), expiresAt)
	return err
}

// Consume marks the token used and returns its owner. Expired, unknown and
// already-used tokens all report not found.
func (r *ResetRepository) Consume(ctx context.Context, rawToken string) (string, error) {
	var userID string
	err := r.pool.QueryRow(ctx, `
		UPDATE password_reset_tokens
		SET used_at = now()
		WHERE token_hash = $1 AND used_at IS NULL AND expires_at > now()
		RETURNING user_id
	`, HashToken(rawToken)).Scan(&userID)
	if err != nil {
		return "", err
	}
	return userID, nil
}
