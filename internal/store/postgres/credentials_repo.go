package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/arbengine/fundarb/internal/profile"
)

// credentialsRepo implements profile.CredentialRepo against the
// user_credentials table; ciphertext is opaque to this layer.
type credentialsRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewCredentialsRepo constructs the Postgres-backed profile.CredentialRepo.
func NewCredentialsRepo(db *sqlx.DB, timeout time.Duration) profile.CredentialRepo {
	return &credentialsRepo{db: db, timeout: timeout}
}

func (r *credentialsRepo) Put(ctx context.Context, userID, venueID string, ciphertext []byte) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO user_credentials (user_id, venue_id, ciphertext, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (user_id, venue_id) DO UPDATE SET ciphertext = EXCLUDED.ciphertext, updated_at = now()`,
		userID, venueID, ciphertext)
	if err != nil {
		return fmt.Errorf("put credential: %w", err)
	}
	return nil
}

func (r *credentialsRepo) Get(ctx context.Context, userID, venueID string) ([]byte, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var ciphertext []byte
	err := r.db.QueryRowxContext(ctx, `
		SELECT ciphertext FROM user_credentials WHERE user_id = $1 AND venue_id = $2`,
		userID, venueID).Scan(&ciphertext)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get credential: %w", err)
	}
	return ciphertext, true, nil
}
