package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/arbengine/fundarb/internal/profile"
)

// usersRepo implements profile.Repo against the users table.
type usersRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewUsersRepo constructs the Postgres-backed profile.Repo.
func NewUsersRepo(db *sqlx.DB, timeout time.Duration) profile.Repo {
	return &usersRepo{db: db, timeout: timeout}
}

func (r *usersRepo) FindByChatID(ctx context.Context, externalChatID string) (*profile.UserProfile, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var p profile.UserProfile
	var preferencesRaw []byte
	err := r.db.QueryRowxContext(ctx, `
		SELECT user_id, external_chat_id, tier, role, preferences_json, beta_expires_at, created_at, updated_at, archived
		FROM users WHERE external_chat_id = $1`, externalChatID).
		Scan(&p.UserID, &p.ExternalChatID, &p.Tier, &p.Role, &preferencesRaw, &p.BetaExpiresAt, &p.CreatedAt, &p.UpdatedAt, &p.Archived)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("find user by chat id: %w", err)
	}

	prefs, err := profile.DecodePreferences(preferencesRaw)
	if err != nil {
		return nil, false, fmt.Errorf("decode preferences: %w", err)
	}
	p.Preferences = prefs
	return &p, true, nil
}

func (r *usersRepo) FindByID(ctx context.Context, userID string) (*profile.UserProfile, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var p profile.UserProfile
	var preferencesRaw []byte
	err := r.db.QueryRowxContext(ctx, `
		SELECT user_id, external_chat_id, tier, role, preferences_json, beta_expires_at, created_at, updated_at, archived
		FROM users WHERE user_id = $1`, userID).
		Scan(&p.UserID, &p.ExternalChatID, &p.Tier, &p.Role, &preferencesRaw, &p.BetaExpiresAt, &p.CreatedAt, &p.UpdatedAt, &p.Archived)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("find user by id: %w", err)
	}

	prefs, err := profile.DecodePreferences(preferencesRaw)
	if err != nil {
		return nil, false, fmt.Errorf("decode preferences: %w", err)
	}
	p.Preferences = prefs
	return &p, true, nil
}

func (r *usersRepo) ListActive(ctx context.Context) ([]*profile.UserProfile, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	rows, err := r.db.QueryxContext(ctx, `
		SELECT user_id, external_chat_id, tier, role, preferences_json, beta_expires_at, created_at, updated_at, archived
		FROM users WHERE archived = false`)
	if err != nil {
		return nil, fmt.Errorf("list active users: %w", err)
	}
	defer rows.Close()

	var out []*profile.UserProfile
	for rows.Next() {
		var p profile.UserProfile
		var preferencesRaw []byte
		if err := rows.Scan(&p.UserID, &p.ExternalChatID, &p.Tier, &p.Role, &preferencesRaw, &p.BetaExpiresAt, &p.CreatedAt, &p.UpdatedAt, &p.Archived); err != nil {
			return nil, fmt.Errorf("scan active user: %w", err)
		}
		prefs, err := profile.DecodePreferences(preferencesRaw)
		if err != nil {
			return nil, fmt.Errorf("decode preferences: %w", err)
		}
		p.Preferences = prefs
		out = append(out, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list active users: %w", err)
	}
	return out, nil
}

func (r *usersRepo) Insert(ctx context.Context, p *profile.UserProfile) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	raw, err := profile.EncodePreferences(p.Preferences)
	if err != nil {
		return fmt.Errorf("encode preferences: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO users (user_id, external_chat_id, tier, role, preferences_json, beta_expires_at, created_at, updated_at, archived)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		p.UserID, p.ExternalChatID, p.Tier, p.Role, raw, p.BetaExpiresAt, p.CreatedAt, p.UpdatedAt, p.Archived)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return fmt.Errorf("duplicate user: %w", err)
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *usersRepo) Update(ctx context.Context, p *profile.UserProfile) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	raw, err := profile.EncodePreferences(p.Preferences)
	if err != nil {
		return fmt.Errorf("encode preferences: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		UPDATE users
		SET tier = $2, role = $3, preferences_json = $4, beta_expires_at = $5, updated_at = $6, archived = $7
		WHERE user_id = $1`,
		p.UserID, p.Tier, p.Role, raw, p.BetaExpiresAt, p.UpdatedAt, p.Archived)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	return nil
}
