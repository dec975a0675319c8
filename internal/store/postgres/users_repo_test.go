package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arbengine/fundarb/internal/profile"
)

func newMockRepo(t *testing.T) (*usersRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	sqlxDB := sqlx.NewDb(db, "postgres")
	return &usersRepo{db: sqlxDB, timeout: 5 * time.Second}, mock
}

func TestUsersRepo_FindByChatID_Found(t *testing.T) {
	repo, mock := newMockRepo(t)

	raw, err := profile.EncodePreferences(profile.DefaultPreferences())
	require.NoError(t, err)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"user_id", "external_chat_id", "tier", "role", "preferences_json", "beta_expires_at", "created_at", "updated_at", "archived"}).
		AddRow("u1", "chat-1", profile.TierFree, profile.RoleUser, raw, int64(0), now, now, false)
	mock.ExpectQuery("SELECT user_id, external_chat_id, tier, role, preferences_json, beta_expires_at, created_at, updated_at, archived").
		WithArgs("chat-1").
		WillReturnRows(rows)

	p, found, err := repo.FindByChatID(context.Background(), "chat-1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "u1", p.UserID)
	assert.Equal(t, profile.CurrentPreferencesSchemaVersion, p.Preferences.SchemaVersion)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUsersRepo_FindByChatID_NotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("SELECT user_id, external_chat_id, tier, role, preferences_json, beta_expires_at, created_at, updated_at, archived").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "external_chat_id", "tier", "role", "preferences_json", "beta_expires_at", "created_at", "updated_at", "archived"}))

	p, found, err := repo.FindByChatID(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, p)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUsersRepo_Insert(t *testing.T) {
	repo, mock := newMockRepo(t)

	now := time.Now()
	p := &profile.UserProfile{
		UserID:         "u1",
		ExternalChatID: "chat-1",
		Tier:           profile.TierFree,
		Role:           profile.RoleUser,
		Preferences:    profile.DefaultPreferences(),
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	mock.ExpectExec("INSERT INTO users").
		WithArgs(p.UserID, p.ExternalChatID, p.Tier, p.Role, sqlmock.AnyArg(), p.BetaExpiresAt, p.CreatedAt, p.UpdatedAt, p.Archived).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.Insert(context.Background(), p)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUsersRepo_Update(t *testing.T) {
	repo, mock := newMockRepo(t)

	now := time.Now()
	p := &profile.UserProfile{
		UserID:      "u1",
		Tier:        profile.TierEnterprise,
		Role:        profile.RoleAdmin,
		Preferences: profile.DefaultPreferences(),
		UpdatedAt:   now,
	}

	mock.ExpectExec("UPDATE users").
		WithArgs(p.UserID, p.Tier, p.Role, sqlmock.AnyArg(), p.BetaExpiresAt, p.UpdatedAt, p.Archived).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Update(context.Background(), p)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUsersRepo_ListActive(t *testing.T) {
	repo, mock := newMockRepo(t)

	raw, err := profile.EncodePreferences(profile.DefaultPreferences())
	require.NoError(t, err)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"user_id", "external_chat_id", "tier", "role", "preferences_json", "beta_expires_at", "created_at", "updated_at", "archived"}).
		AddRow("u1", "chat-1", profile.TierFree, profile.RoleUser, raw, int64(0), now, now, false).
		AddRow("u2", "chat-2", profile.TierEnterprise, profile.RoleAdmin, raw, int64(0), now, now, false)
	mock.ExpectQuery("SELECT user_id, external_chat_id, tier, role, preferences_json, beta_expires_at, created_at, updated_at, archived").
		WillReturnRows(rows)

	profiles, err := repo.ListActive(context.Background())
	require.NoError(t, err)
	require.Len(t, profiles, 2)
	assert.Equal(t, "u1", profiles[0].UserID)
	assert.Equal(t, "u2", profiles[1].UserID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
