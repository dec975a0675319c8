package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockCredentialsRepo(t *testing.T) (*credentialsRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	sqlxDB := sqlx.NewDb(db, "postgres")
	return &credentialsRepo{db: sqlxDB, timeout: 5 * time.Second}, mock
}

func TestCredentialsRepo_PutUpserts(t *testing.T) {
	repo, mock := newMockCredentialsRepo(t)

	mock.ExpectExec("INSERT INTO user_credentials").
		WithArgs("u1", "binance", []byte("ct")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.Put(context.Background(), "u1", "binance", []byte("ct"))
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCredentialsRepo_GetNotFound(t *testing.T) {
	repo, mock := newMockCredentialsRepo(t)

	mock.ExpectQuery("SELECT ciphertext FROM user_credentials").
		WithArgs("u1", "binance").
		WillReturnRows(sqlmock.NewRows([]string{"ciphertext"}))

	ciphertext, found, err := repo.Get(context.Background(), "u1", "binance")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, ciphertext)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCredentialsRepo_GetFound(t *testing.T) {
	repo, mock := newMockCredentialsRepo(t)

	mock.ExpectQuery("SELECT ciphertext FROM user_credentials").
		WithArgs("u1", "binance").
		WillReturnRows(sqlmock.NewRows([]string{"ciphertext"}).AddRow([]byte("ct")))

	ciphertext, found, err := repo.Get(context.Background(), "u1", "binance")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []byte("ct"), ciphertext)
	assert.NoError(t, mock.ExpectationsWereMet())
}
