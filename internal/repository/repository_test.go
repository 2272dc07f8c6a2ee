package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/academy-gateway/internal/models"
	appErrors "github.com/noah-isme/academy-gateway/pkg/errors"
)

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	return sqlxdb, mock, func() {
		db.Close()
	}
}

func TestLocalSessionCreate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewLocalSessionRepository(db)

	now := time.Now().UTC()
	mock.ExpectExec("INSERT INTO client_sessions").
		WithArgs("s1", "ana@x.com", "sealed", now.Add(time.Hour), now).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.Create(context.Background(), &models.StoredSession{
		ID: "s1", UserEmail: "ana@x.com", Ciphertext: "sealed", ExpiresAt: now.Add(time.Hour), CreatedAt: now,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLocalSessionGet(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewLocalSessionRepository(db)

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{"id", "user_email", "token_ciphertext", "expires_at", "created_at"}).
		AddRow("s1", "ana@x.com", "sealed", now.Add(time.Hour), now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, user_email, token_ciphertext, expires_at, created_at FROM client_sessions WHERE id = $1 AND expires_at > $2 LIMIT 1")).
		WithArgs("s1", sqlmock.AnyArg()).
		WillReturnRows(rows)

	session, err := repo.Get(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, "sealed", session.Ciphertext)
	assert.Equal(t, models.ScopeLocal, session.Scope)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLocalSessionGetMissing(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewLocalSessionRepository(db)

	mock.ExpectQuery("FROM client_sessions").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_email", "token_ciphertext", "expires_at", "created_at"}))

	_, err := repo.Get(context.Background(), "gone")
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLocalSessionDeleteExpired(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewLocalSessionRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM client_sessions WHERE expires_at <= $1")).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := repo.DeleteExpired(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNotificationReads(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewNotificationReadRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT notification_id FROM notification_reads WHERE user_email = $1")).
		WithArgs("ana@x.com").
		WillReturnRows(sqlmock.NewRows([]string{"notification_id"}).AddRow("n1").AddRow("n2"))

	ids, err := repo.ListRead(context.Background(), "ana@x.com")
	require.NoError(t, err)
	assert.Equal(t, []string{"n1", "n2"}, ids)

	now := time.Now()
	mock.ExpectExec("INSERT INTO notification_reads").
		WithArgs("ana@x.com", pq.Array([]string{"n3"}), now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.MarkRead(context.Background(), "ana@x.com", []string{"n3"}, now))
	require.NoError(t, repo.MarkRead(context.Background(), "ana@x.com", nil, now))
	assert.NoError(t, mock.ExpectationsWereMet())
}
