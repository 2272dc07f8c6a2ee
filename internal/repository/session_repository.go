package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/academy-gateway/internal/models"
	appErrors "github.com/noah-isme/academy-gateway/pkg/errors"
)

// ErrSessionNotFound is returned when a stored session is missing or expired.
var ErrSessionNotFound = appErrors.Clone(appErrors.ErrUnauthorized, "session not found or expired")

// LocalSessionRepository keeps remember-me sessions in Postgres.
type LocalSessionRepository struct {
	db *sqlx.DB
}

// NewLocalSessionRepository creates a Postgres-backed session store.
func NewLocalSessionRepository(db *sqlx.DB) *LocalSessionRepository {
	return &LocalSessionRepository{db: db}
}

// Create persists a session.
func (r *LocalSessionRepository) Create(ctx context.Context, session *models.StoredSession) error {
	const query = `INSERT INTO client_sessions (id, user_email, token_ciphertext, expires_at, created_at) VALUES ($1, $2, $3, $4, $5)`
	if _, err := r.db.ExecContext(ctx, query, session.ID, session.UserEmail, session.Ciphertext, session.ExpiresAt, session.CreatedAt); err != nil {
		return fmt.Errorf("create client session: %w", err)
	}
	return nil
}

// Get returns an unexpired session.
func (r *LocalSessionRepository) Get(ctx context.Context, id string) (*models.StoredSession, error) {
	const query = `SELECT id, user_email, token_ciphertext, expires_at, created_at FROM client_sessions WHERE id = $1 AND expires_at > $2 LIMIT 1`
	var session models.StoredSession
	if err := r.db.GetContext(ctx, &session, query, id, time.Now().UTC()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("get client session: %w", err)
	}
	session.Scope = models.ScopeLocal
	return &session, nil
}

// Delete removes a session.
func (r *LocalSessionRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM client_sessions WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete client session: %w", err)
	}
	return nil
}

// DeleteExpired purges sessions past their expiry and returns how many were removed.
func (r *LocalSessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	const query = `DELETE FROM client_sessions WHERE expires_at <= $1`
	res, err := r.db.ExecContext(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired client sessions: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// Ping checks database connectivity for readiness probes.
func (r *LocalSessionRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// EphemeralSessionRepository keeps session-scope tokens in Redis with a TTL.
type EphemeralSessionRepository struct {
	client *redis.Client
}

// NewEphemeralSessionRepository creates a Redis-backed session store.
func NewEphemeralSessionRepository(client *redis.Client) *EphemeralSessionRepository {
	return &EphemeralSessionRepository{client: client}
}

func sessionKey(id string) string {
	return "session:" + id
}

// Create stores a session until its expiry.
func (r *EphemeralSessionRepository) Create(ctx context.Context, session *models.StoredSession) error {
	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("create session: already expired")
	}
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := r.client.Set(ctx, sessionKey(session.ID), payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis set session: %w", err)
	}
	return nil
}

// Get returns a live session.
func (r *EphemeralSessionRepository) Get(ctx context.Context, id string) (*models.StoredSession, error) {
	raw, err := r.client.Get(ctx, sessionKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("redis get session: %w", err)
	}
	var session models.StoredSession
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	session.Scope = models.ScopeSession
	return &session, nil
}

// Delete removes a session.
func (r *EphemeralSessionRepository) Delete(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, sessionKey(id)).Err(); err != nil {
		return fmt.Errorf("redis delete session: %w", err)
	}
	return nil
}
