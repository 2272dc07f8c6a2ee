package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// NotificationReadRepository persists which notifications a user has read.
type NotificationReadRepository struct {
	db *sqlx.DB
}

// NewNotificationReadRepository creates the repository.
func NewNotificationReadRepository(db *sqlx.DB) *NotificationReadRepository {
	return &NotificationReadRepository{db: db}
}

// ListRead returns the ids the user has marked as read.
func (r *NotificationReadRepository) ListRead(ctx context.Context, email string) ([]string, error) {
	const query = `SELECT notification_id FROM notification_reads WHERE user_email = $1 ORDER BY notification_id`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, email); err != nil {
		return nil, fmt.Errorf("list notification reads: %w", err)
	}
	return ids, nil
}

// MarkRead records ids as read. Already read ids are left untouched.
func (r *NotificationReadRepository) MarkRead(ctx context.Context, email string, ids []string, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	const query = `INSERT INTO notification_reads (user_email, notification_id, read_at)
SELECT $1, unnest($2::text[]), $3
ON CONFLICT (user_email, notification_id) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, query, email, pq.Array(ids), at); err != nil {
		return fmt.Errorf("mark notifications read: %w", err)
	}
	return nil
}
