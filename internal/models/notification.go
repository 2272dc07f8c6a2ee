package models

import "time"

// Notification is a message shown in the header bell.
type Notification struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
	Read      bool      `json:"read"`
}

// NotificationRead is a locally persisted read marker.
type NotificationRead struct {
	UserEmail      string    `db:"user_email"`
	NotificationID string    `db:"notification_id"`
	ReadAt         time.Time `db:"read_at"`
}
