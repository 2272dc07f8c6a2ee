package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/academy-gateway/internal/models"
)

type memoryReadRepo struct {
	mu   sync.Mutex
	read map[string][]string
}

func (m *memoryReadRepo) ListRead(ctx context.Context, email string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.read[email]...), nil
}

func (m *memoryReadRepo) MarkRead(ctx context.Context, email string, ids []string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.read[email] = append(m.read[email], ids...)
	return nil
}

func newNotificationFixture(t *testing.T) (*fakeAcademy, *NotificationService) {
	t.Helper()
	api := newFakeAcademy()
	now := time.Now().UTC()
	api.notifications = []models.Notification{
		{ID: "n1", Title: "Antiga", CreatedAt: now.Add(-time.Hour)},
		{ID: "n2", Title: "Nova", CreatedAt: now},
	}
	store := newTestStore(api)
	attachSession(t, store, "s1", student)
	return api, NewNotificationService(api, &memoryReadRepo{read: map[string][]string{}}, store, nil)
}

func TestNotificationsNewestFirstWithUnreadCount(t *testing.T) {
	_, svc := newNotificationFixture(t)
	ctx := context.Background()

	list, err := svc.List(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, list.Items, 2)
	assert.Equal(t, "n2", list.Items[0].ID)
	assert.Equal(t, 2, list.Unread)

	require.NoError(t, svc.MarkRead(ctx, "s1", []string{"n1"}))
	list, err = svc.List(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 1, list.Unread)
	assert.True(t, list.Items[1].Read)
}

func TestMarkAllRead(t *testing.T) {
	_, svc := newNotificationFixture(t)
	ctx := context.Background()

	_, err := svc.List(ctx, "s1")
	require.NoError(t, err)
	require.NoError(t, svc.MarkRead(ctx, "s1", nil))

	list, err := svc.List(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 0, list.Unread)
}

func TestNotificationsServeLastListWhenBackendFails(t *testing.T) {
	api, svc := newNotificationFixture(t)
	ctx := context.Background()

	_, err := svc.List(ctx, "s1")
	require.NoError(t, err)

	api.mu.Lock()
	api.notificationsErr = errors.New("timeout")
	api.mu.Unlock()

	list, err := svc.List(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, list.Items, 2)
}
