package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/academy-gateway/internal/models"
	appErrors "github.com/noah-isme/academy-gateway/pkg/errors"
)

type notificationAPI interface {
	FetchNotifications(ctx context.Context, token, email string) ([]models.Notification, error)
}

type notificationReadRepository interface {
	ListRead(ctx context.Context, email string) ([]string, error)
	MarkRead(ctx context.Context, email string, ids []string, at time.Time) error
}

// NotificationList is the header bell payload.
type NotificationList struct {
	Items  []models.Notification `json:"items"`
	Unread int                   `json:"unread"`
}

// NotificationService merges backend notifications with the read markers kept by the gateway.
type NotificationService struct {
	api    notificationAPI
	repo   notificationReadRepository
	store  *AppStore
	logger *zap.Logger

	mu   sync.Mutex
	last map[string][]models.Notification
}

// NewNotificationService constructs a notification service.
func NewNotificationService(api notificationAPI, repo notificationReadRepository, store *AppStore, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{api: api, repo: repo, store: store, logger: logger, last: make(map[string][]models.Notification)}
}

// List returns the notifications of the session user, newest first. When the backend is
// unreachable the previously fetched list is returned.
func (s *NotificationService) List(ctx context.Context, sessionID string) (*NotificationList, error) {
	sess, ok := s.store.Session(sessionID)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "session is not active")
	}

	items, err := s.api.FetchNotifications(ctx, sess.Token, sess.User.Email)
	s.mu.Lock()
	if err != nil {
		s.logger.Warn("notifications refresh failed", zap.String("session_id", sessionID), zap.Error(err))
		items = s.last[sess.User.Email]
	} else {
		s.last[sess.User.Email] = items
	}
	s.mu.Unlock()

	read, err := s.repo.ListRead(ctx, sess.User.Email)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load read notifications")
	}
	readSet := make(map[string]struct{}, len(read))
	for _, id := range read {
		readSet[id] = struct{}{}
	}

	out := &NotificationList{Items: make([]models.Notification, 0, len(items))}
	for _, n := range items {
		if _, ok := readSet[n.ID]; ok {
			n.Read = true
		}
		if !n.Read {
			out.Unread++
		}
		out.Items = append(out.Items, n)
	}
	sort.SliceStable(out.Items, func(i, j int) bool {
		return out.Items[i].CreatedAt.After(out.Items[j].CreatedAt)
	})
	return out, nil
}

// MarkRead stores read markers. An empty ids list marks every known notification as read.
func (s *NotificationService) MarkRead(ctx context.Context, sessionID string, ids []string) error {
	sess, ok := s.store.Session(sessionID)
	if !ok {
		return appErrors.Clone(appErrors.ErrUnauthorized, "session is not active")
	}
	if len(ids) == 0 {
		s.mu.Lock()
		for _, n := range s.last[sess.User.Email] {
			ids = append(ids, n.ID)
		}
		s.mu.Unlock()
	}
	if err := s.repo.MarkRead(ctx, sess.User.Email, ids, time.Now().UTC()); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark notifications read")
	}
	return nil
}
