package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/academy-gateway/internal/models"
	"github.com/noah-isme/academy-gateway/internal/service"
)

type fakeNotifications struct {
	marked []string
	calls  int
}

func (f *fakeNotifications) List(context.Context, string) (*service.NotificationList, error) {
	return &service.NotificationList{Items: []models.Notification{{ID: "n1", Title: "Novo curso"}}, Unread: 1}, nil
}

func (f *fakeNotifications) MarkRead(_ context.Context, _ string, ids []string) error {
	f.calls++
	f.marked = ids
	return nil
}

func TestNotificationHandlerList(t *testing.T) {
	handler := NewNotificationHandler(&fakeNotifications{})

	c, rec := newTestContext(http.MethodGet, "/notifications")
	handler.List(c)

	require.Equal(t, http.StatusOK, rec.Code)
	var envelope responseEnvelope
	_ = json.Unmarshal(rec.Body.Bytes(), &envelope)
	assert.Equal(t, float64(1), envelope.Data["unread"])
}

func TestNotificationHandlerMarkRead(t *testing.T) {
	svc := &fakeNotifications{}
	handler := NewNotificationHandler(svc)

	c, _ := newTestContext(http.MethodPost, "/notifications/read")
	handler.MarkRead(c)
	assert.Equal(t, http.StatusNoContent, c.Writer.Status())
	assert.Nil(t, svc.marked)

	c, _ = newTestContext(http.MethodPost, "/notifications/read")
	body := `{"ids":["n1","n2"]}`
	c.Request.Body = ioBody(body)
	c.Request.ContentLength = int64(len(body))
	c.Request.Header.Set("Content-Type", "application/json")
	handler.MarkRead(c)

	assert.Equal(t, http.StatusNoContent, c.Writer.Status())
	assert.Equal(t, []string{"n1", "n2"}, svc.marked)
	assert.Equal(t, 2, svc.calls)
}
