package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/academy-gateway/internal/service"
	appErrors "github.com/noah-isme/academy-gateway/pkg/errors"
	"github.com/noah-isme/academy-gateway/pkg/response"
)

type notificationService interface {
	List(ctx context.Context, sessionID string) (*service.NotificationList, error)
	MarkRead(ctx context.Context, sessionID string, ids []string) error
}

type markReadRequest struct {
	IDs []string `json:"ids"`
}

// NotificationHandler serves the header bell.
type NotificationHandler struct {
	service notificationService
}

// NewNotificationHandler constructs the handler.
func NewNotificationHandler(svc notificationService) *NotificationHandler {
	return &NotificationHandler{service: svc}
}

// List godoc
// @Summary List notifications
// @Tags Notifications
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /notifications [get]
func (h *NotificationHandler) List(c *gin.Context) {
	sess, ok := currentSession(c)
	if !ok {
		return
	}
	list, err := h.service.List(c.Request.Context(), sess.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, list)
}

// MarkRead godoc
// @Summary Mark notifications read
// @Description An empty ids list marks every notification read
// @Tags Notifications
// @Accept json
// @Param payload body markReadRequest false "Notification ids"
// @Success 204 {object} response.Envelope
// @Router /notifications/read [post]
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	sess, ok := currentSession(c)
	if !ok {
		return
	}
	var req markReadRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
			return
		}
	}
	if err := h.service.MarkRead(c.Request.Context(), sess.ID, req.IDs); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
