package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/academy-gateway/internal/service"
	"github.com/noah-isme/academy-gateway/pkg/response"
)

type viewService interface {
	Render(ctx context.Context, sessionID, tab string, query service.ViewQuery) (*service.View, error)
}

// ViewHandler maps client locations to page payloads.
type ViewHandler struct {
	service viewService
}

// NewViewHandler constructs the handler.
func NewViewHandler(svc viewService) *ViewHandler {
	return &ViewHandler{service: svc}
}

// Render godoc
// @Summary Render view
// @Description Menu, active tab and the state slices the tab shows
// @Tags Views
// @Produce json
// @Param tab path string true "dashboard, courses, my-courses, certificates, settings, instructor, instructor-courses, create-course, affiliates or signature"
// @Param filter query string false "my-courses sub tab"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /views/{tab} [get]
func (h *ViewHandler) Render(c *gin.Context) {
	sess, ok := currentSession(c)
	if !ok {
		return
	}
	view, err := h.service.Render(c.Request.Context(), sess.ID, c.Param("tab"), service.ViewQuery{MyCoursesTab: c.Query("filter")})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, view)
}
