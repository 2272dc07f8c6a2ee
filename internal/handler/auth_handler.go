package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/academy-gateway/internal/middleware"
	"github.com/noah-isme/academy-gateway/internal/models"
	"github.com/noah-isme/academy-gateway/internal/service"
	appErrors "github.com/noah-isme/academy-gateway/pkg/errors"
	"github.com/noah-isme/academy-gateway/pkg/response"
)

type authService interface {
	Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error)
	Logout(ctx context.Context, claims *models.SessionClaims) error
}

type stateReader interface {
	Snapshot(sessionID string) (service.AppState, error)
}

// meResponse is the restored session: who is signed in and the state slices already loaded.
type meResponse struct {
	User      models.User       `json:"user"`
	Scope     models.TokenScope `json:"scope"`
	ExpiresAt *time.Time        `json:"expiresAt,omitempty"`
	State     service.AppState  `json:"state"`
}

// AuthHandler wires HTTP endpoints to the session service.
type AuthHandler struct {
	service authService
	store   stateReader
}

// NewAuthHandler creates a new handler.
func NewAuthHandler(svc authService, store stateReader) *AuthHandler {
	return &AuthHandler{service: svc, store: store}
}

// Login godoc
// @Summary Sign in
// @Description Authenticate against the Academy backend and open a gateway session
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.LoginRequest true "Login payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid login payload"))
		return
	}

	res, err := h.service.Login(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, res)
}

// Logout godoc
// @Summary Sign out
// @Description Forget the stored upstream token and drop the session state
// @Tags Authentication
// @Produce json
// @Success 204 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.service.Logout(c.Request.Context(), claims); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// Me godoc
// @Summary Restore session
// @Description Returns the signed-in user and the loaded application state
// @Tags Authentication
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	sess, ok := currentSession(c)
	if !ok {
		return
	}

	state, err := h.store.Snapshot(sess.ID)
	if err != nil {
		response.Error(c, err)
		return
	}

	res := meResponse{User: sess.User, Scope: sess.Scope, State: state}
	if !sess.ExpiresAt.IsZero() {
		expires := sess.ExpiresAt.UTC()
		res.ExpiresAt = &expires
	}
	middleware.SetRefreshedAt(c, state.RefreshedAt)
	response.JSON(c, http.StatusOK, res, middleware.ExtractMeta(c))
}
