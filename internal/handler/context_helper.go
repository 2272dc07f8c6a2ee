package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/academy-gateway/internal/middleware"
	"github.com/noah-isme/academy-gateway/internal/models"
	"github.com/noah-isme/academy-gateway/internal/service"
	appErrors "github.com/noah-isme/academy-gateway/pkg/errors"
	"github.com/noah-isme/academy-gateway/pkg/response"
)

func claimsFromContext(c *gin.Context) *models.SessionClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.SessionClaims)
	if !ok {
		return nil
	}
	return claims
}

// currentSession returns the session resumed by the JWT middleware, answering 401 when absent.
func currentSession(c *gin.Context) (service.Session, bool) {
	value, exists := c.Get(middleware.ContextSessionKey)
	if exists {
		if sess, ok := value.(service.Session); ok && sess.ID != "" {
			return sess, true
		}
	}
	response.Error(c, appErrors.ErrUnauthorized)
	return service.Session{}, false
}
