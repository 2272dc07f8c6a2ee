package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/academy-gateway/internal/middleware"
	"github.com/noah-isme/academy-gateway/internal/models"
	"github.com/noah-isme/academy-gateway/internal/service"
	appErrors "github.com/noah-isme/academy-gateway/pkg/errors"
	"github.com/noah-isme/academy-gateway/pkg/response"
)

type courseStore interface {
	Snapshot(sessionID string) (service.AppState, error)
	Courses(sessionID string) ([]models.Course, error)
	Course(sessionID, courseID string) (models.Course, error)
	MyCourses(sessionID, tab string) ([]models.Course, error)
	MarkLessonComplete(ctx context.Context, sessionID, courseID, lessonID string) (*service.CompletionResult, error)
}

// CourseHandler serves the catalog and lesson progress.
type CourseHandler struct {
	store courseStore
}

// NewCourseHandler constructs the handler.
func NewCourseHandler(store courseStore) *CourseHandler {
	return &CourseHandler{store: store}
}

// List godoc
// @Summary List courses
// @Description Published courses plus the viewer's own drafts, with progress
// @Tags Courses
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /courses [get]
func (h *CourseHandler) List(c *gin.Context) {
	sess, ok := currentSession(c)
	if !ok {
		return
	}
	courses, err := h.store.Courses(sess.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.respond(c, sess.ID, courses)
}

// Get godoc
// @Summary Get course
// @Tags Courses
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /courses/{id} [get]
func (h *CourseHandler) Get(c *gin.Context) {
	sess, ok := currentSession(c)
	if !ok {
		return
	}
	course, err := h.store.Course(sess.ID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	h.respond(c, sess.ID, course)
}

// MyCourses godoc
// @Summary List my courses
// @Tags Courses
// @Produce json
// @Param tab query string false "in-progress, completed or favorites"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /my-courses [get]
func (h *CourseHandler) MyCourses(c *gin.Context) {
	sess, ok := currentSession(c)
	if !ok {
		return
	}
	tab := strings.TrimSpace(c.DefaultQuery("tab", service.TabInProgress))
	switch tab {
	case service.TabInProgress, service.TabCompleted, service.TabFavorites:
	default:
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "tab must be in-progress, completed or favorites"))
		return
	}
	courses, err := h.store.MyCourses(sess.ID, tab)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.respond(c, sess.ID, courses)
}

// CompleteLesson godoc
// @Summary Mark lesson complete
// @Description Records the lesson upstream and issues the course certificate when it reaches 100%
// @Tags Courses
// @Produce json
// @Param id path string true "Course ID"
// @Param lessonId path string true "Lesson ID"
// @Success 200 {object} response.Envelope
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /courses/{id}/lessons/{lessonId}/complete [post]
func (h *CourseHandler) CompleteLesson(c *gin.Context) {
	sess, ok := currentSession(c)
	if !ok {
		return
	}
	result, err := h.store.MarkLessonComplete(c.Request.Context(), sess.ID, c.Param("id"), c.Param("lessonId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if result == nil {
		response.NoContent(c)
		return
	}
	response.JSON(c, http.StatusOK, result)
}

func (h *CourseHandler) respond(c *gin.Context, sessionID string, data interface{}) {
	if state, err := h.store.Snapshot(sessionID); err == nil {
		middleware.SetCacheHit(c, state.CatalogHit)
		middleware.SetRefreshedAt(c, state.RefreshedAt)
	}
	response.JSON(c, http.StatusOK, data, middleware.ExtractMeta(c))
}
