package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/academy-gateway/internal/models"
	appErrors "github.com/noah-isme/academy-gateway/pkg/errors"
	"github.com/noah-isme/academy-gateway/pkg/response"
)

type questionService interface {
	List(ctx context.Context, sessionID, courseID, lessonID string) ([]models.LessonQuestion, error)
	Ask(ctx context.Context, sessionID, courseID, lessonID string, req models.AskQuestionRequest) (*models.LessonQuestion, error)
}

// QuestionHandler serves the questions tab of the player.
type QuestionHandler struct {
	service questionService
}

// NewQuestionHandler constructs the handler.
func NewQuestionHandler(svc questionService) *QuestionHandler {
	return &QuestionHandler{service: svc}
}

// List godoc
// @Summary List lesson questions
// @Tags Courses
// @Produce json
// @Param id path string true "Course ID"
// @Param lessonId path string true "Lesson ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /courses/{id}/lessons/{lessonId}/questions [get]
func (h *QuestionHandler) List(c *gin.Context) {
	sess, ok := currentSession(c)
	if !ok {
		return
	}
	questions, err := h.service.List(c.Request.Context(), sess.ID, c.Param("id"), c.Param("lessonId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, questions)
}

// Ask godoc
// @Summary Ask a question
// @Description Posts a question under a lesson for the instructor to answer
// @Tags Courses
// @Accept json
// @Produce json
// @Param id path string true "Course ID"
// @Param lessonId path string true "Lesson ID"
// @Param payload body models.AskQuestionRequest true "Question"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /courses/{id}/lessons/{lessonId}/questions [post]
func (h *QuestionHandler) Ask(c *gin.Context) {
	sess, ok := currentSession(c)
	if !ok {
		return
	}
	var req models.AskQuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid question payload"))
		return
	}
	question, err := h.service.Ask(c.Request.Context(), sess.ID, c.Param("id"), c.Param("lessonId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, question)
}
