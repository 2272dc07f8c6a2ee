package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/academy-gateway/internal/models"
	appErrors "github.com/noah-isme/academy-gateway/pkg/errors"
	"github.com/noah-isme/academy-gateway/pkg/response"
)

type instructorService interface {
	Courses(sessionID string) ([]models.Course, error)
	DeleteCourse(ctx context.Context, sessionID, courseID string) error
	Affiliates(ctx context.Context, sessionID string) ([]models.Affiliate, error)
	AffiliatesCSV(ctx context.Context, sessionID string) ([]byte, error)
	Signature(ctx context.Context, sessionID string) (*models.Signature, error)
	SaveSignature(ctx context.Context, sessionID string, sig models.Signature) (*models.Signature, error)
}

// InstructorHandler exposes the producer tools.
type InstructorHandler struct {
	service instructorService
}

// NewInstructorHandler constructs the handler.
func NewInstructorHandler(svc instructorService) *InstructorHandler {
	return &InstructorHandler{service: svc}
}

// Courses godoc
// @Summary Instructor courses
// @Tags Instructor
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /instructor/courses [get]
func (h *InstructorHandler) Courses(c *gin.Context) {
	sess, ok := currentSession(c)
	if !ok {
		return
	}
	courses, err := h.service.Courses(sess.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, courses)
}

// DeleteCourse godoc
// @Summary Delete course
// @Tags Instructor
// @Param id path string true "Course ID"
// @Success 204 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /instructor/courses/{id} [delete]
func (h *InstructorHandler) DeleteCourse(c *gin.Context) {
	sess, ok := currentSession(c)
	if !ok {
		return
	}
	if err := h.service.DeleteCourse(c.Request.Context(), sess.ID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Affiliates godoc
// @Summary List affiliates
// @Tags Instructor
// @Produce json,text/csv
// @Param format query string false "csv for a spreadsheet download"
// @Success 200 {object} response.Envelope
// @Router /instructor/affiliates [get]
func (h *InstructorHandler) Affiliates(c *gin.Context) {
	sess, ok := currentSession(c)
	if !ok {
		return
	}
	if c.Query("format") == "csv" {
		data, err := h.service.AffiliatesCSV(c.Request.Context(), sess.ID)
		if err != nil {
			response.Error(c, err)
			return
		}
		filename := "afiliados-" + time.Now().UTC().Format("20060102") + ".csv"
		c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
		c.Data(http.StatusOK, "text/csv; charset=utf-8", data)
		return
	}
	affiliates, err := h.service.Affiliates(c.Request.Context(), sess.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, affiliates)
}

// Signature godoc
// @Summary Get signature
// @Tags Instructor
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /instructor/signature [get]
func (h *InstructorHandler) Signature(c *gin.Context) {
	sess, ok := currentSession(c)
	if !ok {
		return
	}
	sig, err := h.service.Signature(c.Request.Context(), sess.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, sig)
}

// SaveSignature godoc
// @Summary Save signature
// @Tags Instructor
// @Accept json
// @Produce json
// @Param payload body models.Signature true "Signature"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /instructor/signature [put]
func (h *InstructorHandler) SaveSignature(c *gin.Context) {
	sess, ok := currentSession(c)
	if !ok {
		return
	}
	var req models.Signature
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid signature payload"))
		return
	}
	sig, err := h.service.SaveSignature(c.Request.Context(), sess.ID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, sig)
}
