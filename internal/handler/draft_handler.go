package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/academy-gateway/internal/curriculum"
	"github.com/noah-isme/academy-gateway/internal/models"
	"github.com/noah-isme/academy-gateway/internal/service"
	appErrors "github.com/noah-isme/academy-gateway/pkg/errors"
	"github.com/noah-isme/academy-gateway/pkg/response"
)

type editorService interface {
	Open(ctx context.Context, sessionID, courseID string) (*service.DraftView, error)
	Get(ctx context.Context, sessionID, draftID string) (*service.DraftView, error)
	Dispatch(ctx context.Context, sessionID, draftID string, cmd curriculum.Command) (*service.DraftView, error)
	Stage(ctx context.Context, sessionID, draftID string, target service.StageTarget, upload service.FileUpload) (*service.DraftView, error)
	Preview(token string) (*os.File, error)
	Save(ctx context.Context, sessionID, draftID string) (*models.Course, error)
	SuggestOutline(ctx context.Context, sessionID, draftID string) (*service.DraftView, error)
	Discard(ctx context.Context, sessionID, draftID string) error
}

type openDraftRequest struct {
	CourseID string `json:"courseId"`
}

type commandRequest struct {
	Type    string          `json:"type" binding:"required"`
	Payload json.RawMessage `json:"payload"`
}

// DraftHandler drives the course editor.
type DraftHandler struct {
	service     editorService
	maxFileSize int64
}

// NewDraftHandler constructs the handler. maxFileSize bounds multipart bodies.
func NewDraftHandler(svc editorService, maxFileSize int64) *DraftHandler {
	return &DraftHandler{service: svc, maxFileSize: maxFileSize}
}

// Open godoc
// @Summary Open draft
// @Description Starts an empty draft, or a draft of an existing course when courseId is given
// @Tags Editor
// @Accept json
// @Produce json
// @Param payload body openDraftRequest false "Course to edit"
// @Success 201 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /drafts [post]
func (h *DraftHandler) Open(c *gin.Context) {
	sess, ok := currentSession(c)
	if !ok {
		return
	}
	var req openDraftRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
			return
		}
	}
	draft, err := h.service.Open(c.Request.Context(), sess.ID, req.CourseID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, draft)
}

// Get godoc
// @Summary Get draft
// @Tags Editor
// @Produce json
// @Param id path string true "Draft ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /drafts/{id} [get]
func (h *DraftHandler) Get(c *gin.Context) {
	sess, ok := currentSession(c)
	if !ok {
		return
	}
	draft, err := h.service.Get(c.Request.Context(), sess.ID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, draft)
}

// Command godoc
// @Summary Apply editor command
// @Description Applies one command such as addModule, updateLesson or removeCover
// @Tags Editor
// @Accept json
// @Produce json
// @Param id path string true "Draft ID"
// @Param payload body commandRequest true "Command"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 428 {object} response.Envelope
// @Router /drafts/{id}/commands [post]
func (h *DraftHandler) Command(c *gin.Context) {
	sess, ok := currentSession(c)
	if !ok {
		return
	}
	var req commandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid command"))
		return
	}
	cmd, err := curriculum.DecodeCommand(req.Type, req.Payload)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, err.Error()))
		return
	}
	draft, err := h.service.Dispatch(c.Request.Context(), sess.ID, c.Param("id"), cmd)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, draft)
}

// Upload godoc
// @Summary Stage file
// @Description Stores a cover, lesson video or attachment for preview. Nothing is sent upstream until save.
// @Tags Editor
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Draft ID"
// @Param kind formData string true "cover, video or attachment"
// @Param moduleId formData string false "Module ID"
// @Param lessonId formData string false "Lesson ID"
// @Param attachmentId formData string false "Attachment ID"
// @Param file formData file true "File"
// @Success 200 {object} response.Envelope
// @Failure 413 {object} response.Envelope
// @Router /drafts/{id}/files [post]
func (h *DraftHandler) Upload(c *gin.Context) {
	sess, ok := currentSession(c)
	if !ok {
		return
	}
	if h.maxFileSize > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxFileSize+1<<20)
	}
	header, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "file is required"))
		return
	}
	file, err := header.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "unreadable file"))
		return
	}
	defer file.Close()

	target := service.StageTarget{
		Kind:         curriculum.EntityKind(c.PostForm("kind")),
		ModuleID:     c.PostForm("moduleId"),
		LessonID:     c.PostForm("lessonId"),
		AttachmentID: c.PostForm("attachmentId"),
	}
	upload := service.FileUpload{
		Name:        filepath.Base(header.Filename),
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Reader:      file,
	}
	draft, err := h.service.Stage(c.Request.Context(), sess.ID, c.Param("id"), target, upload)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, draft)
}

// Preview godoc
// @Summary Staged file preview
// @Tags Editor
// @Param token path string true "Signed token"
// @Success 200 {file} file
// @Failure 403 {object} response.Envelope
// @Router /drafts/previews/{token} [get]
func (h *DraftHandler) Preview(c *gin.Context) {
	file, err := h.service.Preview(c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close()
	info, err := file.Stat()
	if err != nil {
		response.Error(c, err)
		return
	}
	http.ServeContent(c.Writer, c.Request, info.Name(), info.ModTime(), file)
}

// Outline godoc
// @Summary Generate description
// @Description Drafts the course description from its title with the outline generator
// @Tags Editor
// @Produce json
// @Param id path string true "Draft ID"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /drafts/{id}/outline [post]
func (h *DraftHandler) Outline(c *gin.Context) {
	sess, ok := currentSession(c)
	if !ok {
		return
	}
	draft, err := h.service.SuggestOutline(c.Request.Context(), sess.ID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, draft)
}

// Save godoc
// @Summary Save draft
// @Description Validates the draft and submits it with staged files and removals in one request
// @Tags Editor
// @Produce json
// @Param id path string true "Draft ID"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /drafts/{id}/save [post]
func (h *DraftHandler) Save(c *gin.Context) {
	sess, ok := currentSession(c)
	if !ok {
		return
	}
	course, err := h.service.Save(c.Request.Context(), sess.ID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, course)
}

// Discard godoc
// @Summary Discard draft
// @Tags Editor
// @Param id path string true "Draft ID"
// @Success 204 {object} response.Envelope
// @Router /drafts/{id} [delete]
func (h *DraftHandler) Discard(c *gin.Context) {
	sess, ok := currentSession(c)
	if !ok {
		return
	}
	if err := h.service.Discard(c.Request.Context(), sess.ID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
