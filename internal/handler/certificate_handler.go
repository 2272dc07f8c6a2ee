package handler

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/academy-gateway/internal/models"
	"github.com/noah-isme/academy-gateway/internal/service"
	"github.com/noah-isme/academy-gateway/pkg/response"
)

type certificateService interface {
	List(sessionID string) ([]service.CertificateEntry, error)
	Validate(ctx context.Context, code string) (*models.CertificateDetails, error)
	DownloadLink(ctx context.Context, sessionID, courseID string) (*service.DownloadLink, error)
	ResolveDownload(token string) (*os.File, string, error)
}

// CertificateHandler serves earned certificates, their PDFs and public validation.
type CertificateHandler struct {
	service certificateService
}

// NewCertificateHandler constructs the handler.
func NewCertificateHandler(svc certificateService) *CertificateHandler {
	return &CertificateHandler{service: svc}
}

// List godoc
// @Summary List certificates
// @Tags Certificates
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /certificates [get]
func (h *CertificateHandler) List(c *gin.Context) {
	sess, ok := currentSession(c)
	if !ok {
		return
	}
	entries, err := h.service.List(sess.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, entries)
}

// Download godoc
// @Summary Certificate download link
// @Description Renders the certificate PDF and returns a signed, expiring link to it
// @Tags Certificates
// @Produce json
// @Param courseId path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /certificates/{courseId}/download [get]
func (h *CertificateHandler) Download(c *gin.Context) {
	sess, ok := currentSession(c)
	if !ok {
		return
	}
	link, err := h.service.DownloadLink(c.Request.Context(), sess.ID, c.Param("courseId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, link)
}

// File godoc
// @Summary Certificate PDF
// @Tags Certificates
// @Produce application/pdf
// @Param token path string true "Signed token"
// @Success 200 {file} file
// @Failure 403 {object} response.Envelope
// @Router /certificates/files/{token} [get]
func (h *CertificateHandler) File(c *gin.Context) {
	file, name, err := h.service.ResolveDownload(c.Param("token"))
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
	c.Header("Content-Type", "application/pdf")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	http.ServeContent(c.Writer, c.Request, name, info.ModTime(), file)
}

// Validate godoc
// @Summary Validate certificate
// @Description Public lookup of a certificate code
// @Tags Certificates
// @Produce json
// @Param code path string true "Certificate code"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /public/certificates/{code} [get]
func (h *CertificateHandler) Validate(c *gin.Context) {
	details, err := h.service.Validate(c.Request.Context(), c.Param("code"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, details)
}
