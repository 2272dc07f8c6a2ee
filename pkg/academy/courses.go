package academy

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"

	"github.com/noah-isme/academy-gateway/internal/models"
)

// UploadFile is one staged file sent along a course save.
// Field is "cover", "video:<lessonId>" or "attachment:<attachmentId>".
type UploadFile struct {
	Field       string
	FileName    string
	ContentType string
	Open        func() (io.ReadCloser, error)
}

// RemovalIntent asks the backend to delete a previously persisted asset.
type RemovalIntent struct {
	Kind     string `json:"kind"`
	EntityID string `json:"entityId,omitempty"`
	URL      string `json:"url"`
}

// CourseUpload is the complete payload of a course save.
type CourseUpload struct {
	Course   models.Course
	Removals []RemovalIntent
	Files    []UploadFile
}

// FetchCourses returns the full catalog with modules, lessons and attachments.
func (c *Client) FetchCourses(ctx context.Context, token string) ([]models.Course, error) {
	var out []models.Course
	if err := c.doJSON(ctx, "fetch_courses", http.MethodGet, "/api/academy/courses", token, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateCourse creates or updates a course in one multipart request.
func (c *Client) CreateCourse(ctx context.Context, token string, upload CourseUpload) (*models.Course, error) {
	pr, pw := io.Pipe()
	writer := multipart.NewWriter(pw)

	go func() {
		pw.CloseWithError(writeCourseUpload(writer, upload))
	}()

	var out models.Course
	err := c.do(ctx, "create_course", http.MethodPost, "/api/academy/courses", token, writer.FormDataContentType(), pr, &out)
	_ = pr.Close()
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func writeCourseUpload(writer *multipart.Writer, upload CourseUpload) error {
	if err := writeJSONPart(writer, "course", upload.Course); err != nil {
		return err
	}
	removals := upload.Removals
	if removals == nil {
		removals = []RemovalIntent{}
	}
	if err := writeJSONPart(writer, "removals", removals); err != nil {
		return err
	}
	for _, file := range upload.Files {
		if err := writeFilePart(writer, file); err != nil {
			return err
		}
	}
	return writer.Close()
}

func writeJSONPart(writer *multipart.Writer, name string, value interface{}) error {
	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"`, name))
	header.Set("Content-Type", "application/json")
	part, err := writer.CreatePart(header)
	if err != nil {
		return fmt.Errorf("create %s part: %w", name, err)
	}
	return json.NewEncoder(part).Encode(value)
}

func writeFilePart(writer *multipart.Writer, file UploadFile) error {
	src, err := file.Open()
	if err != nil {
		return fmt.Errorf("open staged file %s: %w", file.Field, err)
	}
	defer src.Close() //nolint:errcheck

	contentType := file.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		escapeQuotes(file.Field), escapeQuotes(file.FileName)))
	header.Set("Content-Type", contentType)
	part, err := writer.CreatePart(header)
	if err != nil {
		return fmt.Errorf("create file part %s: %w", file.Field, err)
	}
	if _, err := io.Copy(part, src); err != nil {
		return fmt.Errorf("copy staged file %s: %w", file.Field, err)
	}
	return nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}

// DeleteCourse removes a course.
func (c *Client) DeleteCourse(ctx context.Context, token, courseID string) error {
	return c.doJSON(ctx, "delete_course", http.MethodDelete, "/api/academy/courses/"+url.PathEscape(courseID), token, nil, nil)
}

// ValidateCertificate resolves a public certificate code. Unknown codes yield a 404 APIError.
func (c *Client) ValidateCertificate(ctx context.Context, code string) (*models.CertificateDetails, error) {
	var out struct {
		Certificado *models.CertificateDetails `json:"certificado"`
	}
	if err := c.doJSON(ctx, "validate_certificate", http.MethodGet, "/api/academy/certificates/"+url.PathEscape(code), "", nil, &out); err != nil {
		return nil, err
	}
	if out.Certificado == nil {
		return nil, &APIError{Status: http.StatusNotFound, Message: "certificado não encontrado"}
	}
	return out.Certificado, nil
}

// FetchAffiliates lists the affiliates of the signed-in producer.
func (c *Client) FetchAffiliates(ctx context.Context, token string) ([]models.Affiliate, error) {
	var out []models.Affiliate
	if err := c.doJSON(ctx, "fetch_affiliates", http.MethodGet, "/api/academy/affiliates", token, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}
