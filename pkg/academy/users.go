package academy

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/noah-isme/academy-gateway/internal/models"
)

func userPath(email, suffix string) string {
	return "/api/academy/users/" + url.PathEscape(email) + suffix
}

// FetchUserLists returns the enrolled and favorite course ids.
func (c *Client) FetchUserLists(ctx context.Context, token, email string) (models.UserLists, error) {
	var out models.UserLists
	err := c.doJSON(ctx, "fetch_user_lists", http.MethodGet, userPath(email, "/lists"), token, nil, &out)
	return out, err
}

type progressPayload struct {
	Progress models.CompletionRecord `json:"progress"`
}

// FetchUserProgress returns the user's completion record.
func (c *Client) FetchUserProgress(ctx context.Context, token, email string) (models.CompletionRecord, error) {
	var out progressPayload
	if err := c.doJSON(ctx, "fetch_user_progress", http.MethodGet, userPath(email, "/progress"), token, nil, &out); err != nil {
		return nil, err
	}
	return nonNilProgress(out.Progress), nil
}

// UpdateProgress marks a lesson and returns the authoritative completion record.
func (c *Client) UpdateProgress(ctx context.Context, token, email, courseID, lessonID string, completed bool) (models.CompletionRecord, error) {
	in := struct {
		CourseID  string `json:"courseId"`
		LessonID  string `json:"lessonId"`
		Completed bool   `json:"completed"`
	}{courseID, lessonID, completed}

	var out progressPayload
	if err := c.doJSON(ctx, "update_progress", http.MethodPost, userPath(email, "/progress"), token, in, &out); err != nil {
		return nil, err
	}
	return nonNilProgress(out.Progress), nil
}

type certificatesPayload struct {
	Certificates models.CertificateRecord `json:"certificates"`
}

// FetchUserCertificates returns the user's certificate record.
func (c *Client) FetchUserCertificates(ctx context.Context, token, email string) (models.CertificateRecord, error) {
	var out certificatesPayload
	if err := c.doJSON(ctx, "fetch_user_certificates", http.MethodGet, userPath(email, "/certificates"), token, nil, &out); err != nil {
		return nil, err
	}
	return nonNilCertificates(out.Certificates), nil
}

// IssueCertificate requests a certificate and returns the updated certificate record.
func (c *Client) IssueCertificate(ctx context.Context, token, email, courseID string, completedAt time.Time) (models.CertificateRecord, error) {
	in := struct {
		CourseID    string    `json:"courseId"`
		CompletedAt time.Time `json:"completedAt"`
	}{courseID, completedAt.UTC()}

	var out certificatesPayload
	if err := c.doJSON(ctx, "issue_certificate", http.MethodPost, userPath(email, "/certificates"), token, in, &out); err != nil {
		return nil, err
	}
	return nonNilCertificates(out.Certificates), nil
}

// FetchNotifications returns the user's notifications.
func (c *Client) FetchNotifications(ctx context.Context, token, email string) ([]models.Notification, error) {
	var out []models.Notification
	if err := c.doJSON(ctx, "fetch_notifications", http.MethodGet, userPath(email, "/notifications"), token, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

type signaturePayload struct {
	Assinatura *models.Signature `json:"assinatura"`
}

// GetSignature returns the instructor signature, or nil when none was saved.
func (c *Client) GetSignature(ctx context.Context, token, email string) (*models.Signature, error) {
	var out signaturePayload
	if err := c.doJSON(ctx, "get_signature", http.MethodGet, userPath(email, "/signature"), token, nil, &out); err != nil {
		if IsStatus(err, http.StatusNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return out.Assinatura, nil
}

// SetSignature stores the instructor signature.
func (c *Client) SetSignature(ctx context.Context, token, email string, sig models.Signature) error {
	return c.doJSON(ctx, "set_signature", http.MethodPut, userPath(email, "/signature"), token, signaturePayload{Assinatura: &sig}, nil)
}

func nonNilProgress(r models.CompletionRecord) models.CompletionRecord {
	if r == nil {
		return models.CompletionRecord{}
	}
	return r
}

func nonNilCertificates(r models.CertificateRecord) models.CertificateRecord {
	if r == nil {
		return models.CertificateRecord{}
	}
	return r
}
