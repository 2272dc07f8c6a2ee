package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/academy-gateway/internal/models"
	appErrors "github.com/noah-isme/academy-gateway/pkg/errors"
	"github.com/noah-isme/academy-gateway/pkg/export"
)

type instructorAPI interface {
	DeleteCourse(ctx context.Context, token, courseID string) error
	FetchAffiliates(ctx context.Context, token string) ([]models.Affiliate, error)
	GetSignature(ctx context.Context, token, email string) (*models.Signature, error)
	SetSignature(ctx context.Context, token, email string, sig models.Signature) error
}

// InstructorSummary is the headline of the instructor dashboard.
type InstructorSummary struct {
	TotalCourses int `json:"totalCourses"`
	Published    int `json:"published"`
	Drafts       int `json:"drafts"`
	Archived     int `json:"archived"`
	TotalLessons int `json:"totalLessons"`
}

// InstructorService serves the producer tools: own courses, affiliates and signature.
type InstructorService struct {
	api       instructorAPI
	store     *AppStore
	events    *EventHub
	exporter  *export.CSVExporter
	validator *validator.Validate
	logger    *zap.Logger
}

// NewInstructorService constructs an instructor service.
func NewInstructorService(api instructorAPI, store *AppStore, events *EventHub, exporter *export.CSVExporter, validate *validator.Validate, logger *zap.Logger) *InstructorService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if exporter == nil {
		exporter = export.NewCSVExporter()
	}
	return &InstructorService{api: api, store: store, events: events, exporter: exporter, validator: validate, logger: logger}
}

func (s *InstructorService) adminSession(sessionID string) (Session, error) {
	sess, ok := s.store.Session(sessionID)
	if !ok {
		return Session{}, appErrors.Clone(appErrors.ErrUnauthorized, "session is not active")
	}
	if !sess.User.IsAdmin() {
		return Session{}, appErrors.Clone(appErrors.ErrForbidden, "instructor tools require the ADMIN role")
	}
	return sess, nil
}

// Courses lists every course created by the instructor, whatever its status.
func (s *InstructorService) Courses(sessionID string) ([]models.Course, error) {
	sess, err := s.adminSession(sessionID)
	if err != nil {
		return nil, err
	}
	state, err := s.store.Snapshot(sessionID)
	if err != nil {
		return nil, err
	}
	out := make([]models.Course, 0)
	for _, course := range state.Courses {
		if course.CreatorEmail == sess.User.Email {
			out = append(out, course)
		}
	}
	return out, nil
}

// Summary counts the instructor's courses by status.
func (s *InstructorService) Summary(sessionID string) (*InstructorSummary, error) {
	courses, err := s.Courses(sessionID)
	if err != nil {
		return nil, err
	}
	summary := &InstructorSummary{TotalCourses: len(courses)}
	for _, course := range courses {
		switch course.Status {
		case models.StatusPublished:
			summary.Published++
		case models.StatusDraft:
			summary.Drafts++
		case models.StatusArchived:
			summary.Archived++
		}
		summary.TotalLessons += TotalLessons(course)
	}
	return summary, nil
}

// DeleteCourse removes one of the instructor's courses upstream and reloads the catalog.
func (s *InstructorService) DeleteCourse(ctx context.Context, sessionID, courseID string) error {
	sess, err := s.adminSession(sessionID)
	if err != nil {
		return err
	}
	state, err := s.store.Snapshot(sessionID)
	if err != nil {
		return err
	}
	if course, ok := FindCourse(state.Courses, courseID); ok && course.CreatorEmail != "" && course.CreatorEmail != sess.User.Email {
		return appErrors.Clone(appErrors.ErrForbidden, "course belongs to another instructor")
	}

	if err := s.api.DeleteCourse(ctx, sess.Token, courseID); err != nil {
		s.logger.Warn("course delete failed", zap.String("course_id", courseID), zap.Error(err))
		return upstreamError(err, "failed to delete course")
	}

	s.store.InvalidateCatalog(ctx, sessionID)
	s.events.Publish(sessionID, EventCourseDeleted, map[string]string{"courseId": courseID})
	return nil
}

// Affiliates lists the affiliates of the platform.
func (s *InstructorService) Affiliates(ctx context.Context, sessionID string) ([]models.Affiliate, error) {
	sess, err := s.adminSession(sessionID)
	if err != nil {
		return nil, err
	}
	affiliates, err := s.api.FetchAffiliates(ctx, sess.Token)
	if err != nil {
		return nil, upstreamError(err, "failed to fetch affiliates")
	}
	if affiliates == nil {
		affiliates = []models.Affiliate{}
	}
	return affiliates, nil
}

// AffiliatesCSV renders the affiliates table for spreadsheet download.
func (s *InstructorService) AffiliatesCSV(ctx context.Context, sessionID string) ([]byte, error) {
	affiliates, err := s.Affiliates(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	dataset := export.Dataset{Headers: []string{"Nome", "Email", "Vendas", "Comissão", "Status", "Desde"}}
	for _, a := range affiliates {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Nome":     a.Name,
			"Email":    a.Email,
			"Vendas":   strconv.Itoa(a.TotalSales),
			"Comissão": fmt.Sprintf("%.0f%%", a.CommissionRate),
			"Status":   string(a.Status),
			"Desde":    a.JoinDate,
		})
	}
	out, err := s.exporter.Render(dataset)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to export affiliates")
	}
	return out, nil
}

// Signature returns the instructor signature, or an empty one when none is configured.
func (s *InstructorService) Signature(ctx context.Context, sessionID string) (*models.Signature, error) {
	sess, err := s.adminSession(sessionID)
	if err != nil {
		return nil, err
	}
	sig, err := s.api.GetSignature(ctx, sess.Token, sess.User.Email)
	if err != nil {
		return nil, upstreamError(err, "failed to load signature")
	}
	if sig == nil {
		sig = &models.Signature{Font: models.FontGreatVibes}
	}
	return sig, nil
}

// SaveSignature validates and stores the signature printed on certificates.
func (s *InstructorService) SaveSignature(ctx context.Context, sessionID string, sig models.Signature) (*models.Signature, error) {
	sess, err := s.adminSession(sessionID)
	if err != nil {
		return nil, err
	}
	sig.Text = strings.TrimSpace(sig.Text)
	if sig.Font == "" {
		sig.Font = models.FontGreatVibes
	}
	if err := s.validator.Struct(sig); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "signature text is required")
	}
	if err := s.api.SetSignature(ctx, sess.Token, sess.User.Email, sig); err != nil {
		return nil, upstreamError(err, "failed to save signature")
	}
	return &sig, nil
}
