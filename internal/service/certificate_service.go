package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/academy-gateway/internal/curriculum"
	"github.com/noah-isme/academy-gateway/internal/models"
	"github.com/noah-isme/academy-gateway/pkg/academy"
	appErrors "github.com/noah-isme/academy-gateway/pkg/errors"
	"github.com/noah-isme/academy-gateway/pkg/export"
	"github.com/noah-isme/academy-gateway/pkg/storage"
)

// Certificate issuance triggers, used as metric and log labels.
const (
	TriggerCompletion = "completion"
	TriggerRefresh    = "refresh"
	TriggerSweep      = "sweep"
)

type certificateIssuerAPI interface {
	IssueCertificate(ctx context.Context, token, email, courseID string, completedAt time.Time) (models.CertificateRecord, error)
}

// CertificateIssuer requests a certificate for every fully completed course that has none yet.
type CertificateIssuer struct {
	api     certificateIssuerAPI
	metrics *MetricsService
	logger  *zap.Logger
	now     func() time.Time
}

// NewCertificateIssuer constructs the issuance trigger.
func NewCertificateIssuer(api certificateIssuerAPI, metrics *MetricsService, logger *zap.Logger) *CertificateIssuer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CertificateIssuer{api: api, metrics: metrics, logger: logger, now: time.Now}
}

// Ensure evaluates the trigger for courseIDs against state and returns the state with the
// issued certificates merged in, plus the ids of the courses that got one.
// The caller must serialize calls per session; the presence check runs right before each request.
// Nothing is requested until the certificate record has been loaded.
func (i *CertificateIssuer) Ensure(ctx context.Context, token string, state AppState, courseIDs []string, trigger string) (AppState, []string) {
	if !state.CertificatesLoaded {
		return state, nil
	}
	var issued []string
	for _, courseID := range courseIDs {
		course, ok := FindCourse(state.Courses, courseID)
		if !ok || !IsCourseComplete(course, state.Progress.Completed(courseID)) {
			continue
		}
		if state.Certificates.Has(courseID) {
			continue
		}

		record, err := i.api.IssueCertificate(ctx, token, state.User.Email, courseID, i.now().UTC())
		if i.metrics != nil {
			i.metrics.RecordCertificate(trigger, err)
		}
		if err != nil {
			i.logger.Warn("certificate issuance failed",
				zap.String("course_id", courseID),
				zap.String("trigger", trigger),
				zap.Error(err))
			continue
		}

		state.Certificates = state.Certificates.Merge(record)
		if state.Certificates.Has(courseID) {
			issued = append(issued, courseID)
			i.logger.Info("certificate issued", zap.String("course_id", courseID), zap.String("trigger", trigger))
		}
	}
	return state, issued
}

type certificateAPI interface {
	ValidateCertificate(ctx context.Context, code string) (*models.CertificateDetails, error)
	GetSignature(ctx context.Context, token, email string) (*models.Signature, error)
}

// CertificateEntry pairs an earned certificate with its course.
type CertificateEntry struct {
	CourseID      string             `json:"courseId"`
	CourseTitle   string             `json:"courseTitle"`
	ThumbnailURL  string             `json:"thumbnailUrl,omitempty"`
	TotalDuration string             `json:"totalDuration"`
	Certificate   models.Certificate `json:"certificate"`
}

// DownloadLink is a signed, expiring certificate PDF URL.
type DownloadLink struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// CertificateConfig holds the public addresses printed on certificates.
type CertificateConfig struct {
	PublicURL string
	APIPrefix string
}

// CertificateService lists, validates and renders certificates.
type CertificateService struct {
	store    *AppStore
	api      certificateAPI
	renderer *export.CertificateRenderer
	files    *storage.LocalStorage
	signer   *storage.SignedURLSigner
	config   CertificateConfig
	logger   *zap.Logger
}

// NewCertificateService constructs a certificate service.
func NewCertificateService(store *AppStore, api certificateAPI, renderer *export.CertificateRenderer, files *storage.LocalStorage, signer *storage.SignedURLSigner, cfg CertificateConfig, logger *zap.Logger) *CertificateService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CertificateService{store: store, api: api, renderer: renderer, files: files, signer: signer, config: cfg, logger: logger}
}

// List returns the session's certificates, newest first.
func (s *CertificateService) List(sessionID string) ([]CertificateEntry, error) {
	state, err := s.store.Snapshot(sessionID)
	if err != nil {
		return nil, err
	}
	entries := make([]CertificateEntry, 0, len(state.Certificates))
	for courseID, cert := range state.Certificates {
		entry := CertificateEntry{CourseID: courseID, Certificate: cert}
		if course, ok := FindCourse(state.Courses, courseID); ok {
			entry.CourseTitle = course.Title
			entry.ThumbnailURL = course.ThumbnailURL
			entry.TotalDuration = courseDuration(course)
		}
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Certificate.CompletedAt.Equal(entries[j].Certificate.CompletedAt) {
			return entries[i].CourseID < entries[j].CourseID
		}
		return entries[i].Certificate.CompletedAt.After(entries[j].Certificate.CompletedAt)
	})
	return entries, nil
}

// Validate looks up a certificate code publicly.
func (s *CertificateService) Validate(ctx context.Context, code string) (*models.CertificateDetails, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "certificate code is required")
	}
	details, err := s.api.ValidateCertificate(ctx, code)
	if err != nil {
		if academy.IsStatus(err, 404) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "certificate not found")
		}
		return nil, upstreamError(err, "failed to validate certificate")
	}
	if details == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "certificate not found")
	}
	return details, nil
}

// DownloadLink renders the certificate PDF of a course and returns a signed link to it.
func (s *CertificateService) DownloadLink(ctx context.Context, sessionID, courseID string) (*DownloadLink, error) {
	sess, ok := s.store.Session(sessionID)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "session is not active")
	}
	state, err := s.store.Snapshot(sessionID)
	if err != nil {
		return nil, err
	}
	cert, ok := state.Certificates[courseID]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "certificate not issued for this course")
	}
	course, ok := FindCourse(state.Courses, courseID)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
	}

	doc := export.CertificateDocument{
		StudentName:   state.User.Name,
		CourseTitle:   course.Title,
		TotalDuration: courseDuration(course),
		Code:          cert.Code,
		CompletedAt:   cert.CompletedAt,
		InstructorTag: course.CreatorName,
		ValidationURL: s.publicPath("/public/certificates/" + cert.Code),
	}
	if course.CreatorEmail != "" {
		sig, err := s.api.GetSignature(ctx, sess.Token, course.CreatorEmail)
		if err != nil {
			s.logger.Warn("instructor signature unavailable", zap.String("course_id", courseID), zap.Error(err))
		} else if sig != nil {
			doc.InstructorSig = sig.Text
		}
	}

	pdf, err := s.renderer.Render(doc)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render certificate")
	}
	relPath := fmt.Sprintf("%s/%s.pdf", sessionID, safeFileName(courseID+"-"+cert.Code))
	if _, err := s.files.Save(relPath, pdf); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store certificate")
	}
	token, expiresAt, err := s.signer.Generate(sessionID, relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign certificate link")
	}
	return &DownloadLink{URL: s.publicPath("/certificates/files/" + token), ExpiresAt: expiresAt}, nil
}

// ResolveDownload opens the PDF a signed token points to.
func (s *CertificateService) ResolveDownload(token string) (*os.File, string, error) {
	_, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		if errors.Is(err, storage.ErrTokenExpired) {
			return nil, "", appErrors.Clone(appErrors.ErrForbidden, "download link expired")
		}
		return nil, "", appErrors.Clone(appErrors.ErrForbidden, "invalid download link")
	}
	file, err := s.files.Open(relPath)
	if err != nil {
		return nil, "", appErrors.Clone(appErrors.ErrNotFound, "certificate file not found")
	}
	return file, "certificado-" + strings.TrimSuffix(lastSegment(relPath), ".pdf") + ".pdf", nil
}

func (s *CertificateService) publicPath(path string) string {
	return s.config.PublicURL + s.config.APIPrefix + path
}

func courseDuration(course models.Course) string {
	if course.TotalDuration != "" {
		return course.TotalDuration
	}
	seconds := 0
	for _, module := range course.Modules {
		for _, lesson := range module.Lessons {
			seconds += curriculum.ParseDuration(lesson.Duration)
		}
	}
	return curriculum.FormatTotal(seconds)
}

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

func safeFileName(name string) string {
	cleaned := unsafeFileChars.ReplaceAllString(name, "_")
	if cleaned == "" {
		return "file"
	}
	return cleaned
}

func lastSegment(path string) string {
	if idx := strings.LastIndex(path, "/"); idx >= 0 {
		return path[idx+1:]
	}
	return path
}
