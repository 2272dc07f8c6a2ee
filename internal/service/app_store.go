package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/academy-gateway/internal/models"
	appErrors "github.com/noah-isme/academy-gateway/pkg/errors"
)

type storeAPI interface {
	FetchUserLists(ctx context.Context, token, email string) (models.UserLists, error)
	FetchUserProgress(ctx context.Context, token, email string) (models.CompletionRecord, error)
	FetchUserCertificates(ctx context.Context, token, email string) (models.CertificateRecord, error)
	UpdateProgress(ctx context.Context, token, email, courseID, lessonID string, completed bool) (models.CompletionRecord, error)
}

type courseCatalog interface {
	Courses(ctx context.Context, token string) ([]models.Course, bool, error)
	Invalidate(ctx context.Context)
}

// Session is an authenticated viewer together with the upstream bearer token.
type Session struct {
	ID        string
	Token     string
	Scope     models.TokenScope
	User      models.User
	ExpiresAt time.Time
}

// AppState is everything the client application shows for one session.
// Values are replaced wholesale; slices and maps inside are never mutated once published.
type AppState struct {
	User         models.User              `json:"user"`
	Courses      []models.Course          `json:"-"`
	Lists        models.UserLists         `json:"lists"`
	Progress     models.CompletionRecord  `json:"progress"`
	Certificates models.CertificateRecord `json:"certificates"`
	RefreshedAt  time.Time                `json:"refreshedAt"`
	CatalogHit   bool                     `json:"-"`
	// CertificatesLoaded is set once the certificate record was read from the backend.
	// Issuance waits for it so an unknown record never passes as an empty one.
	CertificatesLoaded bool `json:"-"`
}

// CompletionResult is returned after a lesson was marked complete.
type CompletionResult struct {
	Course        models.Course       `json:"course"`
	NextLesson    *models.Lesson      `json:"nextLesson,omitempty"`
	Certificate   *models.Certificate `json:"certificate,omitempty"`
	JustCompleted bool                `json:"justCompleted"`
}

type sessionState struct {
	mu      sync.Mutex
	session Session
	state   AppState
}

// AppStore owns the application state of every active session.
type AppStore struct {
	api     storeAPI
	catalog courseCatalog
	issuer  *CertificateIssuer
	events  *EventHub
	metrics *MetricsService
	logger  *zap.Logger

	mu       sync.RWMutex
	sessions map[string]*sessionState
}

// NewAppStore constructs an empty store.
func NewAppStore(api storeAPI, catalog courseCatalog, issuer *CertificateIssuer, events *EventHub, metrics *MetricsService, logger *zap.Logger) *AppStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AppStore{
		api:      api,
		catalog:  catalog,
		issuer:   issuer,
		events:   events,
		metrics:  metrics,
		logger:   logger,
		sessions: make(map[string]*sessionState),
	}
}

// Attach registers a session. It reports false when the session was already known.
func (s *AppStore) Attach(sess Session) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sess.ID]; ok {
		return false
	}
	s.sessions[sess.ID] = &sessionState{
		session: sess,
		state: AppState{
			User:         sess.User,
			Courses:      []models.Course{},
			Progress:     models.CompletionRecord{},
			Certificates: models.CertificateRecord{},
		},
	}
	return true
}

// Session returns an attached session.
func (s *AppStore) Session(id string) (Session, bool) {
	entry := s.entry(id)
	if entry == nil {
		return Session{}, false
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return entry.session, true
}

// Drop forgets a session and its state.
func (s *AppStore) Drop(id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
}

// ActiveSessions lists the attached session ids, sorted.
func (s *AppStore) ActiveSessions() []string {
	s.mu.RLock()
	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	s.mu.RUnlock()
	sort.Strings(ids)
	return ids
}

func (s *AppStore) entry(id string) *sessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessions[id]
}

func (s *AppStore) mustEntry(id string) (*sessionState, error) {
	entry := s.entry(id)
	if entry == nil {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "session is not active")
	}
	return entry, nil
}

// Refresh reloads every slice of the session state. A failed read keeps the previous slice.
// Certificates are ensured afterwards for every course with recorded progress.
func (s *AppStore) Refresh(ctx context.Context, sessionID string) (AppState, error) {
	entry, err := s.mustEntry(sessionID)
	if err != nil {
		return AppState{}, err
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()

	token, email := entry.session.Token, entry.session.User.Email
	next := entry.state

	if courses, hit, err := s.catalog.Courses(ctx, token); err != nil {
		s.logger.Warn("course catalog refresh failed", zap.String("session_id", sessionID), zap.Error(err))
	} else {
		next.Courses = courses
		next.CatalogHit = hit
	}
	if lists, err := s.api.FetchUserLists(ctx, token, email); err != nil {
		s.logger.Warn("user lists refresh failed", zap.String("session_id", sessionID), zap.Error(err))
	} else {
		next.Lists = lists
	}
	if progress, err := s.api.FetchUserProgress(ctx, token, email); err != nil {
		s.logger.Warn("progress refresh failed", zap.String("session_id", sessionID), zap.Error(err))
	} else {
		next.Progress = progress
	}
	if certificates, err := s.api.FetchUserCertificates(ctx, token, email); err != nil {
		s.logger.Warn("certificates refresh failed", zap.String("session_id", sessionID), zap.Error(err))
	} else {
		next.Certificates = certificates
		next.CertificatesLoaded = true
	}
	next.RefreshedAt = time.Now().UTC()

	next = s.ensureCertificates(ctx, entry, next, next.Progress.CourseIDs(), TriggerRefresh)
	entry.state = next
	return next, nil
}

// UpdateUser replaces the signed-in user of a session after a profile change.
func (s *AppStore) UpdateUser(sessionID string, user models.User) error {
	entry, err := s.mustEntry(sessionID)
	if err != nil {
		return err
	}
	entry.mu.Lock()
	entry.session.User = user
	entry.state.User = user
	entry.mu.Unlock()

	s.events.Publish(sessionID, EventProfileUpdated, user)
	return nil
}

// Snapshot returns the current state of a session.
func (s *AppStore) Snapshot(sessionID string) (AppState, error) {
	entry, err := s.mustEntry(sessionID)
	if err != nil {
		return AppState{}, err
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return entry.state, nil
}

// Courses returns the catalog visible to the session user, joined with its progress.
func (s *AppStore) Courses(sessionID string) ([]models.Course, error) {
	state, err := s.Snapshot(sessionID)
	if err != nil {
		return nil, err
	}
	return AggregateProgress(VisibleCourses(state.Courses, state.User), state.Progress), nil
}

// Course returns one visible course joined with the session's progress.
func (s *AppStore) Course(sessionID, courseID string) (models.Course, error) {
	courses, err := s.Courses(sessionID)
	if err != nil {
		return models.Course{}, err
	}
	course, ok := FindCourse(courses, courseID)
	if !ok {
		return models.Course{}, appErrors.Clone(appErrors.ErrNotFound, "course not found")
	}
	return course, nil
}

// MyCourses returns the aggregated courses of a my-courses tab.
func (s *AppStore) MyCourses(sessionID, tab string) ([]models.Course, error) {
	state, err := s.Snapshot(sessionID)
	if err != nil {
		return nil, err
	}
	aggregated := AggregateProgress(VisibleCourses(state.Courses, state.User), state.Progress)
	return FilterMyCourses(aggregated, state.Lists, tab), nil
}

// MarkLessonComplete records a completed lesson upstream, replaces the local completion record
// with the server's answer and ensures the certificate of that course.
// Without a signed-in user it does nothing and returns nil.
func (s *AppStore) MarkLessonComplete(ctx context.Context, sessionID, courseID, lessonID string) (*CompletionResult, error) {
	entry := s.entry(sessionID)
	if entry == nil {
		return nil, nil
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()

	if entry.session.User.Email == "" {
		return nil, nil
	}

	state := entry.state
	course, ok := FindCourse(VisibleCourses(state.Courses, state.User), courseID)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
	}
	if _, ok := course.FindLesson(lessonID); !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "lesson not found")
	}

	before := CourseProgress(course, state.Progress.Completed(courseID))
	record, err := s.api.UpdateProgress(ctx, entry.session.Token, entry.session.User.Email, courseID, lessonID, true)
	if s.metrics != nil {
		s.metrics.RecordCompletion(err)
	}
	if err != nil {
		s.logger.Warn("mark lesson complete failed",
			zap.String("session_id", sessionID),
			zap.String("course_id", courseID),
			zap.String("lesson_id", lessonID),
			zap.Error(err))
		return nil, upstreamError(err, "failed to update progress")
	}
	if record == nil {
		record = models.CompletionRecord{}
	}

	state.Progress = record
	state = s.ensureCertificates(ctx, entry, state, []string{courseID}, TriggerCompletion)
	entry.state = state

	aggregated := AggregateProgress([]models.Course{course}, state.Progress)[0]
	result := &CompletionResult{
		Course:        aggregated,
		JustCompleted: before < 100 && aggregated.Progress == 100,
	}
	if next, ok := NextLesson(aggregated); ok {
		result.NextLesson = &next
	}
	if cert, ok := state.Certificates[courseID]; ok {
		result.Certificate = &cert
	}

	s.events.Publish(sessionID, EventProgressUpdated, map[string]interface{}{
		"courseId": courseID,
		"lessonId": lessonID,
		"progress": aggregated.Progress,
	})
	return result, nil
}

// SweepCertificates runs the certificate trigger over every active session and
// drops sessions past their expiry. It returns how many certificates were issued.
func (s *AppStore) SweepCertificates(ctx context.Context) int {
	issued := 0
	now := time.Now()
	for _, id := range s.ActiveSessions() {
		entry := s.entry(id)
		if entry == nil {
			continue
		}
		entry.mu.Lock()
		if !entry.session.ExpiresAt.IsZero() && now.After(entry.session.ExpiresAt) {
			entry.mu.Unlock()
			s.Drop(id)
			continue
		}
		before := len(entry.state.Certificates)
		entry.state = s.ensureCertificates(ctx, entry, entry.state, entry.state.Progress.CourseIDs(), TriggerSweep)
		issued += len(entry.state.Certificates) - before
		entry.mu.Unlock()
	}
	return issued
}

// RunSweeper sweeps every interval until ctx is cancelled.
func (s *AppStore) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.SweepCertificates(ctx); n > 0 {
				s.logger.Info("certificate sweep issued certificates", zap.Int("count", n))
			}
		}
	}
}

// InvalidateCatalog drops the shared catalog cache and reloads the session.
func (s *AppStore) InvalidateCatalog(ctx context.Context, sessionID string) {
	s.catalog.Invalidate(ctx)
	if _, err := s.Refresh(ctx, sessionID); err != nil {
		s.logger.Warn("refresh after catalog change failed", zap.String("session_id", sessionID), zap.Error(err))
	}
}

// ensureCertificates must be called with entry.mu held.
func (s *AppStore) ensureCertificates(ctx context.Context, entry *sessionState, state AppState, courseIDs []string, trigger string) AppState {
	if s.issuer == nil {
		return state
	}
	next, issued := s.issuer.Ensure(ctx, entry.session.Token, state, courseIDs, trigger)
	for _, courseID := range issued {
		s.events.Publish(entry.session.ID, EventCertificateIssued, map[string]interface{}{
			"courseId":    courseID,
			"certificate": next.Certificates[courseID],
		})
	}
	return next
}
