package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/academy-gateway/internal/models"
	"github.com/noah-isme/academy-gateway/pkg/academy"
	appErrors "github.com/noah-isme/academy-gateway/pkg/errors"
)

// fakeAcademy is an in-memory backend. progress and certificates hold server-side truth.
type fakeAcademy struct {
	mu sync.Mutex

	token      string
	authErr    error
	profile    *models.User
	profileErr error

	courses    []models.Course
	coursesErr error
	lists      models.UserLists

	progress     map[string]map[string]bool
	progressErr  error
	updateErr    error
	certificates models.CertificateRecord
	certsErr     error
	issueErr     error
	issueCalls   int

	createCalls []academy.CourseUpload
	createFiles map[string][]byte
	createErr   error
	deleted     []string
	deleteErr   error

	notifications    []models.Notification
	notificationsErr error
	signature        *models.Signature
	savedSignature   *models.Signature
	affiliates       []models.Affiliate
	validations      map[string]*models.CertificateDetails

	questions    []models.LessonQuestion
	questionErr  error
	profileEdits []string
	avatars      map[string][]byte

	requests int
}

func newFakeAcademy() *fakeAcademy {
	return &fakeAcademy{
		token:        "upstream-token",
		profile:      &models.User{ID: "u1", Name: "Ana Souza", Email: "ana@x.com", Role: models.RoleAffiliate},
		progress:     map[string]map[string]bool{},
		certificates: models.CertificateRecord{},
		validations:  map[string]*models.CertificateDetails{},
		avatars:      map[string][]byte{},
	}
}

func (f *fakeAcademy) hit() {
	f.requests++
}

func (f *fakeAcademy) Requests() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests
}

func (f *fakeAcademy) Authenticate(ctx context.Context, email, password string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hit()
	if f.authErr != nil {
		return "", f.authErr
	}
	return f.token, nil
}

func (f *fakeAcademy) FetchProfile(ctx context.Context, token string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hit()
	if f.profileErr != nil {
		return nil, f.profileErr
	}
	user := *f.profile
	return &user, nil
}

func (f *fakeAcademy) FetchCourses(ctx context.Context, token string) ([]models.Course, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hit()
	if f.coursesErr != nil {
		return nil, f.coursesErr
	}
	return append([]models.Course(nil), f.courses...), nil
}

func (f *fakeAcademy) FetchUserLists(ctx context.Context, token, email string) (models.UserLists, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hit()
	return f.lists, nil
}

func (f *fakeAcademy) record() models.CompletionRecord {
	out := models.CompletionRecord{}
	for courseID, lessons := range f.progress {
		set := models.LessonSet{}
		for id := range lessons {
			set[id] = struct{}{}
		}
		out[courseID] = set
	}
	return out
}

func (f *fakeAcademy) FetchUserProgress(ctx context.Context, token, email string) (models.CompletionRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hit()
	if f.progressErr != nil {
		return nil, f.progressErr
	}
	return f.record(), nil
}

func (f *fakeAcademy) UpdateProgress(ctx context.Context, token, email, courseID, lessonID string, completed bool) (models.CompletionRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hit()
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	if f.progress[courseID] == nil {
		f.progress[courseID] = map[string]bool{}
	}
	if completed {
		f.progress[courseID][lessonID] = true
	} else {
		delete(f.progress[courseID], lessonID)
	}
	return f.record(), nil
}

func (f *fakeAcademy) FetchUserCertificates(ctx context.Context, token, email string) (models.CertificateRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hit()
	if f.certsErr != nil {
		return nil, f.certsErr
	}
	return models.CertificateRecord{}.Merge(f.certificates), nil
}

func (f *fakeAcademy) IssueCertificate(ctx context.Context, token, email, courseID string, completedAt time.Time) (models.CertificateRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hit()
	f.issueCalls++
	if f.issueErr != nil {
		return nil, f.issueErr
	}
	if _, ok := f.certificates[courseID]; !ok {
		f.certificates[courseID] = models.Certificate{Code: "CERT-" + courseID, CompletedAt: completedAt}
	}
	return models.CertificateRecord{}.Merge(f.certificates), nil
}

func (f *fakeAcademy) IssueCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.issueCalls
}

func (f *fakeAcademy) CreateCourse(ctx context.Context, token string, upload academy.CourseUpload) (*models.Course, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hit()
	f.createCalls = append(f.createCalls, upload)
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.createFiles = map[string][]byte{}
	for _, file := range upload.Files {
		rc, err := file.Open()
		if err != nil {
			return nil, err
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, err
		}
		f.createFiles[file.Field] = data
	}
	course := upload.Course
	if course.ID == "" {
		course.ID = "course-new"
	}
	return &course, nil
}

func (f *fakeAcademy) DeleteCourse(ctx context.Context, token, courseID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hit()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, courseID)
	return nil
}

func (f *fakeAcademy) ValidateCertificate(ctx context.Context, code string) (*models.CertificateDetails, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hit()
	details, ok := f.validations[code]
	if !ok {
		return nil, &academy.APIError{Status: 404, Message: "Certificado não encontrado"}
	}
	return details, nil
}

func (f *fakeAcademy) FetchAffiliates(ctx context.Context, token string) ([]models.Affiliate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hit()
	return f.affiliates, nil
}

func (f *fakeAcademy) FetchNotifications(ctx context.Context, token, email string) ([]models.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hit()
	if f.notificationsErr != nil {
		return nil, f.notificationsErr
	}
	return append([]models.Notification(nil), f.notifications...), nil
}

func (f *fakeAcademy) GetSignature(ctx context.Context, token, email string) (*models.Signature, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hit()
	return f.signature, nil
}

func (f *fakeAcademy) SetSignature(ctx context.Context, token, email string, sig models.Signature) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hit()
	f.savedSignature = &sig
	return nil
}

// memoryCache is an in-memory stand-in for the Redis cache repository.
type memoryCache struct {
	mu    sync.Mutex
	items map[string][]byte
}

func newMemoryCache() *memoryCache {
	return &memoryCache{items: map[string][]byte{}}
}

func (m *memoryCache) Get(ctx context.Context, key string, dest interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.items[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = raw
	return nil
}

func (m *memoryCache) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, key)
	return nil
}

func (m *memoryCache) DeleteByPattern(ctx context.Context, pattern string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = map[string][]byte{}
	return nil
}

func (m *memoryCache) Has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.items[key]
	return ok
}

// scenarioCourse has module A with two lessons and module B with one.
func (f *fakeAcademy) FetchQuestions(ctx context.Context, token, courseID, lessonID string) ([]models.LessonQuestion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hit()
	if f.questionErr != nil {
		return nil, f.questionErr
	}
	out := []models.LessonQuestion{}
	for _, q := range f.questions {
		if q.CourseID == courseID && q.LessonID == lessonID {
			out = append(out, q)
		}
	}
	return out, nil
}

func (f *fakeAcademy) AskQuestion(ctx context.Context, token, courseID, lessonID, text string) (*models.LessonQuestion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hit()
	if f.questionErr != nil {
		return nil, f.questionErr
	}
	q := models.LessonQuestion{
		ID:         fmt.Sprintf("q%d", len(f.questions)+1),
		CourseID:   courseID,
		LessonID:   lessonID,
		AuthorName: f.profile.Name,
		Text:       text,
		CreatedAt:  time.Now().UTC(),
	}
	f.questions = append(f.questions, q)
	return &q, nil
}

func (f *fakeAcademy) UpdateProfile(ctx context.Context, token, firstName, lastName, bio string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hit()
	if f.profileErr != nil {
		return nil, f.profileErr
	}
	f.profileEdits = append(f.profileEdits, firstName+"|"+lastName+"|"+bio)
	user := *f.profile
	user.Name = strings.TrimSpace(firstName + " " + lastName)
	f.profile = &user
	return &user, nil
}

func (f *fakeAcademy) UploadAvatar(ctx context.Context, token string, file academy.UploadFile) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hit()
	if f.profileErr != nil {
		return nil, f.profileErr
	}
	src, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer src.Close()
	data, err := io.ReadAll(src)
	if err != nil {
		return nil, err
	}
	f.avatars[file.FileName] = data
	user := *f.profile
	user.AvatarURL = "https://backend.test/uploads/" + file.FileName
	f.profile = &user
	return &user, nil
}

func scenarioCourse() models.Course {
	return models.Course{
		ID:           "c1",
		Title:        "Receitas de Bolo",
		Status:       models.StatusPublished,
		CreatorEmail: "chef@x.com",
		Modules: []models.Module{
			{ID: "mA", Title: "A", Lessons: []models.Lesson{{ID: "a1", Duration: "10:00"}, {ID: "a2", Duration: "05:30"}}},
			{ID: "mB", Title: "B", Lessons: []models.Lesson{{ID: "b1", Duration: "1:00:00"}}},
		},
	}
}

func newTestStore(api *fakeAcademy) *AppStore {
	catalog := NewCatalogService(api, nil, 0, nil)
	issuer := NewCertificateIssuer(api, nil, nil)
	return NewAppStore(api, catalog, issuer, NewEventHub(16, nil), nil, nil)
}

func attachSession(t *testing.T, store *AppStore, id string, user models.User) {
	t.Helper()
	store.Attach(Session{ID: id, Token: "upstream-token", Scope: models.ScopeSession, User: user})
	_, err := store.Refresh(context.Background(), id)
	require.NoError(t, err)
}

var (
	student    = models.User{ID: "u1", Name: "Ana Souza", Email: "ana@x.com", Role: models.RoleAffiliate}
	instructor = models.User{ID: "u2", Name: "Chef Rui", Email: "chef@x.com", Role: models.RoleAdmin}
)
