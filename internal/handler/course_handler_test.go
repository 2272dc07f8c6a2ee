package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/academy-gateway/internal/middleware"
	"github.com/noah-isme/academy-gateway/internal/models"
	"github.com/noah-isme/academy-gateway/internal/service"
)

type responseEnvelope struct {
	Data  map[string]interface{} `json:"data"`
	Meta  map[string]interface{} `json:"meta"`
	Error map[string]interface{} `json:"error"`
}

type listEnvelope struct {
	Data []map[string]interface{} `json:"data"`
	Meta map[string]interface{}   `json:"meta"`
}

func newTestContext(method, target string) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(method, target, nil)
	c.Set(middleware.ContextSessionKey, service.Session{ID: "s1"})
	return c, rec
}

type fakeCourseStore struct {
	state      service.AppState
	courses    []models.Course
	lastTab    string
	completion *service.CompletionResult
	err        error
}

func (f *fakeCourseStore) Snapshot(string) (service.AppState, error) { return f.state, nil }

func (f *fakeCourseStore) Courses(string) ([]models.Course, error) { return f.courses, f.err }

func (f *fakeCourseStore) Course(_, id string) (models.Course, error) {
	for _, course := range f.courses {
		if course.ID == id {
			return course, nil
		}
	}
	return models.Course{}, f.err
}

func (f *fakeCourseStore) MyCourses(_, tab string) ([]models.Course, error) {
	f.lastTab = tab
	return f.courses, f.err
}

func (f *fakeCourseStore) MarkLessonComplete(context.Context, string, string, string) (*service.CompletionResult, error) {
	return f.completion, f.err
}

func TestCourseHandlerListCarriesCacheMeta(t *testing.T) {
	store := &fakeCourseStore{
		state:   service.AppState{CatalogHit: true, RefreshedAt: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)},
		courses: []models.Course{{ID: "c1", Title: "Pães"}},
	}
	handler := NewCourseHandler(store)

	c, rec := newTestContext(http.MethodGet, "/courses")
	handler.List(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	var envelope listEnvelope
	_ = json.Unmarshal(rec.Body.Bytes(), &envelope)
	assert.Len(t, envelope.Data, 1)
	assert.Equal(t, true, envelope.Meta["cache_hit"])
	assert.Equal(t, "2024-05-01T09:00:00Z", envelope.Meta["refreshed_at"])
}

func TestCourseHandlerMyCoursesTab(t *testing.T) {
	store := &fakeCourseStore{}
	handler := NewCourseHandler(store)

	c, rec := newTestContext(http.MethodGet, "/my-courses")
	handler.MyCourses(c)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, service.TabInProgress, store.lastTab)

	c, rec = newTestContext(http.MethodGet, "/my-courses?tab=archived")
	handler.MyCourses(c)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCourseHandlerCompleteLesson(t *testing.T) {
	store := &fakeCourseStore{}
	handler := NewCourseHandler(store)

	c, rec := newTestContext(http.MethodPost, "/courses/c1/lessons/a1/complete")
	handler.CompleteLesson(c)
	assert.Equal(t, http.StatusNoContent, c.Writer.Status())

	store.completion = &service.CompletionResult{Course: models.Course{ID: "c1"}, JustCompleted: true}
	c, rec = newTestContext(http.MethodPost, "/courses/c1/lessons/a1/complete")
	handler.CompleteLesson(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	var envelope responseEnvelope
	_ = json.Unmarshal(rec.Body.Bytes(), &envelope)
	assert.Equal(t, true, envelope.Data["justCompleted"])
}

func TestCourseHandlerRequiresSession(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewCourseHandler(&fakeCourseStore{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/courses", nil)
	handler.List(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
