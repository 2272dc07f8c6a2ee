package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/academy-gateway/internal/models"
	appErrors "github.com/noah-isme/academy-gateway/pkg/errors"
	"github.com/noah-isme/academy-gateway/pkg/export"
	"github.com/noah-isme/academy-gateway/pkg/storage"
)

func newViewFixture(t *testing.T) (*fakeAcademy, *ViewService) {
	t.Helper()
	api := newFakeAcademy()
	api.courses = []models.Course{scenarioCourse()}
	api.progress["c1"] = map[string]bool{"a1": true}
	api.lists = models.UserLists{MyCourseIDs: []string{"c1"}}
	store := newTestStore(api)
	attachSession(t, store, "s1", student)
	attachSession(t, store, "s2", instructor)

	files, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	certs := NewCertificateService(store, api, export.NewCertificateRenderer(""), files, storage.NewSignedURLSigner("k", time.Hour), CertificateConfig{}, nil)
	views, err := NewViewService(store, certs, NewInstructorService(api, store, store.events, nil, nil, nil), nil)
	require.NoError(t, err)
	return api, views
}

func menuIDs(items []MenuItem) []string {
	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ID)
	}
	return ids
}

func TestMenuByRole(t *testing.T) {
	_, views := newViewFixture(t)

	affiliate := menuIDs(views.Menu(models.RoleAffiliate))
	assert.Equal(t, []string{"dashboard", "courses", "my-courses", "certificates", "settings"}, affiliate)

	admin := menuIDs(views.Menu(models.RoleAdmin))
	assert.Contains(t, admin, "create-course")
	assert.Contains(t, admin, "signature")
	assert.Len(t, admin, 10)
}

func TestRenderDashboard(t *testing.T) {
	_, views := newViewFixture(t)

	view, err := views.Render(context.Background(), "s1", "dashboard", ViewQuery{})
	require.NoError(t, err)

	data, ok := view.Data.(DashboardData)
	require.True(t, ok)
	require.Len(t, data.InProgress, 1)
	assert.Equal(t, 33, data.InProgress[0].Progress)
	require.NotNil(t, data.NextLesson)
	assert.Equal(t, "a2", data.NextLesson.ID)
	assert.Equal(t, 1, data.AvailableCourses)
}

func TestRenderRejectsUnknownAndForbiddenTabs(t *testing.T) {
	_, views := newViewFixture(t)

	_, err := views.Render(context.Background(), "s1", "nowhere", ViewQuery{})
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	_, err = views.Render(context.Background(), "s1", "affiliates", ViewQuery{})
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))

	view, err := views.Render(context.Background(), "s2", "instructor-courses", ViewQuery{})
	require.NoError(t, err)
	courses, ok := view.Data.([]models.Course)
	require.True(t, ok)
	assert.Len(t, courses, 1)
}
