package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/academy-gateway/internal/models"
	appErrors "github.com/noah-isme/academy-gateway/pkg/errors"
)

func newInstructorFixture(t *testing.T) (*fakeAcademy, *AppStore, *InstructorService) {
	t.Helper()
	api := newFakeAcademy()
	foreign := models.Course{ID: "c9", Title: "Outro", Status: models.StatusPublished, CreatorEmail: "outro@x.com"}
	draft := models.Course{ID: "c2", Title: "Rascunho", Status: models.StatusDraft, CreatorEmail: "chef@x.com",
		Modules: []models.Module{{ID: "m", Lessons: []models.Lesson{{ID: "l"}}}}}
	api.courses = []models.Course{scenarioCourse(), draft, foreign}
	store := newTestStore(api)
	attachSession(t, store, "s1", instructor)
	attachSession(t, store, "s2", student)
	return api, store, NewInstructorService(api, store, store.events, nil, nil, nil)
}

func TestInstructorSummaryCountsOwnCourses(t *testing.T) {
	_, _, svc := newInstructorFixture(t)

	summary, err := svc.Summary("s1")
	require.NoError(t, err)
	assert.Equal(t, &InstructorSummary{TotalCourses: 2, Published: 1, Drafts: 1, TotalLessons: 4}, summary)
}

func TestInstructorToolsRequireAdmin(t *testing.T) {
	_, _, svc := newInstructorFixture(t)

	_, err := svc.Courses("s2")
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))

	_, err = svc.Courses("missing")
	assert.True(t, errors.Is(err, appErrors.ErrUnauthorized))
}

func TestDeleteCourse(t *testing.T) {
	api, _, svc := newInstructorFixture(t)
	ctx := context.Background()

	err := svc.DeleteCourse(ctx, "s1", "c9")
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))
	assert.Empty(t, api.deleted)

	require.NoError(t, svc.DeleteCourse(ctx, "s1", "c2"))
	assert.Equal(t, []string{"c2"}, api.deleted)
}

func TestAffiliatesCSV(t *testing.T) {
	api, _, svc := newInstructorFixture(t)
	api.affiliates = []models.Affiliate{
		{ID: "1", Name: "Bia", Email: "bia@x.com", TotalSales: 12, CommissionRate: 30, Status: models.AffiliateActive, JoinDate: "2024-01-10"},
	}

	out, err := svc.AffiliatesCSV(context.Background(), "s1")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(strings.TrimPrefix(string(out), "\ufeff")), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "Nome;Email;Vendas;Comissão;Status;Desde", lines[0])
	assert.Equal(t, "Bia;bia@x.com;12;30%;active;2024-01-10", lines[1])
}

func TestSignatureDefaultsAndValidation(t *testing.T) {
	api, _, svc := newInstructorFixture(t)
	ctx := context.Background()

	sig, err := svc.Signature(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, models.FontGreatVibes, sig.Font)

	_, err = svc.SaveSignature(ctx, "s1", models.Signature{Text: "   "})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
	assert.Nil(t, api.savedSignature)

	saved, err := svc.SaveSignature(ctx, "s1", models.Signature{Text: " Chef Rui ", Font: models.FontSacramento})
	require.NoError(t, err)
	assert.Equal(t, "Chef Rui", saved.Text)
	assert.Equal(t, "Chef Rui", api.savedSignature.Text)
}
