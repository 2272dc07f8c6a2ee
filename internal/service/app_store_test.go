package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/academy-gateway/internal/models"
	appErrors "github.com/noah-isme/academy-gateway/pkg/errors"
)

func TestMarkLessonCompleteScenario(t *testing.T) {
	api := newFakeAcademy()
	api.courses = []models.Course{scenarioCourse()}
	store := newTestStore(api)
	attachSession(t, store, "s1", student)
	ctx := context.Background()

	res, err := store.MarkLessonComplete(ctx, "s1", "c1", "a1")
	require.NoError(t, err)
	assert.Equal(t, 33, res.Course.Progress)
	assert.Nil(t, res.Certificate)

	res, err = store.MarkLessonComplete(ctx, "s1", "c1", "a2")
	require.NoError(t, err)
	assert.Equal(t, 67, res.Course.Progress)
	assert.Equal(t, "b1", res.NextLesson.ID)

	res, err = store.MarkLessonComplete(ctx, "s1", "c1", "b1")
	require.NoError(t, err)
	assert.Equal(t, 100, res.Course.Progress)
	assert.True(t, res.JustCompleted)
	require.NotNil(t, res.Certificate)
	assert.Equal(t, "CERT-c1", res.Certificate.Code)
	assert.Equal(t, 1, api.IssueCalls())

	// a later sweep and refresh must not issue again
	assert.Equal(t, 0, store.SweepCertificates(ctx))
	_, err = store.Refresh(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 1, api.IssueCalls())

	state, err := store.Snapshot("s1")
	require.NoError(t, err)
	assert.Len(t, state.Certificates, 1)
}

func TestMarkLessonCompleteTwiceKeepsCount(t *testing.T) {
	api := newFakeAcademy()
	api.courses = []models.Course{scenarioCourse()}
	store := newTestStore(api)
	attachSession(t, store, "s1", student)
	ctx := context.Background()

	first, err := store.MarkLessonComplete(ctx, "s1", "c1", "a1")
	require.NoError(t, err)
	second, err := store.MarkLessonComplete(ctx, "s1", "c1", "a1")
	require.NoError(t, err)

	assert.Equal(t, first.Course.Progress, second.Course.Progress)
	state, _ := store.Snapshot("s1")
	assert.Len(t, state.Progress.Completed("c1"), 1)
}

func TestMarkLessonCompleteWithoutUserIsNoop(t *testing.T) {
	api := newFakeAcademy()
	store := newTestStore(api)

	res, err := store.MarkLessonComplete(context.Background(), "missing", "c1", "a1")
	require.NoError(t, err)
	assert.Nil(t, res)
	assert.Equal(t, 0, api.Requests())

	store.Attach(Session{ID: "anon"})
	res, err = store.MarkLessonComplete(context.Background(), "anon", "c1", "a1")
	require.NoError(t, err)
	assert.Nil(t, res)
	assert.Equal(t, 0, api.Requests())
}

func TestMarkLessonCompleteSurfacesUpstreamFailure(t *testing.T) {
	api := newFakeAcademy()
	api.courses = []models.Course{scenarioCourse()}
	store := newTestStore(api)
	attachSession(t, store, "s1", student)
	api.updateErr = errors.New("connection reset")

	_, err := store.MarkLessonComplete(context.Background(), "s1", "c1", "a1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrUpstream))

	state, _ := store.Snapshot("s1")
	assert.Empty(t, state.Progress.Completed("c1"))
}

func TestMarkLessonCompleteUnknownLesson(t *testing.T) {
	api := newFakeAcademy()
	api.courses = []models.Course{scenarioCourse()}
	store := newTestStore(api)
	attachSession(t, store, "s1", student)

	_, err := store.MarkLessonComplete(context.Background(), "s1", "c1", "zz")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestIssuanceFailureIsRetriedOnNextPass(t *testing.T) {
	api := newFakeAcademy()
	api.courses = []models.Course{scenarioCourse()}
	api.progress["c1"] = map[string]bool{"a1": true, "a2": true, "b1": true}
	api.issueErr = errors.New("backend down")
	store := newTestStore(api)
	attachSession(t, store, "s1", student)

	state, _ := store.Snapshot("s1")
	assert.False(t, state.Certificates.Has("c1"))
	assert.Equal(t, 1, api.IssueCalls())

	api.mu.Lock()
	api.issueErr = nil
	api.mu.Unlock()

	assert.Equal(t, 1, store.SweepCertificates(context.Background()))
	state, _ = store.Snapshot("s1")
	assert.True(t, state.Certificates.Has("c1"))
	assert.Equal(t, 2, api.IssueCalls())
}

func TestConcurrentTriggersIssueOnce(t *testing.T) {
	api := newFakeAcademy()
	api.courses = []models.Course{scenarioCourse()}
	api.progress["c1"] = map[string]bool{"a1": true, "a2": true}
	store := newTestStore(api)
	attachSession(t, store, "s1", student)
	ctx := context.Background()

	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		_, _ = store.MarkLessonComplete(ctx, "s1", "c1", "b1")
	}()
	go func() {
		defer wg.Done()
		store.SweepCertificates(ctx)
	}()
	go func() {
		defer wg.Done()
		_, _ = store.MarkLessonComplete(ctx, "s1", "c1", "b1")
	}()
	wg.Wait()
	store.SweepCertificates(ctx)

	assert.Equal(t, 1, api.IssueCalls())
}

func TestRefreshKeepsStaleSliceOnFailure(t *testing.T) {
	api := newFakeAcademy()
	api.courses = []models.Course{scenarioCourse()}
	api.progress["c1"] = map[string]bool{"a1": true}
	store := newTestStore(api)
	attachSession(t, store, "s1", student)

	api.mu.Lock()
	api.coursesErr = errors.New("timeout")
	api.progressErr = errors.New("timeout")
	api.mu.Unlock()

	state, err := store.Refresh(context.Background(), "s1")
	require.NoError(t, err)
	assert.Len(t, state.Courses, 1)
	assert.True(t, state.Progress.Completed("c1").Has("a1"))
}

func TestRefreshSkipsIssuanceUntilCertificatesLoad(t *testing.T) {
	api := newFakeAcademy()
	api.courses = []models.Course{scenarioCourse()}
	api.progress["c1"] = map[string]bool{"a1": true, "a2": true, "b1": true}
	api.certificates["c1"] = models.Certificate{Code: "CERT-c1"}
	api.certsErr = errors.New("timeout")
	store := newTestStore(api)
	attachSession(t, store, "s1", student)

	state, err := store.Refresh(context.Background(), "s1")
	require.NoError(t, err)
	assert.False(t, state.CertificatesLoaded)
	assert.Equal(t, 0, store.SweepCertificates(context.Background()))
	assert.Equal(t, 0, api.IssueCalls())

	api.mu.Lock()
	api.certsErr = nil
	api.mu.Unlock()

	state, err = store.Refresh(context.Background(), "s1")
	require.NoError(t, err)
	assert.True(t, state.CertificatesLoaded)
	assert.True(t, state.Certificates.Has("c1"))
	assert.Equal(t, 0, api.IssueCalls())
}

func TestStoreCoursesAppliesVisibility(t *testing.T) {
	api := newFakeAcademy()
	draft := models.Course{ID: "d1", Status: models.StatusDraft, CreatorEmail: "a@x.com"}
	api.courses = []models.Course{scenarioCourse(), draft}
	store := newTestStore(api)
	attachSession(t, store, "owner", models.User{Email: "a@x.com", Role: models.RoleAdmin})
	attachSession(t, store, "other", student)

	own, err := store.Courses("owner")
	require.NoError(t, err)
	assert.Len(t, own, 2)

	others, err := store.Courses("other")
	require.NoError(t, err)
	require.Len(t, others, 1)
	assert.Equal(t, "c1", others[0].ID)

	_, err = store.Course("other", "d1")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestProgressEventPublished(t *testing.T) {
	api := newFakeAcademy()
	api.courses = []models.Course{scenarioCourse()}
	store := newTestStore(api)
	attachSession(t, store, "s1", student)
	sub := store.events.Subscribe("s1")
	defer sub.Cancel()

	_, err := store.MarkLessonComplete(context.Background(), "s1", "c1", "a1")
	require.NoError(t, err)

	evt := <-sub.C
	assert.Equal(t, EventProgressUpdated, evt.Type)
}
