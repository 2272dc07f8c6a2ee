package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/academy-gateway/internal/models"
	appErrors "github.com/noah-isme/academy-gateway/pkg/errors"
)

type fakeInstructor struct {
	csv   []byte
	saved models.Signature
	err   error
}

func (f *fakeInstructor) Courses(string) ([]models.Course, error) { return nil, f.err }

func (f *fakeInstructor) DeleteCourse(context.Context, string, string) error { return f.err }

func (f *fakeInstructor) Affiliates(context.Context, string) ([]models.Affiliate, error) {
	return []models.Affiliate{{ID: "1", Name: "Bia"}}, f.err
}

func (f *fakeInstructor) AffiliatesCSV(context.Context, string) ([]byte, error) { return f.csv, f.err }

func (f *fakeInstructor) Signature(context.Context, string) (*models.Signature, error) {
	return &models.Signature{Text: "Chef", Font: models.FontGreatVibes}, f.err
}

func (f *fakeInstructor) SaveSignature(_ context.Context, _ string, sig models.Signature) (*models.Signature, error) {
	f.saved = sig
	return &sig, f.err
}

func TestInstructorHandlerAffiliatesCSV(t *testing.T) {
	handler := NewInstructorHandler(&fakeInstructor{csv: []byte("Nome;Email\n")})

	c, rec := newTestContext(http.MethodGet, "/instructor/affiliates?format=csv")
	handler.Affiliates(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Disposition"), `attachment; filename="afiliados-`))
	assert.Equal(t, "Nome;Email\n", rec.Body.String())
}

func TestInstructorHandlerAffiliatesJSON(t *testing.T) {
	handler := NewInstructorHandler(&fakeInstructor{})

	c, rec := newTestContext(http.MethodGet, "/instructor/affiliates")
	handler.Affiliates(c)

	require.Equal(t, http.StatusOK, rec.Code)
	var envelope listEnvelope
	_ = json.Unmarshal(rec.Body.Bytes(), &envelope)
	require.Len(t, envelope.Data, 1)
	assert.Equal(t, "Bia", envelope.Data[0]["name"])
}

func TestInstructorHandlerSaveSignature(t *testing.T) {
	svc := &fakeInstructor{}
	handler := NewInstructorHandler(svc)

	c, rec := newTestContext(http.MethodPut, "/instructor/signature")
	c.Request.Body = ioBody(`{"text":"Chef Rui","font":"allura"}`)
	c.Request.Header.Set("Content-Type", "application/json")
	handler.SaveSignature(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.Signature{Text: "Chef Rui", Font: models.FontAllura}, svc.saved)
}

func TestInstructorHandlerForbidden(t *testing.T) {
	handler := NewInstructorHandler(&fakeInstructor{err: appErrors.Clone(appErrors.ErrForbidden, "admin role required")})

	c, rec := newTestContext(http.MethodDelete, "/instructor/courses/c9")
	handler.DeleteCourse(c)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	var envelope responseEnvelope
	_ = json.Unmarshal(rec.Body.Bytes(), &envelope)
	assert.Equal(t, "admin role required", envelope.Error["message"])
}
