package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/academy-gateway/internal/models"
	"github.com/noah-isme/academy-gateway/internal/service"
)

type fakeProfiles struct {
	update     models.ProfileUpdate
	avatarName string
	avatar     []byte
}

func (f *fakeProfiles) Update(_ context.Context, _ string, req models.ProfileUpdate) (*models.User, error) {
	f.update = req
	return &models.User{ID: "u1", Name: req.Name, Email: "ana@x.com"}, nil
}

func (f *fakeProfiles) UpdateAvatar(_ context.Context, _ string, upload service.FileUpload) (*models.User, error) {
	f.avatarName = upload.Name
	f.avatar, _ = io.ReadAll(upload.Reader)
	return &models.User{ID: "u1", Email: "ana@x.com", AvatarURL: "https://backend.test/uploads/" + upload.Name}, nil
}

func TestProfileHandlerUpdate(t *testing.T) {
	svc := &fakeProfiles{}
	handler := NewProfileHandler(svc)

	c, rec := newTestContext(http.MethodPut, "/profile")
	c.Request.Body = ioBody(`{"name":"Ana Maria","bio":"Confeiteira"}`)
	c.Request.Header.Set("Content-Type", "application/json")
	handler.Update(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.ProfileUpdate{Name: "Ana Maria", Bio: "Confeiteira"}, svc.update)
	var body responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Ana Maria", body.Data["name"])
}

func TestProfileHandlerAvatar(t *testing.T) {
	svc := &fakeProfiles{}
	handler := NewProfileHandler(svc)

	body := new(bytes.Buffer)
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", "../../me.png")
	require.NoError(t, err)
	_, _ = part.Write([]byte("png-bytes"))
	require.NoError(t, writer.Close())

	c, rec := newTestContext(http.MethodPost, "/profile/avatar")
	c.Request.Body = ioBody(body.String())
	c.Request.ContentLength = int64(body.Len())
	c.Request.Header.Set("Content-Type", writer.FormDataContentType())
	handler.Avatar(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "me.png", svc.avatarName)
	assert.Equal(t, "png-bytes", string(svc.avatar))
}

func TestProfileHandlerAvatarRequiresFile(t *testing.T) {
	handler := NewProfileHandler(&fakeProfiles{})

	c, rec := newTestContext(http.MethodPost, "/profile/avatar")
	handler.Avatar(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
