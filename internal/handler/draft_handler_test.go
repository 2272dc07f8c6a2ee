package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/academy-gateway/internal/curriculum"
	"github.com/noah-isme/academy-gateway/internal/models"
	"github.com/noah-isme/academy-gateway/internal/service"
	appErrors "github.com/noah-isme/academy-gateway/pkg/errors"
)

type fakeEditor struct {
	outlineErr  error
	lastCommand curriculum.Command
	lastTarget  service.StageTarget
	lastUpload  []byte
	lastName    string
	discarded   string
}

func (f *fakeEditor) Open(context.Context, string, string) (*service.DraftView, error) {
	return &service.DraftView{Draft: curriculum.Draft{ID: "d1"}}, nil
}

func (f *fakeEditor) Get(context.Context, string, string) (*service.DraftView, error) {
	return &service.DraftView{Draft: curriculum.Draft{ID: "d1"}}, nil
}

func (f *fakeEditor) Dispatch(_ context.Context, _, _ string, cmd curriculum.Command) (*service.DraftView, error) {
	f.lastCommand = cmd
	return &service.DraftView{Draft: curriculum.Draft{ID: "d1"}}, nil
}

func (f *fakeEditor) Stage(_ context.Context, _, _ string, target service.StageTarget, upload service.FileUpload) (*service.DraftView, error) {
	f.lastTarget = target
	f.lastName = upload.Name
	buf := new(bytes.Buffer)
	_, _ = buf.ReadFrom(upload.Reader)
	f.lastUpload = buf.Bytes()
	return &service.DraftView{Draft: curriculum.Draft{ID: "d1"}}, nil
}

func (f *fakeEditor) Preview(string) (*os.File, error) { return nil, os.ErrNotExist }

func (f *fakeEditor) Save(context.Context, string, string) (*models.Course, error) {
	return &models.Course{ID: "c1"}, nil
}

func (f *fakeEditor) SuggestOutline(_ context.Context, _, draftID string) (*service.DraftView, error) {
	if f.outlineErr != nil {
		return nil, f.outlineErr
	}
	return &service.DraftView{Draft: curriculum.Draft{ID: draftID, Description: "Domine a arte do pão."}}, nil
}

func (f *fakeEditor) Discard(_ context.Context, _, draftID string) error {
	f.discarded = draftID
	return nil
}

func TestDraftHandlerCommand(t *testing.T) {
	editor := &fakeEditor{}
	handler := NewDraftHandler(editor, 1<<20)

	c, rec := newTestContext(http.MethodPost, "/drafts/d1/commands")
	c.Request.Body = ioBody(`{"type":"addModule","payload":{"moduleId":"m1","title":"Massas"}}`)
	c.Request.Header.Set("Content-Type", "application/json")
	handler.Command(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, curriculum.AddModule{ModuleID: "m1", Title: "Massas"}, editor.lastCommand)
}

func TestDraftHandlerRejectsUnknownCommand(t *testing.T) {
	editor := &fakeEditor{}
	handler := NewDraftHandler(editor, 1<<20)

	c, rec := newTestContext(http.MethodPost, "/drafts/d1/commands")
	c.Request.Body = ioBody(`{"type":"dropTable"}`)
	c.Request.Header.Set("Content-Type", "application/json")
	handler.Command(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Nil(t, editor.lastCommand)
}

func TestDraftHandlerUpload(t *testing.T) {
	editor := &fakeEditor{}
	handler := NewDraftHandler(editor, 1<<20)

	body := new(bytes.Buffer)
	writer := multipart.NewWriter(body)
	require.NoError(t, writer.WriteField("kind", "video"))
	require.NoError(t, writer.WriteField("moduleId", "m1"))
	require.NoError(t, writer.WriteField("lessonId", "l1"))
	part, err := writer.CreateFormFile("file", "../aula.mp4")
	require.NoError(t, err)
	_, _ = part.Write([]byte("video-bytes"))
	require.NoError(t, writer.Close())

	c, rec := newTestContext(http.MethodPost, "/drafts/d1/files")
	c.Request.Body = ioBody(body.String())
	c.Request.ContentLength = int64(body.Len())
	c.Request.Header.Set("Content-Type", writer.FormDataContentType())
	handler.Upload(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, service.StageTarget{Kind: curriculum.KindVideo, ModuleID: "m1", LessonID: "l1"}, editor.lastTarget)
	assert.Equal(t, "aula.mp4", editor.lastName)
	assert.Equal(t, "video-bytes", string(editor.lastUpload))
}

func TestDraftHandlerUploadRequiresFile(t *testing.T) {
	handler := NewDraftHandler(&fakeEditor{}, 1<<20)

	c, rec := newTestContext(http.MethodPost, "/drafts/d1/files")
	handler.Upload(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDraftHandlerDiscard(t *testing.T) {
	editor := &fakeEditor{}
	handler := NewDraftHandler(editor, 1<<20)

	c, _ := newTestContext(http.MethodDelete, "/drafts/d1")
	c.Params = append(c.Params, gin.Param{Key: "id", Value: "d1"})
	handler.Discard(c)

	assert.Equal(t, http.StatusNoContent, c.Writer.Status())
	assert.Equal(t, "d1", editor.discarded)
}

func TestDraftHandlerOutline(t *testing.T) {
	handler := NewDraftHandler(&fakeEditor{}, 1<<20)

	c, rec := newTestContext(http.MethodPost, "/drafts/d1/outline")
	c.Params = append(c.Params, gin.Param{Key: "id", Value: "d1"})
	handler.Outline(c)

	require.Equal(t, http.StatusOK, rec.Code)
	var body responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Domine a arte do pão.", body.Data["description"])
}

func TestDraftHandlerOutlineUnavailable(t *testing.T) {
	handler := NewDraftHandler(&fakeEditor{outlineErr: appErrors.Clone(appErrors.ErrUnavailable, "outline generation is not configured")}, 1<<20)

	c, rec := newTestContext(http.MethodPost, "/drafts/d1/outline")
	handler.Outline(c)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func ioBody(s string) io.ReadCloser {
	return io.NopCloser(strings.NewReader(s))
}
