package academy

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/academy-gateway/internal/models"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *[]string) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	var ops []string
	client := NewClient(srv.URL, WithTimeout(time.Second), WithObserver(func(op string, status int, _ time.Duration) {
		ops = append(ops, op)
	}))
	return client, &ops
}

func TestAuthenticateSendsSenha(t *testing.T) {
	client, ops := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/login", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "ana@x.com", body["email"])
		assert.Equal(t, "s3cret", body["senha"])
		_, _ = w.Write([]byte(`{"token":"tok"}`))
	})

	token, err := client.Authenticate(context.Background(), "ana@x.com", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, "tok", token)
	assert.Equal(t, []string{"authenticate"}, *ops)
}

func TestAuthenticateSurfacesServerMessage(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"Senha incorreta"}`))
	})

	_, err := client.Authenticate(context.Background(), "ana@x.com", "bad")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Equal(t, "Senha incorreta", apiErr.Message)
	assert.True(t, IsStatus(err, http.StatusUnauthorized))
}

func TestFetchProfileMapsBackendFields(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"id":42,"nome":"Ana","sobrenome":"Souza","email":"ana@x.com","id_permissao":1,"foto_perfil_url":"uploads/ana.png"}`))
	})

	user, err := client.FetchProfile(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, "42", user.ID)
	assert.Equal(t, "Ana Souza", user.Name)
	assert.Equal(t, models.RoleAdmin, user.Role)
	assert.Equal(t, client.BaseURL()+"/uploads/ana.png", user.AvatarURL)
}

func TestFetchProfileAffiliateWithoutAvatar(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":"7","nome":"Bia","sobrenome":"","email":"bia@x.com","id_permissao":6}`))
	})

	user, err := client.FetchProfile(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAffiliate, user.Role)
	assert.Equal(t, "Bia", user.Name)
	assert.Empty(t, user.AvatarURL)
}

func TestUpdateProgressReturnsAuthoritativeRecord(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/academy/users/ana@x.com/progress", r.URL.Path)
		_, _ = w.Write([]byte(`{"progress":{"c1":["l1","l2"]}}`))
	})

	record, err := client.UpdateProgress(context.Background(), "tok", "ana@x.com", "c1", "l2", true)
	require.NoError(t, err)
	assert.True(t, record.Completed("c1").Has("l2"))
	assert.Len(t, record.Completed("c1"), 2)
}

func TestCreateCourseSendsOneMultipartRequest(t *testing.T) {
	var calls int
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Contains(t, r.MultipartForm.Value["course"][0], `"title":"Pães"`)
		assert.Contains(t, r.MultipartForm.Value["removals"][0], `"kind":"cover"`)
		files := r.MultipartForm.File["video:l1"]
		require.Len(t, files, 1)
		assert.Equal(t, "aula.mp4", files[0].Filename)
		_, _ = w.Write([]byte(`{"id":"c9","title":"Pães","status":"draft"}`))
	})

	course, err := client.CreateCourse(context.Background(), "tok", CourseUpload{
		Course:   models.Course{Title: "Pães", Status: models.StatusDraft},
		Removals: []RemovalIntent{{Kind: "cover", URL: "https://cdn/x.png"}},
		Files: []UploadFile{{
			Field:    "video:l1",
			FileName: "aula.mp4",
			Open: func() (io.ReadCloser, error) {
				return io.NopCloser(strings.NewReader("bytes")), nil
			},
		}},
	})
	require.NoError(t, err)
	assert.Equal(t, "c9", course.ID)
	assert.Equal(t, 1, calls)
}

func TestValidateCertificateNotFound(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"Certificado inválido"}`))
	})

	_, err := client.ValidateCertificate(context.Background(), "NOPE")
	assert.True(t, IsStatus(err, http.StatusNotFound))
}

func TestGetSignatureMissingIsNil(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	sig, err := client.GetSignature(context.Background(), "tok", "ana@x.com")
	require.NoError(t, err)
	assert.Nil(t, sig)
}

func TestAskQuestionPostsTexto(t *testing.T) {
	client, ops := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/academy/courses/c1/lessons/a1/questions", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Posso usar fermento seco?", body["texto"])
		_, _ = w.Write([]byte(`{"id":"q1","courseId":"c1","lessonId":"a1","authorName":"Ana Souza","text":"Posso usar fermento seco?"}`))
	})

	question, err := client.AskQuestion(context.Background(), "tok", "c1", "a1", "Posso usar fermento seco?")
	require.NoError(t, err)
	assert.Equal(t, "q1", question.ID)
	assert.Equal(t, []string{"ask_question"}, *ops)
}

func TestFetchQuestionsEmptyIsNotNil(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`null`))
	})

	questions, err := client.FetchQuestions(context.Background(), "tok", "c1", "a1")
	require.NoError(t, err)
	assert.NotNil(t, questions)
	assert.Empty(t, questions)
}

func TestUpdateProfileSplitsName(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/api/users/me", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Ana", body["nome"])
		assert.Equal(t, "Maria Souza", body["sobrenome"])
		_, _ = w.Write([]byte(`{"id":"7","nome":"Ana","sobrenome":"Maria Souza","email":"ana@x.com","id_permissao":6}`))
	})

	user, err := client.UpdateProfile(context.Background(), "tok", "Ana", "Maria Souza", "")
	require.NoError(t, err)
	assert.Equal(t, "Ana Maria Souza", user.Name)
}

func TestUploadAvatarSendsPhotoPart(t *testing.T) {
	client, ops := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		files := r.MultipartForm.File["foto_perfil"]
		require.Len(t, files, 1)
		assert.Equal(t, "me.png", files[0].Filename)
		assert.Equal(t, "image/png", files[0].Header.Get("Content-Type"))
		_, _ = w.Write([]byte(`{"id":"7","nome":"Ana","email":"ana@x.com","foto_perfil_url":"uploads/me.png"}`))
	})

	user, err := client.UploadAvatar(context.Background(), "tok", UploadFile{
		Field:       "foto_perfil",
		FileName:    "me.png",
		ContentType: "image/png",
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(strings.NewReader("png")), nil
		},
	})
	require.NoError(t, err)
	assert.Equal(t, client.BaseURL()+"/uploads/me.png", user.AvatarURL)
	assert.Equal(t, []string{"upload_avatar"}, *ops)
}
