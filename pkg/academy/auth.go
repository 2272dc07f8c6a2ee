package academy

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/noah-isme/academy-gateway/internal/models"
)

const adminPermissionID = 1

type loginRequest struct {
	Email string `json:"email"`
	Senha string `json:"senha"`
}

type profilePayload struct {
	ID            json.Number `json:"id"`
	Nome          string      `json:"nome"`
	Sobrenome     string      `json:"sobrenome"`
	Email         string      `json:"email"`
	IDPermissao   int         `json:"id_permissao"`
	FotoPerfilURL string      `json:"foto_perfil_url"`
}

// Authenticate exchanges credentials for a backend bearer token.
func (c *Client) Authenticate(ctx context.Context, email, password string) (string, error) {
	var out struct {
		Token string `json:"token"`
	}
	if err := c.doJSON(ctx, "authenticate", http.MethodPost, "/login", "", loginRequest{Email: email, Senha: password}, &out); err != nil {
		return "", err
	}
	if out.Token == "" {
		return "", fmt.Errorf("authenticate: empty token in response")
	}
	return out.Token, nil
}

// FetchProfile returns the user owning token.
func (c *Client) FetchProfile(ctx context.Context, token string) (*models.User, error) {
	var payload profilePayload
	if err := c.doJSON(ctx, "fetch_profile", http.MethodGet, "/api/users/me", token, nil, &payload); err != nil {
		return nil, err
	}
	return c.profileToUser(payload), nil
}

type profileUpdateRequest struct {
	Nome      string `json:"nome"`
	Sobrenome string `json:"sobrenome"`
	Bio       string `json:"bio"`
}

// UpdateProfile saves the editable profile fields and returns the updated user.
func (c *Client) UpdateProfile(ctx context.Context, token, firstName, lastName, bio string) (*models.User, error) {
	in := profileUpdateRequest{Nome: firstName, Sobrenome: lastName, Bio: bio}
	var payload profilePayload
	if err := c.doJSON(ctx, "update_profile", http.MethodPut, "/api/users/me", token, in, &payload); err != nil {
		return nil, err
	}
	return c.profileToUser(payload), nil
}

// UploadAvatar replaces the profile photo and returns the updated user.
func (c *Client) UploadAvatar(ctx context.Context, token string, file UploadFile) (*models.User, error) {
	pr, pw := io.Pipe()
	writer := multipart.NewWriter(pw)

	go func() {
		err := writeFilePart(writer, file)
		if err == nil {
			err = writer.Close()
		}
		pw.CloseWithError(err)
	}()

	var payload profilePayload
	err := c.do(ctx, "upload_avatar", http.MethodPost, "/api/users/me/avatar", token, writer.FormDataContentType(), pr, &payload)
	_ = pr.Close()
	if err != nil {
		return nil, err
	}
	return c.profileToUser(payload), nil
}

func (c *Client) profileToUser(p profilePayload) *models.User {
	role := models.RoleAffiliate
	if p.IDPermissao == adminPermissionID {
		role = models.RoleAdmin
	}
	user := &models.User{
		ID:    p.ID.String(),
		Name:  strings.TrimSpace(p.Nome + " " + p.Sobrenome),
		Email: p.Email,
		Role:  role,
	}
	if p.FotoPerfilURL != "" {
		user.AvatarURL = c.baseURL + "/" + strings.TrimLeft(p.FotoPerfilURL, "/")
	}
	return user
}
