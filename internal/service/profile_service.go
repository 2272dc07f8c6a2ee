package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/academy-gateway/internal/models"
	"github.com/noah-isme/academy-gateway/pkg/academy"
	appErrors "github.com/noah-isme/academy-gateway/pkg/errors"
)

// MaxAvatarSize is the largest accepted profile photo.
const MaxAvatarSize = 2 << 20

var avatarTypes = []string{"image/jpeg", "image/png"}

type profileAPI interface {
	UpdateProfile(ctx context.Context, token, firstName, lastName, bio string) (*models.User, error)
	UploadAvatar(ctx context.Context, token string, file academy.UploadFile) (*models.User, error)
}

// ProfileService edits the signed-in user's profile and keeps the session user in step.
type ProfileService struct {
	api       profileAPI
	store     *AppStore
	validator *validator.Validate
	logger    *zap.Logger
}

// NewProfileService constructs a ProfileService.
func NewProfileService(api profileAPI, store *AppStore, validate *validator.Validate, logger *zap.Logger) *ProfileService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ProfileService{api: api, store: store, validator: validate, logger: logger}
}

// Update saves the name and bio of the session user.
func (s *ProfileService) Update(ctx context.Context, sessionID string, req models.ProfileUpdate) (*models.User, error) {
	req.Name = strings.Join(strings.Fields(req.Name), " ")
	req.Bio = strings.TrimSpace(req.Bio)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid profile payload")
	}
	sess, ok := s.store.Session(sessionID)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "session is not active")
	}

	first, last := splitName(req.Name)
	user, err := s.api.UpdateProfile(ctx, sess.Token, first, last, req.Bio)
	if err != nil {
		return nil, upstreamError(err, "failed to update profile")
	}
	return s.apply(sessionID, sess.User, user)
}

// UpdateAvatar replaces the profile photo. Only JPG and PNG up to MaxAvatarSize are accepted;
// the type is taken from the file contents.
func (s *ProfileService) UpdateAvatar(ctx context.Context, sessionID string, upload FileUpload) (*models.User, error) {
	sess, ok := s.store.Session(sessionID)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "session is not active")
	}
	if upload.Size > MaxAvatarSize {
		return nil, appErrors.Clone(appErrors.ErrPayloadTooLarge, "profile photo exceeds 2MB")
	}
	data, err := io.ReadAll(io.LimitReader(upload.Reader, MaxAvatarSize+1))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "failed to read profile photo")
	}
	if len(data) > MaxAvatarSize {
		return nil, appErrors.Clone(appErrors.ErrPayloadTooLarge, "profile photo exceeds 2MB")
	}
	detected := mimetype.Detect(data)
	if !mimetype.EqualsAny(detected.String(), avatarTypes...) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "profile photo must be JPG or PNG")
	}

	name := filepath.Base(upload.Name)
	if name == "." || name == string(filepath.Separator) {
		name = "avatar" + detected.Extension()
	}
	user, err := s.api.UploadAvatar(ctx, sess.Token, academy.UploadFile{
		Field:       "foto_perfil",
		FileName:    name,
		ContentType: detected.String(),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	})
	if err != nil {
		return nil, upstreamError(err, "failed to upload profile photo")
	}
	return s.apply(sessionID, sess.User, user)
}

// apply keeps the fields the backend did not return from the current user.
func (s *ProfileService) apply(sessionID string, current models.User, updated *models.User) (*models.User, error) {
	if updated == nil {
		return nil, appErrors.Clone(appErrors.ErrUpstream, "empty profile response")
	}
	next := *updated
	if next.Email == "" {
		next.Email = current.Email
	}
	if next.ID == "" {
		next.ID = current.ID
	}
	if next.Role == "" {
		next.Role = current.Role
	}
	if next.Email != current.Email {
		return nil, appErrors.Clone(appErrors.ErrUpstream, fmt.Sprintf("profile response belongs to %s", next.Email))
	}
	if err := s.store.UpdateUser(sessionID, next); err != nil {
		return nil, err
	}
	s.logger.Info("profile updated", zap.String("session_id", sessionID))
	return &next, nil
}

func splitName(full string) (string, string) {
	first, rest, _ := strings.Cut(full, " ")
	return first, rest
}
