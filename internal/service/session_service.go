package service

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/academy-gateway/internal/models"
	"github.com/noah-isme/academy-gateway/pkg/academy"
	appErrors "github.com/noah-isme/academy-gateway/pkg/errors"
)

type sessionAPI interface {
	Authenticate(ctx context.Context, email, password string) (string, error)
	FetchProfile(ctx context.Context, token string) (*models.User, error)
}

type sessionRepository interface {
	Create(ctx context.Context, session *models.StoredSession) error
	Get(ctx context.Context, id string) (*models.StoredSession, error)
	Delete(ctx context.Context, id string) error
}

type localSessionRepository interface {
	sessionRepository
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type tokenSealer interface {
	Seal(plaintext string) (string, error)
	Open(encoded string) (string, error)
}

// SessionConfig defines token signing and the lifetime of each scope.
type SessionConfig struct {
	Secret        string
	Issuer        string
	SessionTTL    time.Duration
	RememberMeTTL time.Duration
}

// SessionService signs users in against the backend and keeps their bearer token in
// the scope selected by the remember-me flag.
type SessionService struct {
	api       sessionAPI
	local     localSessionRepository
	ephemeral sessionRepository
	sealer    tokenSealer
	store     *AppStore
	validator *validator.Validate
	logger    *zap.Logger
	config    SessionConfig
	now       func() time.Time
}

// NewSessionService constructs a SessionService instance.
func NewSessionService(api sessionAPI, local localSessionRepository, ephemeral sessionRepository, sealer tokenSealer, store *AppStore, validate *validator.Validate, logger *zap.Logger, cfg SessionConfig) *SessionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 12 * time.Hour
	}
	if cfg.RememberMeTTL <= 0 {
		cfg.RememberMeTTL = 30 * 24 * time.Hour
	}
	return &SessionService{
		api:       api,
		local:     local,
		ephemeral: ephemeral,
		sealer:    sealer,
		store:     store,
		validator: validate,
		logger:    logger,
		config:    cfg,
		now:       time.Now,
	}
}

// Login authenticates upstream, persists the bearer token and loads the application state.
func (s *SessionService) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	req.Email = strings.TrimSpace(req.Email)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid login payload")
	}

	token, err := s.api.Authenticate(ctx, req.Email, req.Password)
	if err != nil {
		if academy.IsStatus(err, http.StatusUnauthorized) || academy.IsStatus(err, http.StatusBadRequest) || academy.IsStatus(err, http.StatusNotFound) {
			return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid email or password")
		}
		return nil, upstreamError(err, "authentication failed")
	}

	user, err := s.api.FetchProfile(ctx, token)
	if err != nil {
		return nil, upstreamError(err, "failed to load profile")
	}

	scope := models.ScopeFor(req.RememberMe)
	now := s.now().UTC()
	expiresAt := now.Add(s.ttlFor(scope))
	sealed, err := s.sealer.Seal(token)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to protect token")
	}

	stored := &models.StoredSession{
		ID:         uuid.NewString(),
		UserEmail:  user.Email,
		Scope:      scope,
		Ciphertext: sealed,
		ExpiresAt:  expiresAt,
		CreatedAt:  now,
	}
	if err := s.repoFor(scope).Create(ctx, stored); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist session")
	}

	sess := Session{ID: stored.ID, Token: token, Scope: scope, User: *user, ExpiresAt: expiresAt}
	s.store.Attach(sess)
	if _, err := s.store.Refresh(ctx, sess.ID); err != nil {
		s.logger.Warn("initial state load failed", zap.String("session_id", sess.ID), zap.Error(err))
	}

	accessToken, err := s.issueToken(sess)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create access token")
	}

	s.logger.Info("user signed in", zap.String("session_id", sess.ID), zap.String("scope", string(scope)))
	return &models.LoginResponse{
		AccessToken: accessToken,
		ExpiresAt:   expiresAt,
		Scope:       scope,
		User:        *user,
	}, nil
}

// ValidateToken parses and validates a gateway token returning the claims.
func (s *SessionService) ValidateToken(tokenString string) (*models.SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.Secret), nil
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.SessionClaims)
	if !ok || !token.Valid || claims.SessionID == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}
	return claims, nil
}

// Resume returns the live session for claims, restoring it from its token scope when
// the gateway does not hold it in memory.
func (s *SessionService) Resume(ctx context.Context, claims *models.SessionClaims) (Session, error) {
	if sess, ok := s.store.Session(claims.SessionID); ok {
		return sess, nil
	}

	repo := s.repoFor(claims.Scope)
	stored, err := repo.Get(ctx, claims.SessionID)
	if err != nil {
		return Session{}, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "session expired")
	}
	token, err := s.sealer.Open(stored.Ciphertext)
	if err != nil {
		return Session{}, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "session token unreadable")
	}

	user, err := s.api.FetchProfile(ctx, token)
	if err != nil {
		if academy.IsStatus(err, http.StatusUnauthorized) {
			if delErr := repo.Delete(ctx, stored.ID); delErr != nil {
				s.logger.Warn("failed to delete rejected session", zap.String("session_id", stored.ID), zap.Error(delErr))
			}
			return Session{}, appErrors.Clone(appErrors.ErrUnauthorized, "session expired")
		}
		return Session{}, upstreamError(err, "failed to restore profile")
	}

	sess := Session{ID: stored.ID, Token: token, Scope: claims.Scope, User: *user, ExpiresAt: stored.ExpiresAt}
	if s.store.Attach(sess) {
		if _, err := s.store.Refresh(ctx, sess.ID); err != nil {
			s.logger.Warn("state restore failed", zap.String("session_id", sess.ID), zap.Error(err))
		}
		s.logger.Info("session restored", zap.String("session_id", sess.ID), zap.String("scope", string(sess.Scope)))
	}
	return sess, nil
}

// Restore validates a gateway token and returns the signed-in user.
func (s *SessionService) Restore(ctx context.Context, tokenString string) (*models.User, error) {
	claims, err := s.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	sess, err := s.Resume(ctx, claims)
	if err != nil {
		return nil, err
	}
	return &sess.User, nil
}

// Logout removes the stored token and the in-memory state.
func (s *SessionService) Logout(ctx context.Context, claims *models.SessionClaims) error {
	if claims == nil {
		return appErrors.ErrUnauthorized
	}
	if err := s.repoFor(claims.Scope).Delete(ctx, claims.SessionID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete session")
	}
	s.store.Drop(claims.SessionID)
	return nil
}

// PurgeExpired removes remember-me sessions past their expiry.
func (s *SessionService) PurgeExpired(ctx context.Context) (int64, error) {
	n, err := s.local.DeleteExpired(ctx, s.now().UTC())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Info("expired sessions purged", zap.Int64("count", n))
	}
	return n, nil
}

func (s *SessionService) repoFor(scope models.TokenScope) sessionRepository {
	if scope == models.ScopeLocal {
		return s.local
	}
	return s.ephemeral
}

func (s *SessionService) ttlFor(scope models.TokenScope) time.Duration {
	if scope == models.ScopeLocal {
		return s.config.RememberMeTTL
	}
	return s.config.SessionTTL
}

func (s *SessionService) issueToken(sess Session) (string, error) {
	issuedAt := s.now().UTC()
	claims := &models.SessionClaims{
		SessionID: sess.ID,
		Email:     sess.User.Email,
		Name:      sess.User.Name,
		Role:      sess.User.Role,
		Scope:     sess.Scope,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.config.Issuer,
			Subject:   sess.User.ID,
			ExpiresAt: jwt.NewNumericDate(sess.ExpiresAt),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.config.Secret))
}
