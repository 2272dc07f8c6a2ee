package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenScope names where an upstream bearer token is kept.
type TokenScope string

const (
	// ScopeLocal survives restarts and lasts for the remember-me period.
	ScopeLocal TokenScope = "local"
	// ScopeSession expires with the short session TTL.
	ScopeSession TokenScope = "session"
)

// ScopeFor maps the remember-me flag to a token scope.
func ScopeFor(rememberMe bool) TokenScope {
	if rememberMe {
		return ScopeLocal
	}
	return ScopeSession
}

// StoredSession is a persisted upstream token, sealed at rest.
type StoredSession struct {
	ID         string     `db:"id" json:"id"`
	UserEmail  string     `db:"user_email" json:"userEmail"`
	Scope      TokenScope `db:"-" json:"scope"`
	Ciphertext string     `db:"token_ciphertext" json:"ciphertext"`
	ExpiresAt  time.Time  `db:"expires_at" json:"expiresAt"`
	CreatedAt  time.Time  `db:"created_at" json:"createdAt"`
}

// SessionClaims is the gateway JWT payload.
type SessionClaims struct {
	SessionID string     `json:"sid"`
	Email     string     `json:"email"`
	Name      string     `json:"name"`
	Role      UserRole   `json:"role"`
	Scope     TokenScope `json:"scope"`
	jwt.RegisteredClaims
}

// LoginRequest holds credentials for authenticating against the Academy backend.
type LoginRequest struct {
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required"`
	RememberMe bool   `json:"rememberMe"`
}

// LoginResponse returns the gateway token and the restored user.
type LoginResponse struct {
	AccessToken string     `json:"accessToken"`
	ExpiresAt   time.Time  `json:"expiresAt"`
	Scope       TokenScope `json:"scope"`
	User        User       `json:"user"`
}
