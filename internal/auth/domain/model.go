// Package domain defines the authentication contract consumed by the HTTP
// layer. Tokens are short-lived JWTs; logout revokes the token id until it
// would have expired anyway.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	userdomain "github.com/smallbiznis/faktur/internal/user/domain"
)

type RegisterRequest struct {
	Name     string          `json:"name"`
	Email    string          `json:"email"`
	Password string          `json:"password"`
	Role     userdomain.Role `json:"role"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResult struct {
	User  *userdomain.User
	Token string
}

// Identity is the request-scoped auth context resolved from a bearer token.
// It is re-read from the database on every request so role changes take
// effect immediately.
type Identity struct {
	UserID  snowflake.ID
	Email   string
	Role    userdomain.Role
	TokenID string
}

func (i Identity) IsAdmin() bool { return i.Role == userdomain.RoleAdmin }

// RevokedToken blocks a JWT id after logout until its natural expiry.
type RevokedToken struct {
	JTI       string    `gorm:"primaryKey;type:text"`
	ExpiresAt time.Time `gorm:"not null;index"`
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (RevokedToken) TableName() string { return "revoked_tokens" }

type Service interface {
	Register(ctx context.Context, req RegisterRequest) (*LoginResult, error)
	Login(ctx context.Context, req LoginRequest) (*LoginResult, error)
	Authenticate(ctx context.Context, rawToken string) (*Identity, error)
	Logout(ctx context.Context, rawToken string) error
}

var (
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrInvalidToken       = errors.New("invalid_token")
	ErrTokenRevoked       = errors.New("token_revoked")
	ErrWeakPassword       = errors.New("weak_password")
)
