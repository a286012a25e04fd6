package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	authdomain "github.com/smallbiznis/faktur/internal/auth/domain"
	"github.com/smallbiznis/faktur/internal/auth/password"
	"github.com/smallbiznis/faktur/internal/auth/token"
	"github.com/smallbiznis/faktur/internal/clock"
	userdomain "github.com/smallbiznis/faktur/internal/user/domain"
	"github.com/smallbiznis/faktur/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const minPasswordLen = 6

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	Clock   clock.Clock
	Issuer  *token.Issuer
	UserSvc userdomain.Service
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	clock   clock.Clock
	issuer  *token.Issuer
	usersvc userdomain.Service
	revoked repository.Repository[authdomain.RevokedToken]
}

func NewService(p Params) authdomain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("auth.service"),
		clock:   p.Clock,
		issuer:  p.Issuer,
		usersvc: p.UserSvc,
		revoked: repository.ProvideStore[authdomain.RevokedToken](p.DB),
	}
}

// Register creates an account and immediately issues a token, the same
// flow the login endpoint uses. Self-registration always yields the user
// role unless an explicit role is requested by an admin-seeded flow.
func (s *Service) Register(ctx context.Context, req authdomain.RegisterRequest) (*authdomain.LoginResult, error) {
	if len(req.Password) < minPasswordLen {
		return nil, authdomain.ErrWeakPassword
	}

	role := req.Role
	if role == "" {
		role = userdomain.RoleUser
	}

	user, err := s.usersvc.Create(ctx, userdomain.CreateUserRequest{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     role,
	})
	if err != nil {
		return nil, err
	}

	raw, err := s.issuer.Issue(user, s.clock.Now())
	if err != nil {
		return nil, err
	}

	return &authdomain.LoginResult{User: user, Token: raw}, nil
}

func (s *Service) Login(ctx context.Context, req authdomain.LoginRequest) (*authdomain.LoginResult, error) {
	user, err := s.usersvc.FindByEmail(ctx, req.Email)
	if err != nil {
		return nil, authdomain.ErrInvalidCredentials
	}

	if !password.Verify(req.Password, user.PasswordHash) {
		return nil, authdomain.ErrInvalidCredentials
	}

	raw, err := s.issuer.Issue(user, s.clock.Now())
	if err != nil {
		return nil, err
	}

	s.log.Info("login succeeded", zap.String("user_id", user.ID.String()))

	return &authdomain.LoginResult{User: user, Token: raw}, nil
}

// Authenticate resolves a bearer token into a request-scoped identity.
// The user row is re-read on every call so role changes are not cached.
func (s *Service) Authenticate(ctx context.Context, rawToken string) (*authdomain.Identity, error) {
	claims, err := s.issuer.Parse(rawToken)
	if err != nil {
		return nil, err
	}

	revoked, err := s.revoked.FindOne(ctx, &authdomain.RevokedToken{JTI: claims.ID})
	if err != nil {
		return nil, err
	}
	if revoked != nil {
		return nil, authdomain.ErrTokenRevoked
	}

	userID, err := snowflake.ParseString(claims.Subject)
	if err != nil {
		return nil, authdomain.ErrInvalidToken
	}

	user, err := s.usersvc.GetByID(ctx, userID)
	if err != nil {
		return nil, authdomain.ErrInvalidToken
	}

	return &authdomain.Identity{
		UserID:  user.ID,
		Email:   user.Email,
		Role:    user.Role,
		TokenID: claims.ID,
	}, nil
}

// Logout revokes the token id until its natural expiry.
func (s *Service) Logout(ctx context.Context, rawToken string) error {
	claims, err := s.issuer.Parse(rawToken)
	if err != nil {
		return err
	}

	expires := s.clock.Now().Add(24 * time.Hour)
	if claims.ExpiresAt != nil {
		expires = claims.ExpiresAt.Time
	}

	return s.revoked.Create(ctx, &authdomain.RevokedToken{
		JTI:       claims.ID,
		ExpiresAt: expires,
	})
}
