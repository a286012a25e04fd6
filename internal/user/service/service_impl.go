package service

import (
	"context"
	"net/mail"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/faktur/internal/auth/password"
	userdomain "github.com/smallbiznis/faktur/internal/user/domain"
	"github.com/smallbiznis/faktur/pkg/db"
	"github.com/smallbiznis/faktur/pkg/db/option"
	"github.com/smallbiznis/faktur/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  repository.Repository[userdomain.User]
}

func NewService(p Params) userdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("user.service"),
		genID: p.GenID,
		repo:  repository.ProvideStore[userdomain.User](p.DB),
	}
}

func (s *Service) Create(ctx context.Context, req userdomain.CreateUserRequest) (*userdomain.User, error) {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return nil, err
	}

	role := req.Role
	if role == "" {
		role = userdomain.RoleUser
	}
	if !role.Valid() {
		return nil, userdomain.ErrInvalidRole
	}

	hash, err := password.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	user := &userdomain.User{
		ID:           s.genID.Generate(),
		Name:         strings.TrimSpace(req.Name),
		Email:        email,
		PasswordHash: hash,
		Role:         role,
	}

	if err := s.repo.Create(ctx, user); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, userdomain.ErrUserExists
		}
		return nil, err
	}

	s.log.Info("user created",
		zap.String("user_id", user.ID.String()),
		zap.String("role", string(user.Role)),
	)

	return user, nil
}

func (s *Service) GetByID(ctx context.Context, id snowflake.ID) (*userdomain.User, error) {
	user, err := s.repo.FindOne(ctx, &userdomain.User{ID: id})
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, userdomain.ErrUserNotFound
	}
	return user, nil
}

func (s *Service) FindByEmail(ctx context.Context, email string) (*userdomain.User, error) {
	normalized, err := normalizeEmail(email)
	if err != nil {
		return nil, userdomain.ErrUserNotFound
	}

	user, err := s.repo.FindOne(ctx, &userdomain.User{Email: normalized})
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, userdomain.ErrUserNotFound
	}
	return user, nil
}

// ListCustomers returns non-admin users ordered by name, for the invoice
// customer picker.
func (s *Service) ListCustomers(ctx context.Context) ([]userdomain.User, error) {
	items, err := s.repo.Find(ctx,
		&userdomain.User{Role: userdomain.RoleUser},
		option.WithOrder("name ASC"),
	)
	if err != nil {
		return nil, err
	}

	users := make([]userdomain.User, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		users = append(users, *item)
	}
	return users, nil
}

func normalizeEmail(raw string) (string, error) {
	trimmed := strings.ToLower(strings.TrimSpace(raw))
	if _, err := mail.ParseAddress(trimmed); err != nil {
		return "", userdomain.ErrInvalidEmail
	}
	return trimmed, nil
}
