// Package seed bootstraps the first admin account so a fresh install is
// usable without manual database edits.
package seed

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/faktur/internal/auth/password"
	"github.com/smallbiznis/faktur/internal/config"
	userdomain "github.com/smallbiznis/faktur/internal/user/domain"
	"github.com/smallbiznis/faktur/pkg/repository"
	"gorm.io/gorm"
)

const defaultAdminName = "Faktur Admin"

// EnsureAdmin creates the configured admin account if no user holds the
// admin role yet. Existing installs are left untouched.
func EnsureAdmin(db *gorm.DB, cfg config.Config) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	email := strings.ToLower(strings.TrimSpace(cfg.SeedAdminEmail))
	if email == "" || strings.TrimSpace(cfg.SeedAdminPassword) == "" {
		return nil
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	users := repository.ProvideStore[userdomain.User](db)
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		count, err := users.WithTrx(tx).Count(ctx, &userdomain.User{Role: userdomain.RoleAdmin})
		if err != nil {
			return err
		}
		if count > 0 {
			return nil
		}

		hash, err := password.Hash(cfg.SeedAdminPassword)
		if err != nil {
			return err
		}

		return users.WithTrx(tx).Create(ctx, &userdomain.User{
			ID:           node.Generate(),
			Name:         defaultAdminName,
			Email:        email,
			PasswordHash: hash,
			Role:         userdomain.RoleAdmin,
		})
	})
}
