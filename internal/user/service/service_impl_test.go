package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/faktur/internal/auth/password"
	userdomain "github.com/smallbiznis/faktur/internal/user/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupUserService(t *testing.T) userdomain.Service {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&userdomain.User{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	return NewService(Params{DB: conn, Log: zap.NewNop(), GenID: node})
}

func TestCreateUserNormalizesEmail(t *testing.T) {
	svc := setupUserService(t)
	ctx := context.Background()

	user, err := svc.Create(ctx, userdomain.CreateUserRequest{
		Name:     "Budi Santoso",
		Email:    "  Budi.Santoso@Example.COM ",
		Password: "secret-password-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "budi.santoso@example.com", user.Email)
	assert.Equal(t, userdomain.RoleUser, user.Role)
	assert.True(t, password.Verify("secret-password-1", user.PasswordHash))

	found, err := svc.FindByEmail(ctx, "BUDI.SANTOSO@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.ID)
}

func TestCreateUserRejectsDuplicateEmail(t *testing.T) {
	svc := setupUserService(t)
	ctx := context.Background()

	req := userdomain.CreateUserRequest{
		Name:     "Budi Santoso",
		Email:    "budi@example.com",
		Password: "secret-password-1",
	}
	_, err := svc.Create(ctx, req)
	require.NoError(t, err)

	req.Name = "Another Budi"
	_, err = svc.Create(ctx, req)
	assert.ErrorIs(t, err, userdomain.ErrUserExists)
}

func TestCreateUserValidation(t *testing.T) {
	svc := setupUserService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, userdomain.CreateUserRequest{
		Name:     "No Email",
		Email:    "not-an-email",
		Password: "secret-password-1",
	})
	assert.ErrorIs(t, err, userdomain.ErrInvalidEmail)

	_, err = svc.Create(ctx, userdomain.CreateUserRequest{
		Name:     "Bad Role",
		Email:    "badrole@example.com",
		Password: "secret-password-1",
		Role:     "superuser",
	})
	assert.ErrorIs(t, err, userdomain.ErrInvalidRole)
}

func TestListCustomersExcludesAdmins(t *testing.T) {
	svc := setupUserService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, userdomain.CreateUserRequest{
		Name:     "Zed",
		Email:    "zed@example.com",
		Password: "secret-password-1",
	})
	require.NoError(t, err)
	_, err = svc.Create(ctx, userdomain.CreateUserRequest{
		Name:     "Ana",
		Email:    "ana@example.com",
		Password: "secret-password-1",
	})
	require.NoError(t, err)
	_, err = svc.Create(ctx, userdomain.CreateUserRequest{
		Name:     "Root",
		Email:    "root@example.com",
		Password: "secret-password-1",
		Role:     userdomain.RoleAdmin,
	})
	require.NoError(t, err)

	customers, err := svc.ListCustomers(ctx)
	require.NoError(t, err)
	require.Len(t, customers, 2)
	assert.Equal(t, "Ana", customers[0].Name)
	assert.Equal(t, "Zed", customers[1].Name)
}

func TestGetByIDNotFound(t *testing.T) {
	svc := setupUserService(t)

	_, err := svc.GetByID(context.Background(), snowflake.ID(424242))
	assert.ErrorIs(t, err, userdomain.ErrUserNotFound)
}
