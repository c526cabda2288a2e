package services

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yigit/schoolsphere/internal/app/models"
	"github.com/yigit/schoolsphere/internal/app/models/dto"
	"github.com/yigit/schoolsphere/internal/pkg/apperrors"
	"github.com/yigit/schoolsphere/internal/pkg/auth"
)

func newAuthFixture(t *testing.T) (*AuthService, *memUsers, *auth.JWTService) {
	t.Helper()
	users := newMemUsers()
	jwtService := auth.NewJWTService(auth.JWTConfig{
		SecretKey:      "test-secret-key-for-auth",
		AccessTokenExp: time.Hour,
		TokenIssuer:    "schoolsphere-test",
	})
	return NewAuthService(users, jwtService, zerolog.Nop()), users, jwtService
}

func registerRequest() *dto.RegisterRequest {
	return &dto.RegisterRequest{
		Email:     "Parent@Example.com",
		Password:  "s3curePassword",
		FirstName: "Claire",
		LastName:  "Martin",
		RoleType:  "PARENT",
	}
}

func TestRegister(t *testing.T) {
	svc, _, _ := newAuthFixture(t)

	user, err := svc.Register(context.Background(), registerRequest())
	require.NoError(t, err)

	assert.NotEmpty(t, user.ID)
	assert.Equal(t, "parent@example.com", user.Email)
	assert.Equal(t, models.RoleParent, user.RoleType)
	assert.True(t, user.IsActive)
	assert.NotEqual(t, "s3curePassword", user.Password)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _, _ := newAuthFixture(t)

	_, err := svc.Register(context.Background(), registerRequest())
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), registerRequest())
	assert.ErrorIs(t, err, apperrors.ErrEmailAlreadyExists)
}

func TestRegisterRejectsAdminRole(t *testing.T) {
	svc, _, _ := newAuthFixture(t)

	req := registerRequest()
	req.RoleType = "ADMIN"

	_, err := svc.Register(context.Background(), req)
	assert.ErrorIs(t, err, apperrors.ErrBadRequest)
}

func TestLogin(t *testing.T) {
	svc, _, jwtService := newAuthFixture(t)

	registered, err := svc.Register(context.Background(), registerRequest())
	require.NoError(t, err)

	tokens, user, err := svc.Login(context.Background(), "parent@example.com", "s3curePassword")
	require.NoError(t, err)
	assert.Equal(t, registered.ID, user.ID)
	assert.Equal(t, "Bearer", tokens.TokenType)

	claims, err := jwtService.ValidateToken(tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, registered.ID, claims.AccountID)
	assert.Equal(t, string(models.RoleParent), claims.RoleType)
}

func TestLoginFailures(t *testing.T) {
	svc, users, _ := newAuthFixture(t)

	registered, err := svc.Register(context.Background(), registerRequest())
	require.NoError(t, err)

	t.Run("wrong password", func(t *testing.T) {
		_, _, err := svc.Login(context.Background(), "parent@example.com", "wrong")
		assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
	})

	t.Run("unknown email", func(t *testing.T) {
		_, _, err := svc.Login(context.Background(), "nobody@example.com", "s3curePassword")
		assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
	})

	t.Run("disabled account", func(t *testing.T) {
		users.mu.Lock()
		users.users[registered.ID].IsActive = false
		users.mu.Unlock()

		_, _, err := svc.Login(context.Background(), "parent@example.com", "s3curePassword")
		assert.ErrorIs(t, err, apperrors.ErrAccountDisabled)
	})
}
