package service

import (
	"bravolearn_backend/internal/config"
	"bravolearn_backend/internal/model"
	"bravolearn_backend/internal/repository"
	"bravolearn_backend/internal/testutil"
	"bravolearn_backend/internal/util"
	"bravolearn_backend/pkg/logger"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm"
)

func newAuthService(t *testing.T) *AuthService {
	db := testutil.NewDB(t)
	cfg := &config.Config{JWT: config.JWTConfig{Secret: "test-secret", ExpireTime: time.Hour}}
	return NewAuthService(db, repository.NewUserRepository(db), repository.NewProfileRepository(db), cfg)
}

func TestRegisterCreatesProfile(t *testing.T) {
	s := newAuthService(t)
	ctx := context.Background()

	user, err := s.Register(ctx, RegisterInput{Email: " Ada@Example.com ", Password: "secret123"})
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", user.Email)
	assert.Equal(t, model.Learner, user.Role)
	assert.NotEqual(t, "secret123", user.Password)
	require.NotNil(t, user.Profile)
	assert.Equal(t, "ada", user.Profile.DisplayName)
	assert.Equal(t, 1, user.Profile.Level)

	profile, err := s.ProfileRepo.FindByUserID(ctx, user.ID)
	require.NoError(t, err)
	assert.Zero(t, profile.XP)

	_, err = s.Register(ctx, RegisterInput{Email: "ada@example.com", Password: "other"})
	assert.ErrorIs(t, err, util.ErrEmailRegistered)
}

func TestLogin(t *testing.T) {
	s := newAuthService(t)
	ctx := context.Background()
	_, err := s.Register(ctx, RegisterInput{Email: "bo@example.com", Password: "secret123", DisplayName: "Bo"})
	require.NoError(t, err)

	token, user, err := s.Login(ctx, "BO@example.com", "secret123")
	require.NoError(t, err)
	assert.NotNil(t, user.LastLogin)

	claims, err := util.ParseJWT(token, "test-secret")
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, model.Learner, claims.Role)

	_, _, err = s.Login(ctx, "bo@example.com", "wrong")
	assert.ErrorIs(t, err, util.ErrInvalidCredentials)
	_, _, err = s.Login(ctx, "nobody@example.com", "secret123")
	assert.ErrorIs(t, err, util.ErrInvalidCredentials)
}

func TestLoginWarnsWhenLastLoginUpdateFails(t *testing.T) {
	s := newAuthService(t)
	ctx := context.Background()
	_, err := s.Register(ctx, RegisterInput{Email: "cy@example.com", Password: "secret123"})
	require.NoError(t, err)

	core, logs := observer.New(zapcore.WarnLevel)
	prev := logger.Log
	logger.Log = zap.New(core)
	t.Cleanup(func() { logger.Log = prev })

	// 登录流程里只有 last_login 会走更新
	err = s.UserRepo.DB.Callback().Update().Before("gorm:update").
		Register("test:fail_update", func(tx *gorm.DB) {
			_ = tx.AddError(errors.New("disk full"))
		})
	require.NoError(t, err)

	token, user, err := s.Login(ctx, "cy@example.com", "secret123")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.NotNil(t, user.LastLogin)

	entries := logs.FilterMessage("Failed to record last login").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	assert.EqualValues(t, user.ID, entries[0].ContextMap()["user_id"])
	assert.Contains(t, entries[0].ContextMap()["error"], "disk full")
}
