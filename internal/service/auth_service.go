package service

import (
	"bravolearn_backend/internal/config"
	"bravolearn_backend/internal/model"
	"bravolearn_backend/internal/repository"
	"bravolearn_backend/internal/util"
	"bravolearn_backend/pkg/logger"
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type AuthService struct {
	DB          *gorm.DB
	UserRepo    *repository.UserRepository
	ProfileRepo *repository.ProfileRepository
	Cfg         *config.Config
}

func NewAuthService(db *gorm.DB, userRepo *repository.UserRepository, profileRepo *repository.ProfileRepository, cfg *config.Config) *AuthService {
	return &AuthService{
		DB:          db,
		UserRepo:    userRepo,
		ProfileRepo: profileRepo,
		Cfg:         cfg,
	}
}

type RegisterInput struct {
	Email       string
	Password    string
	DisplayName string
}

// Register 创建用户并同时创建学习档案
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	exists, err := s.UserRepo.EmailExists(ctx, email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, util.ErrEmailRegistered
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	displayName := strings.TrimSpace(in.DisplayName)
	if displayName == "" {
		displayName = strings.SplitN(email, "@", 2)[0]
	}

	user := &model.User{
		Email:    email,
		Password: string(hashedPassword),
		Role:     model.Learner,
	}
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		if err := s.UserRepo.WithTx(tx).Create(ctx, user); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return util.ErrEmailRegistered
			}
			return err
		}
		profile := &model.Profile{UserID: user.ID, DisplayName: displayName, Level: 1}
		if err := s.ProfileRepo.WithTx(tx).Create(ctx, profile); err != nil {
			return err
		}
		user.Profile = profile
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (string, *model.User, error) {
	user, err := s.UserRepo.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil, util.ErrInvalidCredentials
		}
		return "", nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return "", nil, util.ErrInvalidCredentials
	}

	token, err := util.GenerateJWT(user, s.Cfg.JWT.Secret, s.Cfg.JWT.ExpireTime)
	if err != nil {
		return "", nil, err
	}

	now := time.Now()
	if err := s.UserRepo.TouchLastLogin(ctx, user.ID, now); err != nil {
		// 不影响登录
		logger.Ctx(ctx).Warn("Failed to record last login", zap.Uint("user_id", user.ID), zap.Error(err))
	}
	user.LastLogin = &now
	return token, user, nil
}
