package service

import (
	"classhub_backend/internal/config"
	"classhub_backend/internal/model"
	"classhub_backend/internal/util"
	"classhub_backend/pkg/logger"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type AuthService struct {
	Users UserStore
	Cfg   *config.Config
	Now   Clock
}

func NewAuthService(users UserStore, cfg *config.Config) *AuthService {
	return &AuthService{
		Users: users,
		Cfg:   cfg,
		Now:   time.Now,
	}
}

type RegisterInput struct {
	Name     string         `json:"name" validate:"required,notblank,max=100"`
	Email    string         `json:"email" validate:"required,email,max=100"`
	Password string         `json:"password" validate:"required,min=8,max=72"`
	Role     model.UserRole `json:"role" validate:"required"`
	Phone    string         `json:"phone" validate:"omitempty,max=30"`
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	if err := util.Validate(in); err != nil {
		return nil, err
	}
	if !in.Role.Valid() {
		return nil, util.Validationf("unknown role %q", in.Role)
	}
	if in.Role == model.Admin {
		return nil, fmt.Errorf("%w: admin accounts cannot self-register", util.ErrForbidden)
	}

	email := strings.ToLower(strings.TrimSpace(in.Email))
	if _, err := s.Users.FindByEmail(ctx, email); err == nil {
		return nil, fmt.Errorf("%w: email already registered", util.ErrConflict)
	} else if !errors.Is(err, util.ErrNotFound) {
		return nil, err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Name:     strings.TrimSpace(in.Name),
		Email:    email,
		Password: string(hashedPassword),
		Role:     in.Role,
		Phone:    in.Phone,
	}
	if err := s.Users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Login returns a signed token for valid credentials. Unknown email and wrong
// password are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, *model.User, error) {
	user, err := s.Users.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, util.ErrNotFound) {
			return "", nil, fmt.Errorf("%w: invalid credentials", util.ErrUnauthorized)
		}
		return "", nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return "", nil, fmt.Errorf("%w: invalid credentials", util.ErrUnauthorized)
	}
	if user.Disabled {
		return "", nil, fmt.Errorf("%w: account disabled", util.ErrForbidden)
	}

	token, err := util.GenerateJWT(user, s.Cfg.JWT.Secret, s.Cfg.JWT.ExpireTime)
	if err != nil {
		return "", nil, err
	}

	if err := s.Users.UpdateLastLogin(ctx, user.ID, s.Now()); err != nil {
		logger.Log.Warn("update last login failed", zap.Uint("userId", user.ID), zap.Error(err))
	}
	return token, user, nil
}

func (s *AuthService) Me(ctx context.Context, p model.Principal) (*model.User, error) {
	return s.Users.FindByID(ctx, p.UserID)
}
