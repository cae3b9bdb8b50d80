package service

import (
	"classhub_backend/internal/config"
	"classhub_backend/internal/model"
	"classhub_backend/internal/util"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthService() *AuthService {
	cfg := &config.Config{JWT: config.JWTConfig{Secret: "test-secret-test-secret-test-secret", ExpireTime: time.Hour}}
	svc := NewAuthService(newStores().Users, cfg)
	svc.Now = newClock().Now
	return svc
}

func TestAuth_Register(t *testing.T) {
	ctx := context.Background()
	svc := newAuthService()

	user, err := svc.Register(ctx, RegisterInput{Name: " Ada ", Email: "Ada@Example.com", Password: "correct horse", Role: model.Student})
	require.NoError(t, err)
	assert.Equal(t, "Ada", user.Name)
	assert.Equal(t, "ada@example.com", user.Email)
	assert.NotEqual(t, "correct horse", user.Password)

	tests := []struct {
		name    string
		in      RegisterInput
		wantErr error
	}{
		{"duplicate email", RegisterInput{Name: "Ada", Email: "ADA@example.com", Password: "12345678", Role: model.Student}, util.ErrConflict},
		{"short password", RegisterInput{Name: "Ben", Email: "ben@example.com", Password: "short", Role: model.Student}, util.ErrValidation},
		{"bad email", RegisterInput{Name: "Ben", Email: "ben", Password: "12345678", Role: model.Student}, util.ErrValidation},
		{"unknown role", RegisterInput{Name: "Ben", Email: "ben@example.com", Password: "12345678", Role: "janitor"}, util.ErrValidation},
		{"admin", RegisterInput{Name: "Ben", Email: "ben@example.com", Password: "12345678", Role: model.Admin}, util.ErrForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(ctx, tt.in)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestAuth_Login(t *testing.T) {
	ctx := context.Background()
	svc := newAuthService()
	_, err := svc.Register(ctx, RegisterInput{Name: "Tess", Email: "tess@example.com", Password: "chalkboard", Role: model.Teacher})
	require.NoError(t, err)

	token, user, err := svc.Login(ctx, " TESS@example.com ", "chalkboard")
	require.NoError(t, err)
	claims, err := util.ParseJWT(token, svc.Cfg.JWT.Secret)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, model.Teacher, claims.Role)

	me, err := svc.Me(ctx, model.Principal{UserID: user.ID, Role: model.Teacher})
	require.NoError(t, err)
	require.NotNil(t, me.LastLogin)
	assert.True(t, me.LastLogin.Equal(baseTime))

	_, _, err = svc.Login(ctx, "tess@example.com", "wrong")
	assert.ErrorIs(t, err, util.ErrUnauthorized)
	_, _, err = svc.Login(ctx, "nobody@example.com", "chalkboard")
	assert.ErrorIs(t, err, util.ErrUnauthorized)
}
