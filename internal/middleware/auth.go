package middleware

import (
	"classhub_backend/internal/config"
	"classhub_backend/internal/model"
	"classhub_backend/internal/util"
	"classhub_backend/pkg/logger"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AuthMiddleware accepts a bearer token, or a token query parameter for
// websocket handshakes, and stores the caller as a model.Principal.
func AuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := ""
		authHeader := c.GetHeader("Authorization")
		if strings.HasPrefix(authHeader, "Bearer ") {
			tokenString = strings.TrimPrefix(authHeader, "Bearer ")
		}

		if tokenString == "" {
			tokenString = c.Query("token")
		}

		if tokenString == "" {
			util.Unauthorized(c)
			c.Abort()
			return
		}

		claims, err := util.ParseJWT(tokenString, cfg.JWT.Secret)
		if err != nil {
			logger.Log.Debug("rejecting token", zap.Error(err))
			util.Unauthorized(c)
			c.Abort()
			return
		}
		if claims.UserID == 0 || !claims.Role.Valid() {
			util.Unauthorized(c)
			c.Abort()
			return
		}

		util.SetPrincipal(c, model.Principal{UserID: claims.UserID, Role: claims.Role})
		c.Next()
	}
}

// RoleMiddleware lets through the listed roles. Admins always pass.
func RoleMiddleware(roles ...model.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := util.GetPrincipal(c)
		if !ok {
			util.Unauthorized(c)
			c.Abort()
			return
		}

		if p.IsAdmin() {
			c.Next()
			return
		}
		for _, role := range roles {
			if p.Role == role {
				c.Next()
				return
			}
		}

		util.Forbidden(c)
		c.Abort()
	}
}
