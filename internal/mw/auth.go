package mw

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"carretometro-backend/internal/auth"
	"carretometro-backend/internal/model"
)

const userKey = "user"

// Authenticator resolves a session token to its user.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (model.User, error)
}

// AuthRequired validates the bearer token and stores the user in the
// context. The websocket route may pass the token as ?token= since
// browsers cannot set headers on an upgrade request.
func AuthRequired(a Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "sessão obrigatória"})
			return
		}

		user, err := a.Authenticate(c.Request.Context(), token)
		if err != nil {
			status := http.StatusUnauthorized
			msg := auth.ErrInvalidToken.Error()
			if errors.Is(err, auth.ErrUserBlocked) {
				status = http.StatusForbidden
				msg = err.Error()
			} else if !errors.Is(err, auth.ErrInvalidToken) {
				status = http.StatusInternalServerError
				msg = "falha ao validar a sessão"
			}
			c.AbortWithStatusJSON(status, gin.H{"error": msg})
			return
		}

		c.Set(userKey, user)
		c.Next()
	}
}

// EditorRequired lets only users that may change visits and fleets through.
func EditorRequired() gin.HandlerFunc {
	return requireRole(auth.CanEdit)
}

// AdminRequired lets only user administrators through.
func AdminRequired() gin.HandlerFunc {
	return requireRole(auth.CanManageUsers)
}

func requireRole(allowed func(model.Role) bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "sessão obrigatória"})
			return
		}
		if !allowed(user.Role) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "você não tem permissão para esta ação"})
			return
		}
		c.Next()
	}
}

// CurrentUser returns the user stored by AuthRequired.
func CurrentUser(c *gin.Context) (model.User, bool) {
	v, exists := c.Get(userKey)
	if !exists {
		return model.User{}, false
	}
	user, ok := v.(model.User)
	return user, ok
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if token, found := strings.CutPrefix(header, "Bearer "); found {
		return strings.TrimSpace(token)
	}
	return c.Query("token")
}
