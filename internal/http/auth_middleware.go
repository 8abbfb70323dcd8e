package http

import (
	"context"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"recipeshare/internal/domain"
)

const (
	identityKey    = "auth_identity"
	accessTokenKey = "auth_access_token"
)

// Authenticator resuelve un access token a la identidad confirmada.
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (*domain.Identity, error)
}

func bearerToken(c *gin.Context) string {
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	if len(header) < len("bearer ") || !strings.EqualFold(header[:len("bearer ")], "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[len("bearer "):])
}

// RequireAuth responde 401 si no hay una sesion valida.
func RequireAuth(auth Authenticator, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			writeError(c, logger, "auth", domain.ErrUnauthenticated)
			return
		}
		ident, err := auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			writeError(c, logger, "auth", err)
			return
		}
		c.Set(identityKey, *ident)
		c.Set(accessTokenKey, token)
		c.Next()
	}
}

// OptionalAuth resuelve la identidad si hay token; un token invalido sigue como anonimo.
// Un proveedor caido corta el request, para no servir contenido como anonimo por error.
func OptionalAuth(auth Authenticator, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			c.Next()
			return
		}
		ident, err := auth.Authenticate(c.Request.Context(), token)
		switch {
		case err == nil:
			c.Set(identityKey, *ident)
			c.Set(accessTokenKey, token)
		case errors.Is(err, domain.ErrUnauthenticated):
		default:
			writeError(c, logger, "auth", err)
			return
		}
		c.Next()
	}
}

// CurrentIdentity devuelve la identidad autenticada del request.
func CurrentIdentity(c *gin.Context) (domain.Identity, bool) {
	val, ok := c.Get(identityKey)
	if !ok {
		return domain.Identity{}, false
	}
	ident, ok := val.(domain.Identity)
	return ident, ok
}

// viewerID es el id del usuario autenticado o "" si es anonimo.
func viewerID(c *gin.Context) string {
	ident, _ := CurrentIdentity(c)
	return ident.ID
}
