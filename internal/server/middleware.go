package server

import (
	"strings"

	"github.com/gin-gonic/gin"
	authdomain "github.com/smallbiznis/faktur/internal/auth/domain"
)

const contextIdentityKey = "identity"

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// AuthRequired resolves the bearer token into an identity. The user row
// is re-read on every request so role changes and deletions apply
// without waiting for token expiry.
func (s *Server) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearerToken(c)
		if raw == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		identity, err := s.authsvc.Authenticate(c.Request.Context(), raw)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		c.Set(contextIdentityKey, *identity)
		c.Next()
	}
}

// RequireAction gates the route on the caller's role via the enforcer.
func (s *Server) RequireAction(object, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := s.identity(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		if err := s.authzSvc.Authorize(c.Request.Context(), identity.Role, object, action); err != nil {
			AbortWithError(c, err)
			return
		}

		c.Next()
	}
}

func (s *Server) identity(c *gin.Context) (authdomain.Identity, bool) {
	val, ok := c.Get(contextIdentityKey)
	if !ok {
		return authdomain.Identity{}, false
	}
	identity, ok := val.(authdomain.Identity)
	return identity, ok
}
