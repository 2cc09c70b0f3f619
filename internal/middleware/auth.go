package middleware

import (
	"context"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"

	"pulgax-store/api/response"
	"pulgax-store/internal/apperrors"
	"pulgax-store/internal/auth"
)

const principalKey = "principal"

// Authenticator resolves a bearer token to the principal behind it.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*auth.Principal, error)
}

// RequireAdmin only lets admin tokens through.
func RequireAdmin(a Authenticator) gin.HandlerFunc {
	return requireRole(a, auth.RoleAdmin)
}

// RequireCustomer only lets customer tokens through.
func RequireCustomer(a Authenticator) gin.HandlerFunc {
	return requireRole(a, auth.RoleCustomer)
}

func requireRole(a Authenticator, role auth.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			response.Error(c, fmt.Errorf("%w: missing bearer token", apperrors.ErrUnauthenticated))
			return
		}
		p, err := a.Authenticate(c.Request.Context(), token)
		if err != nil {
			response.Error(c, err)
			return
		}
		if p.Role != role {
			response.Error(c, fmt.Errorf("%w: %s access required", apperrors.ErrForbidden, role))
			return
		}
		c.Set(principalKey, p)
		c.Next()
	}
}

// OptionalCustomer lets requests without a bearer token continue as guests. A
// token that is sent must authenticate; a valid non-customer token also
// continues as a guest.
func OptionalCustomer(a Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			c.Next()
			return
		}
		p, err := a.Authenticate(c.Request.Context(), token)
		if err != nil {
			response.Error(c, err)
			return
		}
		if p.Role == auth.RoleCustomer {
			c.Set(principalKey, p)
		}
		c.Next()
	}
}

// PrincipalFrom returns the principal set by one of the auth gates.
func PrincipalFrom(c *gin.Context) (*auth.Principal, bool) {
	v, ok := c.Get(principalKey)
	if !ok {
		return nil, false
	}
	p, ok := v.(*auth.Principal)
	return p, ok
}

func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
