package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/fleetgrid/fleetgrid/internal/auditctx"
	"github.com/fleetgrid/fleetgrid/internal/auth"
	"github.com/fleetgrid/fleetgrid/pkg/errors"
	"github.com/fleetgrid/fleetgrid/pkg/response"
)

const (
	CtxClaimsKey  = "authClaims"
	CtxSubjectKey = "authSubject"
)

// Auth enforces bearer token authentication using the supplied token service.
// The verified subject is propagated both into gin's context and into the
// request context as audit actor metadata.
func Auth(tokens *auth.TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authz := c.GetHeader("Authorization")
		if len(authz) < 8 || !strings.EqualFold(authz[:7], "Bearer ") {
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}

		claims, err := tokens.Verify(strings.TrimSpace(authz[7:]))
		if err != nil {
			// Normalise all validation failures to 401
			c.Header("WWW-Authenticate", "Bearer")
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}

		c.Set(CtxClaimsKey, claims)
		c.Set(CtxSubjectKey, claims.Subject)

		ctx := auditctx.WithActor(c.Request.Context(), auditctx.Actor{
			Subject:   claims.Subject,
			IPAddress: c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
		})
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}
