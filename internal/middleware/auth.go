package middleware

import (
	"net/http"
	"slices"
	"strings"

	"erpadmin/internal/auth"
	pkgerrors "erpadmin/pkg/errors"
	"erpadmin/pkg/logger"
	"erpadmin/pkg/response"

	"github.com/gin-gonic/gin"
)

const accessTokenCookie = "access_token"

// Auth guards routes with bearer or cookie access tokens.
type Auth struct {
	tokens *auth.Tokens
	log    *logger.Logger
}

func NewAuth(tokens *auth.Tokens, log *logger.Logger) *Auth {
	if log == nil {
		log = logger.Nop()
	}
	return &Auth{tokens: tokens, log: log}
}

// SetTokenCookie stores the access token as an HttpOnly cookie
func SetTokenCookie(c *gin.Context, token string, maxAge int) {
	// Production (cross-origin): SameSiteNoneMode + Secure=true
	// Development (same-site):   SameSiteLaxMode  + Secure=false
	sameSite := http.SameSiteLaxMode
	secure := false
	if gin.Mode() == gin.ReleaseMode {
		sameSite = http.SameSiteNoneMode
		secure = true
	}

	c.SetSameSite(sameSite)
	c.SetCookie(accessTokenCookie, token, maxAge, "/", "", secure, true)
}

func abort(c *gin.Context, code pkgerrors.Code, msg string) {
	status := pkgerrors.MetadataFor(code).HTTPStatus
	c.AbortWithStatusJSON(status, response.CodedError(status, string(code), msg))
}

// RequireRole validates the access token and checks the caller's role is one of allowedRoles.
// With no roles any authenticated caller passes.
func (a *Auth) RequireRole(allowedRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Try cookie first, fallback to Authorization header
		tokenString, cookieErr := c.Cookie(accessTokenCookie)
		if cookieErr != nil || tokenString == "" {
			authHeader := c.GetHeader("Authorization")
			if authHeader == "" {
				abort(c, pkgerrors.CodeUnauthorized, "Authorization is missing")
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				abort(c, pkgerrors.CodeUnauthorized, "Invalid authorization format. Expected 'Bearer <token>'")
				return
			}
			tokenString = parts[1]
		}

		session, err := a.tokens.Parse(tokenString)
		if err != nil {
			abort(c, pkgerrors.CodeUnauthorized, "Invalid token")
			return
		}

		if len(allowedRoles) > 0 && !slices.Contains(allowedRoles, session.Role) {
			abort(c, pkgerrors.CodeForbidden, "Access denied: insufficient permissions")
			return
		}

		ctx := auth.WithSession(c.Request.Context(), session)
		ctx = a.log.WithUserID(ctx, session.UserID.String())
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}
