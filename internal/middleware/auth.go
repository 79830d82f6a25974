package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"salesdesk/internal/auth"
	"salesdesk/internal/model"
	"salesdesk/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	accessTokenCookie = auth.CookieName
	actorKey          = "actor"
)

// AccountLookup loads the current state of the account behind a token.
type AccountLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
}

// Auth guards routes with the bearer token issued at login. When accounts is
// set, every request re-reads the user so deactivation and role changes take
// effect before the token expires.
type Auth struct {
	issuer   *auth.TokenIssuer
	accounts AccountLookup
}

func NewAuth(issuer *auth.TokenIssuer, accounts AccountLookup) *Auth {
	return &Auth{issuer: issuer, accounts: accounts}
}

// currentActor refreshes the token's claims from the user record.
func (a *Auth) currentActor(ctx context.Context, claimed model.Actor) (model.Actor, bool) {
	if a.accounts == nil {
		return claimed, true
	}
	user, err := a.accounts.GetByID(ctx, claimed.ID)
	if err != nil || user == nil || !user.IsActive {
		return model.Actor{}, false
	}
	return model.Actor{ID: user.ID, Email: user.Email, Name: user.Name, Role: user.Role}, true
}

// SetTokenCookie stores the access token as an HttpOnly cookie
func SetTokenCookie(c *gin.Context, token string, ttl time.Duration) {
	// Production (cross-origin): SameSiteNoneMode + Secure=true
	// Development (same-site):   SameSiteLaxMode  + Secure=false
	sameSite := http.SameSiteLaxMode
	secure := false
	if gin.Mode() == gin.ReleaseMode {
		sameSite = http.SameSiteNoneMode
		secure = true
	}

	c.SetSameSite(sameSite)
	c.SetCookie(accessTokenCookie, token, int(ttl.Seconds()), "/", "", secure, true)
}

// ClearTokenCookie removes the access_token cookie
func ClearTokenCookie(c *gin.Context) {
	sameSite := http.SameSiteLaxMode
	secure := false
	if gin.Mode() == gin.ReleaseMode {
		sameSite = http.SameSiteNoneMode
		secure = true
	}

	c.SetSameSite(sameSite)
	c.SetCookie(accessTokenCookie, "", -1, "/", "", secure, true)
}

// tokenFromRequest prefers the Authorization header and falls back to the cookie.
func tokenFromRequest(c *gin.Context) (string, string) {
	if authHeader := c.GetHeader("Authorization"); authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
			return "", "Invalid authorization format. Expected 'Bearer <token>'"
		}
		return parts[1], ""
	}
	if cookie, err := c.Cookie(accessTokenCookie); err == nil && cookie != "" {
		return cookie, ""
	}
	return "", "Authorization is missing"
}

// RequireRole validates the JWT and checks the caller's role against allowedRoles.
// A missing or invalid token is 401; a valid token with the wrong role is 403.
func (a *Auth) RequireRole(allowedRoles ...model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, problem := tokenFromRequest(c)
		if problem != "" {
			response.Abort(c, http.StatusUnauthorized, problem)
			return
		}

		claimed, err := a.issuer.Parse(tokenString)
		if err != nil {
			response.Abort(c, http.StatusUnauthorized, "Invalid or expired token")
			return
		}
		actor, ok := a.currentActor(c.Request.Context(), claimed)
		if !ok {
			response.Abort(c, http.StatusUnauthorized, "Account is disabled or no longer exists")
			return
		}

		roleAllowed := false
		for _, role := range allowedRoles {
			if actor.Role == role {
				roleAllowed = true
				break
			}
		}
		if !roleAllowed {
			response.Abort(c, http.StatusForbidden, "Access denied: insufficient permissions")
			return
		}

		c.Set(actorKey, actor)
		c.Next()
	}
}

// Authenticated admits any signed-in user.
func (a *Auth) Authenticated() gin.HandlerFunc {
	return a.RequireRole(model.RoleAdmin, model.RoleJournalist)
}

// AdminOnly admits administrators.
func (a *Auth) AdminOnly() gin.HandlerFunc {
	return a.RequireRole(model.RoleAdmin)
}

// ActorFrom returns the caller stored by RequireRole.
func ActorFrom(c *gin.Context) (model.Actor, bool) {
	v, ok := c.Get(actorKey)
	if !ok {
		return model.Actor{}, false
	}
	actor, ok := v.(model.Actor)
	return actor, ok
}
