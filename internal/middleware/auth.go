// Package middleware provides authentication and authorization middleware for the Gin web framework.
package middleware

import (
	"net/http"
	"strings"

	"revisionaid/internal/config"
	"revisionaid/internal/models"
	"revisionaid/internal/observability"
	contextutils "revisionaid/internal/utils"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

// Session keys for storing the signed-in principal
const (
	// UserEmailKey is the key used to store the login email in session
	UserEmailKey = observability.SessionUserEmailKey
	// UserNameKey is the key used to store the display name in session
	UserNameKey = "user_name"
	// IsParentKey marks a parent login in session
	IsParentKey = "is_parent"
	// PrincipalKey is the gin context key holding the *models.Principal
	PrincipalKey = "principal"
)

// TokenVerifier checks a bearer token and returns who it was issued to.
type TokenVerifier interface {
	Verify(token string) (*models.Principal, error)
}

func abortUnauthorized(c *gin.Context) {
	c.JSON(http.StatusUnauthorized, gin.H{
		"error": "Authentication required",
		"code":  string(contextutils.ErrorCodeUnauthorized),
	})
	c.Abort()
}

// SessionPrincipal reads the principal stored in the session cookie, if any.
func SessionPrincipal(c *gin.Context) (*models.Principal, bool) {
	session := sessions.Default(c)
	email, ok := session.Get(UserEmailKey).(string)
	if !ok || email == "" {
		return nil, false
	}
	name, _ := session.Get(UserNameKey).(string)
	isParent, _ := session.Get(IsParentKey).(bool)
	return &models.Principal{Email: email, Name: name, IsParent: isParent}, true
}

// SavePrincipal stores p in the session cookie.
func SavePrincipal(c *gin.Context, p *models.Principal) error {
	session := sessions.Default(c)
	session.Set(UserEmailKey, p.Email)
	session.Set(UserNameKey, p.Name)
	session.Set(IsParentKey, p.IsParent)
	return session.Save()
}

// ClearPrincipal removes the signed-in principal from the session cookie.
func ClearPrincipal(c *gin.Context) error {
	session := sessions.Default(c)
	session.Clear()
	session.Options(sessions.Options{Path: config.SessionPath, MaxAge: -1})
	return session.Save()
}

// RequireAuth returns a middleware that requires a session login or a valid
// bearer token. A bearer header, when present, takes precedence over the cookie.
func RequireAuth(tokens TokenVerifier, logger *observability.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if header := c.GetHeader("Authorization"); header != "" {
			if !strings.HasPrefix(header, config.BearerPrefix) || tokens == nil {
				abortUnauthorized(c)
				return
			}
			principal, err := tokens.Verify(strings.TrimPrefix(header, config.BearerPrefix))
			if err != nil {
				if logger != nil {
					logger.Debug(c.Request.Context(), "Rejected bearer token", map[string]interface{}{
						"error": err.Error(),
						"path":  c.Request.URL.Path,
					})
				}
				abortUnauthorized(c)
				return
			}
			c.Set(PrincipalKey, principal)
			c.Next()
			return
		}

		principal, ok := SessionPrincipal(c)
		if !ok {
			abortUnauthorized(c)
			return
		}
		c.Set(PrincipalKey, principal)
		c.Next()
	}
}

// RequireStudent rejects parent logins. It must run after RequireAuth.
func RequireStudent() gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := GetPrincipal(c)
		if !ok {
			abortUnauthorized(c)
			return
		}
		if principal.IsParent {
			c.JSON(http.StatusForbidden, gin.H{
				"error": "Only students can take the quiz",
				"code":  string(contextutils.ErrorCodeForbidden),
			})
			c.Abort()
			return
		}
		c.Next()
	}
}

// GetPrincipal returns the principal RequireAuth attached to the request.
func GetPrincipal(c *gin.Context) (*models.Principal, bool) {
	v, ok := c.Get(PrincipalKey)
	if !ok {
		return nil, false
	}
	p, ok := v.(*models.Principal)
	return p, ok && p != nil
}
