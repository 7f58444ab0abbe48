package auth

import (
	"context"
	"net/http"
	"time"

	"github.com/Benrobo/nexusai-sub000/pkg/logger"

	"github.com/gin-gonic/gin"
)

const (
	// CookieToken carries the access JWT; CookieUserID mirrors the user id so
	// the refresh path can find the stored Google refresh token after the
	// access token has already expired.
	CookieToken  = "token"
	CookieUserID = "_uId"
)

// Refresher re-establishes a session after access-token verification fails.
// The Google OAuth implementation validates the tenant's stored refresh token
// against Google and mints a fresh local token pair.
type Refresher interface {
	Refresh(ctx context.Context, userID string) (TokenPair, Identity, error)
}

// RequireSession verifies the cookie session and injects Identity into the
// request context. On verification failure it attempts the refresh flow once
// before responding 401.
func RequireSession(m *Manager, refresher Refresher) gin.HandlerFunc {
	return func(c *gin.Context) {
		tok, err := c.Cookie(CookieToken)
		if err == nil && tok != "" {
			claims, verr := m.Verify(tok, TokenTypeAccess, time.Now())
			if verr == nil {
				setIdentity(c, Identity{UserID: claims.UserID, Email: claims.Email})
				c.Next()
				return
			}
		}

		// Refresh path: needs the uid cookie and a configured refresher.
		uid, uidErr := c.Cookie(CookieUserID)
		if refresher == nil || uidErr != nil || uid == "" {
			abortUnauthorized(c)
			return
		}

		pair, id, rerr := refresher.Refresh(c.Request.Context(), uid)
		if rerr != nil {
			logger.FromGin(c).Warn("session refresh failed", "user_id", uid, "err", rerr)
			abortUnauthorized(c)
			return
		}

		SetSessionCookies(c, pair.AccessToken, id.UserID, m.AccessTTL())
		setIdentity(c, id)
		c.Next()
	}
}

// SetSessionCookies writes the HTTP-only cookie pair.
func SetSessionCookies(c *gin.Context, accessToken, userID string, ttl time.Duration) {
	maxAge := int(ttl.Seconds())
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(CookieToken, accessToken, maxAge, "/", "", true, true)
	c.SetCookie(CookieUserID, userID, maxAge, "/", "", true, true)
}

// ClearSessionCookies expires both session cookies.
func ClearSessionCookies(c *gin.Context) {
	c.SetCookie(CookieToken, "", -1, "/", "", true, true)
	c.SetCookie(CookieUserID, "", -1, "/", "", true, true)
}

func setIdentity(c *gin.Context, id Identity) {
	ctx := WithIdentity(c.Request.Context(), id)
	c.Request = c.Request.WithContext(ctx)
}

func abortUnauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "code": "UNAUTHORIZED"})
}
