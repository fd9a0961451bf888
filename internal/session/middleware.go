package session

import (
	"net/http"

	"storefront/config"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const contextKey = "sessionID"

// Middleware ensures every request carries a session cookie. New visitors
// get a fresh id; the cookie is httpOnly and SameSite strict with the
// configured TTL.
func Middleware(cfg config.SessionConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		sid, err := c.Cookie(cfg.CookieName)
		if err != nil || sid == "" {
			sid = uuid.New().String()
		}

		http.SetCookie(c.Writer, &http.Cookie{
			Name:     cfg.CookieName,
			Value:    sid,
			Path:     "/",
			MaxAge:   int(cfg.TTL.Seconds()),
			Secure:   cfg.Secure,
			HttpOnly: true,
			SameSite: http.SameSiteStrictMode,
		})

		c.Set(contextKey, sid)
		c.Next()
	}
}

// ID returns the session id the middleware attached to the request
func ID(c *gin.Context) string {
	return c.GetString(contextKey)
}
