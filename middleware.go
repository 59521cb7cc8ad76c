package main

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const identityKey = "player_identity"
const displayNameKey = "player_display_name"

// getLimiter returns a rate limiter for the given key (usually client IP).
func (app *App) getLimiter(key string) *rate.Limiter {
	app.LimiterMutex.Lock()
	defer app.LimiterMutex.Unlock()
	if lim, ok := app.LimiterMap[key]; ok {
		return lim
	}
	rps := app.RateLimitRPS
	if rps <= 0 {
		rps = 1
	}
	lim := rate.NewLimiter(rate.Every(time.Second/time.Duration(rps)), app.RateLimitBurst)
	app.LimiterMap[key] = lim
	return lim
}

// rateLimitMiddleware enforces per-client rate limiting.
func (app *App) rateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !app.getLimiter(c.ClientIP()).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			return
		}
		c.Next()
	}
}

// requestIDMiddleware injects a request ID into the context for each request.
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := c.Request.Header.Get("X-Request-Id")
		if reqID == "" {
			reqID = uuid.NewString()
		}
		ctx := context.WithValue(c.Request.Context(), requestIDKey, reqID)
		c.Request = c.Request.WithContext(ctx)
		c.Header("X-Request-Id", reqID)
		c.Next()
	}
}

// identityMiddleware resolves the caller's player identity from a bearer
// token and aborts when the route requires one and none is presented.
func (app *App) identityMiddleware(required bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			if required {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": ErrorUnauthorized})
			}
			c.Next()
			return
		}
		token := strings.TrimPrefix(header, "Bearer ")
		claims, err := app.Issuer.Verify(token)
		if err != nil {
			if required {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": ErrorUnauthorized})
				return
			}
			c.Next()
			return
		}
		c.Set(identityKey, claims.Subject)
		c.Set(displayNameKey, claims.DisplayName)
		c.Next()
	}
}

// playerIdentity returns the verified identity set by identityMiddleware.
func playerIdentity(c *gin.Context) string {
	return c.GetString(identityKey)
}

// isValidSessionID reports whether an ID is a UUID this server could have
// minted. Everything that touches the snapshot store keys off this.
func isValidSessionID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// getOrCreateSession retrieves the solo session ID from the cookie or
// creates a new one. A cookie that is not a UUID is replaced, never used.
func (app *App) getOrCreateSession(c *gin.Context) string {
	sessionID, err := c.Cookie(SessionCookieName)
	if err != nil || !isValidSessionID(sessionID) {
		sessionID = uuid.NewString()
		c.SetSameSite(http.SameSiteStrictMode)
		c.SetCookie(SessionCookieName, sessionID, int(app.CookieMaxAge.Seconds()), "/", "", app.IsProduction, true)
	}
	return sessionID
}

// profileIdentity keys the power-up wallet: the verified player identity
// when a token is presented, the solo session ID otherwise.
func (app *App) profileIdentity(c *gin.Context) string {
	if id := playerIdentity(c); id != "" {
		return id
	}
	return app.getOrCreateSession(c)
}
