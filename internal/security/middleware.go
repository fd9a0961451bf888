package security

import (
	"net/http"
	"strconv"
	"time"

	"storefront/internal/util"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// contentSecurityPolicy mirrors the storefront's CDN and font allowances
const contentSecurityPolicy = "default-src 'self'; " +
	"style-src 'self' 'unsafe-inline' https://cdnjs.cloudflare.com https://fonts.googleapis.com; " +
	"script-src 'self' 'unsafe-inline' https://cdn.jsdelivr.net https://cdnjs.cloudflare.com; " +
	"img-src 'self' data: https: http:; " +
	"font-src 'self' https://fonts.gstatic.com https://cdnjs.cloudflare.com; " +
	"connect-src 'self' https: http: wss: ws:; " +
	"frame-src 'none'; object-src 'none'"

// RequestLogger records every request; side-effect only, never blocks
func RequestLogger() gin.HandlerFunc {
	logger := util.GetLogger()
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		status := c.Writer.Status()
		fields := util.RequestFields(c.Request.Method, c.Request.URL.RequestURI(), c.ClientIP(), c.Request.UserAgent())
		logger.Info("http request", append(fields,
			zap.Int("status", status),
			zap.Duration("duration", time.Since(start)))...)

		statusStr := strconv.Itoa(status)
		util.HTTPRequestDuration.WithLabelValues(c.Request.Method, c.FullPath(), statusStr).
			Observe(time.Since(start).Seconds())
		util.HTTPRequestsTotal.WithLabelValues(c.Request.Method, c.FullPath(), statusStr).Inc()
	}
}

// Headers attaches the strict security header set; declarative, no
// request inspection
func Headers() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("Content-Security-Policy", contentSecurityPolicy)
		h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains; preload")
		h.Set("X-Frame-Options", "DENY")
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-XSS-Protection", "1; mode=block")
		h.Set("Referrer-Policy", "same-origin")
		c.Next()
	}
}

// BodyLimit rejects requests whose body exceeds max bytes. Declared
// lengths are rejected up front; chunked bodies are capped so the
// body-reading stages fail instead of buffering without bound.
func BodyLimit(max int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > max {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Request entity too large"})
			return
		}
		if c.Request.Body != nil && c.Request.Body != http.NoBody {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, max)
		}
		c.Next()
	}
}

// RateLimit rejects with 429 once the client exceeds the limiter's
// window maximum. retryAfter carries the seconds remaining in the window.
func RateLimit(l *RateLimiter, name, message string) gin.HandlerFunc {
	logger := util.GetLogger()
	return func(c *gin.Context) {
		ok, retryAfter := l.Allow(c.ClientIP())
		if !ok {
			fields := util.RequestFields(c.Request.Method, c.Request.URL.RequestURI(), c.ClientIP(), c.Request.UserAgent())
			logger.Warn("Rate limit exceeded", append(fields, zap.String("limiter", name))...)
			util.RateLimitExceededTotal.WithLabelValues(name).Inc()

			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":      message,
				"retryAfter": retryAfter,
			})
			return
		}
		c.Next()
	}
}

// RateLimitFailures behaves like RateLimit but refunds requests that end
// in a success status, so only failed attempts consume the budget.
func RateLimitFailures(l *RateLimiter, name, message string) gin.HandlerFunc {
	base := RateLimit(l, name, message)
	return func(c *gin.Context) {
		base(c)
		if !c.IsAborted() && c.Writer.Status() < http.StatusBadRequest {
			l.Forgive(c.ClientIP())
		}
	}
}

// SpeedLimit delays handler execution once a client exceeds the
// threshold; it never rejects
func SpeedLimit(l *SpeedLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		delay := l.Delay(c.ClientIP())
		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-c.Request.Context().Done():
				c.Abort()
				return
			}
		}
		c.Next()
	}
}

// IPAllowlist guards operator routes. With an empty list every client is
// admitted.
func IPAllowlist(ips []string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(ips))
	for _, ip := range ips {
		allowed[ip] = struct{}{}
	}

	logger := util.GetLogger()
	return func(c *gin.Context) {
		if len(allowed) > 0 {
			if _, ok := allowed[c.ClientIP()]; !ok {
				logger.Error("Unauthorized IP access attempt",
					util.RequestFields(c.Request.Method, c.Request.URL.RequestURI(), c.ClientIP(), c.Request.UserAgent())...)
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Access denied"})
				return
			}
		}
		c.Next()
	}
}
