package http

import (
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopsense/backend/internal/domain"
	"golang.org/x/time/rate"
)

const (
	requestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"
)

// CORSMiddleware allows the configured browser origins. Entries ending in "*"
// match by prefix.
func CORSMiddleware(allowedOrigins []string) gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowOriginFunc: func(origin string) bool {
			return isAllowedOrigin(origin, allowedOrigins)
		},
		AllowMethods:     []string{"POST", "GET", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Authorization", "X-Requested-With", requestIDHeader},
		ExposeHeaders:    []string{requestIDHeader},
		AllowCredentials: true,
		MaxAge:           time.Hour,
	})
}

// isAllowedOrigin checks if the origin is in the allowed list
func isAllowedOrigin(origin string, allowedOrigins []string) bool {
	for _, allowed := range allowedOrigins {
		if strings.HasSuffix(allowed, "*") {
			prefix := strings.TrimSuffix(allowed, "*")
			if strings.HasPrefix(origin, prefix) {
				return true
			}
		} else if origin == allowed {
			return true
		}
	}
	return false
}

// RequestIDMiddleware propagates or assigns an X-Request-ID
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

// requestLogger returns logger annotated with the request id, if any
func requestLogger(c *gin.Context, logger zerolog.Logger) *zerolog.Logger {
	l := logger.With().Str(requestIDKey, c.GetString(requestIDKey)).Logger()
	return &l
}

// LoggerMiddleware logs one structured line per request
func LoggerMiddleware(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		status := c.Writer.Status()
		event := requestLogger(c, logger).Info()
		if status >= http.StatusInternalServerError {
			event = requestLogger(c, logger).Error()
		} else if status >= http.StatusBadRequest {
			event = requestLogger(c, logger).Warn()
		}

		event.
			Str("method", c.Request.Method).
			Str("path", path).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Msg("request handled")
	}
}

// RecoveryMiddleware turns a panic into a 500 error response
func RecoveryMiddleware(logger zerolog.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		requestLogger(c, logger).Error().Interface("panic", recovered).Str("path", c.Request.URL.Path).Msg("recovered from panic")
		c.AbortWithStatusJSON(http.StatusInternalServerError, domain.ErrorResponse{
			Error:   "Failed to process search",
			Details: fmt.Sprint(recovered),
		})
	})
}

const (
	limiterIdleTTL       = 3 * time.Minute
	limiterSweepInterval = time.Minute
)

// ipRateLimiter hands out one token bucket per client IP. Buckets idle for
// limiterIdleTTL are dropped; a full refill takes one minute, so a dropped
// bucket and a fresh one behave the same.
type ipRateLimiter struct {
	mu        sync.Mutex
	limiters  map[string]*clientLimiter
	limit     rate.Limit
	burst     int
	now       func() time.Time
	lastSweep time.Time
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newIPRateLimiter(perMinute int) *ipRateLimiter {
	return &ipRateLimiter{
		limiters:  make(map[string]*clientLimiter),
		limit:     rate.Limit(float64(perMinute) / 60),
		burst:     perMinute,
		now:       time.Now,
		lastSweep: time.Now(),
	}
}

func (l *ipRateLimiter) allow(ip string) bool {
	l.mu.Lock()
	now := l.now()
	if now.Sub(l.lastSweep) >= limiterSweepInterval {
		l.removeIdle(now)
	}
	client, ok := l.limiters[ip]
	if !ok {
		client = &clientLimiter{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[ip] = client
	}
	client.lastSeen = now
	l.mu.Unlock()
	return client.limiter.AllowN(now, 1)
}

// removeIdle drops buckets not used since limiterIdleTTL. Callers hold mu.
func (l *ipRateLimiter) removeIdle(now time.Time) {
	for ip, client := range l.limiters {
		if now.Sub(client.lastSeen) >= limiterIdleTTL {
			delete(l.limiters, ip)
		}
	}
	l.lastSweep = now
}

func (l *ipRateLimiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.limiters)
}

// RateLimitMiddleware limits each client IP to perMinute requests per minute.
// A non-positive perMinute disables limiting.
func RateLimitMiddleware(perMinute int) gin.HandlerFunc {
	if perMinute <= 0 {
		return func(c *gin.Context) { c.Next() }
	}

	limiter := newIPRateLimiter(perMinute)
	return func(c *gin.Context) {
		if !limiter.allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, domain.ErrorResponse{
				Error: "Too many requests",
			})
			return
		}
		c.Next()
	}
}
