package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"leafscan/internal/models"
)

// RateLimitMiddleware limits detection requests per client IP
type RateLimitMiddleware struct {
	logger   *zap.Logger
	visitors map[string]*Visitor
	mutex    sync.Mutex
	limit    rate.Limit
	burst    int
	idleTTL  time.Duration
}

// Visitor represents a client with its token bucket
type Visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimitMiddleware allows perMinute requests per client IP with the given burst
func NewRateLimitMiddleware(logger *zap.Logger, perMinute, burst int, idleTTL time.Duration) *RateLimitMiddleware {
	if burst < 1 {
		burst = 1
	}
	if idleTTL <= 0 {
		idleTTL = time.Hour
	}

	r := &RateLimitMiddleware{
		logger:   logger,
		visitors: make(map[string]*Visitor),
		limit:    rate.Limit(float64(perMinute) / 60),
		burst:    burst,
		idleTTL:  idleTTL,
	}

	// Start cleanup goroutine to remove old entries
	go r.cleanupOldEntries()

	return r
}

// RateLimit limits requests based on IP address
func (r *RateLimitMiddleware) RateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()

		if !r.visitor(ip).Allow() {
			r.logger.Warn("Rate limit exceeded", zap.String("ip", ip))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, models.ErrorResponse{
				Error:     "Rate limit exceeded, please try again later",
				Category:  "rate_limited",
				Retryable: true,
			})
			return
		}

		c.Next()
	}
}

func (r *RateLimitMiddleware) visitor(ip string) *rate.Limiter {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	v, exists := r.visitors[ip]
	if !exists {
		v = &Visitor{limiter: rate.NewLimiter(r.limit, r.burst)}
		r.visitors[ip] = v
	}
	v.lastSeen = time.Now()

	return v.limiter
}

// cleanupOldEntries periodically removes idle visitors to prevent memory leaks
func (r *RateLimitMiddleware) cleanupOldEntries() {
	ticker := time.NewTicker(r.idleTTL)
	defer ticker.Stop()

	for range ticker.C {
		r.mutex.Lock()
		cutoff := time.Now().Add(-r.idleTTL)
		for ip, visitor := range r.visitors {
			if visitor.lastSeen.Before(cutoff) {
				delete(r.visitors, ip)
			}
		}
		r.mutex.Unlock()
	}
}
