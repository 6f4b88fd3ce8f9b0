// Package ratelimit implements per-IP rate limiting for the HTTP
// endpoints using an in-memory store.
package ratelimit

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	"go.uber.org/zap"

	"github.com/turbowire/turbowire/internal/v1/config"
	"github.com/turbowire/turbowire/internal/v1/logging"
	"github.com/turbowire/turbowire/internal/v1/metrics"
)

// RateLimiter holds the limiter instances for the authenticated
// endpoints.
type RateLimiter struct {
	broadcast *limiter.Limiter
	sign      *limiter.Limiter
	store     limiter.Store
}

// NewRateLimiter creates a RateLimiter from the configured formatted
// rates (e.g. "600-M").
func NewRateLimiter(cfg *config.Config) (*RateLimiter, error) {
	broadcastRate, err := limiter.NewRateFromFormatted(cfg.RateLimitBroadcast)
	if err != nil {
		return nil, fmt.Errorf("invalid broadcast rate: %w", err)
	}

	signRate, err := limiter.NewRateFromFormatted(cfg.RateLimitSign)
	if err != nil {
		return nil, fmt.Errorf("invalid sign rate: %w", err)
	}

	store := memory.NewStore()

	return &RateLimiter{
		broadcast: limiter.New(store, broadcastRate),
		sign:      limiter.New(store, signRate),
		store:     store,
	}, nil
}

// MiddlewareForEndpoint returns a Gin middleware enforcing the per-IP
// limit for the named endpoint. Store failures fail open.
func (rl *RateLimiter) MiddlewareForEndpoint(endpoint string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var limiterInstance *limiter.Limiter
		switch endpoint {
		case "sign":
			limiterInstance = rl.sign
		default:
			limiterInstance = rl.broadcast
		}

		ctx := c.Request.Context()
		lctx, err := limiterInstance.Get(ctx, c.ClientIP())
		if err != nil {
			// Fail open: availability over strictness.
			logging.Error(ctx, "Rate limiter store failed", zap.Error(err))
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.FormatInt(lctx.Limit, 10))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(lctx.Remaining, 10))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(lctx.Reset, 10))

		if lctx.Reached {
			metrics.RateLimitExceeded.WithLabelValues(endpoint).Inc()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "Too many requests",
				"retry_after": lctx.Reset,
			})
			return
		}

		c.Next()
	}
}
