package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gogotex/docbase/pkg/metrics"
	"github.com/redis/go-redis/v9"
)

// redis limiter keys: "docbase:rl:<rateKey>:<window index>"
const redisRatePrefix = "docbase:rl:"

// RedisRateLimitMiddleware is a fixed-window limiter shared by every replica.
// Each key may make floor(rps*window)+burst requests per window. Keying follows
// RateLimitMiddleware, so install it after AuthMiddleware to count per authority.
func RedisRateLimitMiddleware(client *redis.Client, rps float64, burst int, window time.Duration) gin.HandlerFunc {
	if client == nil {
		return RateLimitMiddleware(rps, burst)
	}
	windowSeconds := int64(window / time.Second)
	if windowSeconds <= 0 {
		windowSeconds = 1
	}
	allowed := int64(rps*float64(windowSeconds)) + int64(burst)
	ttl := time.Duration(windowSeconds+1) * time.Second

	return func(c *gin.Context) {
		ctx := c.Request.Context()
		key := fmt.Sprintf("%s%s:%d", redisRatePrefix, rateKey(c), time.Now().Unix()/windowSeconds)

		var count *redis.IntCmd
		_, err := client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			count = pipe.Incr(ctx, key)
			pipe.Expire(ctx, key, ttl)
			return nil
		})
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Rate limit check failed"})
			return
		}
		if count.Val() > allowed {
			c.Header("Retry-After", fmt.Sprintf("%d", windowSeconds))
			metrics.RateLimitRejected.WithLabelValues("redis").Inc()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded"})
			return
		}
		metrics.RateLimitAllowed.WithLabelValues("redis").Inc()
		c.Next()
	}
}
