package middlewares

import (
	"net/http"
	"os"
	"time"

	"urbanreport-be/config"

	"github.com/gin-gonic/gin"
)

// IssueRateLimiter caps how many issues a single user can report per day,
// tracked with a per-user redis counter. When redis is not configured the
// limiter is a pass-through.
func IssueRateLimiter(limit int) gin.HandlerFunc {
	return func(c *gin.Context) {
		if config.RedisClient == nil {
			c.Next()
			return
		}

		userIDVal, _ := c.Get("user_id")
		userID, ok := userIDVal.(string)
		if !ok || userID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
			c.Abort()
			return
		}

		keyPrefix := os.Getenv("REDIS_QUEUE_FOR_ISSUE_LIMIT")
		if keyPrefix == "" {
			keyPrefix = "issues:reported"
		}
		userKey := keyPrefix + ":" + userID

		ctx := config.Ctx
		count, err := config.RedisClient.Incr(ctx, userKey).Result()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "redis error incrementing count"})
			c.Abort()
			return
		}

		// TTL starts on the first report of the rolling day
		if count == 1 {
			if err := config.RedisClient.Expire(ctx, userKey, 24*time.Hour).Err(); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "redis error setting TTL"})
				c.Abort()
				return
			}
		}

		if count > int64(limit) {
			retryAfter, _ := config.RedisClient.TTL(ctx, userKey).Result()
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":       "rate limit exceeded",
				"retry_after": retryAfter.Seconds(),
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
