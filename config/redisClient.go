package config

import (
	"context"
	"fmt"
	"os"

	"github.com/redis/go-redis/v9"
)

var Ctx = context.Background()
var RedisClient *redis.Client

// ConnectRedis initializes the Redis client. Returns false when
// REDIS_ADDRESS is not set; the rate limiter and the atomic issue
// sequencer degrade gracefully in that case.
func ConnectRedis() bool {
	redisAddr := os.Getenv("REDIS_ADDRESS")
	if redisAddr == "" {
		return false
	}
	redisPassword := os.Getenv("REDIS_PASSWORD")

	RedisClient = redis.NewClient(&redis.Options{
		Addr:     redisAddr,
		Password: redisPassword,
		DB:       0, // default DB
	})

	if _, err := RedisClient.Ping(Ctx).Result(); err != nil {
		panic(fmt.Sprintf("Failed to connect to Redis: %v", err))
	}

	return true
}
