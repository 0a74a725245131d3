package database

import (
	"context"
	"log"
	"strings"

	"github.com/redis/go-redis/v9"

	"splitcircle-backend/config"
)

var Redis *redis.Client

// ConnectRedis is optional: without redis, deferred reminders fall back to an
// in-process queue and are lost on restart.
func ConnectRedis() {
	Redis = newRedisClient(config.AppConfig.RedisURL)

	if _, err := Redis.Ping(context.Background()).Result(); err != nil {
		log.Println("⚠️  Redis not available, deferred reminders will not survive restarts:", err)
		Redis = nil
		return
	}

	log.Println("✅ Redis connected successfully")
}

// newRedisClient accepts both a bare host:port and a redis:// URL.
func newRedisClient(addr string) *redis.Client {
	if strings.Contains(addr, "://") {
		if opts, err := redis.ParseURL(addr); err == nil {
			return redis.NewClient(opts)
		}
	}
	return redis.NewClient(&redis.Options{Addr: addr})
}
