package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"onboarding-hub/internal/config"
)

var RedisClient *redis.Client

// InitRedis connects to REDIS_ADDRESS. RedisClient stays nil when the server
// does not answer a ping.
func InitRedis(ctx context.Context) {
	client := redis.NewClient(&redis.Options{
		Addr: config.AppConfig.RedisAddress,
	})

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if _, err := client.Ping(ctx).Result(); err != nil {
		log.Warn().Err(err).Str("addr", config.AppConfig.RedisAddress).Msg("redis not available, running without redis")
		client.Close()
		RedisClient = nil
		return
	}

	RedisClient = client
	log.Info().Str("addr", config.AppConfig.RedisAddress).Msg("redis connected successfully")
}

func CloseRedis() {
	if RedisClient == nil {
		return
	}
	if err := RedisClient.Close(); err != nil {
		log.Warn().Err(err).Msg("failed to close redis")
	}
	RedisClient = nil
}
