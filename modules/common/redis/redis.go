package redis

import (
	"context"
	"crypto/tls"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"cine-prompt-server/modules/common/config"
)

// Connect - Redis client for the in-flight guard, nil when disabled or unreachable
func Connect(cfg *config.Config) *redis.Client {
	if !cfg.RedisEnabled {
		log.Info().Msg("[Redis] disabled, using in-memory guard")
		return nil
	}

	log.Info().Str("addr", cfg.GetRedisAddr()).Msg("[Redis] connecting")

	var tlsConfig *tls.Config
	if cfg.RedisUseTLS {
		tlsConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.GetRedisAddr(),
		Username:     cfg.RedisUsername,
		Password:     cfg.RedisPassword,
		TLSConfig:    tlsConfig,
		DB:           0,
		DialTimeout:  10 * time.Second,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Error().Err(err).Msg("[Redis] ping failed, falling back to in-memory guard")
		_ = rdb.Close()
		return nil
	}

	log.Info().Msg("[Redis] connected")
	return rdb
}
