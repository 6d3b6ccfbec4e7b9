package config

// This file builds the Redis client behind the redis session store.  The
// connection settings come from RedisConfig, which Load fills from the
// YAML file and the REDIS_* environment variables.

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisAddr resolves the server address.  REDIS_HOST and REDIS_PORT
// together take precedence over REDIS_ADDR, which takes precedence over
// the current value.
func redisAddr(current string) string {
	host := envStr("REDIS_HOST", "")
	port := envStr("REDIS_PORT", "")
	if host != "" && port != "" {
		return host + ":" + port
	}
	return envStr("REDIS_ADDR", current)
}

// NewRedisClient instantiates a Redis client for rc and pings it with a
// short timeout.  Unlike a cache, the session store cannot degrade
// silently, so an unreachable server is reported as an error.
func NewRedisClient(ctx context.Context, rc RedisConfig) (*redis.Client, error) {
	var tlsConf *tls.Config
	if rc.TLS {
		tlsConf = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(&redis.Options{
		Addr:      rc.Addr,
		Password:  rc.Password,
		DB:        rc.DB,
		TLSConfig: tlsConf,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis %s: %w", rc.Addr, err)
	}
	return client, nil
}
