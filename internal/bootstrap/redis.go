package bootstrap

import (
	"context"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/atelier-digital/atelier-backend/config"
)

// OpenRedis returns nil when no address is configured or the ping
// fails; callers treat a nil client as "run on in-process fallbacks".
func OpenRedis(ctx context.Context, cfg config.RedisConfig) *redis.Client {
	if cfg.Addr == "" {
		log.Printf("[redis] not configured, using in-memory fallbacks")
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := client.Ping(pctx).Err(); err != nil {
		log.Printf("[redis] ping failed (%v), using in-memory fallbacks", err)
		_ = client.Close()
		return nil
	}

	log.Printf("[redis] connected to %s", cfg.Addr)
	return client
}
