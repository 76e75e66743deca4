package database

import (
	"context"
	"fmt"
	"time"

	"waste-marketplace/pkg/utils"

	"github.com/redis/go-redis/v9"
)

// InitRedis creates the client backing idempotency keys
func InitRedis(config utils.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis %s failed: %w", config.Addr, err)
	}

	return rdb, nil
}
