package database

import (
	"context"

	"github.com/go-redis/redis/v8"

	"github.com/mahalbangetid-beep/scb-sub002/config"
)

// ConnectRedis builds the redis client used for the token denylist and
// cached user lookups. Callers may run without redis (nil client); consumers
// treat it as an optional cache.
func ConnectRedis(cfg *config.Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisFullAddr(),
		Password: cfg.RedisPassword,
		DB:       0, // use default DB
	})

	if _, err := client.Ping(context.Background()).Result(); err != nil {
		return nil, err
	}
	return client, nil
}
