package services

import (
	"context"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
)

const denylistPrefix = "denylist:"

// TokenDenylistService revokes JWTs ahead of their expiry. Redis is
// optional infrastructure: without it the service degrades to "nothing is
// revoked" and tokens simply live until they expire.
type TokenDenylistService struct {
	redis *redis.Client
}

func NewTokenDenylistService(redisClient *redis.Client) *TokenDenylistService {
	return &TokenDenylistService{redis: redisClient}
}

func (s *TokenDenylistService) Add(tokenString string, expiration time.Duration) error {
	if s.redis == nil {
		return nil
	}
	key := denylistPrefix + tokenString
	return s.redis.Set(context.Background(), key, 1, expiration).Err()
}

func (s *TokenDenylistService) IsDenylisted(tokenString string) (bool, error) {
	if s.redis == nil {
		return false, nil
	}
	key := denylistPrefix + tokenString
	val, err := s.redis.Get(context.Background(), key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}
	return val != "", nil
}
