package services

import (
	"context"
	"os"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

const redisTokenPrefix = "captcha:token:"

// RedisTokenStore is the multi-instance TokenStore. Redis owns the TTL, and
// GETDEL makes consumption atomic across instances, so a token stored on one
// server verifies exactly once no matter which server the vote lands on.
type RedisTokenStore struct {
	client *redis.Client
}

func NewRedisTokenStore(addr string) *RedisTokenStore {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: os.Getenv("REDIS_PASSWORD"),
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		logrus.Fatalf("Failed to connect to Redis at %s: %v", addr, err)
	}
	return &RedisTokenStore{client: client}
}

func (s *RedisTokenStore) Store(token string) {
	err := s.client.Set(context.Background(), redisTokenPrefix+token, 1, tokenTTL).Err()
	if err != nil {
		logrus.Errorf("Failed to store CAPTCHA token: %v", err)
	}
}

func (s *RedisTokenStore) Verify(token string) bool {
	// GETDEL: present and unexpired means consumed in one round trip.
	err := s.client.GetDel(context.Background(), redisTokenPrefix+token).Err()
	if err == redis.Nil {
		return false
	}
	if err != nil {
		logrus.Errorf("Failed to verify CAPTCHA token: %v", err)
		return false
	}
	return true
}

func (s *RedisTokenStore) Stop() {
	if err := s.client.Close(); err != nil {
		logrus.Errorf("Failed to close Redis client: %v", err)
	}
}
