package notification

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisPublisher is satisfied by *redis.Client
type RedisPublisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// RedisSink publishes each event on the per-user channel "notifications:<userID>"
type RedisSink struct {
	client RedisPublisher
}

func NewRedisSink(client RedisPublisher) *RedisSink {
	return &RedisSink{client: client}
}

// NewRedisClient builds the client used by the sink
func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

func UserChannel(userID string) string {
	return fmt.Sprintf("notifications:%s", userID)
}

func (s *RedisSink) Notify(ctx context.Context, userID string, event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("notification: encode event: %w", err)
	}
	if err := s.client.Publish(ctx, UserChannel(userID), body).Err(); err != nil {
		return fmt.Errorf("notification: redis publish: %w", err)
	}
	return nil
}
