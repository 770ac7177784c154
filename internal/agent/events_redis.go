package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultEventStream is the Redis stream events are appended to.
const DefaultEventStream = "quiz:events"

const eventStreamMaxLen = 100_000

// RedisEventLogger appends events to a Redis stream for downstream consumers.
type RedisEventLogger struct {
	client *redis.Client
	stream string
}

func NewRedisEventLogger(client *redis.Client, stream string) *RedisEventLogger {
	if stream == "" {
		stream = DefaultEventStream
	}
	return &RedisEventLogger{client: client, stream: stream}
}

func (l *RedisEventLogger) LogEvent(event Event) error {
	if l == nil || l.client == nil {
		return fmt.Errorf("event logger client is nil")
	}
	if err := event.validate(); err != nil {
		return err
	}

	data, createdAt, err := event.payload()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
	defer cancel()

	err = l.client.XAdd(ctx, &redis.XAddArgs{
		Stream: l.stream,
		MaxLen: eventStreamMaxLen,
		Approx: true,
		Values: map[string]any{
			"session_id": event.SessionID,
			"user_id":    event.UserID,
			"channel":    event.Channel,
			"event_type": event.EventType,
			"data":       string(data),
			"created_at": createdAt.UTC().Format(time.RFC3339Nano),
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("xadd %s: %w", l.stream, err)
	}
	return nil
}
