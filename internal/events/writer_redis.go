package events

import (
	"context"
	"fmt"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/redis/go-redis/v9"
)

// RedisStreamWriter appends every event to a redis stream. The topic passed by
// the producer is stored as a field since the stream name is fixed.
type RedisStreamWriter struct {
	client redis.UniversalClient
	stream string
	maxLen int64
}

func NewRedisStreamWriter(client redis.UniversalClient, stream string) *RedisStreamWriter {
	return &RedisStreamWriter{
		client: client,
		stream: stream,
		maxLen: 10000,
	}
}

// NewRedisStreamWriterFromURL parses a redis:// url and returns a writer owning the client.
func NewRedisStreamWriterFromURL(url, stream string) (*RedisStreamWriter, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	return NewRedisStreamWriter(redis.NewClient(opts), stream), nil
}

func (r *RedisStreamWriter) Write(ctx context.Context, topic string, e cloudevents.Event) error {
	return r.client.XAdd(ctx, &redis.XAddArgs{
		Stream: r.stream,
		MaxLen: r.maxLen,
		Approx: true,
		Values: map[string]any{
			"id":     e.ID(),
			"type":   e.Type(),
			"source": e.Source(),
			"topic":  topic,
			"time":   e.Time().Format("2006-01-02T15:04:05.000000Z07:00"),
			"data":   string(e.Data()),
		},
	}).Err()
}

func (r *RedisStreamWriter) Close(_ context.Context) error {
	return r.client.Close()
}
