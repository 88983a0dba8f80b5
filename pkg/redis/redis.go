package redis

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
)

// New parses a redis:// or rediss:// URL and returns a client that answered a PING.
func New(ctx context.Context, url string) (*goredis.Client, error) {
	const op = "redis.New"

	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse redis url: %w", op, err)
	}

	client := goredis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("%s: failed to ping redis: %w", op, err)
	}

	return client, nil
}
