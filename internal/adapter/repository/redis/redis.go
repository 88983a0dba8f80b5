package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/vadimbarashkov/shortlink/internal/entity"
)

const (
	keyPrefix  = "link:"
	DefaultTTL = time.Hour
)

// cachedLink holds only the fields of a link that never change after creation.
type cachedLink struct {
	ID        int64     `json:"id"`
	Code      string    `json:"code"`
	TargetURL string    `json:"target_url"`
	OwnerID   *string   `json:"owner_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// LinkCache is a read-through cache for link lookups on the resolution path.
type LinkCache struct {
	client *goredis.Client
	ttl    time.Duration
}

func NewLinkCache(client *goredis.Client, ttl time.Duration) *LinkCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	return &LinkCache{
		client: client,
		ttl:    ttl,
	}
}

// Get returns nil without an error on a cache miss.
func (c *LinkCache) Get(ctx context.Context, code string) (*entity.Link, error) {
	const op = "adapter.repository.redis.LinkCache.Get"

	val, err := c.client.Get(ctx, keyPrefix+code).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, nil
		}

		return nil, fmt.Errorf("%s: failed to get cached link: %w", op, err)
	}

	var cached cachedLink
	if err := json.Unmarshal(val, &cached); err != nil {
		return nil, fmt.Errorf("%s: failed to decode cached link: %w", op, err)
	}

	return &entity.Link{
		ID:        cached.ID,
		Code:      cached.Code,
		TargetURL: cached.TargetURL,
		OwnerID:   cached.OwnerID,
		CreatedAt: cached.CreatedAt,
	}, nil
}

func (c *LinkCache) Set(ctx context.Context, link *entity.Link) error {
	const op = "adapter.repository.redis.LinkCache.Set"

	data, err := json.Marshal(cachedLink{
		ID:        link.ID,
		Code:      link.Code,
		TargetURL: link.TargetURL,
		OwnerID:   link.OwnerID,
		CreatedAt: link.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("%s: failed to encode link: %w", op, err)
	}

	if err := c.client.Set(ctx, keyPrefix+link.Code, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("%s: failed to cache link: %w", op, err)
	}

	return nil
}
