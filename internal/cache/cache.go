package cache

import (
	"context"
	"time"
)

// Cache stores short-lived string values
type Cache interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}
