package model

import (
	"context"
	"time"
)

// Cache is a volatile key-value store with per-key TTL.
type Cache interface {
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error
	// CompareAndDelete removes key only while it holds value, and reports
	// whether it did. Of concurrent callers at most one sees true.
	CompareAndDelete(ctx context.Context, key, value string) (bool, error)
}
