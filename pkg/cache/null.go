package cache

import (
	"context"
	"time"
)

// nullCache drops every write and misses every read. It backs
// NewNullCache so disabling the cache never needs a nil check at call
// sites.
type nullCache struct{}

// NewNullCache returns a cache that stores nothing. Used when caching
// is disabled and for the license scoring client, whose responses are
// never cacheable.
func NewNullCache() Cache {
	return nullCache{}
}

func (nullCache) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }

func (nullCache) Set(context.Context, string, []byte, time.Duration) error { return nil }

func (nullCache) Delete(context.Context, string) error { return nil }

func (nullCache) Close() error { return nil }

var _ Cache = nullCache{}
