// Package cache stores routing results and rendered artifacts between runs.
//
// # Backends
//
//   - [FileCache]: one JSON file per key under a directory, for the CLI
//   - [RedisCache]: a shared Redis instance, for the HTTP server
//   - [MongoCache]: a MongoDB collection with a TTL index
//   - [NullCache]: stores nothing, for --no-cache and tests
//
// [Open] picks a backend from a short spec string so the CLI and the server
// share one flag format.
//
// # Keys
//
// A [Keyer] derives keys from the hash of the design and the options that
// change the outcome. Keys are stable across processes: identical inputs
// always hit the same entry.
package cache

import (
	"context"
	"strings"
	"time"

	"github.com/matzehuels/gridroute/pkg/errors"
)

// DefaultTTL is how long results stay cached when no TTL is configured.
const DefaultTTL = 7 * 24 * time.Hour

// Cache is a byte-oriented key/value store with expiry.
type Cache interface {
	// Get returns the data stored under key. A miss is (nil, false, nil).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A non-positive ttl never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend connections.
	Close() error
}

// Open returns the backend described by spec:
//
//	""  or "file"          file cache in dir
//	"none"                 null cache
//	"redis://..."          Redis (go-redis URL syntax)
//	"mongodb://..."        MongoDB; the URI path names the database
func Open(ctx context.Context, spec, dir string) (Cache, error) {
	switch {
	case spec == "" || spec == "file":
		c, err := NewFileCache(dir)
		if err != nil {
			return nil, err
		}
		return c, nil
	case spec == "none":
		return NewNullCache(), nil
	case strings.HasPrefix(spec, "redis://"), strings.HasPrefix(spec, "rediss://"):
		c, err := NewRedisCache(ctx, spec)
		if err != nil {
			return nil, err
		}
		return c, nil
	case strings.HasPrefix(spec, "mongodb://"), strings.HasPrefix(spec, "mongodb+srv://"):
		c, err := NewMongoCache(ctx, spec)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
	return nil, errors.New(errors.ErrCodeInvalidInput, "unknown cache backend %q (want file, none, redis://... or mongodb://...)", spec)
}
