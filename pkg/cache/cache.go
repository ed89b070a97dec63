// Package cache provides pluggable byte caches for pipeline stages.
//
// The heatmap pipeline caches two kinds of results:
//
//   - Layouts, keyed by the hierarchy content hash plus canvas bounds and
//     layout options
//   - Rendered artifacts (SVG, PNG, JSON), keyed by the layout hash plus
//     render options
//
// Three backends implement [Cache]:
//
//   - [NullCache]: caching disabled
//   - [FileCache]: one JSON file per entry, for the CLI
//   - [RedisCache]: shared cache for the HTTP server
//
// Keys are built by a [Keyer]; wrap it with [NewScopedKeyer] to namespace
// keys per index or deployment.
package cache

import (
	"context"
	"time"
)

// Cache stores opaque byte values with an optional TTL.
type Cache interface {
	// Get returns the value for key. A miss is (nil, false, nil).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A zero ttl means no expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// Default TTLs per cached stage.
const (
	// TTLLayout bounds how long a computed layout is reused.
	TTLLayout = 24 * time.Hour

	// TTLArtifact bounds how long rendered output is reused.
	TTLArtifact = 24 * time.Hour
)
