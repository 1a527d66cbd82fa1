package valkey

import (
	"context"
	"fmt"
	"time"

	"github.com/valkey-io/valkey-go"
)

// DefaultKeyPrefix namespaces every key written by the service.
const DefaultKeyPrefix = "nrplanner:"

// Options configures the Valkey client.
type Options struct {
	Addr      string
	KeyPrefix string
	// LocalTTL enables server-assisted client-side caching of reads for
	// this long. Zero disables it.
	LocalTTL time.Duration
}

// Cache implements ports.CacheService using Valkey (Redis-compatible).
type Cache struct {
	client   valkey.Client
	prefix   string
	localTTL time.Duration
}

// New creates a new Valkey cache client.
func New(opts Options) (*Cache, error) {
	if opts.KeyPrefix == "" {
		opts.KeyPrefix = DefaultKeyPrefix
	}
	client, err := valkey.NewClient(valkey.ClientOption{
		InitAddress:  []string{opts.Addr},
		DisableCache: opts.LocalTTL <= 0,
	})
	if err != nil {
		return nil, fmt.Errorf("valkey connect %s: %w", opts.Addr, err)
	}
	return &Cache{client: client, prefix: opts.KeyPrefix, localTTL: opts.LocalTTL}, nil
}

func (c *Cache) key(k string) string { return c.prefix + k }

// Get retrieves a value by key. A missing key yields nil, nil.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, error) {
	var res valkey.ValkeyResult
	if c.localTTL > 0 {
		res = c.client.DoCache(ctx, c.client.B().Get().Key(c.key(key)).Cache(), c.localTTL)
	} else {
		res = c.client.Do(ctx, c.client.B().Get().Key(c.key(key)).Build())
	}
	b, err := res.AsBytes()
	if valkey.IsValkeyNil(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("valkey get %s: %w", key, err)
	}
	return b, nil
}

// Set stores a value that expires after ttlSeconds.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttlSeconds int) error {
	if ttlSeconds <= 0 {
		return fmt.Errorf("valkey set %s: ttl must be positive, got %d", key, ttlSeconds)
	}
	cmd := c.client.B().Set().Key(c.key(key)).Value(valkey.BinaryString(value)).
		Ex(time.Duration(ttlSeconds) * time.Second).Build()
	if err := c.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("valkey set %s: %w", key, err)
	}
	return nil
}

// Delete removes a key.
func (c *Cache) Delete(ctx context.Context, key string) error {
	return c.client.Do(ctx, c.client.B().Del().Key(c.key(key)).Build()).Error()
}

// Ping checks connectivity for readiness probes.
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Do(ctx, c.client.B().Ping().Build()).Error()
}

// Close releases the client.
func (c *Cache) Close() {
	c.client.Close()
}
