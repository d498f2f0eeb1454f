package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/backend-pricing/internal/resilience"
)

// Cache wraps Redis helpers for JSON payloads.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache constructs a cache helper. A nil client disables caching.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

// GetJSON unmarshals a cached JSON payload into dst. It reports whether the key existed.
func (c *Cache) GetJSON(ctx context.Context, key string, dst any) (bool, error) {
	if c == nil || c.client == nil || key == "" {
		return false, nil
	}
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, err
	}
	return true, nil
}

// SetJSON serialises v as JSON and stores it with the configured TTL.
func (c *Cache) SetJSON(ctx context.Context, key string, v any) error {
	if c == nil {
		return nil
	}
	return c.SetJSONFor(ctx, key, v, c.ttl)
}

// SetJSONFor stores v for at most ttl, never longer than the configured TTL.
func (c *Cache) SetJSONFor(ctx context.Context, key string, v any, ttl time.Duration) error {
	if c == nil || c.client == nil || key == "" || c.ttl <= 0 || ttl <= 0 {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, data, min(ttl, c.ttl)).Err()
}

// VersionKey holds the offer-set version counter.
const VersionKey = "pricing:offers:version"

// Versioner tracks the offer-set version. Every change to offers or product
// prices bumps it, which moves quote lookups onto fresh cache keys.
type Versioner struct {
	client *redis.Client
	key    string
}

// NewVersioner returns a Versioner using VersionKey.
func NewVersioner(client *redis.Client) *Versioner {
	return &Versioner{client: client, key: VersionKey}
}

// Current returns the active version, 0 when it has never been bumped.
func (v *Versioner) Current(ctx context.Context) (int64, error) {
	if v == nil || v.client == nil {
		return 0, nil
	}
	n, err := v.client.Get(ctx, v.key).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return n, err
}

// Bump advances the version and returns the new value.
func (v *Versioner) Bump(ctx context.Context) (int64, error) {
	if v == nil || v.client == nil {
		return 0, errors.New("catalog: versioner has no redis client")
	}
	return v.client.Incr(ctx, v.key).Result()
}

// QuoteCache memoizes product quotes per (product, quantity, offer-set version).
// Calls run through an optional breaker so a struggling Redis is bypassed
// instead of adding latency to every quote.
type QuoteCache struct {
	cache    *Cache
	versions *Versioner
	breaker  *resilience.Breaker
}

// NewQuoteCache builds a quote cache on client with the given entry TTL.
func NewQuoteCache(client *redis.Client, ttl time.Duration) *QuoteCache {
	return &QuoteCache{cache: NewCache(client, ttl), versions: NewVersioner(client)}
}

// WithBreaker guards cache calls with b.
func (q *QuoteCache) WithBreaker(b *resilience.Breaker) *QuoteCache {
	q.breaker = b
	return q
}

// Version returns the offer-set version quotes are currently keyed on.
func (q *QuoteCache) Version(ctx context.Context) (int64, error) {
	if q == nil {
		return 0, nil
	}
	var version int64
	err := q.breaker.Do(ctx, func(ctx context.Context) error {
		var err error
		version, err = q.versions.Current(ctx)
		return err
	})
	return version, err
}

// Get looks up a quote stored under version.
func (q *QuoteCache) Get(ctx context.Context, version int64, productID uuid.UUID, quantity int) (ProductQuote, bool, error) {
	var out ProductQuote
	if q == nil {
		return out, false, nil
	}
	var found bool
	err := q.breaker.Do(ctx, func(ctx context.Context) error {
		var err error
		found, err = q.cache.GetJSON(ctx, quoteKey(version, productID, quantity), &out)
		return err
	})
	return out, found, err
}

// Set stores a quote under version. The entry expires no later than the next
// time one of the quote's offers starts or ends. Quotes carrying undecodable
// offers are not stored.
func (q *QuoteCache) Set(ctx context.Context, version int64, productID uuid.UUID, quantity int, quote ProductQuote) error {
	if q == nil || hasMalformed(quote.Offers) {
		return nil
	}
	ttl := q.cache.ttl
	if b, ok := nextBoundary(quote.Offers, quote.QuotedAt); ok {
		ttl = min(ttl, max(b.Sub(quote.QuotedAt), time.Millisecond))
	}
	return q.breaker.Do(ctx, func(ctx context.Context) error {
		return q.cache.SetJSONFor(ctx, quoteKey(version, productID, quantity), quote, ttl)
	})
}

func quoteKey(version int64, productID uuid.UUID, quantity int) string {
	return fmt.Sprintf("pricing:quote:v%d:%s:%d", version, productID, quantity)
}
