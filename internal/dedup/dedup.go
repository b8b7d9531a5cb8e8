// Package dedup is the duplicate registry: a persisted set of
// previously-ingested work identifiers keyed by canonical ISBN-13, with
// per-ISBN serialization so two concurrent ingests of the same book
// can't both land. Entries live in Redis as one hash per canonical ISBN
// plus a SETNX lock per key.
package dedup

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rpgvault/ingest/internal/ingesterr"
	"github.com/rpgvault/ingest/internal/model"
)

const (
	entryKeyPrefix = "rpgvault:dedup:entry:"
	lockKeyPrefix  = "rpgvault:dedup:lock:"

	// lockTimeout bounds how long a per-ISBN lock acquisition attempt
	// waits before yielding store_unreachable.
	lockTimeout = 5 * time.Second
	lockTTL     = 30 * time.Second
)

// Registry is the Redis-backed duplicate registry.
type Registry struct {
	client *redis.Client
}

// New builds a Registry from a redis:// URL.
func New(redisURL string) (*Registry, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("dedup: parse redis url: %w", err)
	}
	return &Registry{client: redis.NewClient(opt)}, nil
}

// NewFromClient wraps an already-constructed client, for tests.
func NewFromClient(c *redis.Client) *Registry {
	return &Registry{client: c}
}

// Close releases the underlying connection pool.
func (r *Registry) Close() error { return r.client.Close() }

// Ping checks connectivity, used by the Session API's health() verb.
func (r *Registry) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Lookup returns the registry entry for a canonical ISBN-13, or nil if
// none exists.
func (r *Registry) Lookup(ctx context.Context, canonicalISBN string) (*model.RegistryEntry, error) {
	if canonicalISBN == "" {
		return nil, nil
	}
	raw, err := r.client.Get(ctx, entryKeyPrefix+canonicalISBN).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, ingesterr.New(ingesterr.KindStoreUnreachable, "dedup.lookup", canonicalISBN, err)
	}
	var entry model.RegistryEntry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		return nil, fmt.Errorf("dedup: decode entry %s: %w", canonicalISBN, err)
	}
	return &entry, nil
}

// WithLock acquires the per-ISBN lock (a Redis SETNX with a TTL) and
// runs fn while holding it, serializing registry operations per
// canonical ISBN. Acquisition is non-blocking with a 5-second timeout
// before yielding store_unreachable.
func (r *Registry) WithLock(ctx context.Context, canonicalISBN string, fn func(ctx context.Context) error) error {
	if canonicalISBN == "" {
		return fn(ctx)
	}
	lockKey := lockKeyPrefix + canonicalISBN
	token := fmt.Sprintf("%d", time.Now().UnixNano())

	deadline := time.Now().Add(lockTimeout)
	const pollInterval = 50 * time.Millisecond
	for {
		ok, err := r.client.SetNX(ctx, lockKey, token, lockTTL).Result()
		if err != nil {
			return ingesterr.New(ingesterr.KindStoreUnreachable, "dedup.lock", canonicalISBN, err)
		}
		if ok {
			break
		}
		if time.Now().After(deadline) {
			return ingesterr.New(ingesterr.KindStoreUnreachable, "dedup.lock", "lock held by a concurrent ingest of "+canonicalISBN, nil)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pollInterval):
		}
	}
	defer r.client.Del(context.WithoutCancel(ctx), lockKey)

	return fn(ctx)
}

// PutTentative writes a tentative registry entry, visible to Lookup
// immediately so a concurrent ingest of the same ISBN sees it as a
// duplicate even before this session finalizes.
func (r *Registry) PutTentative(ctx context.Context, entry model.RegistryEntry) error {
	return r.write(ctx, entry)
}

// Finalize marks a tentative entry completed with final counts.
func (r *Registry) Finalize(ctx context.Context, canonicalISBN string, sectionCount, wordCount int) error {
	entry, err := r.Lookup(ctx, canonicalISBN)
	if err != nil {
		return err
	}
	if entry == nil {
		return ingesterr.New(ingesterr.KindStoreUnreachable, "dedup.finalize", canonicalISBN+" has no tentative entry", nil)
	}
	entry.Status = model.RegistryStatusCompleted
	entry.SectionCount = sectionCount
	entry.WordCount = wordCount
	return r.write(ctx, *entry)
}

// DropTentative rolls back a tentative entry on any terminal failure or
// cancellation.
func (r *Registry) DropTentative(ctx context.Context, canonicalISBN string) error {
	if canonicalISBN == "" {
		return nil
	}
	if err := r.client.Del(ctx, entryKeyPrefix+canonicalISBN).Err(); err != nil {
		return ingesterr.New(ingesterr.KindStoreUnreachable, "dedup.drop", canonicalISBN, err)
	}
	return nil
}

func (r *Registry) write(ctx context.Context, entry model.RegistryEntry) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("dedup: encode entry %s: %w", entry.ISBN, err)
	}
	if err := r.client.Set(ctx, entryKeyPrefix+entry.ISBN, raw, 0).Err(); err != nil {
		return ingesterr.New(ingesterr.KindStoreUnreachable, "dedup.write", entry.ISBN, err)
	}
	return nil
}
