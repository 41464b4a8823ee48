package store

import (
	"context"
	"encoding/json"
	"time"

	"chatbot-engine/internal/models"

	"github.com/redis/go-redis/v9"
)

const (
	turnLockPrefix = "turnlock:"
	knowledgeKey   = "snapshot:knowledge"
	catalogKey     = "snapshot:catalogs"
)

// Cache holds the short-lived knowledge/catalog snapshots and the
// per-session turn lock on redis. Every method degrades: a redis failure is
// reported but callers are expected to fall through to the backing store.
type Cache struct {
	client      *redis.Client
	snapshotTTL time.Duration
	lockTTL     time.Duration
}

func NewCache(client *redis.Client, snapshotTTL, lockTTL time.Duration) *Cache {
	return &Cache{
		client:      client,
		snapshotTTL: snapshotTTL,
		lockTTL:     lockTTL,
	}
}

// AcquireTurnLock takes the per-session lock. Returns false when another
// turn for the same session is already in flight.
func (c *Cache) AcquireTurnLock(ctx context.Context, token string) (bool, error) {
	return c.client.SetNX(ctx, turnLockPrefix+token, 1, c.lockTTL).Result()
}

// ReleaseTurnLock drops the per-session lock.
func (c *Cache) ReleaseTurnLock(ctx context.Context, token string) error {
	return c.client.Del(ctx, turnLockPrefix+token).Err()
}

// Knowledge returns the cached active-knowledge snapshot, or ErrNotFound on
// a miss.
func (c *Cache) Knowledge(ctx context.Context) ([]models.KnowledgeEntry, error) {
	raw, err := c.client.Get(ctx, knowledgeKey).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var entries []models.KnowledgeEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// SetKnowledge stores the active-knowledge snapshot.
func (c *Cache) SetKnowledge(ctx context.Context, entries []models.KnowledgeEntry) error {
	raw, err := json.Marshal(entries)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, knowledgeKey, raw, c.snapshotTTL).Err()
}

// Catalogs returns the cached active-catalog snapshot, or ErrNotFound on a miss.
func (c *Cache) Catalogs(ctx context.Context) ([]models.Catalog, error) {
	raw, err := c.client.Get(ctx, catalogKey).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var catalogs []models.Catalog
	if err := json.Unmarshal(raw, &catalogs); err != nil {
		return nil, err
	}
	return catalogs, nil
}

// SetCatalogs stores the active-catalog snapshot.
func (c *Cache) SetCatalogs(ctx context.Context, catalogs []models.Catalog) error {
	raw, err := json.Marshal(catalogs)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, catalogKey, raw, c.snapshotTTL).Err()
}
