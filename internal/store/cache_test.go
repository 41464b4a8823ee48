package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatbot-engine/internal/models"
)

func newMiniCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewCache(client, 2*time.Minute, time.Minute), mr
}

func TestTurnLock(t *testing.T) {
	cache, _ := newMiniCache(t)
	ctx := context.Background()

	acquired, err := cache.AcquireTurnLock(ctx, "tok-1")
	require.NoError(t, err)
	assert.True(t, acquired)

	// Second acquisition for the same session fails while held.
	acquired, err = cache.AcquireTurnLock(ctx, "tok-1")
	require.NoError(t, err)
	assert.False(t, acquired)

	// Other sessions are independent.
	acquired, err = cache.AcquireTurnLock(ctx, "tok-2")
	require.NoError(t, err)
	assert.True(t, acquired)

	require.NoError(t, cache.ReleaseTurnLock(ctx, "tok-1"))
	acquired, err = cache.AcquireTurnLock(ctx, "tok-1")
	require.NoError(t, err)
	assert.True(t, acquired)
}

func TestTurnLockExpires(t *testing.T) {
	cache, mr := newMiniCache(t)
	ctx := context.Background()

	acquired, err := cache.AcquireTurnLock(ctx, "tok-1")
	require.NoError(t, err)
	require.True(t, acquired)

	// A crashed turn releases via TTL.
	mr.FastForward(2 * time.Minute)

	acquired, err = cache.AcquireTurnLock(ctx, "tok-1")
	require.NoError(t, err)
	assert.True(t, acquired)
}

func TestKnowledgeSnapshot(t *testing.T) {
	cache, mr := newMiniCache(t)
	ctx := context.Background()

	_, err := cache.Knowledge(ctx)
	assert.ErrorIs(t, err, ErrNotFound)

	entries := []models.KnowledgeEntry{
		{ID: 1, Category: "entrega", Question: "Qual o prazo?", Answer: "48h", IsActive: true},
	}
	require.NoError(t, cache.SetKnowledge(ctx, entries))

	got, err := cache.Knowledge(ctx)
	require.NoError(t, err)
	assert.Equal(t, entries, got)

	// The snapshot is short-lived.
	mr.FastForward(3 * time.Minute)
	_, err = cache.Knowledge(ctx)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCatalogSnapshot(t *testing.T) {
	cache, _ := newMiniCache(t)
	ctx := context.Background()

	catalogs := []models.Catalog{
		{ID: 1, Name: "Catálogo Bridor", FileURL: "https://example.com/c.pdf", IsActive: true},
	}
	require.NoError(t, cache.SetCatalogs(ctx, catalogs))

	got, err := cache.Catalogs(ctx)
	require.NoError(t, err)
	assert.Equal(t, catalogs, got)
}

func TestKnowledgeSnapshotRedisFailure(t *testing.T) {
	client, mock := redismock.NewClientMock()
	cache := NewCache(client, time.Minute, time.Minute)

	mock.ExpectGet("snapshot:knowledge").SetErr(errors.New("connection refused"))

	_, err := cache.Knowledge(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
