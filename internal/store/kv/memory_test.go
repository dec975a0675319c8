package kv

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_PutGet(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "k1", map[string]int{"a": 1}, PutOptions{}))

	var out map[string]int
	found, err := s.Get(ctx, "k1", &out)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 1, out["a"])
}

func TestMemoryStore_Miss(t *testing.T) {
	s := NewMemory()
	var out string
	found, err := s.Get(context.Background(), "missing", &out)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestMemoryStore_TTLExpiry(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, "expiring", "v", PutOptions{TTL: time.Millisecond}))
	time.Sleep(5 * time.Millisecond)

	var out string
	found, err := s.Get(ctx, "expiring", &out)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestMemoryStore_CompareAndSwap(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	// create-only CAS
	require.NoError(t, s.CompareAndSwap(ctx, "counter", nil, 1, PutOptions{}))
	err := s.CompareAndSwap(ctx, "counter", nil, 1, PutOptions{})
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.CompareAndSwap(ctx, "counter", 1, 2, PutOptions{}))

	err = s.CompareAndSwap(ctx, "counter", 1, 3, PutOptions{})
	assert.ErrorIs(t, err, ErrNotFound)

	var out int
	found, err := s.Get(ctx, "counter", &out)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 2, out)
}

func TestMemoryStore_ListPrefix(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()
	for _, k := range []string{"rate:a:1", "rate:a:2", "rate:b:1", "other:1"} {
		require.NoError(t, s.Put(ctx, k, "v", PutOptions{}))
	}

	res, err := s.List(ctx, "rate:", "", 10)
	require.NoError(t, err)
	assert.Len(t, res.Keys, 3)
	assert.Empty(t, res.Cursor)
}

func TestMemoryStore_ListPagination(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()
	for _, k := range []string{"p:1", "p:2", "p:3"} {
		require.NoError(t, s.Put(ctx, k, "v", PutOptions{}))
	}

	first, err := s.List(ctx, "p:", "", 2)
	require.NoError(t, err)
	assert.Len(t, first.Keys, 2)
	require.NotEmpty(t, first.Cursor)

	second, err := s.List(ctx, "p:", first.Cursor, 2)
	require.NoError(t, err)
	assert.Len(t, second.Keys, 1)
	assert.Empty(t, second.Cursor)
}
