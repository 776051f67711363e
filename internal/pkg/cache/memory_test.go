package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryGetSetExpiry(t *testing.T) {
	m := NewMemory()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "k", []byte("v"), time.Minute))
	got, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)

	now = now.Add(2 * time.Minute)
	_, err = m.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestMemoryDeletePattern(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	_ = m.Set(ctx, "adverts:list:a", []byte("1"), 0)
	_ = m.Set(ctx, "adverts:list:b", []byte("1"), 0)
	_ = m.Set(ctx, "categories:tree", []byte("1"), 0)

	require.NoError(t, m.DeletePattern(ctx, "adverts:list:*"))

	_, err := m.Get(ctx, "adverts:list:a")
	assert.ErrorIs(t, err, ErrMiss)
	_, err = m.Get(ctx, "categories:tree")
	assert.NoError(t, err)
}

func TestMemoryLock(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	ok, err := m.AcquireLock(ctx, "lock", "a", time.Second)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, _ = m.AcquireLock(ctx, "lock", "b", time.Second)
	assert.False(t, ok)

	require.NoError(t, m.ReleaseLock(ctx, "lock", "b"))
	ok, _ = m.AcquireLock(ctx, "lock", "b", time.Second)
	assert.False(t, ok, "release with the wrong value must not free the lock")

	require.NoError(t, m.ReleaseLock(ctx, "lock", "a"))
	ok, _ = m.AcquireLock(ctx, "lock", "b", time.Second)
	assert.True(t, ok)
}

func TestWithLock(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	busy := errors.New("busy")

	called := false
	err := WithLock(ctx, m, "lock:x", "v1", time.Second, busy, func() error {
		called = true
		held, _ := m.AcquireLock(ctx, "lock:x", "other", time.Second)
		assert.False(t, held)
		return nil
	})
	require.NoError(t, err)
	assert.True(t, called)

	ok, _ := m.AcquireLock(ctx, "lock:x", "v2", time.Second)
	require.True(t, ok)
	err = WithLock(ctx, m, "lock:x", "v3", time.Second, busy, func() error {
		t.Fatal("must not run while locked")
		return nil
	})
	assert.ErrorIs(t, err, busy)
}
