package identity

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCodeStore(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	store := NewMemoryCodeStore()
	store.now = func() time.Time { return now }

	require.NoError(t, store.Put(ctx, "verify:a", "123456", time.Minute))
	got, err := store.Get(ctx, "verify:a")
	require.NoError(t, err)
	assert.Equal(t, "123456", got)

	now = now.Add(time.Minute)
	_, err = store.Get(ctx, "verify:a")
	assert.ErrorIs(t, err, ErrCodeNotFound, "expired codes are gone")

	require.NoError(t, store.Put(ctx, "reset:b", "x", time.Hour))
	require.NoError(t, store.Delete(ctx, "reset:b"))
	_, err = store.Get(ctx, "reset:b")
	assert.ErrorIs(t, err, ErrCodeNotFound)
}

func TestMemoryCodeStoreOverwrite(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryCodeStore()

	require.NoError(t, store.Put(ctx, "verify:a", "111111", time.Minute))
	require.NoError(t, store.Put(ctx, "verify:a", "222222", time.Minute))
	got, err := store.Get(ctx, "verify:a")
	require.NoError(t, err)
	assert.Equal(t, "222222", got)
}
