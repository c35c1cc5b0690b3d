package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	audience "github.com/retailmedia-labs/audience-agent"
)

func newTestStore(t *testing.T, opts ...Option) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewFromClient(client, opts...), mr
}

func TestStoreRoundtrip(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	state := audience.NewState()
	state.AppendAssistant("hello, which product?")
	state.AppendUser("Trail Runner 5")
	state.ProductName = "Trail Runner 5"
	state.CurrentStage = audience.StageLookupProduct

	require.NoError(t, store.Save(ctx, "sess-1", state))

	got, err := store.Get(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, state.CurrentStage, got.CurrentStage)
	assert.Equal(t, state.ProductName, got.ProductName)
	require.Len(t, got.History, 2)
	assert.Equal(t, audience.RoleUser, got.History[1].Role)
}

func TestStoreMissingSession(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	_, err := store.Get(ctx, "never-saved")
	assert.ErrorIs(t, err, audience.ErrSessionNotFound)
}

func TestStoreExpiry(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestStore(t, WithTTL(time.Minute))

	require.NoError(t, store.Save(ctx, "sess-1", audience.NewState()))

	mr.FastForward(30 * time.Second)
	_, err := store.Get(ctx, "sess-1")
	require.NoError(t, err)

	// Saving refreshes the TTL.
	require.NoError(t, store.Save(ctx, "sess-1", audience.NewState()))
	mr.FastForward(45 * time.Second)
	_, err = store.Get(ctx, "sess-1")
	require.NoError(t, err)

	mr.FastForward(time.Minute)
	_, err = store.Get(ctx, "sess-1")
	assert.ErrorIs(t, err, audience.ErrSessionNotFound)
}

func TestStoreLock(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	unlock, err := store.Lock(ctx, "sess-1")
	require.NoError(t, err)

	// A second acquisition blocks until the first holder releases.
	acquireCtx, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
	defer cancel()
	_, err = store.Lock(acquireCtx, "sess-1")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	require.NoError(t, unlock(ctx))

	unlock2, err := store.Lock(ctx, "sess-1")
	require.NoError(t, err)
	require.NoError(t, unlock2(ctx))
}

func TestStoreLockIsPerSession(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	unlock1, err := store.Lock(ctx, "sess-1")
	require.NoError(t, err)
	defer unlock1(ctx)

	unlock2, err := store.Lock(ctx, "sess-2")
	require.NoError(t, err)
	defer unlock2(ctx)
}
