package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *Manager) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)

	manager, err := NewManager(Config{
		Addr:       mr.Addr(),
		DefaultTTL: time.Minute,
	}, zap.NewNop())
	require.NoError(t, err)

	t.Cleanup(func() {
		manager.Close()
		mr.Close()
	})
	return mr, manager
}

func TestNewManager_BadAddr(t *testing.T) {
	_, err := NewManager(Config{Addr: "127.0.0.1:1"}, zap.NewNop())
	assert.Error(t, err)
}

func TestManager_SetAndGet(t *testing.T) {
	_, manager := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, manager.Set(ctx, "emb:abc", "payload", time.Minute))

	value, err := manager.Get(ctx, "emb:abc")
	require.NoError(t, err)
	assert.Equal(t, "payload", value)
}

func TestManager_Get_Miss(t *testing.T) {
	_, manager := setupTestRedis(t)

	_, err := manager.Get(context.Background(), "absent")
	require.Error(t, err)
	assert.True(t, IsCacheMiss(err))
}

func TestManager_JSONRoundTrip(t *testing.T) {
	_, manager := setupTestRedis(t)
	ctx := context.Background()

	in := []float64{0.1, -0.2, 0.3}
	require.NoError(t, manager.SetJSON(ctx, "emb:vec", in, 0))

	var out []float64
	require.NoError(t, manager.GetJSON(ctx, "emb:vec", &out))
	assert.Equal(t, in, out)
}

func TestManager_Set_DefaultTTL(t *testing.T) {
	mr, manager := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, manager.Set(ctx, "k", "v", 0))

	// miniredis tracks TTLs; the configured default must apply.
	assert.Equal(t, time.Minute, mr.TTL("k"))
}

func TestManager_Delete(t *testing.T) {
	_, manager := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, manager.Set(ctx, "k", "v", time.Minute))
	require.NoError(t, manager.Delete(ctx, "k"))

	_, err := manager.Get(ctx, "k")
	assert.True(t, IsCacheMiss(err))

	// no keys is a no-op
	assert.NoError(t, manager.Delete(ctx))
}

func TestManager_ClosedRejectsOperations(t *testing.T) {
	_, manager := setupTestRedis(t)
	require.NoError(t, manager.Close())

	ctx := context.Background()
	_, err := manager.Get(ctx, "k")
	assert.Error(t, err)
	assert.False(t, IsCacheMiss(err))
	assert.Error(t, manager.Set(ctx, "k", "v", 0))
	assert.Error(t, manager.Ping(ctx))
	assert.NoError(t, manager.Close()) // idempotent
}
