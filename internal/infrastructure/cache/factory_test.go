package cache

import (
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/residentia/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func redisConfigFor(t *testing.T, addr string) config.RedisConfig {
	t.Helper()
	host, portStr, err := net.SplitHostPort(addr)
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)
	return config.RedisConfig{Host: host, Port: port}
}

func TestIdempotencyStoreFactory_MemoryBackend(t *testing.T) {
	f := NewIdempotencyStoreFactory(config.RedisConfig{}, config.IdempotencyConfig{Backend: BackendMemory})

	store, err := f.CreateStore()
	require.NoError(t, err)
	defer store.Close()
	assert.IsType(t, &InMemoryIdempotencyStore{}, store)
}

func TestIdempotencyStoreFactory_RedisBackend(t *testing.T) {
	mr := miniredis.RunT(t)
	f := NewIdempotencyStoreFactory(redisConfigFor(t, mr.Addr()), config.IdempotencyConfig{
		Backend:   BackendRedis,
		TTL:       time.Hour,
		KeyPrefix: "idempotency:",
	})

	store, err := f.CreateStore()
	require.NoError(t, err)
	defer store.Close()
	assert.IsType(t, &RedisIdempotencyStore{}, store)
}

func TestIdempotencyStoreFactory_UnreachableRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := redisConfigFor(t, mr.Addr())
	mr.Close()

	t.Run("fails without fallback", func(t *testing.T) {
		f := NewIdempotencyStoreFactory(cfg, config.IdempotencyConfig{Backend: BackendRedis})
		_, err := f.CreateStore()
		assert.ErrorContains(t, err, "redis required for idempotency")
	})

	t.Run("falls back to memory when allowed", func(t *testing.T) {
		f := NewIdempotencyStoreFactory(cfg, config.IdempotencyConfig{Backend: BackendRedis, InMemoryFallback: true})
		store, err := f.CreateStore()
		require.NoError(t, err)
		defer store.Close()
		assert.IsType(t, &InMemoryIdempotencyStore{}, store)
	})
}
