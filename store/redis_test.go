package store

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/ltr/core"
)

// TestRedisStore 需要真实的 Redis（设置 LTR_TEST_REDIS_ADDR 才运行）
func TestRedisStore(t *testing.T) {
	addr := os.Getenv("LTR_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("LTR_TEST_REDIS_ADDR not set")
	}

	ctx := context.Background()
	s, err := NewRedisStore(addr, 0, WithKeyPrefix("ltr-test:"))
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.BatchSet(ctx, map[string][]byte{"a": []byte("1")}))
	got, err := s.BatchGet(ctx, []string{"a", "missing"})
	require.NoError(t, err)
	assert.Equal(t, map[string][]byte{"a": []byte("1")}, got)

	require.NoError(t, s.HSet(ctx, "models", "m", []byte("{}")))
	all, err := s.HGetAll(ctx, "models")
	require.NoError(t, err)
	assert.Contains(t, all, "m")
	require.NoError(t, s.HDel(ctx, "models", "m"))
	_, err = s.HGet(ctx, "models", "m")
	assert.True(t, core.IsStoreNotFound(err))

	require.NoError(t, s.Delete(ctx, "a"))
}
