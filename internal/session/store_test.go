package session

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exerciseStore(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	_, ok, err := store.Get(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Set(ctx, "abc"))
	token, ok, err := store.Get(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "abc", token)

	require.NoError(t, store.Set(ctx, "def"))
	token, _, err = store.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "def", token)

	require.NoError(t, store.Clear(ctx))
	_, ok, err = store.Get(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Clear(ctx))
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestFileStore(t *testing.T) {
	exerciseStore(t, NewFileStore(filepath.Join(t.TempDir(), "nested", "session.json")))
}

func TestFileStoreSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	ctx := context.Background()
	require.NoError(t, NewFileStore(path).Set(ctx, "persisted"))

	token, ok, err := NewFileStore(path).Get(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "persisted", token)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var values map[string]string
	require.NoError(t, json.Unmarshal(raw, &values))
	assert.Equal(t, "persisted", values[TokenKey])
}

func TestFileStoreKeepsOtherKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"theme":"dark"}`), 0o600))
	store := NewFileStore(path)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "t1"))
	require.NoError(t, store.Clear(ctx))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"theme":"dark"}`, string(raw))
}

func TestFileStoreCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte(`not json`), 0o600))
	_, _, err := NewFileStore(path).Get(context.Background())
	assert.Error(t, err)
}

func TestMemoryProviderIsolatesSessions(t *testing.T) {
	p := NewMemoryProvider(time.Hour)
	ctx := context.Background()
	require.NoError(t, p.Open("a").Set(ctx, "token-a"))

	_, ok, err := p.Open("b").Get(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	token, ok, err := p.Open("a").Get(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "token-a", token)
}

func TestMemoryProviderOnlyKeepsSignedInSessions(t *testing.T) {
	p := NewMemoryProvider(time.Hour)
	ctx := context.Background()
	exerciseStore(t, p.Open("sess-0"))

	for i := 0; i < 100; i++ {
		_, ok, err := p.Open(fmt.Sprintf("anon-%d", i)).Get(ctx)
		require.NoError(t, err)
		require.False(t, ok)
	}
	assert.Equal(t, 0, p.Len())

	require.NoError(t, p.Open("a").Set(ctx, "token-a"))
	assert.Equal(t, 1, p.Len())
	require.NoError(t, p.Open("a").Clear(ctx))
	assert.Equal(t, 0, p.Len())
}

func TestMemoryProviderExpiresTokens(t *testing.T) {
	now := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	p := NewMemoryProvider(time.Hour)
	p.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, p.Open("a").Set(ctx, "token-a"))
	now = now.Add(59 * time.Minute)
	_, ok, err := p.Open("a").Get(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, p.Open("b").Set(ctx, "token-b"))
	now = now.Add(2 * time.Minute)
	_, ok, err = p.Open("a").Get(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 1, p.Len())
}

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	p := NewRedisProviderWithClient(client, "", time.Hour)
	defer p.Close()

	require.NoError(t, p.Ping(context.Background()))
	exerciseStore(t, p.Open("sess-1"))

	require.NoError(t, p.Open("sess-2").Set(context.Background(), "xyz"))
	assert.True(t, mr.Exists(defaultKeyPrefix+"sess-2"))
	assert.Equal(t, time.Hour, mr.TTL(defaultKeyPrefix+"sess-2"))

	mr.FastForward(2 * time.Hour)
	_, ok, err := p.Open("sess-2").Get(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}
