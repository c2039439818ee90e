package cache

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/matzehuels/gridroute/pkg/errors"
)

func TestNullCache(t *testing.T) {
	ctx := context.Background()
	c := NewNullCache()
	defer c.Close()

	require.NoError(t, c.Set(ctx, "key", []byte("value"), time.Hour))
	data, hit, err := c.Get(ctx, "key")
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Nil(t, data)
	assert.NoError(t, c.Delete(ctx, "key"))
}

func TestFileCache(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(filepath.Join(t.TempDir(), "cache"))
	require.NoError(t, err)

	_, hit, err := c.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, c.Set(ctx, "a", []byte("alpha"), 0))
	require.NoError(t, c.Set(ctx, "b", []byte("beta"), time.Hour))
	data, hit, err := c.Get(ctx, "a")
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, []byte("alpha"), data)

	require.NoError(t, c.Delete(ctx, "a"))
	require.NoError(t, c.Delete(ctx, "a"), "deleting twice is fine")
	_, hit, _ = c.Get(ctx, "a")
	assert.False(t, hit)

	n, err := c.Clear()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	_, hit, _ = c.Get(ctx, "b")
	assert.False(t, hit)
}

func TestFileCache_ExpiredAndCorruptEntriesMiss(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, c.Set(ctx, "old", []byte("x"), time.Nanosecond))
	time.Sleep(2 * time.Millisecond)
	_, hit, err := c.Get(ctx, "old")
	require.NoError(t, err)
	assert.False(t, hit)
	assert.NoFileExists(t, c.path("old"))

	require.NoError(t, c.Set(ctx, "bad", []byte("x"), 0))
	require.NoError(t, os.WriteFile(c.path("bad"), []byte("{"), 0o644))
	_, hit, err = c.Get(ctx, "bad")
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	c, err := Open(ctx, "", dir)
	require.NoError(t, err)
	assert.IsType(t, &FileCache{}, c)

	c, err = Open(ctx, "none", dir)
	require.NoError(t, err)
	assert.IsType(t, &NullCache{}, c)

	_, err = Open(ctx, "memcached://x", dir)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput))
}

func TestHash(t *testing.T) {
	h1 := Hash([]byte("hello"))
	assert.Equal(t, h1, Hash([]byte("hello")))
	assert.NotEqual(t, h1, Hash([]byte("world")))
	assert.Len(t, h1, 64)
}

func TestDefaultKeyer(t *testing.T) {
	k := NewDefaultKeyer()
	base := ResultKeyOpts{Mode: "congestion", MaxIterations: 8, Threshold: 1}

	k1 := k.ResultKey("abc", base)
	assert.Equal(t, k1, k.ResultKey("abc", base))
	assert.True(t, strings.HasPrefix(k1, "result:"))
	assert.NotEqual(t, k1, k.ResultKey("abd", base))

	other := base
	other.PartitionsX = 2
	assert.NotEqual(t, k1, k.ResultKey("abc", other))

	a1 := k.ArtifactKey(k1, ArtifactKeyOpts{Format: "svg"})
	a2 := k.ArtifactKey(k1, ArtifactKeyOpts{Format: "png"})
	assert.NotEqual(t, a1, a2)
	assert.True(t, strings.HasPrefix(a1, "artifact:"))
}

func TestScopedKeyer(t *testing.T) {
	scoped := NewScopedKeyer(nil, "server:")
	key := scoped.ResultKey("abc", ResultKeyOpts{})
	assert.Equal(t, "server:"+NewDefaultKeyer().ResultKey("abc", ResultKeyOpts{}), key)
	assert.True(t, strings.HasPrefix(scoped.ArtifactKey(key, ArtifactKeyOpts{}), "server:artifact:"))
}

func TestRetryable(t *testing.T) {
	assert.Nil(t, Retryable(nil))
	err := Retryable(ErrNetwork)
	assert.True(t, IsRetryable(err))
	assert.ErrorIs(t, err, ErrNetwork)
	assert.Equal(t, ErrNetwork.Error(), err.Error())
	assert.False(t, IsRetryable(ErrNetwork))
}

func TestRetryWithBackoff(t *testing.T) {
	saved := retryDelay
	retryDelay = time.Millisecond
	defer func() { retryDelay = saved }()
	ctx := context.Background()

	calls := 0
	err := RetryWithBackoff(ctx, func() error {
		calls++
		if calls < 2 {
			return Retryable(ErrNetwork)
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)

	calls = 0
	plain := os.ErrPermission
	err = RetryWithBackoff(ctx, func() error { calls++; return plain })
	assert.ErrorIs(t, err, plain)
	assert.Equal(t, 1, calls, "non-retryable errors stop at once")

	calls = 0
	err = RetryWithBackoff(ctx, func() error { calls++; return Retryable(ErrNetwork) })
	assert.True(t, IsRetryable(err))
	assert.Equal(t, 3, calls)

	cctx, cancel := context.WithCancel(ctx)
	cancel()
	err = RetryWithBackoff(cctx, func() error { return Retryable(ErrNetwork) })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRedisTTL(t *testing.T) {
	assert.Equal(t, time.Duration(0), redisTTL(-time.Second))
	assert.Equal(t, time.Duration(0), redisTTL(0))
	assert.Equal(t, time.Minute, redisTTL(time.Minute))
}

func TestMongoEntry(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	e := newMongoEntry("k", []byte("v"), time.Hour, now)
	raw, err := bson.Marshal(e)
	require.NoError(t, err)

	var doc bson.M
	require.NoError(t, bson.Unmarshal(raw, &doc))
	assert.Equal(t, "k", doc["_id"])
	assert.Contains(t, doc, "expires_at")

	var back mongoEntry
	require.NoError(t, bson.Unmarshal(raw, &back))
	assert.Equal(t, []byte("v"), back.Data)
	assert.True(t, back.ExpiresAt.Equal(now.Add(time.Hour)))
	assert.False(t, back.expired(now))
	assert.True(t, back.expired(now.Add(2*time.Hour)))

	forever := newMongoEntry("k", nil, 0, now)
	raw, err = bson.Marshal(forever)
	require.NoError(t, err)
	doc = bson.M{}
	require.NoError(t, bson.Unmarshal(raw, &doc))
	assert.NotContains(t, doc, "expires_at")
	assert.False(t, forever.expired(now.Add(1000*time.Hour)))
}

func TestMongoDatabase(t *testing.T) {
	assert.Equal(t, "routes", mongoDatabase("mongodb://localhost:27017/routes"))
	assert.Equal(t, DefaultMongoDatabase, mongoDatabase("mongodb://localhost:27017"))
	assert.Equal(t, DefaultMongoDatabase, mongoDatabase("mongodb://localhost:27017/"))
}
