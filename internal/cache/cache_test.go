package cache

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNopCacheAlwaysMisses(t *testing.T) {
	var c DirectoryCache = NopCache{}
	ctx := context.Background()

	require.NoError(t, c.SetUsers(ctx, nil, time.Minute))
	_, err := c.GetUsers(ctx)
	assert.ErrorIs(t, err, ErrCacheMiss)
	assert.NoError(t, c.Invalidate(ctx))
	assert.NoError(t, c.Close())
}

func TestRedisCacheKey(t *testing.T) {
	c := NewRedisDirectoryCache(redis.NewClient(&redis.Options{Addr: "localhost:0"}), "chat:directory")
	defer c.Close()
	assert.Equal(t, "chat:directory:users", c.usersKey())
}

func TestRedisCacheUnreachable(t *testing.T) {
	// Reserve a port and release it so nothing is listening there.
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	client := redis.NewClient(&redis.Options{
		Addr:        addr,
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	c := NewRedisDirectoryCache(client, "test")
	defer c.Close()

	_, err = c.GetUsers(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCacheMiss)
}
