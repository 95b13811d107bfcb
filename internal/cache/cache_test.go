package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redisv9 "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfolio-chatbot/internal/model"
)

func newClient(t *testing.T) (*miniredis.Miniredis, *redisv9.Client) {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redisv9.NewClient(&redisv9.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return srv, client
}

func TestHistoryCacheRoundTripAndInvalidate(t *testing.T) {
	srv, client := newClient(t)
	c := NewHistoryCache(client, time.Minute, 5*time.Second)
	ctx := context.Background()

	_, hit, err := c.GetHistory(ctx, 1)
	require.NoError(t, err)
	assert.False(t, hit)

	history := []model.Message{
		{ID: 1, ChatID: 1, Sender: model.SenderBot, Text: "<html></html>"},
		{ID: 2, ChatID: 1, Sender: model.SenderUser, Text: "make it blue"},
	}
	require.NoError(t, c.SetHistory(ctx, 1, history))

	got, hit, err := c.GetHistory(ctx, 1)
	require.NoError(t, err)
	require.True(t, hit)
	require.Len(t, got, 2)
	assert.Equal(t, "make it blue", got[1].Text)

	require.NoError(t, c.Invalidate(ctx, 1))
	_, hit, err = c.GetHistory(ctx, 1)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, c.SetHistory(ctx, 1, history))
	srv.FastForward(2 * time.Minute)
	_, hit, err = c.GetHistory(ctx, 1)
	require.NoError(t, err)
	assert.False(t, hit, "entries expire with the configured ttl")
}

func TestHistoryCacheDirtyMarkerExpires(t *testing.T) {
	srv, client := newClient(t)
	c := NewHistoryCache(client, time.Minute, 5*time.Second)
	ctx := context.Background()

	dirty, err := c.IsDirty(ctx, 1)
	require.NoError(t, err)
	assert.False(t, dirty)

	require.NoError(t, c.MarkDirty(ctx, 1))
	dirty, err = c.IsDirty(ctx, 1)
	require.NoError(t, err)
	assert.True(t, dirty)

	dirty, err = c.IsDirty(ctx, 2)
	require.NoError(t, err)
	assert.False(t, dirty)

	srv.FastForward(6 * time.Second)
	dirty, err = c.IsDirty(ctx, 1)
	require.NoError(t, err)
	assert.False(t, dirty)
}

func TestTokenRevokerExpires(t *testing.T) {
	srv, client := newClient(t)
	r := NewTokenRevoker(client)
	ctx := context.Background()

	require.NoError(t, r.Revoke(ctx, "jti-1", time.Minute))
	revoked, err := r.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = r.IsRevoked(ctx, "jti-2")
	require.NoError(t, err)
	assert.False(t, revoked)

	srv.FastForward(2 * time.Minute)
	revoked, err = r.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, r.Revoke(ctx, "jti-3", 0))
	revoked, err = r.IsRevoked(ctx, "jti-3")
	require.NoError(t, err)
	assert.False(t, revoked, "already expired tokens are not stored")
}
