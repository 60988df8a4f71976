package redisstream

import (
	"context"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestOpen_RequiresAddr(t *testing.T) {
	_, err := Open(Settings{}, watermill.NopLogger{})
	require.ErrorContains(t, err, "addr is required")
}

func TestEnsureGroupAtTail_IsIdempotent(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = client.Close() }()

	ctx := context.Background()
	require.NoError(t, EnsureGroupAtTail(ctx, client, "faqchat.checkpoints", "g1"))
	require.NoError(t, EnsureGroupAtTail(ctx, client, "faqchat.checkpoints", "g1"))

	n, err := client.Exists(ctx, "faqchat.checkpoints").Result()
	require.NoError(t, err)
	require.Equal(t, int64(1), n)
}

func TestOpenWithClient_DefaultsGroupAndConsumer(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	tr, err := OpenWithClient(client, Settings{Addr: mr.Addr()}, watermill.NopLogger{})
	require.NoError(t, err)
	require.NotNil(t, tr.Publisher)
	require.NotNil(t, tr.Subscriber)
	require.NoError(t, tr.Close())
}
