package cache

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

func newTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mini, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mini.Close)

	client := redis.NewClient(&redis.Options{Addr: mini.Addr()})
	return New(client, "progress:v1:", time.Minute), mini
}

func TestClientRoundTripAndTTL(t *testing.T) {
	c, mini := newTestClient(t)
	ctx := context.Background()
	key := c.Key("course", "1", "user", "2")
	require.Equal(t, "progress:v1:course:1:user:2", key)

	var out payload
	require.ErrorIs(t, c.Get(ctx, key, &out), ErrMiss)

	require.NoError(t, c.Set(ctx, key, payload{Name: "intro", Score: 80}))
	require.NoError(t, c.Get(ctx, key, &out))
	require.Equal(t, payload{Name: "intro", Score: 80}, out)

	mini.FastForward(2 * time.Minute)
	require.ErrorIs(t, c.Get(ctx, key, &out), ErrMiss)
}

func TestClientBatchOperations(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()
	a, b, missing := c.Key("a"), c.Key("b"), c.Key("missing")

	require.NoError(t, c.Set(ctx, a, payload{Name: "a"}))
	require.NoError(t, c.Set(ctx, b, payload{Name: "b"}))

	found, err := c.GetMany(ctx, []string{a, b, missing})
	require.NoError(t, err)
	require.Len(t, found, 2)
	require.JSONEq(t, `{"name":"a","score":0}`, string(found[a]))

	require.NoError(t, c.InvalidateMany(ctx, []string{a, b}))
	found, err = c.GetMany(ctx, []string{a, b})
	require.NoError(t, err)
	require.Empty(t, found)
}

func TestNilClientIsDisabled(t *testing.T) {
	c := New(nil, "progress", time.Minute)
	require.Nil(t, c)

	ctx := context.Background()
	var out payload
	require.ErrorIs(t, c.Get(ctx, "k", &out), ErrMiss)
	require.NoError(t, c.Set(ctx, "k", out))
	require.NoError(t, c.InvalidateMany(ctx, []string{"k"}))
	found, err := c.GetMany(ctx, []string{"k"})
	require.NoError(t, err)
	require.Empty(t, found)
}
