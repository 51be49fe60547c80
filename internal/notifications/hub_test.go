package notifications

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testEventuallyTimeout = 2 * time.Second
	testPollInterval      = 10 * time.Millisecond
)

func TestHub_RegisterAndBroadcast(t *testing.T) {
	hub := NewHub()

	a, err := hub.Register(10, nil)
	require.NoError(t, err)
	b, err := hub.Register(10, nil)
	require.NoError(t, err)
	other, err := hub.Register(11, nil)
	require.NoError(t, err)

	assert.Equal(t, 2, hub.Broadcast(10, []byte("hello")))
	assert.Equal(t, "hello", string(<-a.Send))
	assert.Equal(t, "hello", string(<-b.Send))
	assert.Empty(t, other.Send)

	hub.UnregisterClient(a)
	hub.UnregisterClient(a)
	assert.Equal(t, 1, hub.Connections(10))

	_, open := <-a.Send
	assert.False(t, open)

	require.NoError(t, hub.Shutdown(context.Background()))
	_, err = hub.Register(10, nil)
	assert.ErrorIs(t, err, ErrHubClosed)
}

func TestHub_PerUserLimit(t *testing.T) {
	hub := NewHub()
	defer func() { _ = hub.Shutdown(context.Background()) }()

	for range maxConnsPerUser {
		_, err := hub.Register(3, nil)
		require.NoError(t, err)
	}
	_, err := hub.Register(3, nil)
	assert.ErrorIs(t, err, ErrUserFull)
}

func TestClient_TrySendDropsWhenFull(t *testing.T) {
	hub := NewHub()
	defer func() { _ = hub.Shutdown(context.Background()) }()

	c, err := hub.Register(1, nil)
	require.NoError(t, err)
	for range sendBuffer {
		require.True(t, c.TrySend([]byte("x")))
	}
	assert.False(t, c.TrySend([]byte("overflow")))
}

func TestHub_StartWiringDeliversPublishedEvents(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = rdb.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub()
	defer func() { _ = hub.Shutdown(context.Background()) }()
	n := NewNotifier(rdb)
	require.NoError(t, hub.StartWiring(ctx, n))

	client, err := hub.Register(42, nil)
	require.NoError(t, err)

	var got Event
	require.Eventually(t, func() bool {
		_ = n.PublishUser(ctx, 42, NewEvent(EventRecipePublished, map[string]any{"id": 7}))
		select {
		case msg := <-client.Send:
			return json.Unmarshal(msg, &got) == nil
		case <-time.After(testPollInterval):
			return false
		}
	}, testEventuallyTimeout, testPollInterval)

	assert.Equal(t, EventRecipePublished, got.Type)
	assert.EqualValues(t, 7, got.Payload.(map[string]any)["id"])
}
