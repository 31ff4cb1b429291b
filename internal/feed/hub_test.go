package feed_test

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/p-n-ai/pai-adaptive/internal/feed"
	"github.com/p-n-ai/pai-adaptive/internal/interaction"
)

func TestNewHub_SaltTooLong(t *testing.T) {
	_, err := feed.NewHub(strings.Repeat("s", 65))
	assert.Error(t, err)
}

func TestPseudonym(t *testing.T) {
	a, err := feed.NewHub("salt-a")
	require.NoError(t, err)
	b, err := feed.NewHub("salt-b")
	require.NoError(t, err)

	p := a.Pseudonym("alice")
	assert.Equal(t, p, a.Pseudonym("alice"), "stable for the same salt")
	assert.NotEqual(t, p, a.Pseudonym("bob"))
	assert.NotEqual(t, p, b.Pseudonym("alice"), "salt changes the pseudonym")
	assert.NotContains(t, p, "alice")
	assert.True(t, strings.HasPrefix(p, "learner-"))
}

func TestPublish_NoSubscribers(t *testing.T) {
	hub, err := feed.NewHub("")
	require.NoError(t, err)

	hub.Publish(interaction.Event{LearnerID: "alice", ContentID: "a"})
	assert.Zero(t, hub.Subscribers())
}

func dial(t *testing.T, hub *feed.Hub) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(hub)
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.CloseNow() })

	require.Eventually(t, func() bool { return hub.Subscribers() == 1 },
		5*time.Second, 10*time.Millisecond)
	return c
}

func TestHub_StreamsEvents(t *testing.T) {
	hub, err := feed.NewHub("pepper")
	require.NoError(t, err)
	c := dial(t, hub)

	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	hub.Publish(interaction.Event{
		LearnerID: "alice",
		ContentID: "stats_basics",
		Correct:   true,
		LevelUp:   true,
		CreatedAt: at,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	typ, data, err := c.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, websocket.MessageText, typ)

	var msg feed.Message
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.Equal(t, feed.TypeLevelUp, msg.Type)
	assert.Equal(t, hub.Pseudonym("alice"), msg.Learner)
	assert.Equal(t, "stats_basics", msg.ContentID)
	assert.True(t, msg.Correct)
	assert.True(t, msg.At.Equal(at))
	assert.NotContains(t, string(data), "alice")
}

func TestHub_Close(t *testing.T) {
	hub, err := feed.NewHub("")
	require.NoError(t, err)
	c := dial(t, hub)

	hub.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, _, err = c.Read(ctx)
	assert.Equal(t, websocket.StatusGoingAway, websocket.CloseStatus(err))
	assert.Eventually(t, func() bool { return hub.Subscribers() == 0 },
		5*time.Second, 10*time.Millisecond)
}
