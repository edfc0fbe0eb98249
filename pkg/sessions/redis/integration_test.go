//go:build integration

package redis

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/dukex/blitz/pkg/models"
	"github.com/dukex/blitz/pkg/sessions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupRedis(t *testing.T) string {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	t.Cleanup(cancel)

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	require.NoError(t, err)

	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	endpoint, err := container.Endpoint(ctx, "redis")
	require.NoError(t, err)

	return endpoint
}

func TestStore_Integration(t *testing.T) {
	url := setupRedis(t)
	ctx := t.Context()

	store, err := NewStore(ctx, url, slog.Default(), WithMaxMessages(3), WithTTL(time.Minute))
	require.NoError(t, err)

	t.Cleanup(func() { _ = store.Close() })

	history, err := store.History(ctx, "s-1")
	require.NoError(t, err)
	assert.Empty(t, history)

	require.NoError(t, store.Append(ctx, "s-1", sessions.Exchange("hi", "hello")...))
	require.NoError(t, store.Append(ctx, "s-1", sessions.Exchange("cancel", "which order?")...))

	history, err = store.History(ctx, "s-1")
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, models.ConversationMessage{Role: models.ConversationAssistant, Content: "hello"}, history[0])
	assert.Equal(t, "which order?", history[2].Content)

	ttl, err := store.client.TTL(ctx, key("s-1")).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
	assert.LessOrEqual(t, ttl, time.Minute)
}
