package cmd

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/dukex/blitz/pkg/models"
	"github.com/dukex/blitz/pkg/persistence/file"
	sessionfile "github.com/dukex/blitz/pkg/sessions/file"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePersistenceProvider(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"file:///tmp/blitz":                "file",
		"./data":                           "file",
		"postgres://u:p@localhost/blitz":   "postgres",
		"postgresql://u:p@localhost/blitz": "postgresql",
		"mongodb://localhost:27017/blitz":  "file",
	}

	for url, expected := range tests {
		assert.Equal(t, expected, parsePersistenceProvider(url), url)
	}
}

func TestNewPersistence_File(t *testing.T) {
	t.Parallel()

	p, err := NewPersistence(context.Background(), slog.Default(), "file://"+t.TempDir())
	require.NoError(t, err)
	assert.IsType(t, &file.Persistence{}, p)
}

func TestNewSessionStore_File(t *testing.T) {
	t.Parallel()

	store, err := NewSessionStore(context.Background(), slog.Default(), t.TempDir(), 10, time.Hour)
	require.NoError(t, err)
	assert.IsType(t, &sessionfile.Store{}, store)
}

func TestNewEventBus(t *testing.T) {
	t.Parallel()

	bus, err := NewEventBus("gochannel", "", slog.Default())
	require.NoError(t, err)
	require.NoError(t, bus.Close())

	_, err = NewEventBus("kafka", "", slog.Default())
	require.Error(t, err)

	_, err = NewEventBus("rabbitmq", "", slog.Default())
	require.Error(t, err)
}

func TestNewRegistry(t *testing.T) {
	t.Parallel()

	reg := NewRegistry(slog.Default())

	_, ok := reg.Descriptor(models.RoleModule)
	assert.True(t, ok)

	_, healthy := reg.HealthCheck()
	assert.True(t, healthy)
}

func TestNewTracer_Disabled(t *testing.T) {
	t.Parallel()

	tracer, shutdown, err := NewTracer(context.Background(), false, "blitz-test", 1)
	require.NoError(t, err)
	assert.NotNil(t, tracer)
	assert.NoError(t, shutdown(context.Background()))
}
