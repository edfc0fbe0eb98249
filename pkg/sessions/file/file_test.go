package file

import (
	"testing"
	"time"

	"github.com/dukex/blitz/pkg/models"
	"github.com/dukex/blitz/pkg/sessions"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_UnknownSessionIsEmpty(t *testing.T) {
	store := NewStore(t.TempDir(), 0)

	history, err := store.History(t.Context(), "s-1")
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestStore_AppendAndHistory(t *testing.T) {
	store := NewStore(t.TempDir(), 0)
	ctx := t.Context()

	require.NoError(t, store.Append(ctx, "s-1", sessions.Exchange("hi", "hello")...))
	require.NoError(t, store.Append(ctx, "s-1", sessions.Exchange("cancel #123", "Done.")...))
	require.NoError(t, store.Append(ctx, "s-2", sessions.Exchange("other", "reply")...))

	history, err := store.History(ctx, "s-1")
	require.NoError(t, err)

	want := []models.ConversationMessage{
		{Role: models.ConversationUser, Content: "hi"},
		{Role: models.ConversationAssistant, Content: "hello"},
		{Role: models.ConversationUser, Content: "cancel #123"},
		{Role: models.ConversationAssistant, Content: "Done."},
	}
	if diff := cmp.Diff(want, history); diff != "" {
		t.Errorf("history mismatch (-want +got):\n%s", diff)
	}
}

func TestStore_CapsHistory(t *testing.T) {
	store := NewStore(t.TempDir(), 3)
	ctx := t.Context()

	for range 3 {
		require.NoError(t, store.Append(ctx, "s-1", sessions.Exchange("q", "a")...))
	}

	history, err := store.History(ctx, "s-1")
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, models.ConversationAssistant, history[0].Role)
}

func TestStore_RejectsInvalidIDs(t *testing.T) {
	store := NewStore(t.TempDir(), 0)

	_, err := store.History(t.Context(), "../secrets")
	assert.ErrorIs(t, err, sessions.ErrInvalidSessionID)

	err = store.Append(t.Context(), "", sessions.Exchange("q", "a")...)
	assert.ErrorIs(t, err, sessions.ErrInvalidSessionID)
}

func TestStore_Prune(t *testing.T) {
	store := NewStore(t.TempDir(), 0)
	ctx := t.Context()

	require.NoError(t, store.Append(ctx, "old", sessions.Exchange("q", "a")...))

	cutoff := time.Now().Add(time.Millisecond)
	time.Sleep(5 * time.Millisecond)

	require.NoError(t, store.Append(ctx, "fresh", sessions.Exchange("q", "a")...))

	removed, err := store.Prune(ctx, cutoff)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	history, err := store.History(ctx, "old")
	require.NoError(t, err)
	assert.Empty(t, history)

	history, err = store.History(ctx, "fresh")
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestStore_PruneEmptyRoot(t *testing.T) {
	removed, err := NewStore(t.TempDir(), 0).Prune(t.Context(), time.Now())
	require.NoError(t, err)
	assert.Zero(t, removed)
}
