package meetings_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tiliavir/tick-tracker/internal/meetings"
	"github.com/Tiliavir/tick-tracker/internal/storage"
)

func newMemory(t *testing.T) (*meetings.Memory, *storage.Store) {
	t.Helper()
	s, err := storage.Open(context.Background(), t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return meetings.New(s), s
}

func TestRememberAndRecall(t *testing.T) {
	m, _ := newMemory(t)
	ctx := context.Background()

	require.NoError(t, m.Remember(ctx, "Meeting: Sprint Planning", 42))

	id, ok, err := m.TaskFor(ctx, "  meeting: sprint planning ")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(42), id)

	require.NoError(t, m.Remember(ctx, "Meeting: Sprint Planning", 43))
	id, _, _ = m.TaskFor(ctx, "Meeting: Sprint Planning")
	assert.Equal(t, int64(43), id)
}

func TestRememberIgnoresOtherNotes(t *testing.T) {
	m, _ := newMemory(t)
	ctx := context.Background()

	require.NoError(t, m.Remember(ctx, "Fixed the build", 7))
	mapping, err := m.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, mapping)
}

func TestLoadCorruptReadsEmpty(t *testing.T) {
	m, s := newMemory(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, meetings.StorageKey, "[1,2"))
	mapping, err := m.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, mapping)

	// A later write replaces the corrupt record.
	require.NoError(t, m.Remember(ctx, "Meeting: Retro", 5))
	id, ok, err := m.TaskFor(ctx, "meeting: retro")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(5), id)
}

func TestIsMeetingNote(t *testing.T) {
	assert.True(t, meetings.IsMeetingNote(" MEETING: x"))
	assert.False(t, meetings.IsMeetingNote("meet: x"))
}
