package presence_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"blindrelay/internal/domain"
	"blindrelay/internal/presence"
)

func exerciseDirectory(t *testing.T, d domain.PresenceDirectory) {
	t.Helper()
	ctx := context.Background()

	got, err := d.GetSetOrEmpty(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Empty(t, got)

	require.NoError(t, d.AddToSet(ctx, "alice", "ws://hub-b"))
	require.NoError(t, d.AddToSet(ctx, "alice", "ws://hub-a"))
	require.NoError(t, d.AddToSet(ctx, "alice", "ws://hub-a"))
	require.NoError(t, d.AddToSet(ctx, "bob", "ws://hub-a"))

	got, err = d.GetSetOrEmpty(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, []domain.HubAddress{"ws://hub-a", "ws://hub-b"}, got)

	require.NoError(t, d.RemoveFromSet(ctx, "alice", "ws://hub-a"))
	require.NoError(t, d.RemoveFromSet(ctx, "alice", "ws://hub-a"))
	require.NoError(t, d.RemoveFromSet(ctx, "nobody", "ws://hub-a"))

	got, err = d.GetSetOrEmpty(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, []domain.HubAddress{"ws://hub-b"}, got)

	require.NoError(t, d.RemoveFromSet(ctx, "alice", "ws://hub-b"))
	got, err = d.GetSetOrEmpty(ctx, "alice")
	require.NoError(t, err)
	require.Empty(t, got)

	got, err = d.GetSetOrEmpty(ctx, "bob")
	require.NoError(t, err)
	require.Equal(t, []domain.HubAddress{"ws://hub-a"}, got)
}

func TestMemory(t *testing.T) {
	exerciseDirectory(t, presence.NewMemory())
}

func TestBolt(t *testing.T) {
	b, err := presence.OpenBolt(filepath.Join(t.TempDir(), "presence.db"))
	require.NoError(t, err)
	defer b.Close()
	exerciseDirectory(t, b)
}

func TestBolt_ReopenAndPurge(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "presence.db")

	b, err := presence.OpenBolt(path)
	require.NoError(t, err)
	require.NoError(t, b.AddToSet(ctx, "alice", "ws://hub-a"))
	require.NoError(t, b.AddToSet(ctx, "bob", "ws://hub-a"))
	require.NoError(t, b.AddToSet(ctx, "bob", "ws://hub-b"))
	require.NoError(t, b.Close())

	b, err = presence.OpenBolt(path)
	require.NoError(t, err)
	defer b.Close()

	n, err := b.Purge(ctx, "ws://hub-a")
	require.NoError(t, err)
	require.Equal(t, 2, n)

	got, err := b.GetSetOrEmpty(ctx, "alice")
	require.NoError(t, err)
	require.Empty(t, got)
	got, err = b.GetSetOrEmpty(ctx, "bob")
	require.NoError(t, err)
	require.Equal(t, []domain.HubAddress{"ws://hub-b"}, got)
}

func TestBolt_SecondOpenFailsWhileHeld(t *testing.T) {
	path := filepath.Join(t.TempDir(), "presence.db")

	b, err := presence.OpenBolt(path)
	require.NoError(t, err)

	_, err = presence.OpenBolt(path)
	require.ErrorIs(t, err, presence.ErrLocked)

	require.NoError(t, b.Close())
	b, err = presence.OpenBolt(path)
	require.NoError(t, err)
	require.NoError(t, b.Close())
}
