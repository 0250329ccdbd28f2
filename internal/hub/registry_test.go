package hub_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blindrelay/internal/hub"
)

func TestRegistry_AddRemove(t *testing.T) {
	r := hub.NewRegistry()
	a, b := &hub.Session{}, &hub.Session{}

	require.Empty(t, r.Lookup("alice"))
	require.True(t, r.Add("alice", a))
	require.False(t, r.Add("alice", b))
	require.Len(t, r.Lookup("alice"), 2)
	require.Equal(t, 1, r.Len())

	require.False(t, r.Remove("alice", &hub.Session{}), "unknown socket is not the last one")
	require.False(t, r.Remove("alice", a))
	require.True(t, r.Remove("alice", b))
	require.False(t, r.Remove("alice", b))
	require.Zero(t, r.Len())
}

func TestRegistry_Concurrent(t *testing.T) {
	r := hub.NewRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s := &hub.Session{}
			r.Add("alice", s)
			_ = r.Lookup("alice")
			r.Remove("alice", s)
		}()
	}
	wg.Wait()
	require.Zero(t, r.Len())
}

func TestPeerPool_SingleFlight(t *testing.T) {
	p := hub.NewPeerPool()
	var dials atomic.Int32
	release := make(chan struct{})
	want := &hub.Session{}

	dial := func(context.Context) (*hub.Session, error) {
		dials.Add(1)
		<-release
		return want, nil
	}

	var wg sync.WaitGroup
	got := make([]*hub.Session, 16)
	for i := range got {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s, err := p.Get(context.Background(), "ws://peer", dial)
			assert.NoError(t, err)
			got[i] = s
		}()
	}
	require.Eventually(t, func() bool { return dials.Load() == 1 }, waitFor, tick)
	close(release)
	wg.Wait()

	require.Equal(t, int32(1), dials.Load())
	for _, s := range got {
		require.Same(t, want, s)
	}
}

func TestPeerPool_FailedDialIsForgotten(t *testing.T) {
	p := hub.NewPeerPool()
	_, err := p.Get(context.Background(), "ws://peer", func(context.Context) (*hub.Session, error) {
		return nil, errors.New("refused")
	})
	require.Error(t, err)
	require.Zero(t, p.Len())

	s := &hub.Session{}
	got, err := p.Get(context.Background(), "ws://peer", func(context.Context) (*hub.Session, error) {
		return s, nil
	})
	require.NoError(t, err)
	require.Same(t, s, got)
}

func TestPeerPool_RemoveExact(t *testing.T) {
	p := hub.NewPeerPool()
	pooled, other := &hub.Session{}, &hub.Session{}

	_, err := p.Get(context.Background(), "ws://peer", func(context.Context) (*hub.Session, error) {
		return pooled, nil
	})
	require.NoError(t, err)

	require.False(t, p.Remove("ws://peer", other), "an unrelated socket must not evict the pooled one")
	got, ok := p.Lookup("ws://peer")
	require.True(t, ok)
	require.Same(t, pooled, got)

	require.True(t, p.Remove("ws://peer", pooled))
	_, ok = p.Lookup("ws://peer")
	require.False(t, ok)
}
