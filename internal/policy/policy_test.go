package policy_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"blindrelay/internal/policy"
)

func TestAllowAll(t *testing.T) {
	require.True(t, policy.AllowAll{}.CanSend("a", "b"))
}

func TestRateLimiter_PerSender(t *testing.T) {
	l := policy.NewRateLimiter(1, 2, time.Minute)
	now := time.Unix(1000, 0)

	require.True(t, l.Allow("alice", now))
	require.True(t, l.Allow("alice", now))
	require.False(t, l.Allow("alice", now))
	require.True(t, l.Allow("bob", now), "buckets are per sender")

	require.True(t, l.Allow("alice", now.Add(time.Second)))
}

func TestRateLimiter_NilAllows(t *testing.T) {
	l := policy.NewRateLimiter(0, 0, 0)
	require.Nil(t, l)
	require.True(t, l.CanSend("alice", "bob"))
}

func TestLedger(t *testing.T) {
	l := policy.NewLedger(16)
	l.Record("alice", "bob")
	l.Record("alice", "bob")
	l.Record("alice", "carol")
	l.Record("bob", "alice")

	require.Eventually(t, func() bool {
		return l.Usage("alice").Messages == 3 && l.Usage("bob").Messages == 1
	}, time.Second, 5*time.Millisecond)
	require.Equal(t, uint64(2), l.Usage("alice").Recipients["bob"])
	require.Zero(t, l.Usage("nobody").Messages)

	l.Close()
	l.Record("alice", "bob")
	require.Zero(t, l.Dropped())
}
