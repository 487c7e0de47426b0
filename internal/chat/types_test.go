package chat

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPairIDOrderIndependent(t *testing.T) {
	t.Parallel()

	require.Equal(t, PairID("alice", "bob"), PairID("bob", "alice"))
	require.Equal(t, "alice_bob", PairID("bob", "alice"))
}

func TestSplitPairID(t *testing.T) {
	t.Parallel()

	a, b, ok := SplitPairID("alice_bob")
	require.True(t, ok)
	require.Equal(t, "alice", a)
	require.Equal(t, "bob", b)

	_, _, ok = SplitPairID("nounderscore")
	require.False(t, ok)

	_, _, ok = SplitPairID("trailing_")
	require.False(t, ok)
}

func TestOtherParticipant(t *testing.T) {
	t.Parallel()

	other, ok := OtherParticipant("alice_bob", "alice")
	require.True(t, ok)
	require.Equal(t, "bob", other)

	other, ok = OtherParticipant("alice_bob", "bob")
	require.True(t, ok)
	require.Equal(t, "alice", other)

	_, ok = OtherParticipant("alice_bob", "carol")
	require.False(t, ok)
}

func TestBlockedAtBoundary(t *testing.T) {
	t.Parallel()

	now := time.Now()
	u := &User{
		Username:     "alice",
		IsBlocked:    true,
		BlockExpires: Millis(now.Add(30 * time.Minute)),
	}

	require.True(t, u.BlockedAt(now))
	require.True(t, u.BlockedAt(now.Add(30*time.Minute-time.Millisecond)))
	require.False(t, u.BlockedAt(now.Add(30*time.Minute)))
	require.False(t, u.BlockedAt(now.Add(time.Hour)))
}

func TestBlockedAtStaleFlag(t *testing.T) {
	t.Parallel()

	// An isBlocked flag with a past expiry counts as unblocked.
	u := &User{IsBlocked: true, BlockExpires: Millis(time.Now().Add(-time.Minute))}
	require.False(t, u.BlockedAt(time.Now()))
}

func TestRoleCanModerate(t *testing.T) {
	t.Parallel()

	require.True(t, RoleModerator.CanModerate())
	require.True(t, RoleDeveloper.CanModerate())
	require.False(t, RoleUser.CanModerate())
	require.False(t, RoleSystem.CanModerate())
}

func TestRoleValid(t *testing.T) {
	t.Parallel()

	require.True(t, RoleUser.Valid())
	require.False(t, Role("admin").Valid())
}
