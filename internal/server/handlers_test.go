package server

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/uranetworks7-commits/Chat-pro/internal/chat"
)

func TestFindUserByName(t *testing.T) {
	t.Parallel()

	users := []chat.User{
		{Username: "alice", CustomName: "Alice"},
		{Username: "bob", CustomName: "Bobby"},
	}

	u, ok := findUserByName(users, "bobby")
	require.True(t, ok)
	require.Equal(t, "bob", u.Username)

	u, ok = findUserByName(users, "ALICE")
	require.True(t, ok)
	require.Equal(t, "alice", u.Username)

	_, ok = findUserByName(users, "carol")
	require.False(t, ok)

	_, ok = findUserByName(nil, "Alice")
	require.False(t, ok)
}
