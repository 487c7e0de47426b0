package presence

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTouchAndTyping(t *testing.T) {
	t.Parallel()

	r := NewRegistry(time.Minute, nil)
	r.Touch("public", "alice", "Alice")
	r.Touch("public", "bob", "Bob")

	// Readers never see their own entry.
	require.ElementsMatch(t, []string{"Bob"}, r.Typing("public", "Alice"))
	require.ElementsMatch(t, []string{"Alice", "Bob"}, r.Typing("public", "Carol"))
	require.Empty(t, r.Typing("other", "Carol"))
}

func TestClear(t *testing.T) {
	t.Parallel()

	r := NewRegistry(time.Minute, nil)
	r.Touch("public", "alice", "Alice")
	r.Clear("public", "alice")

	require.Empty(t, r.Typing("public", ""))
}

func TestClearLeavesOtherRoomsAlone(t *testing.T) {
	t.Parallel()

	r := NewRegistry(time.Minute, nil)
	r.Touch("public", "alice", "Alice")
	r.Touch("alice_bob", "alice", "Alice")
	r.Touch("public", "bob", "Bob")

	r.Clear("public", "alice")

	require.ElementsMatch(t, []string{"Bob"}, r.Typing("public", ""))
	require.ElementsMatch(t, []string{"Alice"}, r.Typing("alice_bob", ""))
}

func TestEntryExpires(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	var changes []string
	r := NewRegistry(20*time.Millisecond, func(room string) {
		mu.Lock()
		changes = append(changes, room)
		mu.Unlock()
	})

	r.Touch("public", "alice", "Alice")
	require.ElementsMatch(t, []string{"Alice"}, r.Typing("public", ""))

	require.Eventually(t, func() bool {
		return len(r.Typing("public", "")) == 0
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	// One change for the touch, one for the expiry.
	require.Equal(t, []string{"public", "public"}, changes)
}

func TestStaleExpiryDoesNotDropRefreshedEntry(t *testing.T) {
	t.Parallel()

	r := NewRegistry(time.Minute, nil)
	r.Touch("public", "alice", "Alice")

	r.mu.Lock()
	stale := r.rooms["public"]["alice"].gen
	r.mu.Unlock()

	// A keystroke lands while the old timer's callback is still queued. The
	// stale generation must not take the fresh entry down.
	r.Touch("public", "alice", "Alice")
	r.expire("public", "alice", stale)
	require.ElementsMatch(t, []string{"Alice"}, r.Typing("public", ""))

	r.mu.Lock()
	current := r.rooms["public"]["alice"].gen
	r.mu.Unlock()

	r.expire("public", "alice", current)
	require.Empty(t, r.Typing("public", ""))
}

func TestTouchRefreshesTTL(t *testing.T) {
	t.Parallel()

	r := NewRegistry(50*time.Millisecond, nil)
	r.Touch("public", "alice", "Alice")

	for i := 0; i < 4; i++ {
		time.Sleep(25 * time.Millisecond)
		r.Touch("public", "alice", "Alice")
	}
	require.ElementsMatch(t, []string{"Alice"}, r.Typing("public", ""))
}

func TestNotifyOnlyOnChange(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	count := 0
	r := NewRegistry(time.Minute, func(string) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	r.Touch("public", "alice", "Alice")
	r.Touch("public", "alice", "Alice") // refresh, no change
	r.Touch("public", "alice", "Alicia") // renamed display name

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, 2, count)
}

func TestSentence(t *testing.T) {
	t.Parallel()

	require.Equal(t, "", Sentence(nil))
	require.Equal(t, "Alice is typing...", Sentence([]string{"Alice"}))
	require.Equal(t, "Alice and Bob are typing...", Sentence([]string{"Alice", "Bob"}))
	require.Equal(t, "Several people are typing...", Sentence([]string{"Alice", "Bob", "Carol"}))
}
