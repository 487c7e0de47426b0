package reconcile

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/uranetworks7-commits/Chat-pro/internal/chat"
)

func snapshotOf(msgs ...chat.Message) Snapshot {
	snap := make(Snapshot, len(msgs))
	for _, m := range msgs {
		snap[m.ID] = m
	}
	return snap
}

func TestOrderSortsByTimestamp(t *testing.T) {
	t.Parallel()

	snap := snapshotOf(
		chat.Message{ID: "c", SenderID: "alice", Timestamp: 30},
		chat.Message{ID: "a", SenderID: "bob", Timestamp: 10},
		chat.Message{ID: "b", SenderID: "carol", Timestamp: 20},
	)

	ordered := Order(snap)
	require.Len(t, ordered, len(snap))
	require.True(t, sort.SliceIsSorted(ordered, func(i, j int) bool {
		return ordered[i].Timestamp < ordered[j].Timestamp
	}))
	require.Equal(t, "a", ordered[0].ID)
	require.Equal(t, "c", ordered[2].ID)
}

func TestOrderBreaksTiesByID(t *testing.T) {
	t.Parallel()

	snap := snapshotOf(
		chat.Message{ID: "z", Timestamp: 10},
		chat.Message{ID: "a", Timestamp: 10},
		chat.Message{ID: "m", Timestamp: 10},
	)

	ordered := Order(snap)
	require.Equal(t, []string{"a", "m", "z"}, []string{ordered[0].ID, ordered[1].ID, ordered[2].ID})
}

func TestViewFirstDeliveryIsHistory(t *testing.T) {
	t.Parallel()

	v := NewView()
	arrivals := v.Apply(snapshotOf(
		chat.Message{ID: "a", Timestamp: 10},
		chat.Message{ID: "b", Timestamp: 20},
	))

	require.Empty(t, arrivals)
	require.Equal(t, 2, v.Len())
}

func TestViewEmptyHistoryThenArrival(t *testing.T) {
	t.Parallel()

	// Joining an empty channel is still history; the next message is news.
	v := NewView()
	require.Empty(t, v.Apply(snapshotOf()))

	arrivals := v.Apply(snapshotOf(chat.Message{ID: "a", Timestamp: 10}))
	require.Len(t, arrivals, 1)
	require.Equal(t, "a", arrivals[0].ID)
}

func TestViewDetectsArrival(t *testing.T) {
	t.Parallel()

	v := NewView()
	v.Apply(snapshotOf(chat.Message{ID: "a", Timestamp: 10}))

	arrivals := v.Apply(snapshotOf(
		chat.Message{ID: "a", Timestamp: 10},
		chat.Message{ID: "b", Timestamp: 20},
	))

	require.Len(t, arrivals, 1)
	require.Equal(t, "b", arrivals[0].ID)
}

func TestViewDeleteDoesNotMaskArrivals(t *testing.T) {
	t.Parallel()

	// One delete plus two inserts between snapshots: the length barely
	// changes, but both new ids must still be reported.
	v := NewView()
	v.Apply(snapshotOf(
		chat.Message{ID: "a", Timestamp: 10},
		chat.Message{ID: "b", Timestamp: 20},
	))

	arrivals := v.Apply(snapshotOf(
		chat.Message{ID: "b", Timestamp: 20},
		chat.Message{ID: "c", Timestamp: 30},
		chat.Message{ID: "d", Timestamp: 40},
	))

	require.Len(t, arrivals, 2)
	require.Equal(t, "c", arrivals[0].ID)
	require.Equal(t, "d", arrivals[1].ID)
	require.Equal(t, 3, v.Len())
}

func TestViewPureDeleteShrinksQuietly(t *testing.T) {
	t.Parallel()

	v := NewView()
	v.Apply(snapshotOf(
		chat.Message{ID: "a", Timestamp: 10},
		chat.Message{ID: "b", Timestamp: 20},
	))

	arrivals := v.Apply(snapshotOf(chat.Message{ID: "a", Timestamp: 10}))
	require.Empty(t, arrivals)
	require.Equal(t, 1, v.Len())
}

func TestNotifierRequiresArming(t *testing.T) {
	t.Parallel()

	n := NewNotifier("alice")
	arrivals := []chat.Message{{ID: "a", SenderID: "bob"}}

	require.False(t, n.ShouldNotify(arrivals))

	n.Arm()
	require.True(t, n.ShouldNotify(arrivals))
}

func TestNotifierIgnoresOwnMessages(t *testing.T) {
	t.Parallel()

	n := NewNotifier("alice")
	n.Arm()

	require.False(t, n.ShouldNotify([]chat.Message{{ID: "a", SenderID: "alice"}}))
	require.True(t, n.ShouldNotify([]chat.Message{
		{ID: "a", SenderID: "alice"},
		{ID: "b", SenderID: "bob"},
	}))
}
