// Package reconcile turns keyed message snapshots into ordered views and
// detects genuinely new arrivals between consecutive snapshots.
package reconcile

import (
	"sort"

	"github.com/uranetworks7-commits/Chat-pro/internal/chat"
)

// Snapshot is a keyed collection delivery: message id to message fields,
// exactly as the synced channel holds them.
type Snapshot map[string]chat.Message

// View is the reconciled state of one subscribed channel. A zero-value-like
// View from NewView is empty; each Apply replaces its contents with the
// snapshot and reports what arrived.
//
// Arrival detection is an id-set difference against the previous snapshot,
// so a concurrent delete cannot mask or fake an arrival the way a plain
// length comparison would.
type View struct {
	applied bool
	seen    map[string]struct{}
	ordered []chat.Message
}

func NewView() *View {
	return &View{seen: make(map[string]struct{})}
}

// Apply reconciles a snapshot into the view and returns the messages whose
// ids were not present in the previous snapshot, in view order. Deleted ids
// silently drop out of the view.
func (v *View) Apply(snap Snapshot) []chat.Message {
	ordered := Order(snap)

	var arrivals []chat.Message
	seen := make(map[string]struct{}, len(ordered))
	for _, m := range ordered {
		seen[m.ID] = struct{}{}
		if _, ok := v.seen[m.ID]; !ok {
			arrivals = append(arrivals, m)
		}
	}

	// The very first delivery is history, not news. This holds even when
	// that first snapshot is empty.
	if !v.applied {
		arrivals = nil
		v.applied = true
	}

	v.seen = seen
	v.ordered = ordered
	return arrivals
}

// Messages returns the current reconciled sequence, ascending by timestamp.
func (v *View) Messages() []chat.Message {
	return v.ordered
}

// Len returns the number of messages currently in the view.
func (v *View) Len() int {
	return len(v.ordered)
}

// Order sorts a snapshot ascending by timestamp. Equal timestamps fall back
// to id order, which is stable because ids are sortable xids.
func Order(snap Snapshot) []chat.Message {
	ordered := make([]chat.Message, 0, len(snap))
	for id, m := range snap {
		m.ID = id
		ordered = append(ordered, m)
	}
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].Timestamp != ordered[j].Timestamp {
			return ordered[i].Timestamp < ordered[j].Timestamp
		}
		return ordered[i].ID < ordered[j].ID
	})
	return ordered
}

// Notifier decides whether an arrival warrants an audible notification for
// one viewer. It stays silent until Arm is called once, mirroring the
// browser rule that sound may only play after the user has interacted with
// the page.
type Notifier struct {
	viewer string
	armed  bool
}

func NewNotifier(viewer string) *Notifier {
	return &Notifier{viewer: viewer}
}

// Arm enables notifications. Safe to call repeatedly.
func (n *Notifier) Arm() { n.armed = true }

// ShouldNotify reports whether any of the arrivals came from someone other
// than the viewer while the notifier is armed.
func (n *Notifier) ShouldNotify(arrivals []chat.Message) bool {
	if !n.armed {
		return false
	}
	for _, m := range arrivals {
		if m.SenderID != n.viewer {
			return true
		}
	}
	return false
}
