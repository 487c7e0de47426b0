// Package presence tracks ephemeral typing entries per room. An entry lives
// until its TTL elapses without a refresh, it is cleared explicitly, or the
// connection that owns it goes away. Absence means "not typing".
package presence

import (
	"sync"
	"time"
)

// DefaultTTL is how long a typing entry survives without another keystroke.
const DefaultTTL = 3 * time.Second

type entry struct {
	name  string
	gen   uint64
	timer *time.Timer
}

// Registry is the in-memory typing table, keyed by room and username.
type Registry struct {
	ttl      time.Duration
	onChange func(room string)

	mu    sync.Mutex
	gen   uint64
	rooms map[string]map[string]*entry
}

// NewRegistry builds a registry with the given entry TTL. onChange, if not
// nil, is invoked (outside the lock) whenever a room's entry set changes.
func NewRegistry(ttl time.Duration, onChange func(room string)) *Registry {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Registry{
		ttl:      ttl,
		onChange: onChange,
		rooms:    make(map[string]map[string]*entry),
	}
}

// Touch upserts the typing entry for username in room with display name name
// and restarts its TTL timer. Each touch arms a fresh timer under a new
// generation, so an already-fired timer waiting on the lock cannot delete the
// refreshed entry.
func (r *Registry) Touch(room, username, name string) {
	r.mu.Lock()
	users, ok := r.rooms[room]
	if !ok {
		users = make(map[string]*entry)
		r.rooms[room] = users
	}

	changed := false
	e, ok := users[username]
	if ok {
		e.timer.Stop()
		if e.name != name {
			e.name = name
			changed = true
		}
	} else {
		e = &entry{name: name}
		users[username] = e
		changed = true
	}

	r.gen++
	e.gen = r.gen
	gen := e.gen
	e.timer = time.AfterFunc(r.ttl, func() {
		r.expire(room, username, gen)
	})
	r.mu.Unlock()

	if changed {
		r.notify(room)
	}
}

// expire removes the entry only if it is still the generation that armed the
// timer. A stale callback from before a refresh finds a newer generation and
// leaves the entry alone.
func (r *Registry) expire(room, username string, gen uint64) {
	r.mu.Lock()
	users, ok := r.rooms[room]
	if !ok {
		r.mu.Unlock()
		return
	}
	e, ok := users[username]
	if !ok || e.gen != gen {
		r.mu.Unlock()
		return
	}
	e.timer.Stop()
	delete(users, username)
	if len(users) == 0 {
		delete(r.rooms, room)
	}
	r.mu.Unlock()

	r.notify(room)
}

// Clear removes the typing entry for username in room, if present.
func (r *Registry) Clear(room, username string) {
	r.mu.Lock()
	users, ok := r.rooms[room]
	if ok {
		if e, ok := users[username]; ok {
			e.timer.Stop()
			delete(users, username)
			if len(users) == 0 {
				delete(r.rooms, room)
			}
			r.mu.Unlock()
			r.notify(room)
			return
		}
	}
	r.mu.Unlock()
}

// Typing returns the display names currently typing in room, excluding
// exceptName (a reader never sees their own entry). Order is arbitrary.
func (r *Registry) Typing(room, exceptName string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	users := r.rooms[room]
	names := make([]string, 0, len(users))
	for _, e := range users {
		if e.name != exceptName {
			names = append(names, e.name)
		}
	}
	return names
}

func (r *Registry) notify(room string) {
	if r.onChange != nil {
		r.onChange(room)
	}
}

// Sentence renders the typing banner for a list of names.
func Sentence(names []string) string {
	switch len(names) {
	case 0:
		return ""
	case 1:
		return names[0] + " is typing..."
	case 2:
		return names[0] + " and " + names[1] + " are typing..."
	default:
		return "Several people are typing..."
	}
}
