package moderation

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeClock drives AfterFunc callbacks manually so delay semantics can be
// tested without sleeping.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	clock   *fakeClock
	due     time.Time
	f       func()
	stopped bool
	fired   bool
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1700000000, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, due: c.now.Add(d), f: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	active := !t.stopped && !t.fired
	t.stopped = true
	return active
}

// Advance moves the clock and fires every due, unstopped timer.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	var due []*fakeTimer
	for _, t := range c.timers {
		if !t.stopped && !t.fired && !t.due.After(c.now) {
			t.fired = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()

	for _, t := range due {
		t.f()
	}
}

type blockRecorder struct {
	mu      sync.Mutex
	calls   []string
	expires []time.Time
}

func (r *blockRecorder) block(_ context.Context, username string, expires time.Time, _ string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, username)
	r.expires = append(r.expires, expires)
	return nil
}

func bootstrapScheduler(t *testing.T) (*Scheduler, *fakeClock, *blockRecorder) {
	logger, err := zap.NewDevelopment()
	require.NoError(t, err)

	clock := newFakeClock()
	rec := &blockRecorder{}
	s := NewScheduler(logger.Sugar(), clock, 30*time.Minute, rec.block)
	return s, clock, rec
}

func TestScheduleFiresAtDelay(t *testing.T) {
	t.Parallel()

	s, clock, rec := bootstrapScheduler(t)

	s.Schedule("alice", 45*time.Second, true, "alice was blocked")
	require.True(t, s.Pending("alice"))

	clock.Advance(45*time.Second - time.Millisecond)
	require.Empty(t, rec.calls)

	clock.Advance(time.Millisecond)
	require.Equal(t, []string{"alice"}, rec.calls)
	require.False(t, s.Pending("alice"))

	// The block runs for the configured duration from firing time.
	require.Equal(t, clock.Now().Add(30*time.Minute), rec.expires[0])
}

func TestCancelBeforeDelayPreventsBlock(t *testing.T) {
	t.Parallel()

	s, clock, rec := bootstrapScheduler(t)

	s.Schedule("alice", 45*time.Second, true, "alice was blocked")

	clock.Advance(45*time.Second - time.Millisecond)
	require.True(t, s.Cancel("alice"))

	clock.Advance(time.Minute)
	require.Empty(t, rec.calls)
}

func TestReportBlockNotCancelable(t *testing.T) {
	t.Parallel()

	s, clock, rec := bootstrapScheduler(t)

	s.Schedule("alice", 5*time.Second, false, "alice was blocked")
	require.False(t, s.Cancel("alice"))

	clock.Advance(5 * time.Second)
	require.Equal(t, []string{"alice"}, rec.calls)
}

func TestRescheduleReplacesPending(t *testing.T) {
	t.Parallel()

	s, clock, rec := bootstrapScheduler(t)

	s.Schedule("alice", 45*time.Second, true, "first")
	clock.Advance(10 * time.Second)
	s.Schedule("alice", 45*time.Second, true, "second")

	// The first timer's due point passes without firing.
	clock.Advance(40 * time.Second)
	require.Empty(t, rec.calls)

	clock.Advance(5 * time.Second)
	require.Equal(t, []string{"alice"}, rec.calls)
}

func TestCancelUnknownUser(t *testing.T) {
	t.Parallel()

	s, _, _ := bootstrapScheduler(t)
	require.False(t, s.Cancel("nobody"))
}
