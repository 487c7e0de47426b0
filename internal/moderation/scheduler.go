// Package moderation implements the blocked-word scan and the delayed block
// workflow layered on top of it.
package moderation

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	// DefaultSendDelay is the self-correction window after an outbound hit:
	// clearing the offending text before it elapses cancels the block.
	DefaultSendDelay = 45 * time.Second

	// DefaultReportDelay is the (short, uncancelable) delay after a reported
	// message is confirmed to contain a blocked word.
	DefaultReportDelay = 5 * time.Second

	// DefaultBlockDuration is how long a triggered block lasts.
	DefaultBlockDuration = 30 * time.Minute
)

// BlockFunc applies a block: it flips the user's block fields and announces
// the action with a system message.
type BlockFunc func(ctx context.Context, username string, expires time.Time, announcement string) error

// Scheduler owns the pending delayed blocks. At most one pending block per
// username; a later schedule replaces an earlier one.
type Scheduler struct {
	logger   *zap.SugaredLogger
	clock    Clock
	block    BlockFunc
	duration time.Duration

	mu      sync.Mutex
	pending map[string]*pendingBlock
}

type pendingBlock struct {
	timer      Timer
	cancelable bool
}

// NewScheduler builds a scheduler issuing blocks of the given duration via
// block. A nil clock means the real one.
func NewScheduler(logger *zap.SugaredLogger, clock Clock, duration time.Duration, block BlockFunc) *Scheduler {
	if clock == nil {
		clock = RealClock()
	}
	if duration <= 0 {
		duration = DefaultBlockDuration
	}
	return &Scheduler{
		logger:   logger,
		clock:    clock,
		block:    block,
		duration: duration,
		pending:  make(map[string]*pendingBlock),
	}
}

// Schedule arms a delayed block for username. While cancelable is true the
// block can still be withdrawn with Cancel (the sender cleared the offending
// text in time); the report path schedules uncancelable blocks.
// Block failures when the timer fires are logged, not surfaced.
func (s *Scheduler) Schedule(username string, delay time.Duration, cancelable bool, announcement string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.pending[username]; ok {
		prev.timer.Stop()
	}

	s.logger.Debugf("Scheduling block for %s in %s (cancelable: %t)", username, delay, cancelable)

	p := &pendingBlock{cancelable: cancelable}
	p.timer = s.clock.AfterFunc(delay, func() {
		s.fire(username, announcement)
	})
	s.pending[username] = p
}

// Cancel withdraws a pending cancelable block. Uncancelable entries and
// unknown usernames are ignored; returns whether anything was withdrawn.
func (s *Scheduler) Cancel(username string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.pending[username]
	if !ok || !p.cancelable {
		return false
	}

	p.timer.Stop()
	delete(s.pending, username)
	s.logger.Debugf("Canceled pending block for %s", username)
	return true
}

// Pending reports whether a delayed block is armed for username.
func (s *Scheduler) Pending(username string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.pending[username]
	return ok
}

func (s *Scheduler) fire(username, announcement string) {
	s.mu.Lock()
	delete(s.pending, username)
	expires := s.clock.Now().Add(s.duration)
	s.mu.Unlock()

	if err := s.block(context.Background(), username, expires, announcement); err != nil {
		s.logger.Errorf("Applying scheduled block for %s: %v", username, err)
	}
}
