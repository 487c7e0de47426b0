package server

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/uranetworks7-commits/Chat-pro/internal/chat"
	"github.com/uranetworks7-commits/Chat-pro/internal/metrics"
	"github.com/uranetworks7-commits/Chat-pro/internal/presence"
	"github.com/uranetworks7-commits/Chat-pro/internal/reconcile"
)

// ChannelStore is the slice of the storage layer the hub works with:
// channel snapshots for deliveries and block application for the scheduler.
type ChannelStore interface {
	MessageSnapshot(ctx context.Context, channel string) (map[string]chat.Message, error)
	Block(ctx context.Context, username string, expires time.Time, announcement string) error
}

// Hub maintains the set of active channel subscribers and pushes them fresh
// snapshots whenever a channel changes. Subscribers receive the whole keyed
// collection on every delivery; their per-subscription view reconciles it
// into an ordered sequence and decides whether the delivery warrants a
// notification.
type Hub struct {
	logger   *zap.SugaredLogger
	store    ChannelStore
	registry *presence.Registry

	mu   sync.RWMutex
	subs map[string]map[*subscriber]struct{}
}

func NewHub(logger *zap.SugaredLogger, store ChannelStore) *Hub {
	return &Hub{
		logger: logger,
		store:  store,
		subs:   make(map[string]map[*subscriber]struct{}),
	}
}

// frame is one delivery to a subscriber.
type frame struct {
	Type           string         `json:"type"` // "messages" or "typing"
	Channel        string         `json:"channel"`
	Messages       []chat.Message `json:"messages,omitempty"`
	Notify         bool           `json:"notify,omitempty"`
	TypingNames    []string       `json:"typingNames,omitempty"`
	TypingSentence string         `json:"typingSentence,omitempty"`
}

func (h *Hub) add(sub *subscriber) {
	h.mu.Lock()
	channel := sub.channel
	if h.subs[channel] == nil {
		h.subs[channel] = make(map[*subscriber]struct{})
	}
	h.subs[channel][sub] = struct{}{}
	h.mu.Unlock()

	metrics.Subscribers.Inc()
	h.logger.Debugf("Subscriber %s joined channel %s", sub.sess.Username, channel)
}

func (h *Hub) remove(sub *subscriber) {
	h.mu.Lock()
	if set, ok := h.subs[sub.channel]; ok {
		if _, ok := set[sub]; ok {
			delete(set, sub)
			if len(set) == 0 {
				delete(h.subs, sub.channel)
			}
			metrics.Subscribers.Dec()
		}
	}
	h.mu.Unlock()

	// Presence must not outlive the connection.
	if h.registry != nil {
		h.registry.Clear(sub.channel, sub.sess.Username)
	}
	h.logger.Debugf("Subscriber %s left channel %s", sub.sess.Username, sub.channel)
}

func (h *Hub) subscribers(channel string) []*subscriber {
	h.mu.RLock()
	defer h.mu.RUnlock()

	set := h.subs[channel]
	out := make([]*subscriber, 0, len(set))
	for sub := range set {
		out = append(out, sub)
	}
	return out
}

// InvalidateMessages reloads a channel snapshot and delivers it to every
// subscriber of that channel.
func (h *Hub) InvalidateMessages(channel string) {
	subs := h.subscribers(channel)
	if len(subs) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	snap, err := h.store.MessageSnapshot(ctx, channel)
	if err != nil {
		h.logger.Errorf("Loading snapshot for channel %s: %v", channel, err)
		return
	}

	for _, sub := range subs {
		sub.deliverSnapshot(reconcile.Snapshot(snap))
	}
}

// InvalidateTyping pushes the current typing set of a room to its
// subscribers. Wired as the presence registry's change callback.
func (h *Hub) InvalidateTyping(room string) {
	if h.registry == nil {
		return
	}
	for _, sub := range h.subscribers(room) {
		names := h.registry.Typing(room, sub.sess.CustomName)
		sub.enqueue(frame{
			Type:           "typing",
			Channel:        room,
			TypingNames:    names,
			TypingSentence: presence.Sentence(names),
		})
	}
}

// ApplyBlock is the scheduler's BlockFunc: persist the block with its
// announcement and push the public channel so subscribers see the system
// message.
func (h *Hub) ApplyBlock(ctx context.Context, username string, expires time.Time, announcement string) error {
	if err := h.store.Block(ctx, username, expires, announcement); err != nil {
		return err
	}
	metrics.BlocksApplied.WithLabelValues("scheduled").Inc()
	h.InvalidateMessages(chat.PublicChannel)
	return nil
}
