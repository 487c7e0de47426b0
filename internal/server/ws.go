package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/valyala/fastjson"

	"github.com/uranetworks7-commits/Chat-pro/internal/reconcile"
	"github.com/uranetworks7-commits/Chat-pro/internal/session"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// subscriber is one websocket listener on one channel.
type subscriber struct {
	hub     *Hub
	conn    *websocket.Conn
	sess    session.Session
	channel string
	send    chan frame

	mu       sync.Mutex
	closed   bool
	view     *reconcile.View
	notifier *reconcile.Notifier
}

// subscribe handles HTTP requests on "GET /ws/{channel}": upgrades to a
// websocket and starts delivering channel snapshots.
func (h *handler) subscribe(w http.ResponseWriter, r *http.Request) {
	sess, _ := session.FromContext(r.Context())
	channel := mux.Vars(r)["channel"]

	if !channelVisible(channel, sess) {
		http.Error(w, "Not a participant of this chat", http.StatusForbidden)
		return
	}

	// Load history before upgrading so a storage failure is a plain HTTP
	// error instead of a hung socket with no initial delivery.
	snap, err := h.hub.store.MessageSnapshot(r.Context(), channel)
	if err != nil {
		h.logger.Errorf("Loading initial snapshot for channel %s: %v", channel, err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Errorf("Upgrading connection: %v", err)
		return
	}

	sub := &subscriber{
		hub:      h.hub,
		conn:     conn,
		sess:     sess,
		channel:  channel,
		send:     make(chan frame, 16),
		view:     reconcile.NewView(),
		notifier: reconcile.NewNotifier(sess.Username),
	}

	h.hub.add(sub)

	go sub.writePump()
	go sub.readPump()

	sub.deliverSnapshot(reconcile.Snapshot(snap))
}

// deliverSnapshot reconciles a snapshot into the subscriber's view and
// enqueues the resulting ordered sequence, flagging whether it should make
// a sound on the other end.
func (sub *subscriber) deliverSnapshot(snap reconcile.Snapshot) {
	sub.mu.Lock()
	arrivals := sub.view.Apply(snap)
	f := frame{
		Type:     "messages",
		Channel:  sub.channel,
		Messages: sub.view.Messages(),
		Notify:   sub.notifier.ShouldNotify(arrivals),
	}
	sub.mu.Unlock()

	sub.enqueue(f)
}

// enqueue hands a frame to the write pump, dropping the subscriber when its
// buffer is stuck. Only readPump closes the send channel; enqueue just stops
// feeding a subscriber that is going away.
func (sub *subscriber) enqueue(f frame) {
	sub.mu.Lock()
	defer sub.mu.Unlock()

	if sub.closed {
		return
	}

	select {
	case sub.send <- f:
	default:
		sub.closed = true
		sub.conn.Close()
	}
}

// readPump consumes control messages from the client:
// {"type":"interacted"} arms notifications, {"type":"typing"} and
// {"type":"typing_stop"} drive the presence entry bound to this connection.
func (sub *subscriber) readPump() {
	defer func() {
		sub.mu.Lock()
		sub.closed = true
		sub.mu.Unlock()

		sub.hub.remove(sub)
		sub.conn.Close()
		close(sub.send)
	}()

	sub.conn.SetReadLimit(4096)
	sub.conn.SetReadDeadline(time.Now().Add(pongWait))
	sub.conn.SetPongHandler(func(string) error {
		return sub.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	var p fastjson.Parser
	for {
		_, data, err := sub.conn.ReadMessage()
		if err != nil {
			return
		}

		v, err := p.ParseBytes(data)
		if err != nil {
			continue
		}

		switch string(v.GetStringBytes("type")) {
		case "interacted":
			sub.mu.Lock()
			sub.notifier.Arm()
			sub.mu.Unlock()
		case "typing":
			sub.hub.registry.Touch(sub.channel, sub.sess.Username, sub.sess.CustomName)
		case "typing_stop":
			sub.hub.registry.Clear(sub.channel, sub.sess.Username)
		}
	}
}

// writePump serializes frames onto the socket and keeps the connection
// alive with pings.
func (sub *subscriber) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		sub.conn.Close()
	}()

	for {
		select {
		case f, ok := <-sub.send:
			sub.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				sub.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			buf, err := json.Marshal(f)
			if err != nil {
				continue
			}
			if err := sub.conn.WriteMessage(websocket.TextMessage, buf); err != nil {
				return
			}
		case <-ticker.C:
			sub.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := sub.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
