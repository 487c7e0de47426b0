package server

import (
	"context"
	"errors"
	"io/ioutil"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/uranetworks7-commits/Chat-pro/internal/chat"
	"github.com/uranetworks7-commits/Chat-pro/internal/metrics"
	"github.com/uranetworks7-commits/Chat-pro/internal/session"
	"github.com/uranetworks7-commits/Chat-pro/internal/storage"
)

// sendMessage handles HTTP requests on "POST /messages"
//
// Body: {"text": ...} xor {"imageUrl": ...}, optional "to" (username, makes
// the send private), optional "replyTo" {messageId, senderName, text, imageUrl}.
func (h *handler) sendMessage(w http.ResponseWriter, r *http.Request) {
	sess, _ := session.FromContext(r.Context())

	body, _ := ioutil.ReadAll(r.Body)

	parser := h.parsers.messagePool.Get()
	defer h.parsers.messagePool.Put(parser)
	v, _ := parser.ParseBytes(body)

	text := optionalStringField(v, "text")
	imageURL := optionalStringField(v, "imageUrl")
	if (text == "") == (imageURL == "") {
		http.Error(w, "Exactly one of \"text\" and \"imageUrl\" must be set", http.StatusBadRequest)
		return
	}
	if imageURL != "" && chat.ClassifyMedia(imageURL) == chat.MediaNone {
		http.Error(w, "Field \"imageUrl\" must be an http(s) URL", http.StatusBadRequest)
		return
	}

	channel := chat.PublicChannel
	to := optionalStringField(v, "to")
	if to != "" {
		if to == sess.Username {
			http.Error(w, "Cannot open a private chat with yourself", http.StatusBadRequest)
			return
		}
		channel = chat.PairID(sess.Username, to)
	}

	if !h.limiters.Allow(sess.Username) {
		metrics.MessagesRejected.WithLabelValues("rate_limited").Inc()
		http.Error(w, "Sending too fast", http.StatusTooManyRequests)
		return
	}

	m := chat.Message{
		Text:             text,
		ImageURL:         imageURL,
		SenderID:         sess.Username,
		SenderName:       sess.CustomName,
		SenderProfileURL: sess.ProfileImageURL,
		Role:             sess.Role,
	}

	if v.Exists("replyTo") {
		reply := v.Get("replyTo")
		m.ReplyTo = &chat.ReplyRef{
			MessageID:  optionalStringField(reply, "messageId"),
			SenderName: optionalStringField(reply, "senderName"),
			Text:       optionalStringField(reply, "text"),
			ImageURL:   optionalStringField(reply, "imageUrl"),
		}
		if m.ReplyTo.MessageID == "" {
			http.Error(w, "Field \"replyTo\" must carry a \"messageId\"", http.StatusBadRequest)
			return
		}
	}

	sent, err := h.store.SendMessage(r.Context(), channel, m)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrBlocked):
			metrics.MessagesRejected.WithLabelValues("blocked").Inc()
			http.Error(w, "You are blocked and cannot send messages", http.StatusForbidden)
		case errors.Is(err, storage.ErrUserNotFound):
			http.Error(w, "User not found", http.StatusNotFound)
		default:
			h.logger.Error(err)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
		return
	}

	kind := "public"
	if to != "" {
		kind = "private"
	}
	metrics.MessagesSent.WithLabelValues(kind).Inc()

	// A blocked-word hit warns immediately and arms a delayed block. The
	// sender can still withdraw it through /moderation/clear before the
	// delay elapses.
	warned := false
	if text != "" && h.scanner.Contains(text) {
		warned = true
		h.scheduler.Schedule(sess.Username, h.cfg.SendDelay, true,
			sess.CustomName+" was blocked by URA Firing Squad for inappropriate language.")
	}

	if to != "" {
		h.refreshMetadata(r.Context(), channel, sess.Username, to, sent)
	}

	h.hub.InvalidateMessages(channel)

	h.writeJSON(w, http.StatusCreated, map[string]interface{}{
		"id":        sent.ID,
		"timestamp": sent.Timestamp,
		"warning":   warned,
	})
}

// refreshMetadata is the best-effort follow-up to a private send. The message
// is already durable; a failure here is logged with the pair id and otherwise
// swallowed so the primary action still reports success.
func (h *handler) refreshMetadata(ctx context.Context, pairID, self, other string, sent *chat.Message) {
	selfUser, err := h.store.GetUser(ctx, self)
	if err == nil {
		var otherUser *chat.User
		otherUser, err = h.store.GetUser(ctx, other)
		if err == nil {
			lastMessage := chatSummary(sent)
			meta := chat.PrivateChatMetadata{
				LastMessage: lastMessage,
				Timestamp:   sent.Timestamp,
				Participants: map[string]chat.Participant{
					self:  {CustomName: selfUser.CustomName, ProfileImageURL: selfUser.ProfileImageURL},
					other: {CustomName: otherUser.CustomName, ProfileImageURL: otherUser.ProfileImageURL},
				},
			}
			err = h.store.UpsertMetadata(ctx, pairID, meta)
		}
	}
	if err != nil {
		h.logger.Errorf("Failed to update private chat metadata for %s, but message was sent: %v", pairID, err)
	}
}

// getChatMetadata handles HTTP requests on "GET /chats/{username}": the
// conversation summary (last message, participants) for the private chat
// between the session user and {username}.
func (h *handler) getChatMetadata(w http.ResponseWriter, r *http.Request) {
	sess, _ := session.FromContext(r.Context())
	other := mux.Vars(r)["username"]

	if other == sess.Username {
		http.Error(w, "Cannot open a private chat with yourself", http.StatusBadRequest)
		return
	}

	meta, err := h.store.GetMetadata(r.Context(), chat.PairID(sess.Username, other))
	if err != nil {
		if errors.Is(err, storage.ErrMetadataNotFound) {
			http.Error(w, "No private chat with this user yet", http.StatusNotFound)
			return
		}
		h.logger.Error(err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, meta)
}

// chatSummary renders the one-line conversation preview for a message. A
// message that is nothing but an inline media link reads as "Media", same as
// an image message.
func chatSummary(m *chat.Message) string {
	if m.Text == "" {
		return "Media"
	}
	refs := chat.ExtractMedia(m.Text)
	if len(refs) == 1 && refs[0].Type != chat.MediaLink && refs[0].URL == strings.TrimSpace(m.Text) {
		return "Media"
	}
	return m.Text
}

// listMessages handles HTTP requests on "GET /messages/{channel}"
func (h *handler) listMessages(w http.ResponseWriter, r *http.Request) {
	sess, _ := session.FromContext(r.Context())
	channel := mux.Vars(r)["channel"]

	if !channelVisible(channel, sess) {
		http.Error(w, "Not a participant of this chat", http.StatusForbidden)
		return
	}

	messages, err := h.store.MessagesByChannel(r.Context(), channel)
	if err != nil {
		h.logger.Error(err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, messages)
}

// deleteMessage handles HTTP requests on "DELETE /messages/{channel}/{id}".
// Senders may delete their own messages; moderators anyone's.
func (h *handler) deleteMessage(w http.ResponseWriter, r *http.Request) {
	sess, _ := session.FromContext(r.Context())
	vars := mux.Vars(r)
	channel, id := vars["channel"], vars["id"]

	if !channelVisible(channel, sess) {
		http.Error(w, "Not a participant of this chat", http.StatusForbidden)
		return
	}

	m, err := h.store.GetMessage(r.Context(), channel, id)
	if err != nil {
		if errors.Is(err, storage.ErrMessageNotFound) {
			http.Error(w, "Message not found", http.StatusNotFound)
			return
		}
		h.logger.Error(err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	if m.SenderID != sess.Username && !sess.Role.CanModerate() {
		http.Error(w, "Cannot delete another user's message", http.StatusForbidden)
		return
	}

	if err := h.store.DeleteMessage(r.Context(), channel, id); err != nil {
		if errors.Is(err, storage.ErrMessageNotFound) {
			http.Error(w, "Message not found", http.StatusNotFound)
			return
		}
		h.logger.Error(err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.hub.InvalidateMessages(channel)

	w.WriteHeader(http.StatusNoContent)
}

// channelVisible reports whether the session may read a channel: the public
// room is open, a private pair channel only to its two participants.
func channelVisible(channel string, sess session.Session) bool {
	if channel == chat.PublicChannel {
		return true
	}
	_, ok := chat.OtherParticipant(channel, sess.Username)
	return ok
}

// blockExpiryHint returns how long a block set now would last. Used by
// moderation handlers when composing responses.
func (h *handler) blockExpiryHint() time.Time {
	return time.Now().Add(h.cfg.BlockDuration)
}
