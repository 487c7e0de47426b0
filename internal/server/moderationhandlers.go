package server

import (
	"errors"
	"io/ioutil"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/uranetworks7-commits/Chat-pro/internal/chat"
	"github.com/uranetworks7-commits/Chat-pro/internal/metrics"
	"github.com/uranetworks7-commits/Chat-pro/internal/session"
	"github.com/uranetworks7-commits/Chat-pro/internal/storage"
)

// report handles HTTP requests on "POST /reports"
//
// Body: {"messageId": ..., "reason": ..., optional "channel"}. The report is
// always stored; if the reported text trips the word scan, a short
// uncancelable block is armed for the sender, since the human report
// already confirmed intent.
func (h *handler) report(w http.ResponseWriter, r *http.Request) {
	sess, _ := session.FromContext(r.Context())

	body, _ := ioutil.ReadAll(r.Body)

	parser := h.parsers.reportPool.Get()
	defer h.parsers.reportPool.Put(parser)
	v, _ := parser.ParseBytes(body)

	messageID, ok := stringField(w, v, "messageId")
	if !ok {
		return
	}
	reason, ok := stringField(w, v, "reason")
	if !ok {
		return
	}
	channel := optionalStringField(v, "channel")
	if channel == "" {
		channel = chat.PublicChannel
	}

	m, err := h.store.GetMessage(r.Context(), channel, messageID)
	if err != nil {
		if errors.Is(err, storage.ErrMessageNotFound) {
			http.Error(w, "Message not found", http.StatusNotFound)
			return
		}
		h.logger.Error(err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	snapshot := m.Text
	if snapshot == "" {
		snapshot = "Image Message"
	}
	err = h.store.CreateReport(r.Context(), chat.Report{
		MessageID:    messageID,
		Reporter:     sess.Username,
		ReportedUser: m.SenderID,
		Message:      snapshot,
		Reason:       reason,
	})
	if err != nil {
		if errors.Is(err, storage.ErrReportExists) {
			http.Error(w, "Message is already reported", http.StatusConflict)
			return
		}
		h.logger.Error(err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	metrics.ReportsFiled.Inc()

	blockScheduled := false
	if m.Text != "" && h.scanner.Contains(m.Text) {
		blockScheduled = true
		h.scheduler.Schedule(m.SenderID, h.cfg.ReportDelay, false,
			m.SenderName+" was blocked by URA Firing Squad for inappropriate language.")
	}

	h.writeJSON(w, http.StatusCreated, map[string]interface{}{
		"underReview":    true,
		"blockScheduled": blockScheduled,
	})
}

// block handles HTTP requests on "POST /blocks/{username}": explicit
// moderator action, immediate
func (h *handler) block(w http.ResponseWriter, r *http.Request) {
	sess, _ := session.FromContext(r.Context())
	if !sess.Role.CanModerate() {
		http.Error(w, "Moderator role required", http.StatusForbidden)
		return
	}

	username := mux.Vars(r)["username"]
	target, err := h.store.GetUser(r.Context(), username)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			http.Error(w, "User not found", http.StatusNotFound)
			return
		}
		h.logger.Error(err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	expires := h.blockExpiryHint()
	err = h.store.Block(r.Context(), username, expires, target.CustomName+" was blocked by a Moderator.")
	if err != nil {
		h.logger.Error(err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	metrics.BlocksApplied.WithLabelValues("moderator").Inc()
	h.hub.InvalidateMessages(chat.PublicChannel)

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"blockExpires": chat.Millis(expires),
	})
}

// unblock handles HTTP requests on "DELETE /blocks/{username}"
func (h *handler) unblock(w http.ResponseWriter, r *http.Request) {
	sess, _ := session.FromContext(r.Context())
	if !sess.Role.CanModerate() {
		http.Error(w, "Moderator role required", http.StatusForbidden)
		return
	}

	username := mux.Vars(r)["username"]
	target, err := h.store.GetUser(r.Context(), username)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			http.Error(w, "User not found", http.StatusNotFound)
			return
		}
		h.logger.Error(err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	err = h.store.Unblock(r.Context(), username, target.CustomName+" was unblocked by a Moderator.")
	if err != nil {
		h.logger.Error(err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.hub.InvalidateMessages(chat.PublicChannel)

	w.WriteHeader(http.StatusNoContent)
}

// clearPending handles HTTP requests on "POST /moderation/clear": the sender
// cleared the offending text, withdrawing their pending cancelable block.
func (h *handler) clearPending(w http.ResponseWriter, r *http.Request) {
	sess, _ := session.FromContext(r.Context())

	canceled := h.scheduler.Cancel(sess.Username)

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"canceled": canceled,
	})
}
