package server

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/uranetworks7-commits/Chat-pro/internal/presence"
	"github.com/uranetworks7-commits/Chat-pro/internal/session"
)

// touchTyping handles HTTP requests on "PUT /typing/{room}": one keystroke.
// The entry expires on its own when keystrokes stop.
func (h *handler) touchTyping(w http.ResponseWriter, r *http.Request) {
	sess, _ := session.FromContext(r.Context())
	room := mux.Vars(r)["room"]

	h.registry.Touch(room, sess.Username, sess.CustomName)

	w.WriteHeader(http.StatusNoContent)
}

// clearTyping handles HTTP requests on "DELETE /typing/{room}": input blur
// or send completed.
func (h *handler) clearTyping(w http.ResponseWriter, r *http.Request) {
	sess, _ := session.FromContext(r.Context())
	room := mux.Vars(r)["room"]

	h.registry.Clear(room, sess.Username)

	w.WriteHeader(http.StatusNoContent)
}

// listTyping handles HTTP requests on "GET /typing/{room}": everyone typing
// in the room except the reader.
func (h *handler) listTyping(w http.ResponseWriter, r *http.Request) {
	sess, _ := session.FromContext(r.Context())
	room := mux.Vars(r)["room"]

	names := h.registry.Typing(room, sess.CustomName)

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"names":    names,
		"sentence": presence.Sentence(names),
	})
}
