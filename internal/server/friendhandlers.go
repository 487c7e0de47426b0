package server

import (
	"errors"
	"io/ioutil"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/uranetworks7-commits/Chat-pro/internal/friends"
	"github.com/uranetworks7-commits/Chat-pro/internal/session"
	"github.com/uranetworks7-commits/Chat-pro/internal/storage"
)

// sendFriendRequest handles HTTP requests on "POST /friends/requests"
//
// Body: {"to": username}. Emits the mirrored sent/pending pair in one
// multi-path update.
func (h *handler) sendFriendRequest(w http.ResponseWriter, r *http.Request) {
	sess, _ := session.FromContext(r.Context())

	body, _ := ioutil.ReadAll(r.Body)

	parser := h.parsers.friendPool.Get()
	defer h.parsers.friendPool.Put(parser)
	v, _ := parser.ParseBytes(body)

	to, ok := stringField(w, v, "to")
	if !ok {
		return
	}

	self, err := h.store.GetUser(r.Context(), sess.Username)
	if err != nil {
		h.logger.Error(err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	update, err := friends.Request(self, to)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	h.applyFriendUpdate(w, r, update)
}

// acceptFriendRequest handles HTTP requests on "POST /friends/requests/{username}/accept"
func (h *handler) acceptFriendRequest(w http.ResponseWriter, r *http.Request) {
	sess, _ := session.FromContext(r.Context())
	requester := mux.Vars(r)["username"]

	self, err := h.store.GetUser(r.Context(), sess.Username)
	if err != nil {
		h.logger.Error(err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	update, err := friends.Accept(self, requester)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	h.applyFriendUpdate(w, r, update)
}

// rejectFriendRequest handles HTTP requests on "POST /friends/requests/{username}/reject"
func (h *handler) rejectFriendRequest(w http.ResponseWriter, r *http.Request) {
	sess, _ := session.FromContext(r.Context())
	requester := mux.Vars(r)["username"]

	self, err := h.store.GetUser(r.Context(), sess.Username)
	if err != nil {
		h.logger.Error(err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	update, err := friends.Reject(self, requester)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	h.applyFriendUpdate(w, r, update)
}

// removeFriend handles HTTP requests on "DELETE /friends/{username}"
func (h *handler) removeFriend(w http.ResponseWriter, r *http.Request) {
	sess, _ := session.FromContext(r.Context())
	friend := mux.Vars(r)["username"]

	self, err := h.store.GetUser(r.Context(), sess.Username)
	if err != nil {
		h.logger.Error(err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	update, err := friends.Remove(self, friend)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	h.applyFriendUpdate(w, r, update)
}

// friendsOverview handles HTTP requests on "GET /friends"
func (h *handler) friendsOverview(w http.ResponseWriter, r *http.Request) {
	sess, _ := session.FromContext(r.Context())

	self, err := h.store.GetUser(r.Context(), sess.Username)
	if err != nil {
		h.logger.Error(err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, friends.BuildOverview(self))
}

func (h *handler) applyFriendUpdate(w http.ResponseWriter, r *http.Request, update friends.Update) {
	err := h.store.ApplyFriendUpdate(r.Context(), update)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			http.Error(w, "User not found", http.StatusNotFound)
			return
		}
		h.logger.Error(err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
