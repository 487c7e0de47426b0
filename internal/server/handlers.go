package server

import (
	"encoding/json"
	"errors"
	"io/ioutil"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/valyala/fastjson"
	"go.uber.org/zap"

	"github.com/uranetworks7-commits/Chat-pro/internal/chat"
	"github.com/uranetworks7-commits/Chat-pro/internal/moderation"
	"github.com/uranetworks7-commits/Chat-pro/internal/presence"
	"github.com/uranetworks7-commits/Chat-pro/internal/session"
	"github.com/uranetworks7-commits/Chat-pro/internal/storage"
)

// TODO limit reading from body

type parsers struct {
	loginPool   fastjson.ParserPool
	messagePool fastjson.ParserPool
	friendPool  fastjson.ParserPool
	reportPool  fastjson.ParserPool
	profilePool fastjson.ParserPool
}

type handler struct {
	logger    *zap.SugaredLogger
	store     *storage.Store
	hub       *Hub
	registry  *presence.Registry
	scanner   *moderation.Scanner
	scheduler *moderation.Scheduler
	limiters  *limiterPool
	cfg       EnvConfig
	parsers   parsers
}

// stringField extracts a non-empty string field from a parsed body, writing
// the error response itself when the field is missing or malformed.
func stringField(w http.ResponseWriter, v *fastjson.Value, name string) (string, bool) {
	if !v.Exists(name) {
		http.Error(w, "Missing Field \""+name+"\"", http.StatusBadRequest)
		return "", false
	}

	value := v.Get(name)
	if value.Type() != fastjson.TypeString {
		http.Error(w, "Field \""+name+"\" must be a string", http.StatusBadRequest)
		return "", false
	}

	s := strings.Trim(string(value.MarshalTo(nil)), `"`)
	if len(s) == 0 {
		http.Error(w, "Field \""+name+"\" must have non-zero length", http.StatusBadRequest)
		return "", false
	}
	return s, true
}

func optionalStringField(v *fastjson.Value, name string) string {
	if !v.Exists(name) {
		return ""
	}
	value := v.Get(name)
	if value.Type() != fastjson.TypeString {
		return ""
	}
	return strings.Trim(string(value.MarshalTo(nil)), `"`)
}

func (h *handler) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	buf, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error(err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err = w.Write(buf); err != nil {
		h.logger.Errorf("writing marshaled data to ResponseWriter: %v", err)
	}
}

// createUser handles HTTP requests on "POST /users": first-login account creation
func (h *handler) createUser(w http.ResponseWriter, r *http.Request) {
	body, _ := ioutil.ReadAll(r.Body)

	parser := h.parsers.loginPool.Get()
	defer h.parsers.loginPool.Put(parser)
	v, _ := parser.ParseBytes(body)

	username, ok := stringField(w, v, "username")
	if !ok {
		return
	}
	customName, ok := stringField(w, v, "customName")
	if !ok {
		return
	}

	if len(username) < 2 {
		http.Error(w, "Field \"username\" must be at least 2 characters", http.StatusBadRequest)
		return
	}
	if len(customName) < 3 {
		http.Error(w, "Field \"customName\" must be at least 3 characters", http.StatusBadRequest)
		return
	}

	u, err := h.store.CreateUser(r.Context(), username, customName)
	if err != nil {
		if errors.Is(err, storage.ErrUserExists) {
			http.Error(w, "User already exists", http.StatusBadRequest)
			return
		}
		h.logger.Error(err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusCreated, u)
}

// login handles HTTP requests on "POST /login": the stored display name must
// match the provided one, exactly as the original credentials check worked
func (h *handler) login(w http.ResponseWriter, r *http.Request) {
	body, _ := ioutil.ReadAll(r.Body)

	parser := h.parsers.loginPool.Get()
	defer h.parsers.loginPool.Put(parser)
	v, _ := parser.ParseBytes(body)

	username, ok := stringField(w, v, "username")
	if !ok {
		return
	}
	customName, ok := stringField(w, v, "customName")
	if !ok {
		return
	}

	u, err := h.store.Login(r.Context(), username, customName)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrUserNotFound):
			http.Error(w, "This user does not exist", http.StatusNotFound)
		case errors.Is(err, storage.ErrNameMismatch):
			http.Error(w, "The display name does not match the username", http.StatusForbidden)
		default:
			h.logger.Error(err)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
		return
	}

	h.writeJSON(w, http.StatusOK, u)
}

// searchUsers handles HTTP requests on "GET /users?customName=...": the
// add-friend flow looks people up by display name, ignoring case. The first
// match in username order wins.
func (h *handler) searchUsers(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("customName")
	if query == "" {
		http.Error(w, "Query parameter \"customName\" is required", http.StatusBadRequest)
		return
	}

	users, err := h.store.ListUsers(r.Context())
	if err != nil {
		h.logger.Error(err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	u, ok := findUserByName(users, query)
	if !ok {
		http.Error(w, "User not found", http.StatusNotFound)
		return
	}

	h.writeJSON(w, http.StatusOK, u)
}

// findUserByName scans user records for a case-insensitive display-name match.
func findUserByName(users []chat.User, customName string) (*chat.User, bool) {
	for i := range users {
		if strings.EqualFold(users[i].CustomName, customName) {
			return &users[i], true
		}
	}
	return nil, false
}

// getUser handles HTTP requests on "GET /users/{username}"
func (h *handler) getUser(w http.ResponseWriter, r *http.Request) {
	username := mux.Vars(r)["username"]

	u, err := h.store.GetUser(r.Context(), username)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			http.Error(w, "User not found", http.StatusNotFound)
			return
		}
		h.logger.Error(err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, u)
}

// updateProfile handles HTTP requests on "PATCH /users/{username}"
func (h *handler) updateProfile(w http.ResponseWriter, r *http.Request) {
	sess, _ := session.FromContext(r.Context())
	username := mux.Vars(r)["username"]

	if sess.Username != username {
		http.Error(w, "Cannot edit another user's profile", http.StatusForbidden)
		return
	}

	body, _ := ioutil.ReadAll(r.Body)

	parser := h.parsers.profilePool.Get()
	defer h.parsers.profilePool.Put(parser)
	v, _ := parser.ParseBytes(body)

	customName, ok := stringField(w, v, "customName")
	if !ok {
		return
	}
	if len(customName) < 3 {
		http.Error(w, "Field \"customName\" must be at least 3 characters", http.StatusBadRequest)
		return
	}
	profileImageURL := optionalStringField(v, "profileImageUrl")

	err := h.store.UpdateProfile(r.Context(), username, customName, profileImageURL)
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
