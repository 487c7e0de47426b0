package server

import (
	"bytes"
	"io"
	"io/ioutil"
	"mime"
	"net/http"

	"github.com/rs/xid"
	"github.com/valyala/fastjson"
	"go.uber.org/zap"

	"github.com/uranetworks7-commits/Chat-pro/internal/session"
	"github.com/uranetworks7-commits/Chat-pro/internal/storage"
	"github.com/uranetworks7-commits/Chat-pro/internal/storage/zapadapter"
)

// enforceJSON is a middleware pre-processing body-carrying HTTP requests
// it checks for application/json Content-Type header and valid json body
// it also sets blank Content-Type header to application/json
func enforceJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// check "Content-Type" header
		contentType := r.Header.Get("Content-Type")
		if contentType != "" {
			mt, _, err := mime.ParseMediaType(contentType)
			if err != nil {
				http.Error(w, "Malformed Content-Type header", http.StatusBadRequest)
				return
			}

			if mt != "application/json" {
				http.Error(w, "Content-Type header must be application/json", http.StatusUnsupportedMediaType)
				return
			}
		} else {
			r.Header.Set("Content-Type", "application/json")
		}

		// check if provided request body is valid JSON
		var bodyBuf bytes.Buffer
		bodyReader := io.TeeReader(r.Body, &bodyBuf)
		body, err := ioutil.ReadAll(bodyReader)
		if err != nil {
			http.Error(w, "Can not read request body", http.StatusBadRequest)
			return
		}

		if len(body) == 0 {
			http.Error(w, "No body provided", http.StatusBadRequest)
			return
		}

		err = fastjson.ValidateBytes(body)
		if err != nil {
			http.Error(w, "Malformed JSON", http.StatusBadRequest)
			return
		}

		r.Body = ioutil.NopCloser(&bodyBuf)

		next.ServeHTTP(w, r)
	})
}

// logRequests assigns each request an id, carries it into context for query
// logging and writes one access log line
func logRequests(next http.Handler, logger *zap.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := xid.New().String()

		ctx := zapadapter.NewContextWithID(r.Context(), id)
		rwID := r.WithContext(ctx)

		logger.Info("incoming http request",
			zap.String("id", id),
			zap.String("method", r.Method),
			zap.String("uri", r.URL.RequestURI()),
			zap.String("ip", r.RemoteAddr),
		)

		next.ServeHTTP(w, rwID)
	})
}

// SessionHeader names the header carrying the acting username.
const SessionHeader = "X-Chat-User"

// withSession resolves the acting user from the session header against the
// stored record and attaches an explicit session to request context. The
// stored role is authoritative; clients cannot claim one.
func withSession(next http.Handler, store *storage.Store) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		username := r.Header.Get(SessionHeader)
		if username == "" {
			http.Error(w, "Missing "+SessionHeader+" header", http.StatusUnauthorized)
			return
		}

		u, err := store.GetUser(r.Context(), username)
		if err != nil {
			if err == storage.ErrUserNotFound {
				http.Error(w, "Unknown user", http.StatusUnauthorized)
				return
			}
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		sess := session.Session{
			Username:        u.Username,
			CustomName:      u.CustomName,
			Role:            u.Role,
			ProfileImageURL: u.ProfileImageURL,
		}
		next.ServeHTTP(w, r.WithContext(session.NewContext(r.Context(), sess)))
	})
}
