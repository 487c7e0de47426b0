package server

import (
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestEnforceJSON(t *testing.T) {
	t.Parallel()

	echo := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := ioutil.ReadAll(r.Body)
		require.NoError(t, err)
		w.Write(body)
	})
	h := enforceJSON(echo)

	cases := []struct {
		name        string
		contentType string
		body        string
		code        int
	}{
		{
			name:        "valid json",
			contentType: "application/json",
			body:        `{"text":"hi"}`,
			code:        http.StatusOK,
		},
		{
			name:        "blank content type defaults to json",
			contentType: "",
			body:        `{"text":"hi"}`,
			code:        http.StatusOK,
		},
		{
			name:        "malformed content type",
			contentType: "application/",
			body:        `{}`,
			code:        http.StatusBadRequest,
		},
		{
			name:        "wrong content type",
			contentType: "text/plain",
			body:        `{}`,
			code:        http.StatusUnsupportedMediaType,
		},
		{
			name:        "empty body",
			contentType: "application/json",
			body:        "",
			code:        http.StatusBadRequest,
		},
		{
			name:        "malformed json",
			contentType: "application/json",
			body:        `{"text":`,
			code:        http.StatusBadRequest,
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodPost, "/messages", strings.NewReader(tc.body))
			if tc.contentType != "" {
				req.Header.Set("Content-Type", tc.contentType)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			require.Equal(t, tc.code, w.Code)
			if tc.code == http.StatusOK {
				// The body must survive the validation pass intact.
				require.Equal(t, tc.body, w.Body.String())
			}
		})
	}
}

func TestLimiterPool(t *testing.T) {
	t.Parallel()

	p := newLimiterPool(1, 2)

	require.True(t, p.Allow("alice"))
	require.True(t, p.Allow("alice"))
	require.False(t, p.Allow("alice"))

	// Buckets are per key.
	require.True(t, p.Allow("bob"))
}

func TestLimiterPoolEvictsIdleSenders(t *testing.T) {
	t.Parallel()

	p := newLimiterPool(1, 2)
	p.idleTTL = time.Minute
	p.maxEntries = 2

	p.Allow("alice")
	p.Allow("bob")

	p.mu.Lock()
	p.m["alice"].lastSeen = time.Now().Add(-2 * time.Minute)
	p.mu.Unlock()

	// The pool is at its cap; admitting a new sender sheds the idle bucket
	// but keeps the recently seen one.
	p.Allow("carol")

	p.mu.Lock()
	defer p.mu.Unlock()
	require.NotContains(t, p.m, "alice")
	require.Contains(t, p.m, "bob")
	require.Contains(t, p.m, "carol")
}
