package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func gatedHandler(password string) http.Handler {
	gate := NewBasic("admin", password, "Task Manager")
	return gate.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
}

func TestMiddleware_RejectsMissingCredentials(t *testing.T) {
	t.Parallel()
	handler := gatedHandler("secret")

	// Every method and path gets the same challenge.
	requests := []struct{ method, path string }{
		{http.MethodGet, "/tasks"},
		{http.MethodPost, "/tasks"},
		{http.MethodPut, "/tasks/abc"},
		{http.MethodDelete, "/tasks/abc"},
		{http.MethodGet, "/logs"},
	}
	for _, rq := range requests {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(rq.method, rq.path, nil))

		require.Equal(t, http.StatusUnauthorized, rec.Code, "%s %s", rq.method, rq.path)
		require.Equal(t, `Basic realm="Task Manager"`, rec.Header().Get("WWW-Authenticate"))
		require.Equal(t, "application/json", rec.Header().Get("Content-Type"))

		var body map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.Equal(t, "Unauthorized access. Please provide valid credentials.", body["error"])
	}
}

func TestMiddleware_RejectsWrongCredentials(t *testing.T) {
	t.Parallel()
	handler := gatedHandler("secret")

	cases := []struct{ name, user, pass string }{
		{"wrong password", "admin", "nope"},
		{"wrong username", "root", "secret"},
		{"both wrong", "root", "nope"},
		{"empty", "", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/tasks", nil)
			req.SetBasicAuth(tc.user, tc.pass)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			require.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}

func TestMiddleware_AcceptsValidCredentials(t *testing.T) {
	t.Parallel()
	handler := gatedHandler("secret")

	req := httptest.NewRequest(http.MethodGet, "/tasks", nil)
	req.SetBasicAuth("admin", "secret")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestMiddleware_BcryptPassword(t *testing.T) {
	t.Parallel()

	hash, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	require.NoError(t, err)
	handler := gatedHandler(string(hash))

	req := httptest.NewRequest(http.MethodGet, "/tasks", nil)
	req.SetBasicAuth("admin", "secret")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	// The hash itself is not a valid password.
	req = httptest.NewRequest(http.MethodGet, "/tasks", nil)
	req.SetBasicAuth("admin", string(hash))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}
