// Package auth gates every task and log endpoint behind a static HTTP
// Basic credential pair supplied by configuration.
package auth

import (
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/kuitang/taskboard/internal/logutil"
	"github.com/kuitang/taskboard/internal/obs"
)

// unauthorizedMessage matches the body the original deployment returned.
const unauthorizedMessage = "Unauthorized access. Please provide valid credentials."

// Basic checks requests against a single configured credential pair.
// The password may be stored as a bcrypt hash ($2...); anything else is
// compared as a literal in constant time.
type Basic struct {
	username string
	password string
	realm    string
	log      *slog.Logger
}

// NewBasic creates the credential gate.
func NewBasic(username, password, realm string) *Basic {
	return &Basic{
		username: username,
		password: password,
		realm:    realm,
		log:      obs.Pkg("auth"),
	}
}

// Middleware rejects any request without valid credentials with a 401, a
// Basic challenge header, and a JSON error body, regardless of the method
// or path requested.
func (b *Basic) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		username, password, ok := r.BasicAuth()
		if !ok || !b.credentialsMatch(username, password) {
			b.log.Info(
				"auth_rejected",
				"method", r.Method,
				"path", r.URL.Path,
				"authorization", logutil.RedactHeaderValue("Authorization", r.Header.Get("Authorization")),
			)
			w.Header().Set("WWW-Authenticate", fmt.Sprintf("Basic realm=%q", b.realm))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"error": unauthorizedMessage})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (b *Basic) credentialsMatch(username, password string) bool {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(b.username)) == 1

	var passOK bool
	if isBcryptHash(b.password) {
		passOK = bcrypt.CompareHashAndPassword([]byte(b.password), []byte(password)) == nil
	} else {
		passOK = subtle.ConstantTimeCompare([]byte(password), []byte(b.password)) == 1
	}

	// Evaluate both before combining so a bad username costs the same as
	// a bad password.
	return userOK && passOK
}

func isBcryptHash(s string) bool {
	return strings.HasPrefix(s, "$2a$") || strings.HasPrefix(s, "$2b$") || strings.HasPrefix(s, "$2y$")
}
