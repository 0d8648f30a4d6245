package security

import (
	"crypto/subtle"
	"net/http"

	"github.com/noah-isme/match-video-api/internal/common"
)

// AdminAuth guards the admin routes with HTTP basic credentials.
type AdminAuth struct {
	User     string
	Password string
	Realm    string
}

// Middleware rejects requests whose credentials do not match. An unconfigured
// AdminAuth rejects everything.
func (a AdminAuth) Middleware(next http.Handler) http.Handler {
	realm := a.Realm
	if realm == "" {
		realm = "admin"
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || a.User == "" || !equal(user, a.User) || !equal(pass, a.Password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="`+realm+`", charset="UTF-8"`)
			common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "admin credentials required", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func equal(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
