package middleware

import (
	"net/http"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/xiaoLing0721/deeplx-worker/logcolors"
)

// TokenFromRequest extracts the access token from the query string or the
// Authorization header (Bearer or DeepL-Auth-Key schemes).
func TokenFromRequest(r *http.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}

	auth := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
		return token
	}
	if token, ok := strings.CutPrefix(auth, "DeepL-Auth-Key "); ok {
		return token
	}
	return ""
}

// AccessTokenMiddleware creates middleware enforcing private mode.
// If secret is empty, all requests pass through without authentication.
// Public paths (like the root banner) are always allowed.
func AccessTokenMiddleware(secret string, publicPaths []string) func(http.Handler) http.Handler {
	publicPathMap := make(map[string]bool)
	for _, path := range publicPaths {
		publicPathMap[path] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" {
				next.ServeHTTP(w, r)
				return
			}

			if publicPathMap[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			if TokenFromRequest(r) != secret {
				log.Warnf("%s Invalid access token from %s for %s", logcolors.LogAuth, r.RemoteAddr, r.URL.Path)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"code":401,"message":"Invalid access token"}`))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
