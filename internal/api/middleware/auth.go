// Package middleware holds HTTP middleware for the api router.
package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/handaas/patent-bigdata-mcp/internal/api/ctxkeys"
	pkgauth "github.com/handaas/patent-bigdata-mcp/pkg/auth"
)

// Auth validates "Authorization: Bearer <token>" against secret and injects
// the token subject into the request context as ctxkeys.Subject.
// An empty secret disables the check.
//
// Flow:
//  1. Read the Authorization header
//  2. Reject if missing or not Bearer scheme → 401
//  3. Parse + validate the JWT → 401 on invalid/expired
//  4. Inject ctxkeys.Subject and call next
func Auth(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if len(secret) == 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString := extractBearerToken(r)
			if tokenString == "" {
				writeUnauthorized(w, "missing or invalid Authorization header")
				return
			}

			claims, err := pkgauth.ParseToken(secret, tokenString)
			if err != nil {
				writeUnauthorized(w, "invalid or expired token")
				return
			}

			ctx := ctxkeys.WithValue(r.Context(), ctxkeys.Subject, claims.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// extractBearerToken returns the token from "Authorization: Bearer <token>",
// or "" when the header is missing, uses another scheme or is empty.
func extractBearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, prefix))
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="patentmcp"`)
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"error": message}) //nolint:errcheck
}
