package httpx

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/expressmart/identity/pkg/jwtx"
	"github.com/expressmart/identity/pkg/slogx"
)

// AuthnMiddleware verifies the Bearer token on incoming requests and
// injects the subject, role and claims into the request context.
// Requests without a valid token are rejected with an RFC 6750 error.
func AuthnMiddleware(verifier jwtx.Verifier) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := bearerToken(r)
			if !ok {
				writeBearerError(w, http.StatusUnauthorized, "invalid_request", "missing bearer token")
				return
			}

			ctx := r.Context()

			claims, err := verifier.Verify(raw)
			if err != nil {
				slogx.FromContext(ctx).Warn("jwt verify failed", "err", err)
				writeBearerError(w, http.StatusUnauthorized, "invalid_token", "token verification failed")
				return
			}

			ctx = context.WithValue(ctx, CtxKeyUserID, claims.Subject)
			ctx = context.WithValue(ctx, CtxKeyRole, claims.Role)
			ctx = context.WithValue(ctx, CtxKeyClaims, claims)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(h) <= len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return "", false
	}
	return h[len(prefix):], true
}

func writeBearerError(w http.ResponseWriter, code int, errCode, desc string) {
	w.Header().Set("WWW-Authenticate",
		fmt.Sprintf(`Bearer error=%q, error_description=%q`, errCode, desc))
	WriteJSON(w, code, map[string]string{
		"error":             errCode,
		"error_description": desc,
	})
}
