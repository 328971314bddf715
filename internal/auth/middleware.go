package auth

import (
	"context"
	"net/http"

	"github.com/sakif/blog-platform/internal/model"
)

// CookieName is the cookie carrying the session JWT.
const CookieName = "token"

// contextKey is unexported so no other package can read or shadow the identity.
type contextKey string

const identityKey contextKey = "identity"

// RequireAuth rejects requests without a valid session cookie with a JSON 401.
// On success the caller's Identity is stored in the request context.
//
// Chi applies middlewares in a chain: req → M1 → M2 → Handler → M2 → M1 → resp
func RequireAuth(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := extractIdentity(r, tokens)
			if err != nil {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"unauthorized","message":"valid authentication required"}`))
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), *id)))
		})
	}
}

// OptionalAuth attaches the caller's identity when a valid token is present and
// otherwise lets the request through anonymously. A missing, malformed or
// expired token never fails the request.
func OptionalAuth(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if id, err := extractIdentity(r, tokens); err == nil {
				r = r.WithContext(WithIdentity(r.Context(), *id))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WithIdentity returns a copy of ctx carrying id. Exposed for handler tests.
func WithIdentity(ctx context.Context, id model.Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFromContext returns the authenticated caller, or (zero, false) for
// anonymous requests.
//
//	id, ok := auth.IdentityFromContext(r.Context())
//	if !ok {
//	    // anonymous
//	}
func IdentityFromContext(ctx context.Context) (model.Identity, bool) {
	id, ok := ctx.Value(identityKey).(model.Identity)
	return id, ok && id.ID != ""
}

// extractIdentity reads the token cookie and validates it.
func extractIdentity(r *http.Request, tokens *TokenService) (*model.Identity, error) {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		// http.ErrNoCookie: anonymous
		return nil, err
	}
	return tokens.Validate(cookie.Value)
}
