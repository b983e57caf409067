package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/oggyb/matchchat/internal/utils/httpjson"
)

type identityKey struct{}

// WithIdentity attaches the authenticated caller to ctx.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// FromContext returns the caller set by RequireAuth.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}

// UserID is FromContext for handlers that only need the user.
func UserID(ctx context.Context) (uint64, bool) {
	id, ok := FromContext(ctx)
	return id.UserID, ok
}

// BearerToken strips the "Bearer " prefix from an Authorization header.
func BearerToken(header string) string {
	const prefix = "bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}

// RequireAuth rejects requests without a valid bearer token with 401.
func RequireAuth(v Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := v.Verify(r.Context(), BearerToken(r.Header.Get("Authorization")))
			if err != nil {
				httpjson.Error(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}
