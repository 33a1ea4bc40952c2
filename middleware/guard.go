package middleware

import (
	"context"
	"net/http"
	"strings"

	goIdentity "github.com/MrEthical07/goIdentity"
)

// BearerValidator verifies an inbound access token.
// *goIdentity.Client implements it.
type BearerValidator interface {
	ValidateBearer(ctx context.Context, token string) (*goIdentity.BearerIdentity, error)
}

type identityContextKey struct{}

// IdentityFromContext returns the identity stored by a guard.
func IdentityFromContext(ctx context.Context) (*goIdentity.BearerIdentity, bool) {
	id, ok := ctx.Value(identityContextKey{}).(*goIdentity.BearerIdentity)
	return id, ok
}

// Guard rejects requests without a valid bearer token.
func Guard(validator BearerValidator) func(http.Handler) http.Handler {
	return guard(validator, nil)
}

func guard(validator BearerValidator, allow func(*goIdentity.BearerIdentity) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if validator == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				w.Header().Set("WWW-Authenticate", "Bearer")
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			id, err := validator.ValidateBearer(r.Context(), token)
			if err != nil {
				w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			if allow != nil && !allow(id) {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}

			ctx := context.WithValue(r.Context(), identityContextKey{}, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// bearerToken accepts the scheme case-insensitively.
func bearerToken(value string) (string, bool) {
	scheme, token, ok := strings.Cut(value, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", false
	}
	return token, true
}
