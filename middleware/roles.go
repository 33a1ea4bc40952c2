package middleware

import (
	"net/http"

	goIdentity "github.com/MrEthical07/goIdentity"
)

// RequireRealmRole guards a handler with Guard and requires every role in
// roles on the realm.
func RequireRealmRole(validator BearerValidator, roles ...string) func(http.Handler) http.Handler {
	return guard(validator, func(id *goIdentity.BearerIdentity) bool {
		for _, role := range roles {
			if !id.HasRealmRole(role) {
				return false
			}
		}
		return true
	})
}

// RequireResourceRole requires every role in roles on resource.
func RequireResourceRole(validator BearerValidator, resource string, roles ...string) func(http.Handler) http.Handler {
	return guard(validator, func(id *goIdentity.BearerIdentity) bool {
		for _, role := range roles {
			if !id.HasResourceRole(role, resource) {
				return false
			}
		}
		return true
	})
}
