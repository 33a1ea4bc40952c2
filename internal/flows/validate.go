package flows

import (
	"context"
	"errors"

	"github.com/MrEthical07/goIdentity/jwt"
	"github.com/MrEthical07/goIdentity/permission"
)

// ErrEmptyToken is returned by RunValidate for an empty bearer token.
var ErrEmptyToken = errors.New("empty bearer token")

// ValidateResult is the verified view of a bearer token.
type ValidateResult struct {
	Err           error
	Claims        *jwt.AccessClaims
	RealmRoles    permission.Mask64
	ResourceRoles map[string]permission.Mask64
}

// ValidateDeps captures bearer validation dependencies.
type ValidateDeps struct {
	ParseAccess func(string) (*jwt.AccessClaims, error)
	Roles       *permission.RoleSet
}

// RunValidate verifies tokenStr and resolves its role claims against the
// accepted role set.
func RunValidate(ctx context.Context, tokenStr string, deps ValidateDeps) ValidateResult {
	if err := ctx.Err(); err != nil {
		return ValidateResult{Err: err}
	}
	if tokenStr == "" {
		return ValidateResult{Err: ErrEmptyToken}
	}
	claims, err := deps.ParseAccess(tokenStr)
	if err != nil {
		return ValidateResult{Err: err}
	}
	return ValidateResult{
		Claims:        claims,
		RealmRoles:    deps.Roles.ResolveRealm(claims.RealmAccess.Roles),
		ResourceRoles: deps.Roles.ResolveResources(claims.ResourceRoles()),
	}
}
