package flows

import (
	"context"
	"time"

	"github.com/MrEthical07/goIdentity/jwt"
	"github.com/MrEthical07/goIdentity/permission"
	"github.com/MrEthical07/goIdentity/provider"
	"github.com/MrEthical07/goIdentity/session"
)

// RefreshFailureKind classifies refresh flow failures for root-level mapping.
type RefreshFailureKind int

const (
	RefreshFailureNone RefreshFailureKind = iota
	RefreshFailureNotAuthenticated
	RefreshFailureProvider
	RefreshFailureCanceled
	RefreshFailureParseAccess
	RefreshFailureInvariant
)

// RefreshResult carries either the refreshed session or failure metadata.
// On failure Session is nil and the caller keeps its current record.
type RefreshResult struct {
	Failure RefreshFailureKind
	Err     error
	Session *session.Session
	Rotated bool
}

// RefreshDeps captures refresh flow dependencies.
type RefreshDeps struct {
	Refresh     func(context.Context, string) (*provider.Grant, error)
	ParseAccess func(string) (*jwt.AccessClaims, error)
	Roles       *permission.RoleSet
	Now         func() time.Time
}

// RunRefresh exchanges current's refresh token for a new access token. The
// returned session is a copy of current with the new tokens applied.
func RunRefresh(ctx context.Context, current *session.Session, deps RefreshDeps) RefreshResult {
	if current == nil || !current.Authenticated {
		return RefreshResult{Failure: RefreshFailureNotAuthenticated}
	}

	grant, err := deps.Refresh(ctx, current.RefreshToken)
	if err != nil {
		kind := RefreshFailureProvider
		if ctx.Err() != nil {
			kind = RefreshFailureCanceled
		}
		return RefreshResult{Failure: kind, Err: err}
	}

	claims, err := deps.ParseAccess(grant.AccessToken)
	if err != nil {
		return RefreshResult{Failure: RefreshFailureParseAccess, Err: err}
	}

	now := deps.Now()
	next := current.Clone()
	next.AccessToken = grant.AccessToken
	next.RealmRoles = deps.Roles.ResolveRealm(claims.RealmAccess.Roles)
	next.ResourceRoles = deps.Roles.ResolveResources(claims.ResourceRoles())
	if claims.ExpiresAt != nil {
		next.AccessExpiresAt = claims.ExpiresAt.Unix()
	}
	if grant.IDToken != "" {
		next.IDToken = grant.IDToken
	}
	rotated := false
	if grant.RefreshToken != "" && grant.RefreshToken != current.RefreshToken {
		next.RefreshToken = grant.RefreshToken
		rotated = true
	}
	if grant.RefreshExpiresIn > 0 {
		next.RefreshExpiresAt = now.Add(grant.RefreshExpiresIn).Unix()
	}
	next.State = session.StateRefreshed
	next.RefreshCount++

	if err := next.Validate(); err != nil {
		return RefreshResult{Failure: RefreshFailureInvariant, Err: err}
	}
	return RefreshResult{Session: next, Rotated: rotated}
}
