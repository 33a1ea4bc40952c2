package flows

import (
	"context"
	"time"

	"github.com/MrEthical07/goIdentity/jwt"
	"github.com/MrEthical07/goIdentity/permission"
	"github.com/MrEthical07/goIdentity/provider"
	"github.com/MrEthical07/goIdentity/session"
)

// EstablishFailureKind classifies handshake and login failures for
// root-level mapping.
type EstablishFailureKind int

const (
	EstablishFailureNone EstablishFailureKind = iota
	EstablishFailureProvider
	EstablishFailureCanceled
	EstablishFailureParseAccess
	EstablishFailureSessionID
	EstablishFailureInvariant
)

// EstablishResult carries either a freshly authenticated session or failure
// metadata.
type EstablishResult struct {
	Failure EstablishFailureKind
	Err     error
	Session *session.Session
}

// EstablishDeps captures handshake and login dependencies.
type EstablishDeps struct {
	Handshake    func(context.Context) (*provider.Grant, error)
	Login        func(context.Context) (*provider.Grant, error)
	ParseAccess  func(string) (*jwt.AccessClaims, error)
	Roles        *permission.RoleSet
	NewSessionID func() (string, error)
	Now          func() time.Time
}

// RunEstablish obtains a grant from fetch and turns it into an authenticated
// session.
func RunEstablish(
	ctx context.Context,
	fetch func(context.Context) (*provider.Grant, error),
	deps EstablishDeps,
) EstablishResult {
	grant, err := fetch(ctx)
	if err != nil {
		kind := EstablishFailureProvider
		if ctx.Err() != nil {
			kind = EstablishFailureCanceled
		}
		return EstablishResult{Failure: kind, Err: err}
	}

	claims, err := deps.ParseAccess(grant.AccessToken)
	if err != nil {
		return EstablishResult{Failure: EstablishFailureParseAccess, Err: err}
	}

	sessionID, err := deps.NewSessionID()
	if err != nil {
		return EstablishResult{Failure: EstablishFailureSessionID, Err: err}
	}

	now := deps.Now()
	sess := &session.Session{
		SessionID:     sessionID,
		SessionState:  grant.SessionState,
		Subject:       claims.Subject,
		AccessToken:   grant.AccessToken,
		IDToken:       grant.IDToken,
		RefreshToken:  grant.RefreshToken,
		Authenticated: true,
		State:         session.StateAuthenticated,
		RealmRoles:    deps.Roles.ResolveRealm(claims.RealmAccess.Roles),
		ResourceRoles: deps.Roles.ResolveResources(claims.ResourceRoles()),
		IssuedAt:      now.Unix(),
	}
	if claims.ExpiresAt != nil {
		sess.AccessExpiresAt = claims.ExpiresAt.Unix()
	}
	if grant.RefreshExpiresIn > 0 {
		sess.RefreshExpiresAt = now.Add(grant.RefreshExpiresIn).Unix()
	}
	if sess.SessionState == "" {
		sess.SessionState = claims.SessionState
	}

	if err := sess.Validate(); err != nil {
		return EstablishResult{Failure: EstablishFailureInvariant, Err: err}
	}
	return EstablishResult{Session: sess}
}
