package flows

import (
	"context"

	"github.com/MrEthical07/goIdentity/session"
)

// LogoutDeps captures logout flow dependencies.
type LogoutDeps struct {
	Logout      func(ctx context.Context, refreshToken, redirectURI string) error
	RedirectURI func(context.Context) string
}

// LogoutResult carries the cleared session and the provider error, if any.
// Session is always set: the local session ends even when the provider
// call fails.
type LogoutResult struct {
	Err     error
	Session *session.Session
}

// RunLogout ends the realm session at the provider and returns a cleared copy
// of current.
func RunLogout(ctx context.Context, current *session.Session, deps LogoutDeps) LogoutResult {
	next := current.Clone()
	if next == nil {
		next = &session.Session{}
	}

	var err error
	if current != nil && current.Authenticated {
		redirect := ""
		if deps.RedirectURI != nil {
			redirect = deps.RedirectURI(ctx)
		}
		err = deps.Logout(ctx, current.RefreshToken, redirect)
	}

	next.Clear(session.StateUnauthenticated)
	return LogoutResult{Err: err, Session: next}
}
