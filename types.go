package goIdentity

import (
	"github.com/MrEthical07/goIdentity/provider"
	"github.com/MrEthical07/goIdentity/session"
)

// Session is the client-held authentication record.
type Session = session.Session

// State is the session lifecycle position.
type State = session.State

const (
	StateUninitialized   = session.StateUninitialized
	StateUnauthenticated = session.StateUnauthenticated
	StateAuthenticated   = session.StateAuthenticated
	StateRefreshed       = session.StateRefreshed
	StateCleared         = session.StateCleared
)

// UserProfile is the account profile document returned by LoadUserProfile.
type UserProfile = provider.UserProfile

// UserInfo is the userinfo document returned by LoadUserInfo.
type UserInfo = provider.UserInfo

// BearerIdentity is the verified view of an inbound bearer token.
type BearerIdentity struct {
	Subject      string
	SessionState string
	Username     string
	RealmRoles   []string
	// ResourceRoles lists accepted roles per resource.
	ResourceRoles map[string][]string
}
