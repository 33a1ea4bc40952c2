package session

import (
	"errors"

	"github.com/MrEthical07/goIdentity/permission"
)

// State is the lifecycle position of a session.
type State uint8

const (
	// StateUninitialized means no handshake has completed yet.
	StateUninitialized State = iota
	// StateUnauthenticated means the handshake or login was rejected, or the
	// user logged out.
	StateUnauthenticated
	// StateAuthenticated means tokens were issued by a handshake or login.
	StateAuthenticated
	// StateRefreshed means the access token was replaced by a refresh.
	StateRefreshed
	// StateCleared means tokens were dropped locally.
	StateCleared

	stateCount
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateUnauthenticated:
		return "unauthenticated"
	case StateAuthenticated:
		return "authenticated"
	case StateRefreshed:
		return "refreshed"
	case StateCleared:
		return "cleared"
	default:
		return "unknown"
	}
}

// Valid reports whether s is a known state.
func (s State) Valid() bool {
	return s < stateCount
}

// ErrInvariant is returned by Validate when token presence disagrees with the
// authenticated flag.
var ErrInvariant = errors.New("session token invariant violated")

// Session is the client-held record of one authentication session. An empty
// token string means the token is absent.
type Session struct {
	SessionID    string
	SessionState string
	Subject      string

	AccessToken   string
	IDToken       string
	RefreshToken  string
	Authenticated bool
	State         State

	RealmRoles    permission.Mask64
	ResourceRoles map[string]permission.Mask64

	IssuedAt         int64
	AccessExpiresAt  int64
	RefreshExpiresAt int64
	RefreshCount     uint32
}

// Validate checks the token/authenticated invariant.
func (s *Session) Validate() error {
	if s == nil {
		return ErrInvariant
	}
	if !s.State.Valid() {
		return errors.New("invalid session state")
	}
	present := 0
	for _, tok := range []string{s.AccessToken, s.IDToken, s.RefreshToken} {
		if tok != "" {
			present++
		}
	}
	switch {
	case s.Authenticated && present != 3:
		return ErrInvariant
	case !s.Authenticated && present != 0:
		return ErrInvariant
	}
	return nil
}

// Clear drops every token and role and moves the session to next, which must
// be an unauthenticated state.
func (s *Session) Clear(next State) {
	s.AccessToken = ""
	s.IDToken = ""
	s.RefreshToken = ""
	s.Authenticated = false
	s.RealmRoles = 0
	s.ResourceRoles = nil
	s.AccessExpiresAt = 0
	s.RefreshExpiresAt = 0
	s.State = next
}

// Clone returns a deep copy.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	if s.ResourceRoles != nil {
		out.ResourceRoles = make(map[string]permission.Mask64, len(s.ResourceRoles))
		for k, v := range s.ResourceRoles {
			out.ResourceRoles[k] = v
		}
	}
	return &out
}
