package provider

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"github.com/MrEthical07/goIdentity/internal"
	"github.com/MrEthical07/goIdentity/jwt"
)

// Config controls the behavior of [Simulated].
type Config struct {
	BaseURL  string
	Realm    string
	ClientID string

	// Delay is how long handshakes and refreshes take.
	Delay time.Duration
	// Authenticate selects whether the realm accepts handshakes and logins.
	Authenticate bool
	// RefreshSuccessRate is the probability in [0,1] that a refresh succeeds.
	RefreshSuccessRate float64
	// RotateRefreshToken issues a new refresh token on every successful refresh.
	RotateRefreshToken bool
	RefreshTTL         time.Duration

	Subject       string
	Profile       UserProfile
	Scope         string
	RealmRoles    []string
	ResourceRoles map[string][]string
}

// DefaultConfig returns the demo realm: an authenticated John Doe holding
// realm-user and resource-user on my-angular-client.
func DefaultConfig() Config {
	return Config{
		BaseURL:            "http://localhost:8080",
		Realm:              "master",
		ClientID:           "universal_auth_app",
		Delay:              500 * time.Millisecond,
		Authenticate:       true,
		RefreshSuccessRate: 0.8,
		RefreshTTL:         30 * time.Minute,
		Subject:            "user-id-123",
		Profile: UserProfile{
			Username:  "johndoe",
			FirstName: "John",
			LastName:  "Doe",
			Email:     "john.doe@example.com",
		},
		Scope:         "openid profile email",
		RealmRoles:    []string{"realm-user"},
		ResourceRoles: map[string][]string{"my-angular-client": {"resource-user"}},
	}
}

// Validate reports configuration errors.
func (c Config) Validate() error {
	if c.BaseURL == "" || c.Realm == "" || c.ClientID == "" {
		return errors.New("provider: base url, realm and client id are required")
	}
	if c.Delay < 0 {
		return errors.New("provider: delay must be >= 0")
	}
	if c.RefreshSuccessRate < 0 || c.RefreshSuccessRate > 1 {
		return errors.New("provider: refresh success rate must be within [0,1]")
	}
	if c.RefreshTTL <= 0 {
		return errors.New("provider: refresh ttl must be > 0")
	}
	if c.Subject == "" {
		return errors.New("provider: subject is required")
	}
	return nil
}

// Option customizes a [Simulated] provider.
type Option func(*Simulated)

// WithRand replaces the random source used to decide refresh outcomes.
func WithRand(r *rand.Rand) Option {
	return func(s *Simulated) {
		if r != nil {
			s.rng = r
		}
	}
}

// WithSeed makes refresh outcomes reproducible.
func WithSeed(seed1, seed2 uint64) Option {
	return WithRand(rand.New(rand.NewPCG(seed1, seed2)))
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Simulated) {
		if now != nil {
			s.now = now
		}
	}
}

type realmSession struct {
	refreshHash [32]byte
	expiresAt   time.Time
}

// Simulated is an in-process identity provider driven by timers.
//
// It signs tokens with the supplied [jwt.Manager], which therefore needs a
// private key. Simulated is safe for concurrent use.
type Simulated struct {
	cfg    Config
	tokens *jwt.Manager
	now    func() time.Time

	mu       sync.Mutex
	rng      *rand.Rand
	sessions map[internal.SessionID]realmSession
}

// NewSimulated returns a simulated realm issuing tokens through tokens.
func NewSimulated(cfg Config, tokens *jwt.Manager, opts ...Option) (*Simulated, error) {
	if tokens == nil {
		return nil, errors.New("provider: token manager is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.RealmRoles = slices.Clone(cfg.RealmRoles)
	cfg.ResourceRoles = cloneRoles(cfg.ResourceRoles)

	s := &Simulated{
		cfg:      cfg,
		tokens:   tokens,
		now:      time.Now,
		rng:      rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		sessions: make(map[internal.SessionID]realmSession),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Handshake waits for the configured delay and then either opens a realm
// session or fails with [ErrInitRejected].
func (s *Simulated) Handshake(ctx context.Context) (*Grant, error) {
	if err := wait(ctx, s.cfg.Delay); err != nil {
		return nil, err
	}
	if !s.cfg.Authenticate {
		return nil, ErrInitRejected
	}
	return s.open()
}

// Login opens a fresh realm session without delay.
func (s *Simulated) Login(ctx context.Context, redirectURI string) (*Grant, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !s.cfg.Authenticate {
		return nil, ErrLoginRejected
	}
	return s.open()
}

// Logout ends the realm session owning refreshToken. Unknown tokens are
// ignored.
func (s *Simulated) Logout(ctx context.Context, refreshToken, redirectURI string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	sid, _, err := internal.DecodeRefreshToken(refreshToken)
	if err != nil {
		return nil
	}
	s.mu.Lock()
	delete(s.sessions, sid)
	s.mu.Unlock()
	return nil
}

// Register is accepted unconditionally.
func (s *Simulated) Register(ctx context.Context, redirectURI string) error {
	return ctx.Err()
}

// Refresh waits for the configured delay and then mints a new access token
// with probability RefreshSuccessRate.
func (s *Simulated) Refresh(ctx context.Context, refreshToken string) (*Grant, error) {
	if err := wait(ctx, s.cfg.Delay); err != nil {
		return nil, err
	}
	if !s.cfg.Authenticate {
		return nil, ErrRefreshRejected
	}
	sid, secret, err := internal.DecodeRefreshToken(refreshToken)
	if err != nil {
		return nil, ErrUnknownRefreshToken
	}

	now := s.now()
	s.mu.Lock()
	rs, ok := s.sessions[sid]
	if !ok || !internal.HashesEqual(rs.refreshHash, secret.Hash()) {
		s.mu.Unlock()
		return nil, ErrUnknownRefreshToken
	}
	if !now.Before(rs.expiresAt) {
		delete(s.sessions, sid)
		s.mu.Unlock()
		return nil, ErrUnknownRefreshToken
	}
	if s.rng.Float64() >= s.cfg.RefreshSuccessRate {
		s.mu.Unlock()
		return nil, ErrRefreshRejected
	}

	grant := &Grant{
		TokenType:        jwt.TypeBearer,
		SessionState:     sid.String(),
		Scope:            s.cfg.Scope,
		RefreshExpiresIn: rs.expiresAt.Sub(now),
	}
	if s.cfg.RotateRefreshToken {
		token, hash, err := internal.IssueRefreshToken(sid)
		if err != nil {
			s.mu.Unlock()
			return nil, err
		}
		rs.refreshHash = hash
		rs.expiresAt = now.Add(s.cfg.RefreshTTL)
		s.sessions[sid] = rs
		grant.RefreshToken = token
		grant.RefreshExpiresIn = s.cfg.RefreshTTL
	}
	s.mu.Unlock()

	access, exp, err := s.tokens.CreateAccess(s.accessGrant(sid), now)
	if err != nil {
		return nil, fmt.Errorf("provider: sign access token: %w", err)
	}
	grant.AccessToken = access
	grant.ExpiresIn = exp.Sub(now)
	return grant, nil
}

// UserProfile returns the account profile for a valid access token.
func (s *Simulated) UserProfile(ctx context.Context, accessToken string) (UserProfile, error) {
	if err := ctx.Err(); err != nil {
		return UserProfile{}, err
	}
	if _, err := s.tokens.ParseAccess(accessToken); err != nil {
		return UserProfile{}, fmt.Errorf("%w: %v", ErrInvalidAccessToken, err)
	}
	return s.cfg.Profile, nil
}

// UserInfo returns the userinfo document for a valid access token.
func (s *Simulated) UserInfo(ctx context.Context, accessToken string) (UserInfo, error) {
	if err := ctx.Err(); err != nil {
		return UserInfo{}, err
	}
	claims, err := s.tokens.ParseAccess(accessToken)
	if err != nil {
		return UserInfo{}, fmt.Errorf("%w: %v", ErrInvalidAccessToken, err)
	}
	id := s.identity(claims.SessionState)
	return UserInfo{
		Sub:        claims.Subject,
		Name:       id.Name(),
		GivenName:  id.GivenName,
		FamilyName: id.FamilyName,
		Email:      id.Email,
	}, nil
}

// Endpoints returns the realm URLs.
func (s *Simulated) Endpoints(redirectURI string) Endpoints {
	return BuildEndpoints(s.cfg.BaseURL, s.cfg.Realm, s.cfg.ClientID, redirectURI)
}

// Sessions reports the number of live realm sessions.
func (s *Simulated) Sessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *Simulated) open() (*Grant, error) {
	sid, err := internal.NewSessionID()
	if err != nil {
		return nil, err
	}
	refresh, hash, err := internal.IssueRefreshToken(sid)
	if err != nil {
		return nil, err
	}

	now := s.now()
	access, exp, err := s.tokens.CreateAccess(s.accessGrant(sid), now)
	if err != nil {
		return nil, fmt.Errorf("provider: sign access token: %w", err)
	}
	idToken, err := s.tokens.CreateID(s.identity(sid.String()), now)
	if err != nil {
		return nil, fmt.Errorf("provider: sign id token: %w", err)
	}

	s.mu.Lock()
	s.sessions[sid] = realmSession{refreshHash: hash, expiresAt: now.Add(s.cfg.RefreshTTL)}
	s.mu.Unlock()

	return &Grant{
		AccessToken:      access,
		IDToken:          idToken,
		RefreshToken:     refresh,
		TokenType:        jwt.TypeBearer,
		SessionState:     sid.String(),
		Scope:            s.cfg.Scope,
		ExpiresIn:        exp.Sub(now),
		RefreshExpiresIn: s.cfg.RefreshTTL,
	}, nil
}

func (s *Simulated) accessGrant(sid internal.SessionID) jwt.AccessGrant {
	return jwt.AccessGrant{
		Subject:       s.cfg.Subject,
		SessionState:  sid.String(),
		Username:      s.cfg.Profile.Username,
		Scope:         s.cfg.Scope,
		RealmRoles:    slices.Clone(s.cfg.RealmRoles),
		ResourceRoles: cloneRoles(s.cfg.ResourceRoles),
	}
}

func (s *Simulated) identity(sessionState string) jwt.Identity {
	return jwt.Identity{
		Subject:      s.cfg.Subject,
		SessionState: sessionState,
		Username:     s.cfg.Profile.Username,
		GivenName:    s.cfg.Profile.FirstName,
		FamilyName:   s.cfg.Profile.LastName,
		Email:        s.cfg.Profile.Email,
	}
}

func cloneRoles(in map[string][]string) map[string][]string {
	if in == nil {
		return nil
	}
	out := maps.Clone(in)
	for k, v := range out {
		out[k] = slices.Clone(v)
	}
	return out
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
