package provider

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/MrEthical07/goIdentity/jwt"
)

func newTestTokens(t *testing.T) *jwt.Manager {
	t.Helper()
	m, err := jwt.NewManager(jwt.Config{
		AccessTTL:     5 * time.Minute,
		SigningMethod: jwt.MethodHS256,
		PrivateKey:    []byte("provider-test-secret-0123456789ab"),
		Issuer:        Issuer("http://localhost:8080", "master"),
		ClientID:      "universal_auth_app",
	})
	require.NoError(t, err)
	return m
}

func newTestSimulated(t *testing.T, mutate func(*Config), opts ...Option) (*Simulated, *jwt.Manager) {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Delay = 0
	if mutate != nil {
		mutate(&cfg)
	}
	tokens := newTestTokens(t)
	p, err := NewSimulated(cfg, tokens, append([]Option{WithSeed(1, 2)}, opts...)...)
	require.NoError(t, err)
	return p, tokens
}

func TestHandshakeIssuesVerifiableGrant(t *testing.T) {
	p, tokens := newTestSimulated(t, nil)

	grant, err := p.Handshake(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, grant.AccessToken)
	require.NotEmpty(t, grant.IDToken)
	require.NotEmpty(t, grant.RefreshToken)
	require.Equal(t, jwt.TypeBearer, grant.TokenType)
	require.Equal(t, 5*time.Minute, grant.ExpiresIn)
	require.Equal(t, 1, p.Sessions())

	access, err := tokens.ParseAccess(grant.AccessToken)
	require.NoError(t, err)
	require.Equal(t, "user-id-123", access.Subject)
	require.Equal(t, grant.SessionState, access.SessionState)
	require.Equal(t, []string{"realm-user"}, access.RealmAccess.Roles)
	require.Equal(t, []string{"resource-user"}, access.ResourceRoles()["my-angular-client"])

	id, err := tokens.ParseID(grant.IDToken)
	require.NoError(t, err)
	require.Equal(t, "John Doe", id.Name)
	require.Equal(t, "johndoe", id.PreferredUsername)
	require.Equal(t, "john.doe@example.com", id.Email)
}

func TestHandshakeRejected(t *testing.T) {
	p, _ := newTestSimulated(t, func(c *Config) { c.Authenticate = false })

	_, err := p.Handshake(context.Background())
	require.ErrorIs(t, err, ErrInitRejected)

	_, err = p.Login(context.Background(), "")
	require.ErrorIs(t, err, ErrLoginRejected)
	require.Zero(t, p.Sessions())
}

func TestHandshakeWaitsForDelay(t *testing.T) {
	p, _ := newTestSimulated(t, func(c *Config) { c.Delay = 20 * time.Millisecond })

	start := time.Now()
	_, err := p.Handshake(context.Background())
	require.NoError(t, err)
	require.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestHandshakeHonorsContextCancel(t *testing.T) {
	p, _ := newTestSimulated(t, func(c *Config) { c.Delay = time.Hour })

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := p.Handshake(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Zero(t, p.Sessions())
}

func TestRefreshSuccessRateIsHonored(t *testing.T) {
	p, tokens := newTestSimulated(t, nil)
	grant, err := p.Handshake(context.Background())
	require.NoError(t, err)

	const attempts = 2000
	ok := 0
	for i := 0; i < attempts; i++ {
		refreshed, err := p.Refresh(context.Background(), grant.RefreshToken)
		if err != nil {
			require.ErrorIs(t, err, ErrRefreshRejected)
			continue
		}
		ok++
		require.Empty(t, refreshed.RefreshToken)
		require.Empty(t, refreshed.IDToken)
		_, err = tokens.ParseAccess(refreshed.AccessToken)
		require.NoError(t, err)
	}
	rate := float64(ok) / attempts
	require.InDelta(t, 0.8, rate, 0.05)
}

func TestRefreshSeededOutcomesRepeat(t *testing.T) {
	run := func() []bool {
		p, _ := newTestSimulated(t, nil)
		grant, err := p.Handshake(context.Background())
		require.NoError(t, err)
		out := make([]bool, 50)
		for i := range out {
			_, err := p.Refresh(context.Background(), grant.RefreshToken)
			out[i] = err == nil
		}
		return out
	}
	require.Equal(t, run(), run())
}

func TestRefreshRateBounds(t *testing.T) {
	never, _ := newTestSimulated(t, func(c *Config) { c.RefreshSuccessRate = 0 })
	grant, err := never.Handshake(context.Background())
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		_, err := never.Refresh(context.Background(), grant.RefreshToken)
		require.ErrorIs(t, err, ErrRefreshRejected)
	}

	always, _ := newTestSimulated(t, func(c *Config) { c.RefreshSuccessRate = 1 })
	grant, err = always.Handshake(context.Background())
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		_, err := always.Refresh(context.Background(), grant.RefreshToken)
		require.NoError(t, err)
	}
}

func TestRefreshRejectsUnknownTokens(t *testing.T) {
	p, _ := newTestSimulated(t, func(c *Config) { c.RefreshSuccessRate = 1 })

	_, err := p.Refresh(context.Background(), "not-a-token")
	require.ErrorIs(t, err, ErrUnknownRefreshToken)

	grant, err := p.Handshake(context.Background())
	require.NoError(t, err)
	require.NoError(t, p.Logout(context.Background(), grant.RefreshToken, ""))
	require.Zero(t, p.Sessions())

	_, err = p.Refresh(context.Background(), grant.RefreshToken)
	require.ErrorIs(t, err, ErrUnknownRefreshToken)
}

func TestRefreshRotationRevokesPreviousToken(t *testing.T) {
	p, _ := newTestSimulated(t, func(c *Config) {
		c.RefreshSuccessRate = 1
		c.RotateRefreshToken = true
	})
	grant, err := p.Handshake(context.Background())
	require.NoError(t, err)

	next, err := p.Refresh(context.Background(), grant.RefreshToken)
	require.NoError(t, err)
	require.NotEmpty(t, next.RefreshToken)
	require.NotEqual(t, grant.RefreshToken, next.RefreshToken)

	_, err = p.Refresh(context.Background(), grant.RefreshToken)
	require.ErrorIs(t, err, ErrUnknownRefreshToken)

	_, err = p.Refresh(context.Background(), next.RefreshToken)
	require.NoError(t, err)
}

func TestRefreshAfterRealmSessionExpiry(t *testing.T) {
	now := time.Now()
	p, _ := newTestSimulated(t, func(c *Config) { c.RefreshSuccessRate = 1 },
		WithClock(func() time.Time { return now }))
	grant, err := p.Handshake(context.Background())
	require.NoError(t, err)

	now = now.Add(31 * time.Minute)
	_, err = p.Refresh(context.Background(), grant.RefreshToken)
	require.ErrorIs(t, err, ErrUnknownRefreshToken)
	require.Zero(t, p.Sessions())
}

func TestUserDocuments(t *testing.T) {
	p, _ := newTestSimulated(t, nil)
	grant, err := p.Handshake(context.Background())
	require.NoError(t, err)

	profile, err := p.UserProfile(context.Background(), grant.AccessToken)
	require.NoError(t, err)
	require.Equal(t, UserProfile{
		Username:  "johndoe",
		FirstName: "John",
		LastName:  "Doe",
		Email:     "john.doe@example.com",
	}, profile)

	info, err := p.UserInfo(context.Background(), grant.AccessToken)
	require.NoError(t, err)
	require.Equal(t, UserInfo{
		Sub:        "user-id-123",
		Name:       "John Doe",
		GivenName:  "John",
		FamilyName: "Doe",
		Email:      "john.doe@example.com",
	}, info)

	_, err = p.UserInfo(context.Background(), grant.IDToken)
	require.True(t, errors.Is(err, ErrInvalidAccessToken))
}

func TestNewSimulatedValidatesConfig(t *testing.T) {
	tokens := newTestTokens(t)
	cases := map[string]func(*Config){
		"no realm":      func(c *Config) { c.Realm = "" },
		"negative wait": func(c *Config) { c.Delay = -time.Second },
		"rate above 1":  func(c *Config) { c.RefreshSuccessRate = 1.5 },
		"no refresh":    func(c *Config) { c.RefreshTTL = 0 },
		"no subject":    func(c *Config) { c.Subject = "" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := DefaultConfig()
			mutate(&cfg)
			_, err := NewSimulated(cfg, tokens)
			require.Error(t, err)
		})
	}

	_, err := NewSimulated(DefaultConfig(), nil)
	require.Error(t, err)
}
