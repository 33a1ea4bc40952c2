package flows

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MrEthical07/goIdentity/jwt"
	"github.com/MrEthical07/goIdentity/permission"
	"github.com/MrEthical07/goIdentity/provider"
	"github.com/MrEthical07/goIdentity/session"
)

type flowFixture struct {
	tokens *jwt.Manager
	roles  *permission.RoleSet
	now    time.Time
}

func newFlowFixture(t *testing.T) *flowFixture {
	t.Helper()
	tokens, err := jwt.NewManager(jwt.Config{
		AccessTTL:     time.Minute,
		SigningMethod: jwt.MethodHS256,
		PrivateKey:    []byte("flows-test-secret-0123456789abcdef"),
	})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	roles, err := permission.NewRoleSet(permission.NewRegistry(),
		[]string{"realm-user"},
		map[string][]string{"my-angular-client": {"resource-user"}})
	if err != nil {
		t.Fatalf("NewRoleSet: %v", err)
	}
	return &flowFixture{tokens: tokens, roles: roles, now: time.Now()}
}

func (f *flowFixture) grant(t *testing.T, realm ...string) *provider.Grant {
	t.Helper()
	access, _, err := f.tokens.CreateAccess(jwt.AccessGrant{
		Subject:       "user-id-123",
		SessionState:  "realm-session",
		RealmRoles:    realm,
		ResourceRoles: map[string][]string{"my-angular-client": {"resource-user", "resource-admin"}},
	}, f.now)
	if err != nil {
		t.Fatalf("CreateAccess: %v", err)
	}
	return &provider.Grant{
		AccessToken:      access,
		IDToken:          "id-token",
		RefreshToken:     "refresh-token",
		SessionState:     "realm-session",
		RefreshExpiresIn: time.Hour,
	}
}

func (f *flowFixture) establishDeps() EstablishDeps {
	return EstablishDeps{
		ParseAccess:  f.tokens.ParseAccess,
		Roles:        f.roles,
		NewSessionID: func() (string, error) { return "sid-1", nil },
		Now:          func() time.Time { return f.now },
	}
}

func TestRunEstablishBuildsAuthenticatedSession(t *testing.T) {
	f := newFlowFixture(t)
	grant := f.grant(t, "realm-user", "offline_access")

	res := RunEstablish(context.Background(), func(context.Context) (*provider.Grant, error) {
		return grant, nil
	}, f.establishDeps())
	if res.Err != nil {
		t.Fatalf("unexpected error: %v", res.Err)
	}

	sess := res.Session
	if !sess.Authenticated || sess.State != session.StateAuthenticated {
		t.Fatalf("expected authenticated session, got %+v", sess)
	}
	if sess.SessionID != "sid-1" || sess.Subject != "user-id-123" || sess.SessionState != "realm-session" {
		t.Fatalf("unexpected identity fields: %+v", sess)
	}
	if !f.roles.HasRealm(sess.RealmRoles, "realm-user") {
		t.Fatal("expected realm-user to resolve")
	}
	if f.roles.HasRealm(sess.RealmRoles, "offline_access") {
		t.Fatal("unaccepted realm role must not resolve")
	}
	if !f.roles.HasResource(sess.ResourceRoles, "resource-user", "my-angular-client") {
		t.Fatal("expected resource-user to resolve")
	}
	if sess.AccessExpiresAt != f.now.Add(time.Minute).Unix() {
		t.Fatalf("unexpected access expiry %d", sess.AccessExpiresAt)
	}
	if sess.RefreshExpiresAt != f.now.Add(time.Hour).Unix() {
		t.Fatalf("unexpected refresh expiry %d", sess.RefreshExpiresAt)
	}
}

func TestRunEstablishClassifiesFailures(t *testing.T) {
	f := newFlowFixture(t)

	res := RunEstablish(context.Background(), func(context.Context) (*provider.Grant, error) {
		return nil, provider.ErrInitRejected
	}, f.establishDeps())
	if res.Failure != EstablishFailureProvider || !errors.Is(res.Err, provider.ErrInitRejected) {
		t.Fatalf("expected provider failure, got %+v", res)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res = RunEstablish(ctx, func(ctx context.Context) (*provider.Grant, error) {
		return nil, ctx.Err()
	}, f.establishDeps())
	if res.Failure != EstablishFailureCanceled {
		t.Fatalf("expected canceled failure, got %+v", res)
	}

	res = RunEstablish(context.Background(), func(context.Context) (*provider.Grant, error) {
		return &provider.Grant{AccessToken: "garbage", IDToken: "x", RefreshToken: "y"}, nil
	}, f.establishDeps())
	if res.Failure != EstablishFailureParseAccess {
		t.Fatalf("expected parse failure, got %+v", res)
	}

	grant := f.grant(t, "realm-user")
	grant.IDToken = ""
	res = RunEstablish(context.Background(), func(context.Context) (*provider.Grant, error) {
		return grant, nil
	}, f.establishDeps())
	if res.Failure != EstablishFailureInvariant || !errors.Is(res.Err, session.ErrInvariant) {
		t.Fatalf("expected invariant failure, got %+v", res)
	}
}

func TestRunRefreshReplacesOnlyAccessToken(t *testing.T) {
	f := newFlowFixture(t)
	est := RunEstablish(context.Background(), func(context.Context) (*provider.Grant, error) {
		return f.grant(t, "realm-user"), nil
	}, f.establishDeps())
	current := est.Session

	f.now = f.now.Add(30 * time.Second)
	next := f.grant(t)
	next.IDToken = ""
	next.RefreshToken = ""
	var gotRefresh string

	res := RunRefresh(context.Background(), current, RefreshDeps{
		Refresh: func(_ context.Context, token string) (*provider.Grant, error) {
			gotRefresh = token
			return next, nil
		},
		ParseAccess: f.tokens.ParseAccess,
		Roles:       f.roles,
		Now:         func() time.Time { return f.now },
	})
	if res.Err != nil {
		t.Fatalf("unexpected error: %v", res.Err)
	}
	if gotRefresh != "refresh-token" {
		t.Fatalf("provider saw refresh token %q", gotRefresh)
	}
	if res.Session.AccessToken != next.AccessToken || res.Session.AccessToken == current.AccessToken {
		t.Fatal("access token was not replaced")
	}
	if res.Session.IDToken != current.IDToken || res.Session.RefreshToken != current.RefreshToken {
		t.Fatal("id and refresh tokens must be kept")
	}
	if res.Rotated {
		t.Fatal("expected no rotation")
	}
	if res.Session.State != session.StateRefreshed || res.Session.RefreshCount != 1 {
		t.Fatalf("unexpected refreshed session %+v", res.Session)
	}
	if f.roles.HasRealm(res.Session.RealmRoles, "realm-user") {
		t.Fatal("roles must follow the refreshed token")
	}
	if current.State != session.StateAuthenticated || current.RefreshCount != 0 {
		t.Fatal("current session must not be mutated")
	}
}

func TestRunRefreshFailureKeepsNothing(t *testing.T) {
	f := newFlowFixture(t)
	deps := RefreshDeps{
		Refresh: func(context.Context, string) (*provider.Grant, error) {
			return nil, provider.ErrRefreshRejected
		},
		ParseAccess: f.tokens.ParseAccess,
		Roles:       f.roles,
		Now:         time.Now,
	}

	res := RunRefresh(context.Background(), &session.Session{}, deps)
	if res.Failure != RefreshFailureNotAuthenticated {
		t.Fatalf("expected not-authenticated failure, got %+v", res)
	}

	current := &session.Session{
		AccessToken: "a", IDToken: "i", RefreshToken: "r",
		Authenticated: true, State: session.StateAuthenticated,
	}
	res = RunRefresh(context.Background(), current, deps)
	if res.Failure != RefreshFailureProvider || res.Session != nil {
		t.Fatalf("expected provider failure, got %+v", res)
	}
}

func TestRunLogoutClearsEvenOnProviderError(t *testing.T) {
	current := &session.Session{
		SessionID: "sid", AccessToken: "a", IDToken: "i", RefreshToken: "r",
		Authenticated: true, State: session.StateAuthenticated,
	}
	boom := errors.New("boom")
	var gotRedirect string

	res := RunLogout(context.Background(), current, LogoutDeps{
		Logout: func(_ context.Context, _, redirect string) error {
			gotRedirect = redirect
			return boom
		},
		RedirectURI: func(context.Context) string { return "http://app.local" },
	})
	if !errors.Is(res.Err, boom) {
		t.Fatalf("expected provider error, got %v", res.Err)
	}
	if gotRedirect != "http://app.local" {
		t.Fatalf("unexpected redirect %q", gotRedirect)
	}
	if res.Session.Authenticated || res.Session.AccessToken != "" || res.Session.State != session.StateUnauthenticated {
		t.Fatalf("expected cleared session, got %+v", res.Session)
	}
	if err := res.Session.Validate(); err != nil {
		t.Fatalf("cleared session invalid: %v", err)
	}
	if res.Session.SessionID != "sid" {
		t.Fatal("session id should survive logout")
	}
}

func TestRunValidate(t *testing.T) {
	f := newFlowFixture(t)
	deps := ValidateDeps{ParseAccess: f.tokens.ParseAccess, Roles: f.roles}

	if res := RunValidate(context.Background(), "", deps); !errors.Is(res.Err, ErrEmptyToken) {
		t.Fatalf("expected empty-token error, got %v", res.Err)
	}
	if res := RunValidate(context.Background(), "nope", deps); res.Err == nil {
		t.Fatal("expected parse error")
	}

	res := RunValidate(context.Background(), f.grant(t, "realm-user").AccessToken, deps)
	if res.Err != nil {
		t.Fatalf("unexpected error: %v", res.Err)
	}
	if !f.roles.HasRealm(res.RealmRoles, "realm-user") || res.Claims.Subject != "user-id-123" {
		t.Fatalf("unexpected result %+v", res)
	}
}
