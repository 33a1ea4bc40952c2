package goIdentity

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/MrEthical07/goIdentity/internal/flows"
	"github.com/MrEthical07/goIdentity/jwt"
	"github.com/MrEthical07/goIdentity/permission"
	"github.com/MrEthical07/goIdentity/provider"
	"github.com/MrEthical07/goIdentity/session"
)

// Client holds one authentication session against an identity provider.
//
// A Client is safe for concurrent use. Provider calls run without holding the
// session lock; the cached record is replaced, never mutated in place.
type Client struct {
	config   Config
	logger   *zap.Logger
	provider provider.Provider
	tokens   *jwt.Manager
	roles    *permission.RoleSet
	store    session.Store
	flows    flows.Service
	audit    *auditDispatcher
	metrics  *Metrics
	refresh  singleflight.Group
	now      func() time.Time

	mu          sync.RWMutex
	sess        *session.Session
	initialized bool
	// initAuthenticated records the outcome of the last completed Init.
	initAuthenticated bool
	closed            bool
}

func (c *Client) flowDeps() flows.Deps {
	return flows.Deps{
		Establish: flows.EstablishDeps{
			Handshake: c.provider.Handshake,
			Login: func(ctx context.Context) (*provider.Grant, error) {
				return c.provider.Login(ctx, c.redirectURI(ctx))
			},
			ParseAccess:  c.tokens.ParseAccess,
			Roles:        c.roles,
			NewSessionID: newSessionID,
			Now:          c.clock,
		},
		Refresh: flows.RefreshDeps{
			Refresh:     c.provider.Refresh,
			ParseAccess: c.tokens.ParseAccess,
			Roles:       c.roles,
			Now:         c.clock,
		},
		Logout: flows.LogoutDeps{
			Logout:      c.provider.Logout,
			RedirectURI: c.redirectURI,
		},
		Validate: flows.ValidateDeps{
			ParseAccess: c.tokens.ParseAccess,
			Roles:       c.roles,
		},
	}
}

func (c *Client) clock() time.Time {
	return c.now()
}

func (c *Client) redirectURI(ctx context.Context) string {
	return redirectURIFromContext(ctx, c.config.Init.RedirectURI)
}

// Init runs the provider handshake and installs the resulting session.
//
// A rejected handshake still initializes the client, in the unauthenticated
// state. With OnLoad login-required Init then returns [ErrInitFailed]; with
// check-sso it returns nil. A cancelled ctx leaves the client untouched and
// returns the context error.
func (c *Client) Init(ctx context.Context) error {
	if c.isClosed() {
		return ErrClientClosed
	}

	start := time.Now()
	res := c.flows.Handshake(ctx)
	c.metrics.Observe(MetricInitLatency, time.Since(start))

	switch res.Failure {
	case flows.EstablishFailureNone:
		c.install(ctx, res.Session)
		c.setInitOutcome(true)
		c.metrics.Inc(MetricInitSuccess)
		c.debug("init succeeded",
			zap.String("session_id", res.Session.SessionID),
			zap.String("on_load", string(c.config.Init.OnLoad)),
			zap.Bool("check_login_iframe", c.config.Init.CheckLoginIframe))
		c.emitAudit(ctx, auditEventInitSuccess, true, res.Session, nil, nil)
		return nil
	case flows.EstablishFailureCanceled:
		c.metrics.Inc(MetricInitFailure)
		return res.Err
	}

	c.install(ctx, c.unauthenticated())
	c.setInitOutcome(false)
	c.metrics.Inc(MetricInitFailure)
	c.emitAudit(ctx, auditEventInitFailure, false, nil, res.Err, nil)

	if c.config.Init.OnLoad == OnLoadCheckSSO && errors.Is(res.Err, provider.ErrInitRejected) {
		c.debug("init completed without authentication", zap.Error(res.Err))
		return nil
	}
	c.logger.Warn("init failed", zap.Error(res.Err))
	return fmt.Errorf("%w: %w", ErrInitFailed, res.Err)
}

// Login asks the provider for a fresh session, replacing the current one.
func (c *Client) Login(ctx context.Context) error {
	if err := c.ready(); err != nil {
		return err
	}

	res := c.flows.Login(ctx)
	if res.Failure != flows.EstablishFailureNone {
		c.metrics.Inc(MetricLoginFailure)
		c.emitAudit(ctx, auditEventLoginFailure, false, nil, res.Err, nil)
		if res.Failure == flows.EstablishFailureCanceled {
			return res.Err
		}
		return fmt.Errorf("%w: %w", ErrLoginFailed, res.Err)
	}

	c.install(ctx, res.Session)
	c.metrics.Inc(MetricLoginSuccess)
	c.debug("login succeeded", zap.String("session_id", res.Session.SessionID))
	c.emitAudit(ctx, auditEventLoginSuccess, true, res.Session, nil, nil)
	return nil
}

// Logout ends the realm session and drops every token. A provider failure is
// returned, but the local session is cleared regardless.
func (c *Client) Logout(ctx context.Context) error {
	if err := c.ready(); err != nil {
		return err
	}

	current := c.snapshot()
	if !current.Authenticated {
		return nil
	}

	res := c.flows.Logout(ctx, current)
	c.replace(ctx, current, res.Session)
	c.metrics.Inc(MetricLogout)
	c.debug("logged out", zap.String("session_id", current.SessionID))
	c.emitAudit(ctx, auditEventLogout, res.Err == nil, current, res.Err, nil)
	if res.Err != nil {
		c.metrics.Inc(MetricLogoutFailure)
		c.logger.Warn("provider logout failed", zap.Error(res.Err))
		return res.Err
	}
	return nil
}

// Register forwards to the provider's registration endpoint.
func (c *Client) Register(ctx context.Context) error {
	if err := c.ready(); err != nil {
		return err
	}
	if err := c.provider.Register(ctx, c.redirectURI(ctx)); err != nil {
		return err
	}
	c.debug("register redirect", zap.String("url", c.provider.Endpoints(c.redirectURI(ctx)).Register))
	return nil
}

// AccountManagement returns the account console URL the user should be
// sent to.
func (c *Client) AccountManagement(ctx context.Context) (string, error) {
	if err := c.ready(); err != nil {
		return "", err
	}
	url := c.provider.Endpoints(c.redirectURI(ctx)).Account
	c.debug("account management redirect", zap.String("url", url))
	return url, nil
}

// IsAuthenticated reports whether the session holds tokens.
func (c *Client) IsAuthenticated() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sess != nil && c.sess.Authenticated
}

// State returns the lifecycle position.
func (c *Client) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.initialized || c.sess == nil {
		return StateUninitialized
	}
	return c.sess.State
}

// OnReady reports whether the last Init completed with an authenticated
// session. Later ClearToken, Login or Logout calls do not change it.
func (c *Client) OnReady() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.initialized && c.initAuthenticated
}

func (c *Client) setInitOutcome(authenticated bool) {
	c.mu.Lock()
	c.initAuthenticated = authenticated
	c.mu.Unlock()
}

// Instance returns a copy of the session, or nil unless authenticated.
func (c *Client) Instance() *Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.sess == nil || !c.sess.Authenticated {
		return nil
	}
	return c.sess.Clone()
}

// Close stops the audit dispatcher and removes the mirrored session from the
// store. The Client is unusable afterwards.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), c.config.Session.StoreTimeout)
	defer cancel()
	var err error
	if purgeErr := c.store.Purge(ctx); purgeErr != nil {
		c.metrics.Inc(MetricStoreFailure)
		err = fmt.Errorf("%w: %w", ErrSessionStore, purgeErr)
	}
	c.audit.Close()
	return err
}

// AuditDropped returns the number of audit events dropped on a full buffer.
func (c *Client) AuditDropped() uint64 {
	if c == nil || c.audit == nil {
		return 0
	}
	return c.audit.Dropped()
}

// MetricsSnapshot returns a copy of the client counters.
func (c *Client) MetricsSnapshot() MetricsSnapshot {
	if c == nil || c.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return c.metrics.Snapshot()
}

func (c *Client) ready() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrClientClosed
	}
	if !c.initialized {
		return ErrNotInitialized
	}
	return nil
}

func (c *Client) isClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

// snapshot returns the cached session. Callers must not mutate it.
func (c *Client) snapshot() *session.Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.sess == nil {
		return &session.Session{}
	}
	return c.sess
}

func (c *Client) unauthenticated() *session.Session {
	return &session.Session{State: session.StateUnauthenticated}
}

// install replaces whatever session is cached and marks the client
// initialized.
func (c *Client) install(ctx context.Context, next *session.Session) {
	c.mu.Lock()
	prev := c.sess
	c.sess = next
	c.initialized = true
	c.mu.Unlock()

	if prev != nil && prev.SessionID != "" && prev.SessionID != next.SessionID {
		c.forget(ctx, prev.SessionID)
	}
	if prev != nil && prev.Authenticated && prev.RefreshToken != "" && prev.RefreshToken != next.RefreshToken {
		c.release(ctx, prev)
	}
	c.persist(ctx, next)
}

// release ends the realm session behind a superseded record so its refresh
// token can no longer be redeemed. Failures are logged and counted.
func (c *Client) release(ctx context.Context, prev *session.Session) {
	logoutCtx, cancel := c.detachedContext(ctx)
	defer cancel()
	if err := c.provider.Logout(logoutCtx, prev.RefreshToken, ""); err != nil {
		c.metrics.Inc(MetricLogoutFailure)
		c.logger.Warn("release of superseded session failed", zap.String("session_id", prev.SessionID), zap.Error(err))
	}
}

// replace swaps in next only while expected is still the cached session.
// It reports whether the swap happened.
func (c *Client) replace(ctx context.Context, expected, next *session.Session) bool {
	c.mu.Lock()
	if c.sess != expected {
		c.mu.Unlock()
		return false
	}
	c.sess = next
	c.mu.Unlock()

	c.persist(ctx, next)
	return true
}

// persist mirrors sess into the store. Failures are logged and counted; the
// in-memory transition stands.
func (c *Client) persist(ctx context.Context, sess *session.Session) {
	if sess.SessionID == "" {
		return
	}
	if !sess.Authenticated {
		c.forget(ctx, sess.SessionID)
		return
	}

	ttl := c.config.Refresh.TTL
	if sess.RefreshExpiresAt > 0 {
		ttl = time.Unix(sess.RefreshExpiresAt, 0).Sub(c.now())
	}
	if ttl <= 0 {
		ttl = time.Second
	}

	storeCtx, cancel := c.detachedContext(ctx)
	defer cancel()
	if err := c.store.Save(storeCtx, sess, ttl); err != nil {
		c.metrics.Inc(MetricStoreFailure)
		c.logger.Warn("session store save failed", zap.String("session_id", sess.SessionID), zap.Error(err))
	}
}

func (c *Client) forget(ctx context.Context, sessionID string) {
	storeCtx, cancel := c.detachedContext(ctx)
	defer cancel()
	if err := c.store.Delete(storeCtx, sessionID); err != nil {
		c.metrics.Inc(MetricStoreFailure)
		c.logger.Warn("session store delete failed", zap.String("session_id", sessionID), zap.Error(err))
	}
}

func (c *Client) detachedContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(context.WithoutCancel(ctx), c.config.Session.StoreTimeout)
}

func (c *Client) debug(msg string, fields ...zap.Field) {
	if c.config.Init.EnableLogging {
		c.logger.Debug(msg, fields...)
	}
}
