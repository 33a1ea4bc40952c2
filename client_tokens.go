package goIdentity

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/MrEthical07/goIdentity/internal/flows"
	"github.com/MrEthical07/goIdentity/session"
)

const refreshFlightKey = "refresh"

// Token returns the access token, or "" when not authenticated.
func (c *Client) Token() string {
	return c.snapshot().AccessToken
}

// IDToken returns the ID token, or "" when not authenticated.
func (c *Client) IDToken() string {
	return c.snapshot().IDToken
}

// RefreshToken returns the refresh token, or "" when not authenticated.
func (c *Client) RefreshToken() string {
	return c.snapshot().RefreshToken
}

// IsTokenExpired reports whether there is no usable access token.
func (c *Client) IsTokenExpired() bool {
	return c.expiresWithin(c.snapshot(), 0)
}

func (c *Client) expiresWithin(sess *session.Session, d time.Duration) bool {
	if !sess.Authenticated || sess.AccessExpiresAt == 0 {
		return true
	}
	return !c.now().Add(d).Before(time.Unix(sess.AccessExpiresAt, 0))
}

// UpdateToken refreshes the access token through the provider.
//
// It returns (true, nil) when a new token was installed. A refused refresh
// returns (false, ErrRefreshFailed) and leaves the session as it was; there
// is no retry. With Refresh.OnlyWhenExpiring, a token valid for longer than
// minValidity is kept and (false, nil) is returned; a negative minValidity
// always refreshes. Concurrent calls share one provider round trip. That
// round trip is not tied to any caller's ctx: a caller whose ctx ends stops
// waiting and gets the context error while the others still get the result.
func (c *Client) UpdateToken(ctx context.Context, minValidity time.Duration) (bool, error) {
	if err := c.ready(); err != nil {
		return false, err
	}

	current := c.snapshot()
	if !current.Authenticated {
		c.metrics.Inc(MetricRefreshFailure)
		return false, fmt.Errorf("%w: %w", ErrRefreshFailed, ErrNotAuthenticated)
	}
	if c.config.Refresh.OnlyWhenExpiring && minValidity >= 0 && !c.expiresWithin(current, minValidity) {
		c.metrics.Inc(MetricRefreshSkipped)
		return false, nil
	}

	if err := ctx.Err(); err != nil {
		return false, err
	}

	led := false
	flight := c.refresh.DoChan(refreshFlightKey, func() (any, error) {
		led = true
		return nil, c.runRefresh(context.WithoutCancel(ctx), current)
	})

	select {
	case res := <-flight:
		if !led {
			c.metrics.Inc(MetricRefreshCoalesced)
		}
		if res.Err != nil {
			return false, res.Err
		}
		return true, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

func (c *Client) runRefresh(ctx context.Context, current *session.Session) error {
	start := time.Now()
	res := c.flows.Refresh(ctx, current)
	c.metrics.Observe(MetricRefreshLatency, time.Since(start))

	if res.Failure != flows.RefreshFailureNone {
		c.metrics.Inc(MetricRefreshFailure)
		c.emitAudit(ctx, auditEventRefreshFailure, false, current, res.Err, nil)
		c.debug("token refresh failed", zap.String("session_id", current.SessionID), zap.Error(res.Err))
		if res.Failure == flows.RefreshFailureCanceled {
			return res.Err
		}
		if res.Err == nil {
			return ErrRefreshFailed
		}
		return fmt.Errorf("%w: %w", ErrRefreshFailed, res.Err)
	}

	if !c.replace(ctx, current, res.Session) {
		c.metrics.Inc(MetricRefreshFailure)
		return fmt.Errorf("%w: session changed during refresh", ErrRefreshFailed)
	}

	c.metrics.Inc(MetricRefreshSuccess)
	c.debug("token refreshed",
		zap.String("session_id", res.Session.SessionID),
		zap.Uint32("refresh_count", res.Session.RefreshCount),
		zap.Bool("rotated", res.Rotated))
	c.emitAudit(ctx, auditEventRefreshSuccess, true, res.Session, nil, func() map[string]string {
		if res.Rotated {
			return map[string]string{"rotated": "true"}
		}
		return nil
	})
	return nil
}

// FreshToken returns an access token valid for at least minValidity,
// refreshing first when needed. If the refresh fails but the current token
// has not expired yet, the current token is returned.
func (c *Client) FreshToken(ctx context.Context, minValidity time.Duration) (string, error) {
	if err := c.ready(); err != nil {
		return "", err
	}
	current := c.snapshot()
	if !current.Authenticated {
		return "", ErrNotAuthenticated
	}
	if !c.expiresWithin(current, minValidity) {
		return current.AccessToken, nil
	}

	if _, err := c.UpdateToken(ctx, -1); err != nil {
		if latest := c.snapshot(); !c.expiresWithin(latest, 0) {
			c.logger.Warn("refresh before request failed, using current token", zap.Error(err))
			return latest.AccessToken, nil
		}
		return "", err
	}
	return c.Token(), nil
}

// ClearToken drops every token locally without contacting the provider.
// Before Init it only logs a warning.
func (c *Client) ClearToken() {
	c.mu.Lock()
	if !c.initialized {
		c.mu.Unlock()
		c.logger.Warn("ClearToken called before Init")
		return
	}
	current := c.sess
	if current == nil || !current.Authenticated {
		c.mu.Unlock()
		return
	}
	next := current.Clone()
	next.Clear(session.StateCleared)
	c.sess = next
	c.mu.Unlock()

	ctx := context.Background()
	c.persist(ctx, next)
	c.metrics.Inc(MetricTokenCleared)
	c.debug("tokens cleared", zap.String("session_id", next.SessionID))
	c.emitAudit(ctx, auditEventTokenCleared, true, current, nil, nil)
}
