package goIdentity

import (
	"context"
	"errors"

	"github.com/MrEthical07/goIdentity/provider"
	"github.com/MrEthical07/goIdentity/session"
)

const (
	auditEventInitSuccess    = "init_success"
	auditEventInitFailure    = "init_failure"
	auditEventLoginSuccess   = "login_success"
	auditEventLoginFailure   = "login_failure"
	auditEventLogout         = "logout"
	auditEventRefreshSuccess = "refresh_success"
	auditEventRefreshFailure = "refresh_failure"
	auditEventTokenCleared   = "token_cleared"
)

// AuditErrorCode is the stable error label carried by audit events.
type AuditErrorCode string

const (
	auditErrInitRejected    AuditErrorCode = "init_rejected"
	auditErrLoginRejected   AuditErrorCode = "login_rejected"
	auditErrRefreshRejected AuditErrorCode = "refresh_rejected"
	auditErrUnknownRefresh  AuditErrorCode = "unknown_refresh_token"
	auditErrInvalidToken    AuditErrorCode = "invalid_token"
	auditErrInvariant       AuditErrorCode = "session_invariant"
	auditErrCanceled        AuditErrorCode = "canceled"
	auditErrNotAuth         AuditErrorCode = "not_authenticated"
	auditErrInternal        AuditErrorCode = "internal_error"
)

func (c *Client) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	sess *session.Session,
	err error,
	metadataBuilder func() map[string]string,
) {
	if c == nil || c.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp: c.now().UTC(),
		EventType: eventType,
		State:     c.State().String(),
		Success:   success,
		Metadata:  metadata,
	}
	if sess != nil {
		event.Subject = sess.Subject
		event.SessionID = sess.SessionID
		event.SessionState = sess.SessionState
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	c.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, provider.ErrInitRejected):
		return auditErrInitRejected
	case errors.Is(err, provider.ErrLoginRejected):
		return auditErrLoginRejected
	case errors.Is(err, provider.ErrRefreshRejected):
		return auditErrRefreshRejected
	case errors.Is(err, provider.ErrUnknownRefreshToken):
		return auditErrUnknownRefresh
	case errors.Is(err, provider.ErrInvalidAccessToken),
		errors.Is(err, ErrTokenInvalid):
		return auditErrInvalidToken
	case errors.Is(err, session.ErrInvariant):
		return auditErrInvariant
	case errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return auditErrCanceled
	case errors.Is(err, ErrNotAuthenticated):
		return auditErrNotAuth
	default:
		return auditErrInternal
	}
}
