package goIdentity

import "errors"

var (
	// ErrNotInitialized is returned by operations that need a completed Init.
	ErrNotInitialized = errors.New("identity client not initialized")
	// ErrInitFailed is returned when the provider rejects the init handshake.
	ErrInitFailed = errors.New("identity client initialization failed")
	// ErrLoginFailed is returned when the provider rejects a login.
	ErrLoginFailed = errors.New("login failed")
	// ErrRefreshFailed is returned when a token refresh does not succeed.
	// The session is left unchanged.
	ErrRefreshFailed = errors.New("token refresh failed")
	// ErrNotAuthenticated is returned when an operation needs an authenticated
	// session and there is none.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrTokenInvalid is returned when a token fails verification.
	ErrTokenInvalid = errors.New("invalid token")
	// ErrSessionStore wraps session store failures.
	ErrSessionStore = errors.New("session store failure")
	// ErrClientClosed is returned by operations on a closed Client.
	ErrClientClosed = errors.New("identity client closed")
	// ErrBuilderUsed is returned when Build is called twice.
	ErrBuilderUsed = errors.New("builder already used")
)
