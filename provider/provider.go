package provider

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrInitRejected is returned by a handshake the provider refuses.
	ErrInitRejected = errors.New("failed to initialize identity provider (simulated)")
	// ErrLoginRejected is returned by a login the provider refuses.
	ErrLoginRejected = errors.New("simulated login error")
	// ErrRefreshRejected is returned when the provider declines a token refresh.
	ErrRefreshRejected = errors.New("token refresh rejected")
	// ErrUnknownRefreshToken is returned for malformed, revoked or expired refresh tokens.
	ErrUnknownRefreshToken = errors.New("unknown refresh token")
	// ErrInvalidAccessToken is returned when a bearer token does not verify.
	ErrInvalidAccessToken = errors.New("invalid access token")
)

// Grant is the token set returned by a successful handshake, login or refresh.
// On refresh, an empty IDToken or RefreshToken means the previous value stays
// in effect.
type Grant struct {
	AccessToken      string
	IDToken          string
	RefreshToken     string
	TokenType        string
	SessionState     string
	Scope            string
	ExpiresIn        time.Duration
	RefreshExpiresIn time.Duration
}

// UserProfile is the account profile document.
type UserProfile struct {
	Username  string `json:"username,omitempty"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	Email     string `json:"email,omitempty"`
}

// UserInfo is the OpenID Connect userinfo document.
type UserInfo struct {
	Sub        string `json:"sub,omitempty"`
	Name       string `json:"name,omitempty"`
	GivenName  string `json:"given_name,omitempty"`
	FamilyName string `json:"family_name,omitempty"`
	Email      string `json:"email,omitempty"`
}

// Provider is the identity-provider surface the client depends on.
type Provider interface {
	// Handshake performs the initial check-sso/login-required exchange.
	Handshake(ctx context.Context) (*Grant, error)
	Login(ctx context.Context, redirectURI string) (*Grant, error)
	Logout(ctx context.Context, refreshToken, redirectURI string) error
	Register(ctx context.Context, redirectURI string) error
	Refresh(ctx context.Context, refreshToken string) (*Grant, error)
	UserProfile(ctx context.Context, accessToken string) (UserProfile, error)
	UserInfo(ctx context.Context, accessToken string) (UserInfo, error)
	Endpoints(redirectURI string) Endpoints
}
