package goIdentity

import (
	"errors"
	"maps"
	"slices"
	"strings"
	"time"
)

// Config holds every Client setting. Start from [DefaultConfig] and override
// fields; [Builder.Build] validates the result.
type Config struct {
	Provider ProviderConfig
	Init     InitConfig
	Token    TokenConfig
	Refresh  RefreshConfig
	Session  SessionConfig
	Roles    RolesConfig
	Bearer   BearerConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
}

/*
====================================
PROVIDER CONFIG
====================================
*/

// ProviderConfig describes the realm and how the simulated provider behaves.
type ProviderConfig struct {
	URL      string
	Realm    string
	ClientID string

	// Delay is the simulated handshake and refresh latency.
	Delay time.Duration
	// Authenticate selects whether handshakes and logins succeed.
	Authenticate bool
	// RefreshSuccessRate is the probability in [0,1] that a refresh succeeds.
	RefreshSuccessRate float64
	// Seed makes refresh outcomes reproducible. Zero picks a random seed.
	Seed uint64
}

// OnLoad selects what Init does when the provider does not authenticate.
type OnLoad string

const (
	// OnLoadLoginRequired makes a rejected handshake an Init failure.
	OnLoadLoginRequired OnLoad = "login-required"
	// OnLoadCheckSSO accepts a rejected handshake and leaves the client
	// initialized but unauthenticated.
	OnLoadCheckSSO OnLoad = "check-sso"
)

// InitConfig mirrors the provider adapter's init options.
type InitConfig struct {
	OnLoad           OnLoad
	CheckLoginIframe bool
	// EnableLogging turns on debug logging of lifecycle transitions.
	EnableLogging bool
	// RedirectURI is used by the URL builders and Login/Logout/Register.
	RedirectURI string
}

/*
====================================
TOKEN CONFIG
====================================
*/

// TokenConfig controls access and ID token signing. With ed25519 and no keys,
// Build generates an ephemeral key pair.
type TokenConfig struct {
	AccessTTL     time.Duration
	SigningMethod string // "ed25519" (default), "hs256" optional
	PrivateKey    []byte
	PublicKey     []byte
	KeyID         string
	Leeway        time.Duration
}

// RefreshConfig controls UpdateToken.
type RefreshConfig struct {
	// TTL is the refresh token lifetime at the provider.
	TTL time.Duration
	// OnlyWhenExpiring skips the provider call while the access token is
	// valid for longer than the requested minimum validity.
	OnlyWhenExpiring bool
	// RotateRefreshToken asks the provider for a new refresh token on every
	// successful refresh.
	RotateRefreshToken bool
	// MinValidity is used by the bearer interceptor when it refreshes before
	// attaching a token.
	MinValidity time.Duration
}

// SessionConfig controls where the session record is mirrored.
type SessionConfig struct {
	RedisPrefix  string
	StoreTimeout time.Duration
}

// RolesConfig lists the accepted roles. Roles outside this set are ignored
// even when a token carries them.
type RolesConfig struct {
	Realm     []string
	Resources map[string][]string
}

// BearerConfig controls the outbound bearer interceptor.
type BearerConfig struct {
	Prefix       string
	ExcludedURLs []string
}

// AuditConfig controls asynchronous audit dispatch.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls in-process counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULTS
====================================
*/

// DefaultConfig returns the demo realm configuration: master realm on
// localhost:8080, a 500ms handshake, and an 80% refresh success rate.
func DefaultConfig() Config {
	return Config{
		Provider: ProviderConfig{
			URL:                "http://localhost:8080",
			Realm:              "master",
			ClientID:           "universal_auth_app",
			Delay:              500 * time.Millisecond,
			Authenticate:       true,
			RefreshSuccessRate: 0.8,
		},
		Init: InitConfig{
			OnLoad:           OnLoadLoginRequired,
			CheckLoginIframe: false,
			EnableLogging:    true,
		},
		Token: TokenConfig{
			AccessTTL:     5 * time.Minute,
			SigningMethod: "ed25519",
		},
		Refresh: RefreshConfig{
			TTL:         30 * time.Minute,
			MinValidity: 5 * time.Second,
		},
		Session: SessionConfig{
			RedisPrefix:  "gid",
			StoreTimeout: time.Second,
		},
		Roles: RolesConfig{
			Realm:     []string{"realm-user"},
			Resources: map[string][]string{"my-angular-client": {"resource-user"}},
		},
		Bearer: BearerConfig{
			Prefix:       "Bearer",
			ExcludedURLs: []string{"/assets"},
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Token.PrivateKey = cloneBytes(cfg.Token.PrivateKey)
	out.Token.PublicKey = cloneBytes(cfg.Token.PublicKey)
	out.Roles.Realm = slices.Clone(cfg.Roles.Realm)
	if cfg.Roles.Resources != nil {
		out.Roles.Resources = maps.Clone(cfg.Roles.Resources)
		for k, v := range out.Roles.Resources {
			out.Roles.Resources[k] = slices.Clone(v)
		}
	}
	out.Bearer.ExcludedURLs = slices.Clone(cfg.Bearer.ExcludedURLs)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first configuration error.
func (c *Config) Validate() error {
	// Provider
	if strings.TrimSpace(c.Provider.URL) == "" {
		return errors.New("Provider URL must be set")
	}
	if strings.TrimSpace(c.Provider.Realm) == "" {
		return errors.New("Provider Realm must be set")
	}
	if strings.TrimSpace(c.Provider.ClientID) == "" {
		return errors.New("Provider ClientID must be set")
	}
	if c.Provider.Delay < 0 {
		return errors.New("Provider Delay must be >= 0")
	}
	if c.Provider.RefreshSuccessRate < 0 || c.Provider.RefreshSuccessRate > 1 {
		return errors.New("Provider RefreshSuccessRate must be within [0,1]")
	}

	// Init
	switch c.Init.OnLoad {
	case OnLoadLoginRequired, OnLoadCheckSSO:
	default:
		return errors.New("Init OnLoad must be login-required or check-sso")
	}

	// Token
	if c.Token.AccessTTL <= 0 {
		return errors.New("Token AccessTTL must be > 0")
	}
	if c.Token.SigningMethod != "ed25519" && c.Token.SigningMethod != "hs256" {
		return errors.New("unsupported Token signing method")
	}
	if c.Token.SigningMethod == "hs256" && len(c.Token.PrivateKey) == 0 {
		return errors.New("hs256 requires PrivateKey")
	}
	if c.Token.SigningMethod == "ed25519" && (len(c.Token.PrivateKey) == 0) != (len(c.Token.PublicKey) == 0) {
		return errors.New("ed25519 requires both PrivateKey and PublicKey, or neither")
	}
	if c.Token.Leeway < 0 || c.Token.Leeway > 2*time.Minute {
		return errors.New("Token Leeway must be within [0,2m]")
	}

	// Refresh
	if c.Refresh.TTL <= 0 {
		return errors.New("Refresh TTL must be > 0")
	}
	if c.Refresh.MinValidity < 0 {
		return errors.New("Refresh MinValidity must be >= 0")
	}

	// Session
	if strings.TrimSpace(c.Session.RedisPrefix) == "" {
		return errors.New("Session RedisPrefix must be set")
	}
	if c.Session.StoreTimeout <= 0 {
		return errors.New("Session StoreTimeout must be > 0")
	}

	// Roles
	if len(c.Roles.Realm) == 0 && len(c.Roles.Resources) == 0 {
		return errors.New("Roles must accept at least one role")
	}

	// Bearer
	if strings.TrimSpace(c.Bearer.Prefix) == "" {
		return errors.New("Bearer Prefix must be set")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	return nil
}
