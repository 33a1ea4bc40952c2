package goIdentity

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/MrEthical07/goIdentity/internal/flows"
	"github.com/MrEthical07/goIdentity/jwt"
	"github.com/MrEthical07/goIdentity/permission"
	"github.com/MrEthical07/goIdentity/provider"
	"github.com/MrEthical07/goIdentity/session"
)

// Builder assembles a [Client]. Configure it during initialization, then call
// Build once.
type Builder struct {
	config Config
	redis  redis.UniversalClient
	store  session.Store

	provider     provider.Provider
	providerOpts []provider.Option

	auditSink AuditSink
	logger    *zap.Logger

	built bool
}

// New returns a Builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis mirrors the session into Redis under Session.RedisPrefix.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithSessionStore mirrors the session into store. It takes precedence over
// WithRedis.
func (b *Builder) WithSessionStore(store session.Store) *Builder {
	b.store = store
	return b
}

// WithProvider replaces the simulated provider. Token verification still uses
// Config.Token, so its keys must match the provider's signer.
func (b *Builder) WithProvider(p provider.Provider) *Builder {
	b.provider = p
	return b
}

// WithProviderOptions passes options to the simulated provider.
func (b *Builder) WithProviderOptions(opts ...provider.Option) *Builder {
	b.providerOpts = append(b.providerOpts, opts...)
	return b
}

func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithLogger sets the client logger. The default discards everything.
func (b *Builder) WithLogger(logger *zap.Logger) *Builder {
	b.logger = logger
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and returns an uninitialized Client.
func (b *Builder) Build() (*Client, error) {
	if b.built {
		return nil, ErrBuilderUsed
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := b.logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("goidentity")

	// -------- ROLE SET --------
	roles, err := permission.NewRoleSet(permission.NewRegistry(), cfg.Roles.Realm, cfg.Roles.Resources)
	if err != nil {
		return nil, fmt.Errorf("roles: %w", err)
	}

	// -------- TOKENS --------
	if cfg.Token.SigningMethod == "ed25519" && len(cfg.Token.PrivateKey) == 0 {
		if b.provider != nil {
			return nil, errors.New("a custom provider requires Token keys")
		}
		pub, priv, err := ed25519.GenerateKey(rand.Reader)
		if err != nil {
			return nil, err
		}
		cfg.Token.PrivateKey = priv
		cfg.Token.PublicKey = pub
	}
	tokens, err := newTokenManager(cfg)
	if err != nil {
		return nil, err
	}

	// -------- PROVIDER --------
	idp := b.provider
	if idp == nil {
		idp, err = newSimulatedProvider(cfg, tokens, b.providerOpts...)
		if err != nil {
			return nil, err
		}
	}

	// -------- SESSION STORE --------
	store := b.store
	if store == nil && b.redis != nil {
		store = session.NewRedisStore(b.redis, cfg.Session.RedisPrefix)
	}
	if store == nil {
		store = session.NewMemoryStore()
	}

	c := &Client{
		config:   cfg,
		logger:   logger,
		provider: idp,
		tokens:   tokens,
		roles:    roles,
		store:    store,
		audit:    newAuditDispatcher(cfg.Audit, b.auditSink, logger),
		metrics:  NewMetrics(cfg.Metrics),
		now:      time.Now,
	}
	c.flows = flows.New(c.flowDeps())

	b.built = true

	return c, nil
}

func newTokenManager(cfg Config) (*jwt.Manager, error) {
	return jwt.NewManager(jwt.Config{
		AccessTTL:     cfg.Token.AccessTTL,
		SigningMethod: jwt.SigningMethod(cfg.Token.SigningMethod),
		PrivateKey:    cloneBytes(cfg.Token.PrivateKey),
		PublicKey:     cloneBytes(cfg.Token.PublicKey),
		Issuer:        provider.Issuer(cfg.Provider.URL, cfg.Provider.Realm),
		ClientID:      cfg.Provider.ClientID,
		Leeway:        cfg.Token.Leeway,
		KeyID:         cfg.Token.KeyID,
	})
}

func newSimulatedProvider(cfg Config, tokens *jwt.Manager, opts ...provider.Option) (*provider.Simulated, error) {
	pc := provider.DefaultConfig()
	pc.BaseURL = cfg.Provider.URL
	pc.Realm = cfg.Provider.Realm
	pc.ClientID = cfg.Provider.ClientID
	pc.Delay = cfg.Provider.Delay
	pc.Authenticate = cfg.Provider.Authenticate
	pc.RefreshSuccessRate = cfg.Provider.RefreshSuccessRate
	pc.RotateRefreshToken = cfg.Refresh.RotateRefreshToken
	pc.RefreshTTL = cfg.Refresh.TTL

	if cfg.Provider.Seed != 0 {
		opts = append([]provider.Option{provider.WithSeed(cfg.Provider.Seed, cfg.Provider.Seed^0x9e3779b97f4a7c15)}, opts...)
	}
	return provider.NewSimulated(pc, tokens, opts...)
}

func newSessionID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
