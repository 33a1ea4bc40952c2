package jwt

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SigningMethod selects the token signature algorithm.
type SigningMethod string

const (
	// MethodEd25519 signs tokens with EdDSA over Ed25519 keys.
	MethodEd25519 SigningMethod = "ed25519"
	// MethodHS256 signs tokens with HMAC-SHA256 using PrivateKey as the secret.
	MethodHS256 SigningMethod = "hs256"
)

const (
	// TypeBearer is the typ claim of access tokens.
	TypeBearer = "Bearer"
	// TypeID is the typ claim of ID tokens.
	TypeID = "ID"
)

// Config controls token issuance and verification.
type Config struct {
	AccessTTL     time.Duration
	SigningMethod SigningMethod
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Audience      string
	ClientID      string
	Leeway        time.Duration
	KeyID         string
	VerifyKeys    map[string][]byte
}

// Manager issues and verifies access and ID tokens.
//
// Manager is immutable after [NewManager] and safe for concurrent use.
type Manager struct {
	config Config
}

// RoleClaim is the {"roles": [...]} object used by realm_access and
// resource_access entries.
type RoleClaim struct {
	Roles []string `json:"roles,omitempty"`
}

// AccessClaims is the claim set of an access token.
type AccessClaims struct {
	SessionState      string               `json:"sid"`
	Type              string               `json:"typ"`
	AuthorizedParty   string               `json:"azp,omitempty"`
	Scope             string               `json:"scope,omitempty"`
	PreferredUsername string               `json:"preferred_username,omitempty"`
	RealmAccess       RoleClaim            `json:"realm_access"`
	ResourceAccess    map[string]RoleClaim `json:"resource_access,omitempty"`
	jwt.RegisteredClaims
}

// IDClaims is the claim set of an ID token.
type IDClaims struct {
	SessionState      string `json:"sid"`
	Type              string `json:"typ"`
	AuthorizedParty   string `json:"azp,omitempty"`
	PreferredUsername string `json:"preferred_username,omitempty"`
	Name              string `json:"name,omitempty"`
	GivenName         string `json:"given_name,omitempty"`
	FamilyName        string `json:"family_name,omitempty"`
	Email             string `json:"email,omitempty"`
	EmailVerified     bool   `json:"email_verified"`
	jwt.RegisteredClaims
}

// AccessGrant describes what an access token asserts.
type AccessGrant struct {
	Subject       string
	SessionState  string
	Username      string
	Scope         string
	RealmRoles    []string
	ResourceRoles map[string][]string
}

// Identity describes what an ID token asserts.
type Identity struct {
	Subject      string
	SessionState string
	Username     string
	GivenName    string
	FamilyName   string
	Email        string
}

// Name joins the given and family names.
func (i Identity) Name() string {
	return strings.TrimSpace(i.GivenName + " " + i.FamilyName)
}

// NewManager validates cfg and returns a Manager.
//
// A manager without a private key can only verify tokens.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.AccessTTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	cfg.KeyID = strings.TrimSpace(cfg.KeyID)
	switch cfg.SigningMethod {
	case MethodHS256:
		if len(cfg.PrivateKey) == 0 {
			return nil, errors.New("hs256 requires private key")
		}
	case MethodEd25519:
		if len(cfg.PrivateKey) > 0 {
			if _, err := parseEdPrivateKey(cfg.PrivateKey); err != nil {
				return nil, err
			}
		}
		if len(cfg.PublicKey) > 0 {
			if _, err := parseEdPublicKey(cfg.PublicKey); err != nil {
				return nil, err
			}
		}
		if len(cfg.VerifyKeys) == 0 && len(cfg.PublicKey) == 0 {
			return nil, errors.New("ed25519 requires public key or verify key set")
		}
		for kid, key := range cfg.VerifyKeys {
			if strings.TrimSpace(kid) == "" {
				return nil, errors.New("verify key map contains empty kid")
			}
			if _, err := parseEdPublicKey(key); err != nil {
				return nil, fmt.Errorf("invalid ed25519 verify key for kid %q: %w", kid, err)
			}
		}
	default:
		return nil, errors.New("unsupported signing method")
	}
	if cfg.KeyID != "" && len(cfg.VerifyKeys) > 0 {
		if _, ok := cfg.VerifyKeys[cfg.KeyID]; !ok {
			return nil, errors.New("KeyID is not present in VerifyKeys")
		}
	}

	return &Manager{config: cfg}, nil
}

// AccessTTL returns the configured access token lifetime.
func (j *Manager) AccessTTL() time.Duration {
	return j.config.AccessTTL
}

// CreateAccess signs an access token for g and returns it with its expiry.
func (j *Manager) CreateAccess(g AccessGrant, now time.Time) (string, time.Time, error) {
	exp := now.Add(j.config.AccessTTL)

	claims := AccessClaims{
		SessionState:      g.SessionState,
		Type:              TypeBearer,
		AuthorizedParty:   j.config.ClientID,
		Scope:             g.Scope,
		PreferredUsername: g.Username,
		RealmAccess:       RoleClaim{Roles: append([]string(nil), g.RealmRoles...)},
		RegisteredClaims:  j.registered(g.Subject, now, exp),
	}
	if len(g.ResourceRoles) > 0 {
		claims.ResourceAccess = make(map[string]RoleClaim, len(g.ResourceRoles))
		for resource, roles := range g.ResourceRoles {
			claims.ResourceAccess[resource] = RoleClaim{Roles: append([]string(nil), roles...)}
		}
	}

	token, err := j.sign(claims)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, exp, nil
}

// CreateID signs an ID token for id.
func (j *Manager) CreateID(id Identity, now time.Time) (string, error) {
	claims := IDClaims{
		SessionState:      id.SessionState,
		Type:              TypeID,
		AuthorizedParty:   j.config.ClientID,
		PreferredUsername: id.Username,
		Name:              id.Name(),
		GivenName:         id.GivenName,
		FamilyName:        id.FamilyName,
		Email:             id.Email,
		EmailVerified:     id.Email != "",
		RegisteredClaims:  j.registered(id.Subject, now, now.Add(j.config.AccessTTL)),
	}
	return j.sign(claims)
}

// ParseAccess verifies an access token and returns its claims.
func (j *Manager) ParseAccess(tokenStr string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := j.parse(tokenStr, claims); err != nil {
		return nil, err
	}
	if claims.Type != TypeBearer {
		return nil, errors.New("not an access token")
	}
	return claims, nil
}

// ParseID verifies an ID token and returns its claims.
func (j *Manager) ParseID(tokenStr string) (*IDClaims, error) {
	claims := &IDClaims{}
	if err := j.parse(tokenStr, claims); err != nil {
		return nil, err
	}
	if claims.Type != TypeID {
		return nil, errors.New("not an id token")
	}
	return claims, nil
}

// ResourceRoles flattens resource_access into resource -> roles.
func (c *AccessClaims) ResourceRoles() map[string][]string {
	out := make(map[string][]string, len(c.ResourceAccess))
	for resource, claim := range c.ResourceAccess {
		out[resource] = claim.Roles
	}
	return out
}

func (j *Manager) registered(subject string, now, exp time.Time) jwt.RegisteredClaims {
	rc := jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Subject:   subject,
		Issuer:    j.config.Issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	if j.config.Audience != "" {
		rc.Audience = jwt.ClaimStrings{j.config.Audience}
	}
	return rc
}

func (j *Manager) sign(claims jwt.Claims) (string, error) {
	token := jwt.NewWithClaims(j.getMethod(), claims)
	if j.config.KeyID != "" {
		token.Header["kid"] = j.config.KeyID
	}

	signKey, err := j.getSignKey()
	if err != nil {
		return "", err
	}

	return token.SignedString(signKey)
}

func (j *Manager) parse(tokenStr string, claims jwt.Claims) error {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{j.getMethod().Alg()}),
		jwt.WithExpirationRequired(),
	}
	if j.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(j.config.Leeway))
	}
	if j.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(j.config.Issuer))
	}
	if j.config.Audience != "" {
		options = append(options, jwt.WithAudience(j.config.Audience))
	}

	parser := jwt.NewParser(options...)
	token, err := parser.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != j.getMethod().Alg() {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}

		if len(j.config.VerifyKeys) > 0 {
			kid, _ := t.Header["kid"].(string)
			if kid == "" {
				return nil, errors.New("missing kid")
			}
			key, ok := j.config.VerifyKeys[kid]
			if !ok {
				return nil, errors.New("unknown kid")
			}
			return j.keyBytesToVerifyKey(key)
		}

		if j.config.KeyID != "" {
			kid, _ := t.Header["kid"].(string)
			if kid != j.config.KeyID {
				return nil, errors.New("unknown kid")
			}
		}

		return j.getVerifyKey()
	})
	if err != nil {
		return err
	}
	if !token.Valid {
		return jwt.ErrTokenInvalidClaims
	}
	return nil
}

func (j *Manager) getMethod() jwt.SigningMethod {
	switch j.config.SigningMethod {
	case MethodHS256:
		return jwt.SigningMethodHS256
	default:
		return jwt.SigningMethodEdDSA
	}
}

func (j *Manager) getSignKey() (interface{}, error) {
	switch j.config.SigningMethod {
	case MethodHS256:
		return j.config.PrivateKey, nil
	default:
		if len(j.config.PrivateKey) == 0 {
			return nil, errors.New("manager has no signing key")
		}
		return parseEdPrivateKey(j.config.PrivateKey)
	}
}

func (j *Manager) getVerifyKey() (interface{}, error) {
	switch j.config.SigningMethod {
	case MethodHS256:
		return j.config.PrivateKey, nil
	default:
		return parseEdPublicKey(j.config.PublicKey)
	}
}

func (j *Manager) keyBytesToVerifyKey(key []byte) (interface{}, error) {
	switch j.config.SigningMethod {
	case MethodHS256:
		return key, nil
	default:
		return parseEdPublicKey(key)
	}
}

func parseEdPrivateKey(key []byte) (ed25519.PrivateKey, error) {
	if len(key) == ed25519.PrivateKeySize {
		return ed25519.PrivateKey(key), nil
	}
	parsed, err := jwt.ParseEdPrivateKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 private key")
	}
	edKey, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("invalid ed25519 private key type")
	}
	return edKey, nil
}

func parseEdPublicKey(key []byte) (ed25519.PublicKey, error) {
	if len(key) == ed25519.PublicKeySize {
		return ed25519.PublicKey(key), nil
	}
	parsed, err := jwt.ParseEdPublicKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 public key")
	}
	edKey, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("invalid ed25519 public key type")
	}
	return edKey, nil
}
