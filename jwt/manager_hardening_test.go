package jwt

import (
	"crypto/ed25519"
	"crypto/rand"
	"reflect"
	"testing"
	"time"

	gjwt "github.com/golang-jwt/jwt/v5"
)

func newEdKeys(t *testing.T) (ed25519.PublicKey, ed25519.PrivateKey) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate ed25519 key: %v", err)
	}
	return pub, priv
}

func newTestManager(t *testing.T) (*Manager, ed25519.PrivateKey) {
	t.Helper()
	pub, priv := newEdKeys(t)
	m, err := NewManager(Config{
		AccessTTL:     5 * time.Minute,
		SigningMethod: MethodEd25519,
		PrivateKey:    priv,
		PublicKey:     pub,
		Issuer:        "http://localhost:8080/realms/master",
		ClientID:      "universal_auth_app",
		Leeway:        30 * time.Second,
	})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	return m, priv
}

func TestAccessTokenCarriesRoleClaims(t *testing.T) {
	m, _ := newTestManager(t)

	now := time.Now()
	token, exp, err := m.CreateAccess(AccessGrant{
		Subject:      "user-id-123",
		SessionState: "sess-1",
		Username:     "johndoe",
		Scope:        "openid profile email",
		RealmRoles:   []string{"realm-user"},
		ResourceRoles: map[string][]string{
			"my-angular-client": {"resource-user"},
		},
	}, now)
	if err != nil {
		t.Fatalf("create access: %v", err)
	}
	if !exp.Equal(now.Add(5 * time.Minute)) {
		t.Fatalf("unexpected expiry %v", exp)
	}

	claims, err := m.ParseAccess(token)
	if err != nil {
		t.Fatalf("parse access: %v", err)
	}
	if claims.Subject != "user-id-123" || claims.SessionState != "sess-1" {
		t.Fatalf("unexpected identity claims: %+v", claims)
	}
	if claims.AuthorizedParty != "universal_auth_app" {
		t.Fatalf("expected azp universal_auth_app, got %q", claims.AuthorizedParty)
	}
	if !reflect.DeepEqual(claims.RealmAccess.Roles, []string{"realm-user"}) {
		t.Fatalf("unexpected realm roles %v", claims.RealmAccess.Roles)
	}
	want := map[string][]string{"my-angular-client": {"resource-user"}}
	if got := claims.ResourceRoles(); !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected resource roles %v", got)
	}
}

func TestTokenTypesAreNotInterchangeable(t *testing.T) {
	m, _ := newTestManager(t)
	now := time.Now()

	access, _, err := m.CreateAccess(AccessGrant{Subject: "u", SessionState: "s"}, now)
	if err != nil {
		t.Fatalf("create access: %v", err)
	}
	id, err := m.CreateID(Identity{Subject: "u", SessionState: "s", GivenName: "John", FamilyName: "Doe"}, now)
	if err != nil {
		t.Fatalf("create id: %v", err)
	}

	if _, err := m.ParseAccess(id); err == nil {
		t.Fatal("id token must not parse as access token")
	}
	if _, err := m.ParseID(access); err == nil {
		t.Fatal("access token must not parse as id token")
	}

	idClaims, err := m.ParseID(id)
	if err != nil {
		t.Fatalf("parse id: %v", err)
	}
	if idClaims.Name != "John Doe" {
		t.Fatalf("expected joined name, got %q", idClaims.Name)
	}
}

func TestParseAccessRejectsWrongAlgorithm(t *testing.T) {
	pub, _ := newEdKeys(t)
	m, err := NewManager(Config{AccessTTL: time.Minute, SigningMethod: MethodEd25519, PublicKey: pub})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	claims := AccessClaims{Type: TypeBearer, RegisteredClaims: gjwt.RegisteredClaims{ExpiresAt: gjwt.NewNumericDate(time.Now().Add(time.Minute))}}
	tok := gjwt.NewWithClaims(gjwt.SigningMethodHS256, claims)
	token, err := tok.SignedString([]byte("secret-secret-secret-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	if _, err := m.ParseAccess(token); err == nil {
		t.Fatal("expected wrong algorithm to be rejected")
	}
}

func TestVerifyOnlyManagerCannotSign(t *testing.T) {
	pub, _ := newEdKeys(t)
	m, err := NewManager(Config{AccessTTL: time.Minute, SigningMethod: MethodEd25519, PublicKey: pub})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	if _, _, err := m.CreateAccess(AccessGrant{Subject: "u"}, time.Now()); err == nil {
		t.Fatal("expected signing without private key to fail")
	}
}

func TestParseAccessIssuerAndLeeway(t *testing.T) {
	m, priv := newTestManager(t)

	sign := func(c AccessClaims) string {
		t.Helper()
		s, err := gjwt.NewWithClaims(gjwt.SigningMethodEdDSA, c).SignedString(priv)
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		return s
	}

	wrongIssuer := sign(AccessClaims{Type: TypeBearer, RegisteredClaims: gjwt.RegisteredClaims{
		Issuer:    "other",
		ExpiresAt: gjwt.NewNumericDate(time.Now().Add(time.Minute)),
	}})
	if _, err := m.ParseAccess(wrongIssuer); err == nil {
		t.Fatal("expected wrong issuer to fail")
	}

	within := sign(AccessClaims{Type: TypeBearer, RegisteredClaims: gjwt.RegisteredClaims{
		Issuer:    "http://localhost:8080/realms/master",
		ExpiresAt: gjwt.NewNumericDate(time.Now().Add(-15 * time.Second)),
	}})
	if _, err := m.ParseAccess(within); err != nil {
		t.Fatalf("expected token within leeway to pass: %v", err)
	}

	expired := sign(AccessClaims{Type: TypeBearer, RegisteredClaims: gjwt.RegisteredClaims{
		Issuer:    "http://localhost:8080/realms/master",
		ExpiresAt: gjwt.NewNumericDate(time.Now().Add(-2 * time.Minute)),
	}})
	if _, err := m.ParseAccess(expired); err == nil {
		t.Fatal("expected expired token to fail")
	}

	noExp := sign(AccessClaims{Type: TypeBearer, RegisteredClaims: gjwt.RegisteredClaims{
		Issuer: "http://localhost:8080/realms/master",
	}})
	if _, err := m.ParseAccess(noExp); err == nil {
		t.Fatal("expected token without exp to fail")
	}
}

func TestParseAccessUnknownKidFails(t *testing.T) {
	pub1, priv1 := newEdKeys(t)
	pub2, _ := newEdKeys(t)
	m, err := NewManager(Config{
		AccessTTL:     time.Minute,
		SigningMethod: MethodEd25519,
		PrivateKey:    priv1,
		PublicKey:     pub1,
		KeyID:         "k1",
		VerifyKeys: map[string][]byte{
			"k1": pub1,
		},
	})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	claims := AccessClaims{Type: TypeBearer, RegisteredClaims: gjwt.RegisteredClaims{ExpiresAt: gjwt.NewNumericDate(time.Now().Add(time.Minute))}}
	tok := gjwt.NewWithClaims(gjwt.SigningMethodEdDSA, claims)
	tok.Header["kid"] = "k2"
	token, err := tok.SignedString(priv1)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	if _, err := m.ParseAccess(token); err == nil {
		t.Fatal("expected unknown kid failure")
	}

	good, _, err := m.CreateAccess(AccessGrant{Subject: "u"}, time.Now())
	if err != nil {
		t.Fatalf("create access: %v", err)
	}
	if _, err := m.ParseAccess(good); err != nil {
		t.Fatalf("expected known kid token to pass: %v", err)
	}

	m2, _ := NewManager(Config{AccessTTL: time.Minute, SigningMethod: MethodEd25519, PublicKey: pub2, VerifyKeys: map[string][]byte{"k2": pub2}})
	if _, err := m2.ParseAccess(good); err == nil {
		t.Fatal("expected parse failure with mismatched key set")
	}
}

func TestNewManagerRejectsBadConfig(t *testing.T) {
	pub, _ := newEdKeys(t)
	tests := []struct {
		name string
		cfg  Config
	}{
		{"zero ttl", Config{SigningMethod: MethodEd25519, PublicKey: pub}},
		{"bad leeway", Config{AccessTTL: time.Minute, SigningMethod: MethodEd25519, PublicKey: pub, Leeway: time.Hour}},
		{"hs256 without secret", Config{AccessTTL: time.Minute, SigningMethod: MethodHS256}},
		{"ed25519 without keys", Config{AccessTTL: time.Minute, SigningMethod: MethodEd25519}},
		{"unknown method", Config{AccessTTL: time.Minute, SigningMethod: "rs256"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewManager(tt.cfg); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}
