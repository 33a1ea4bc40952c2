package provider

import (
	"net/url"
	"strings"
)

// Endpoints are the browser-facing URLs of a realm.
type Endpoints struct {
	Login    string
	Logout   string
	Register string
	Account  string
}

// BuildEndpoints lays out Keycloak's realm URLs for clientID. redirectURI is
// optional.
func BuildEndpoints(baseURL, realm, clientID, redirectURI string) Endpoints {
	realmURL := strings.TrimSuffix(baseURL, "/") + "/realms/" + url.PathEscape(realm)
	oidc := realmURL + "/protocol/openid-connect"

	auth := url.Values{}
	auth.Set("client_id", clientID)
	if redirectURI != "" {
		auth.Set("redirect_uri", redirectURI)
	}
	auth.Set("response_type", "code")
	auth.Set("scope", "openid")

	logout := url.Values{}
	logout.Set("client_id", clientID)
	if redirectURI != "" {
		logout.Set("post_logout_redirect_uri", redirectURI)
	}

	account := url.Values{}
	account.Set("referrer", clientID)
	if redirectURI != "" {
		account.Set("referrer_uri", redirectURI)
	}

	return Endpoints{
		Login:    oidc + "/auth?" + auth.Encode(),
		Logout:   oidc + "/logout?" + logout.Encode(),
		Register: oidc + "/registrations?" + auth.Encode(),
		Account:  realmURL + "/account?" + account.Encode(),
	}
}

// Issuer returns the token issuer for a realm.
func Issuer(baseURL, realm string) string {
	return strings.TrimSuffix(baseURL, "/") + "/realms/" + url.PathEscape(realm)
}
