package provider

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildEndpoints(t *testing.T) {
	e := BuildEndpoints("http://localhost:8080/", "master", "universal_auth_app", "http://app.local/home")

	login, err := url.Parse(e.Login)
	require.NoError(t, err)
	require.Equal(t, "/realms/master/protocol/openid-connect/auth", login.Path)
	require.Equal(t, "universal_auth_app", login.Query().Get("client_id"))
	require.Equal(t, "http://app.local/home", login.Query().Get("redirect_uri"))
	require.Equal(t, "code", login.Query().Get("response_type"))

	logout, err := url.Parse(e.Logout)
	require.NoError(t, err)
	require.Equal(t, "/realms/master/protocol/openid-connect/logout", logout.Path)
	require.Equal(t, "http://app.local/home", logout.Query().Get("post_logout_redirect_uri"))

	register, err := url.Parse(e.Register)
	require.NoError(t, err)
	require.Equal(t, "/realms/master/protocol/openid-connect/registrations", register.Path)

	account, err := url.Parse(e.Account)
	require.NoError(t, err)
	require.Equal(t, "/realms/master/account", account.Path)
	require.Equal(t, "universal_auth_app", account.Query().Get("referrer"))
}

func TestBuildEndpointsWithoutRedirect(t *testing.T) {
	e := BuildEndpoints("http://localhost:8080", "master", "app", "")

	login, err := url.Parse(e.Login)
	require.NoError(t, err)
	require.False(t, login.Query().Has("redirect_uri"))
	require.Equal(t, "http://localhost:8080/realms/master", Issuer("http://localhost:8080/", "master"))
}
