package goIdentity

import "github.com/MrEthical07/goIdentity/provider"

func (c *Client) endpoints() (provider.Endpoints, bool) {
	if c.ready() != nil {
		return provider.Endpoints{}, false
	}
	return c.provider.Endpoints(c.config.Init.RedirectURI), true
}

// CreateLoginURL returns the provider login URL, or "" before Init.
func (c *Client) CreateLoginURL() string {
	e, _ := c.endpoints()
	return e.Login
}

// CreateLogoutURL returns the provider logout URL, or "" before Init.
func (c *Client) CreateLogoutURL() string {
	e, _ := c.endpoints()
	return e.Logout
}

// CreateRegisterURL returns the provider registration URL, or "" before Init.
func (c *Client) CreateRegisterURL() string {
	e, _ := c.endpoints()
	return e.Register
}

// CreateAccountURL returns the account console URL, or "" before Init.
func (c *Client) CreateAccountURL() string {
	e, _ := c.endpoints()
	return e.Account
}
