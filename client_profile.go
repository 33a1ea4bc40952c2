package goIdentity

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrEthical07/goIdentity/provider"
)

// LoadUserProfile fetches the account profile. Without an authenticated
// session it returns an empty profile and no error.
func (c *Client) LoadUserProfile(ctx context.Context) (UserProfile, error) {
	if err := c.ready(); err != nil {
		return UserProfile{}, err
	}
	sess := c.snapshot()
	if !sess.Authenticated {
		return UserProfile{}, nil
	}
	profile, err := c.provider.UserProfile(ctx, sess.AccessToken)
	if err != nil {
		return UserProfile{}, mapProviderTokenError(err)
	}
	return profile, nil
}

// LoadUserInfo fetches the userinfo document. Without an authenticated
// session it returns an empty document and no error.
func (c *Client) LoadUserInfo(ctx context.Context) (UserInfo, error) {
	if err := c.ready(); err != nil {
		return UserInfo{}, err
	}
	sess := c.snapshot()
	if !sess.Authenticated {
		return UserInfo{}, nil
	}
	info, err := c.provider.UserInfo(ctx, sess.AccessToken)
	if err != nil {
		return UserInfo{}, mapProviderTokenError(err)
	}
	return info, nil
}

func mapProviderTokenError(err error) error {
	if errors.Is(err, provider.ErrInvalidAccessToken) {
		return fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}
	return err
}
