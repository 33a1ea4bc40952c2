package goIdentity

import (
	"context"
	"fmt"
	"slices"
)

// ValidateBearer verifies an inbound access token against the client's
// signing keys and resolves its accepted roles. It does not need Init.
func (c *Client) ValidateBearer(ctx context.Context, token string) (*BearerIdentity, error) {
	res := c.flows.Validate(ctx, token)
	if res.Err != nil {
		c.metrics.Inc(MetricBearerRejected)
		return nil, fmt.Errorf("%w: %w", ErrTokenInvalid, res.Err)
	}
	c.metrics.Inc(MetricBearerAccepted)

	registry := c.roles.Registry()
	id := &BearerIdentity{
		Subject:      res.Claims.Subject,
		SessionState: res.Claims.SessionState,
		Username:     res.Claims.PreferredUsername,
		RealmRoles:   registry.Names(res.RealmRoles),
	}
	if len(res.ResourceRoles) > 0 {
		id.ResourceRoles = make(map[string][]string, len(res.ResourceRoles))
		for resource, mask := range res.ResourceRoles {
			id.ResourceRoles[resource] = registry.Names(mask)
		}
	}
	return id, nil
}

// HasRealmRole reports whether the identity holds role.
func (b *BearerIdentity) HasRealmRole(role string) bool {
	return b != nil && slices.Contains(b.RealmRoles, role)
}

// HasResourceRole reports whether the identity holds role on resource.
func (b *BearerIdentity) HasResourceRole(role, resource string) bool {
	return b != nil && slices.Contains(b.ResourceRoles[resource], role)
}
