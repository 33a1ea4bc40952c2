package goIdentity

// HasRealmRole reports whether the session holds role at realm level. Only
// accepted roles (Config.Roles) can ever match.
func (c *Client) HasRealmRole(role string) bool {
	sess := c.snapshot()
	ok := sess.Authenticated && c.roles.HasRealm(sess.RealmRoles, role)
	c.countRole(ok)
	return ok
}

// HasResourceRole reports whether the session holds role on resource.
func (c *Client) HasResourceRole(role, resource string) bool {
	sess := c.snapshot()
	ok := sess.Authenticated && c.roles.HasResource(sess.ResourceRoles, role, resource)
	c.countRole(ok)
	return ok
}

// RealmRoles lists the accepted realm roles the session holds, sorted.
func (c *Client) RealmRoles() []string {
	sess := c.snapshot()
	if !sess.Authenticated {
		return nil
	}
	return c.roles.Registry().Names(sess.RealmRoles)
}

func (c *Client) countRole(granted bool) {
	if granted {
		c.metrics.Inc(MetricRoleGranted)
		return
	}
	c.metrics.Inc(MetricRoleDenied)
}
