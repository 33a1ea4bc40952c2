package permission

import (
	"errors"
	"sort"
)

// RoleSet resolves realm and resource role claims against a frozen [Registry].
//
// A RoleSet is built once during client construction and is read-only after
// [NewRoleSet] returns.
type RoleSet struct {
	registry  *Registry
	realm     Mask64
	resources map[string]Mask64
}

// NewRoleSet registers the accepted realm roles and per-resource roles, freezes
// the registry, and returns the resolver.
func NewRoleSet(registry *Registry, realm []string, resources map[string][]string) (*RoleSet, error) {
	if registry == nil {
		return nil, errors.New("nil registry")
	}

	rs := &RoleSet{
		registry:  registry,
		resources: make(map[string]Mask64, len(resources)),
	}

	for _, role := range realm {
		bit, err := registry.Register(role)
		if err != nil {
			return nil, err
		}
		rs.realm.Set(bit)
	}

	// deterministic bit assignment regardless of map order
	names := make([]string, 0, len(resources))
	for resource := range resources {
		names = append(names, resource)
	}
	sort.Strings(names)

	for _, resource := range names {
		if resource == "" {
			return nil, errors.New("resource name empty")
		}
		var mask Mask64
		for _, role := range resources[resource] {
			bit, err := registry.Register(role)
			if err != nil {
				return nil, err
			}
			mask.Set(bit)
		}
		rs.resources[resource] = mask
	}

	registry.Freeze()
	return rs, nil
}

// Registry returns the underlying registry.
func (rs *RoleSet) Registry() *Registry {
	return rs.registry
}

// ResolveRealm converts realm role claims into a mask of accepted realm roles.
func (rs *RoleSet) ResolveRealm(claims []string) Mask64 {
	return rs.resolve(claims, rs.realm)
}

// ResolveResources converts per-resource role claims into masks. Resources
// that are not accepted, or that resolve to no accepted role, are omitted.
func (rs *RoleSet) ResolveResources(claims map[string][]string) map[string]Mask64 {
	out := make(map[string]Mask64, len(claims))
	for resource, roles := range claims {
		accepted, ok := rs.resources[resource]
		if !ok {
			continue
		}
		if mask := rs.resolve(roles, accepted); !mask.Empty() {
			out[resource] = mask
		}
	}
	return out
}

// HasRealm reports whether mask grants the named realm role.
func (rs *RoleSet) HasRealm(mask Mask64, role string) bool {
	bit, ok := rs.registry.Bit(role)
	if !ok || !rs.realm.Has(bit) {
		return false
	}
	return mask.Has(bit)
}

// HasResource reports whether masks grant role on resource.
func (rs *RoleSet) HasResource(masks map[string]Mask64, role, resource string) bool {
	accepted, ok := rs.resources[resource]
	if !ok {
		return false
	}
	bit, ok := rs.registry.Bit(role)
	if !ok || !accepted.Has(bit) {
		return false
	}
	return masks[resource].Has(bit)
}

func (rs *RoleSet) resolve(claims []string, accepted Mask64) Mask64 {
	var mask Mask64
	for _, role := range claims {
		bit, ok := rs.registry.Bit(role)
		if !ok || !accepted.Has(bit) {
			continue
		}
		mask.Set(bit)
	}
	return mask
}
