package permission

import (
	"reflect"
	"testing"
)

func newTestRoleSet(t *testing.T) *RoleSet {
	t.Helper()
	rs, err := NewRoleSet(NewRegistry(), []string{"realm-user"}, map[string][]string{
		"my-angular-client": {"resource-user"},
	})
	if err != nil {
		t.Fatalf("NewRoleSet: %v", err)
	}
	return rs
}

func TestRegistryRegisterIsIdempotent(t *testing.T) {
	r := NewRegistry()
	a, err := r.Register("realm-user")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	b, err := r.Register("realm-user")
	if err != nil {
		t.Fatalf("register again: %v", err)
	}
	if a != b {
		t.Fatalf("expected same bit, got %d and %d", a, b)
	}
	if r.Count() != 1 {
		t.Fatalf("expected 1 role, got %d", r.Count())
	}
}

func TestRegistryRejectsAfterFreeze(t *testing.T) {
	r := NewRegistry()
	r.Freeze()
	if _, err := r.Register("late"); err == nil {
		t.Fatal("expected error registering into frozen registry")
	}
	if _, err := r.Register(""); err == nil {
		t.Fatal("expected error for empty role")
	}
}

func TestRegistryLimit(t *testing.T) {
	r := NewRegistry()
	for i := 0; i < MaxRoles; i++ {
		if _, err := r.Register(string(rune('A' + i))); err != nil {
			t.Fatalf("register %d: %v", i, err)
		}
	}
	if _, err := r.Register("overflow"); err == nil {
		t.Fatal("expected role limit error")
	}
}

func TestRoleSetRealmEquality(t *testing.T) {
	rs := newTestRoleSet(t)

	mask := rs.ResolveRealm([]string{"realm-user", "offline_access", "admin"})
	tests := []struct {
		role string
		want bool
	}{
		{"realm-user", true},
		{"offline_access", false},
		{"admin", false},
		{"resource-user", false},
		{"realm-user ", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := rs.HasRealm(mask, tt.role); got != tt.want {
			t.Errorf("HasRealm(%q) = %v, want %v", tt.role, got, tt.want)
		}
	}
}

func TestRoleSetResourceRequiresMatchingResource(t *testing.T) {
	rs := newTestRoleSet(t)

	masks := rs.ResolveResources(map[string][]string{
		"my-angular-client": {"resource-user", "realm-user"},
		"other-client":      {"resource-user"},
	})
	if _, ok := masks["other-client"]; ok {
		t.Fatal("unaccepted resource must be dropped")
	}

	if !rs.HasResource(masks, "resource-user", "my-angular-client") {
		t.Fatal("expected resource-user on my-angular-client")
	}
	if rs.HasResource(masks, "realm-user", "my-angular-client") {
		t.Fatal("realm role must not be granted as a resource role")
	}
	if rs.HasResource(masks, "resource-user", "universal_auth_app") {
		t.Fatal("resource-user must not be granted for another client")
	}
}

func TestRegistryNamesExpandsMask(t *testing.T) {
	rs := newTestRoleSet(t)
	mask := rs.ResolveRealm([]string{"realm-user"})
	if got := rs.Registry().Names(mask); !reflect.DeepEqual(got, []string{"realm-user"}) {
		t.Fatalf("unexpected names %v", got)
	}
	if !rs.Registry().Frozen() {
		t.Fatal("role set must freeze its registry")
	}
}
