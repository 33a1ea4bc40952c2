// Package jwt issues and verifies the signed access and ID tokens handed out by
// the identity provider.
//
// Access tokens carry Keycloak-shaped role claims (realm_access and
// resource_access); ID tokens carry the profile claims used by the userinfo
// document. Both are signed with Ed25519 by default, HS256 optionally.
//
// # What this package must NOT do
//
//   - Decide whether a session is authenticated (the client owns session state).
//   - Store tokens or access Redis.
package jwt
