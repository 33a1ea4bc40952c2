// Package permission maps accepted role names to bit positions and resolves
// token role claims into compact 64-bit role masks.
//
// # Role model
//
// Roles are plain strings compared by equality. Only roles registered in a
// [Registry] are recognized; role names present in a token but unknown to the
// registry are dropped during resolution. There is no hierarchy and no
// composite role expansion.
//
// # Architecture boundaries
//
// This package is a pure in-memory data structure with no I/O. It provides the
// mask codec used by the session binary encoder.
//
// # What this package must NOT do
//
//   - Access Redis, the network, or the identity provider.
//   - Import goIdentity, jwt, or session.
//   - Grant a role that was not registered before [Registry.Freeze].
package permission
