// Package session holds the client-side authentication session record and the
// stores that keep it.
//
// # Session invariant
//
// A [Session] is either authenticated, with non-empty access, ID and refresh
// tokens, or unauthenticated, with all three tokens empty. [Session.Validate]
// reports any other combination, and every mutator in this package preserves
// the invariant.
//
// # Stores
//
// [MemoryStore] keeps sessions in process memory. [RedisStore] keeps them in
// Redis under an instance-scoped key prefix with a TTL, encoded with the compact
// binary format in encoder.go. Neither store survives a process restart: the
// Redis namespace is generated per process and removed on Purge.
//
// # What this package must NOT do
//
//   - Talk to the identity provider or parse JWTs.
//   - Make role decisions (masks are stored, not interpreted).
package session
