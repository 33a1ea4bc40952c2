// Package provider defines the identity-provider boundary used by the goIdentity
// client and ships [Simulated], a timer-driven stand-in for a Keycloak realm.
//
// Simulated issues real signed JWT access and ID tokens and opaque refresh
// tokens, but it has no network protocol, no user database and no persistence.
// Its outcomes are configurable: handshakes either authenticate or reject, and
// refreshes succeed with a configurable probability drawn from a seedable source.
package provider
