// Package goIdentity provides a client for a simulated identity provider: it
// holds one authentication session, drives the init handshake, refreshes and
// clears tokens, and answers realm and resource role checks.
//
// The package is designed for concurrent use: Client methods are safe to call
// from multiple goroutines after construction through [Builder.Build].
//
// # Architecture boundaries
//
// goIdentity is the public surface. It exposes [Client], [Builder], [Config],
// and value types (Session, State, MetricsSnapshot). Flow orchestration lives
// under internal/flows; the identity provider sits behind the
// provider.Provider interface, and session persistence behind session.Store.
//
// # Lifecycle
//
//	uninitialized -> authenticated | unauthenticated
//	authenticated -> refreshed -> cleared
//
// A Client starts uninitialized. [Client.Init] runs the provider handshake; on
// success the session holds an access, ID and refresh token, otherwise it holds
// none. No session survives the process.
package goIdentity
