// Package flows contains pure-function orchestrators for the Client's
// provider-facing operations.
//
// Each flow function (RunEstablish, RunRefresh, RunLogout, RunValidate)
// accepts a typed dependency struct and returns a result value. Flows never
// touch the Client's cached session: they build new session records and leave
// publishing them to the caller.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import goIdentity (to avoid import cycles).
//   - Perform I/O directly. Provider calls arrive as dependency functions.
package flows
