// Package internal holds helpers private to goIdentity: provider session ids and
// the opaque refresh token format.
//
// A refresh token is base64url(session id (16 bytes) || secret (32 bytes)). The
// issuer keeps only the SHA-256 of the secret.
//
// # Sub-packages
//
//   - flows: pure-function orchestration of init, login, refresh and logout
package internal
