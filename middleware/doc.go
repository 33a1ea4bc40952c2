// Package middleware guards HTTP APIs with goIdentity access tokens.
//
// # Guards
//
//   - [Guard] verifies the bearer token and stores the identity in the request
//     context.
//   - [RequireRealmRole] additionally demands every listed realm role.
//   - [RequireResourceRole] additionally demands every listed role on one
//     resource.
//
// A missing or invalid token yields 401. A valid token lacking a role yields
// 403.
//
// # What this package must NOT do
//
//   - Parse or verify JWTs itself. Verification is the validator's job.
//   - Route between views. Guards only authorize API requests.
package middleware
