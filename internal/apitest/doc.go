// Package apitest is an in-process stand-in for the remote REST API the client
// talks to. It is used by tests, the CLI load test and the demo page.
//
// The fake mirrors the behaviour the client depends on: form login returning a
// bearer pair, signup validation answers with a detail array, refresh token
// rotation that revokes the user when an already rotated refresh token is
// presented again, and bearer-protected resources. Knobs on [API] expire access
// tokens, inject refresh failures and hold refresh calls open so concurrent
// behaviour can be observed.
//
// # What this package must NOT do
//
//   - Import the authclient root package (its tests import this one).
//   - Persist anything outside process memory.
package apitest
