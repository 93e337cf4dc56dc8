// Package session provides persistence for the client-side token pair.
//
// # Storage model
//
// A [Session] holds an access token and a refresh token. Stores persist them under the
// two fixed keys [AccessTokenKey] and [RefreshTokenKey], optionally namespaced by a
// prefix (the equivalent of a browser origin). Save writes both keys in one atomic step
// and Load reads both in one atomic step.
//
// # Architecture boundaries
//
// This package owns the [Store] contract and its implementations ([MemoryStore],
// [RedisStore], [FileStore]). It does NOT talk to the remote API, decide when to refresh,
// or interpret token contents; those belong to the root package.
//
// # What this package must NOT do
//
//   - Import authclient or jwt (no upward imports).
//   - Log or otherwise expose token values.
package session
