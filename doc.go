// Package authclient is a client for a bearer-token REST API that keeps an
// access/refresh token pair in a durable store, refreshes it with a single-flight
// guard and retries authenticated requests a bounded number of times.
//
// A [Client] is built once through [Builder.Build] and is safe for concurrent use.
//
// # Architecture boundaries
//
// authclient is the public surface. It exposes [Client], [Builder], [Config],
// [TokenManager] and value types (User, Profile, Contact, Post, MetricsSnapshot).
// Persistence lives in the session sub-package behind [session.Store]; token claim
// inspection lives in jwt. Rendering of API payloads lives in view and never
// imports this package.
//
// # Refresh and retry contract
//
//   - At most one refresh request is in flight per Client. Concurrent callers wait
//     for it and share its outcome.
//   - A refresh replaces both tokens at once, or clears both when the API rejects
//     the refresh token.
//   - One logical request sees at most Retry.MaxAttempts answers of 401 before it
//     fails with [ErrSessionExpired].
//
// # What this package must NOT do
//
//   - Log or audit token values.
//   - Retry a request whose transport failed; [ErrNetwork] is returned as is.
//   - Cancel a shared refresh because one waiter gave up.
package authclient
