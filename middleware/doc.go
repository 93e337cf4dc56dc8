// Package middleware adapts authclient to server-rendered pages.
//
// # Middleware
//
//   - [RequireSession] redirects to the login view when no session is stored.
//   - [RequestID] carries one X-Request-ID from the incoming request to every API call
//     made while serving it.
//   - [LoginRedirect] turns errors that need a new login into a redirect carrying
//     ?error=<message>.
//
// # Architecture boundaries
//
// This package translates client outcomes into HTTP responses. Refresh and retry
// decisions stay in authclient.Client.
//
// # What this package must NOT do
//
//   - Read or write tokens directly.
//   - Call the API.
package middleware
