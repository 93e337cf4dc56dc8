// Package jwt issues, verifies and inspects the bearer tokens exchanged with the API.
//
// Clients only ever call [Inspect], which reads the expiry of an access token without
// verifying its signature (the client never holds signing keys). [Manager] issues and
// verifies signed access/refresh pairs and backs the fake API used in tests and demos.
package jwt
