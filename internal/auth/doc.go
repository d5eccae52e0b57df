// Package auth provides JWT access token generation and validation for
// the HTTP API.
//
// Tokens are HS256-signed with the secret from config. Validation is
// signature-and-expiry only; there is no user store, so the subject is
// whatever identity the operator issued the token for.
package auth
