// Package jwt issues and verifies the service's access tokens.
//
// Tokens are HS512-signed and carry the principal id, identity and a role
// snapshot. The role claim is informational only; authorization reads the
// role from the store. Context helpers hold verified claims per request.
package jwt
