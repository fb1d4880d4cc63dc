// Package auth inspects the bearer tokens issued by the chat server.
//
// # Tokens
//
// The server issues HS256 JWTs with these claims:
//
//   - sub: username
//   - is_admin: true for the admin console identity
//   - exp: expiry (30 minutes after login)
//
// The client cannot verify the signature. ParseClaims reads the payload so the
// session store can drop an expired credential without a round trip, and
// IsRejection separates "this token is unusable" from "the server could not
// be reached".
package auth
