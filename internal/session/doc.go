// Package session holds the client's authentication state.
//
// # States
//
//	Verifying ──Initialize──▶ Unauthenticated   (nothing persisted, expired, rejected, unreachable)
//	    │
//	    └──verify ok──▶ Authenticated ──Logout──▶ Unauthenticated
//
// A Store starts in Verifying so nothing routes to the login screen before a
// persisted credential has been checked. Login moves to Authenticated from any
// state. Identity is set exactly when the status is Authenticated.
//
// # Verification
//
// Initialize reads the persisted credential once. An expired exp claim is
// rejected locally. Otherwise the Verifier asks the server; its result is
// posted back to the event loop and dropped if Login or Logout happened in
// the meantime. A rejection clears storage. An unreachable server fails closed
// but keeps the stored credential.
//
// # Listeners
//
// Subscribe listeners run synchronously inside the transition, before the
// mutating method returns.
package session
