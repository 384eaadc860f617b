// Package cli provides the interactive caterauth command-line client.
//
// It drives the identity flows of one principal kind at a time (customer or
// vendor), keeps the current session in sync with other processes sharing
// the same store, and prints where the web client would navigate.
//
// Key features:
//   - Signup with OTP verification, resend with cooldown
//   - Forgot password: OTP verification, reset handoff, new password
//   - Login / Logout / WhoAmI
//   - Forced logout when the server rejects the session
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
