// Package cli provides the interactive chantube command-line client.
//
// It wires configuration, the HTTP API client and an interactive REPL.
// The session token pair lives only in memory: it is obtained by "login"
// and used by the following commands until "logout" or exit.
//
// Commands:
//   - register: create an account (avatar required, cover image optional)
//   - login: authenticate with username or email
//   - whoami: show the current account, refreshing an expired access token
//   - refresh: rotate the token pair
//   - logout: revoke the session
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
