// Package cli provides the interactive to-meet-yours command-line client.
//
// It wires configuration, the local session store, the HTTP client layer,
// the services, the auth state controller and the navigation gate, and runs a
// REPL on top of them. Typical flow: restore the session on start, let the
// gate route to login, profile completion or the main screen, then run user
// commands.
//
// Key features:
//   - Register / Login / Logout, with session restore across restarts
//   - Profile view and edit (completion drives the gate)
//   - Conversations, chat with optimistic send and polling
//   - Wallet balance and coin purchase
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
// See App and runREPL for details.
package cli
