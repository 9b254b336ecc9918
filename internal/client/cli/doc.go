// Package cli provides the interactive ocrdesk command-line client.
//
// It wires configuration, local storage, the request gateway and the
// application services into a REPL. Typical flow: restore a saved session,
// start a background connectivity watcher, and execute user commands.
//
// Key features:
//   - Sign up / Login / Logout, password and email changes, password reset
//   - Select a document, submit it for OCR, download the result
//   - List, download and delete previously processed files
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
// See App, StartOnlineStatusWatcher, and runREPL for details.
package cli
