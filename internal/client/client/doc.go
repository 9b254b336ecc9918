// Package client contains the client-side building blocks that talk to the
// OCR service and bootstrap local persistence.
//
// # Overview
//
// The package provides:
//  1. A transport-agnostic API contract (see the Client interface, split into
//     AuthClient, ProcessClient and HistoryClient) covering sign-up, login,
//     password and email changes, password reset, document processing,
//     artifact download, history listing, file deletion and the liveness
//     probe.
//  2. A concrete HTTP/JSON implementation (see HTTPClient) on top of
//     gateway.Gateway, which injects the bearer token, applies per-call
//     timeouts (see Timeouts) and invalidates the session on 401.
//  3. Local persistence bootstrap utilities (InitDatabase, RunMigrations) for
//     the CLI, wiring an SQLite database and applying embedded goose migrations.
//
// # Error Handling
//
// Non-2xx responses surface as *gateway.APIError. Common conditions are
// exposed as sentinel errors that callers can match with errors.Is:
// ErrUnavailable, ErrUnauthorized, ErrBadResponse.
//
// All operations accept context.Context and honor cancellation.
package client
