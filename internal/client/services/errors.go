// Package services contains the application services of the ocrdesk client:
// the session manager, the processing workflow and the history workflow.
// The CLI drives them and renders from their snapshots.
package services

import (
	"errors"
	"strings"

	"github.com/dmitrijs2005/ocrdesk/internal/client/gateway"
	"github.com/dmitrijs2005/ocrdesk/internal/client/messages"
)

var (
	// ErrInFlight is returned when the same operation is already running.
	ErrInFlight = errors.New("operation already in progress")
	// ErrNotAuthenticated is wrapped when an operation needs a session.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrSuperseded is returned by Submit when a newer selection or a reset
	// replaced the job while it was running, and by a history fetch whose
	// session ended before the response arrived.
	ErrSuperseded = errors.New("submission superseded")
)

// Violation is one broken validation rule.
type Violation struct {
	Field string
	Rule  messages.Key
}

// ValidationError carries every rule an input broke. Messages are in the
// catalog's locale, one per violation.
type ValidationError struct {
	Violations []Violation
	Messages   []string
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Messages, "; ")
}

// Has reports whether rule was violated.
func (e *ValidationError) Has(rule messages.Key) bool {
	for _, v := range e.Violations {
		if v.Rule == rule {
			return true
		}
	}
	return false
}

// AuthError is a rejected credential-related call. Reason is the raw
// service reason (may be empty); Message is what the user sees.
type AuthError struct {
	Op      string
	Reason  string
	Message string
	Err     error
}

func (e *AuthError) Error() string { return e.Message }
func (e *AuthError) Unwrap() error { return e.Err }

// WorkflowError is a failed processing, history, download or delete step.
type WorkflowError struct {
	Op      string
	Message string
	Err     error
}

func (e *WorkflowError) Error() string { return e.Message }
func (e *WorkflowError) Unwrap() error { return e.Err }

// FileRejectedError explains why a file was not accepted for processing.
type FileRejectedError struct {
	Name    string
	Rule    messages.Key
	Message string
}

func (e *FileRejectedError) Error() string { return e.Message }

// normalize turns err into user-facing text. A known service reason is
// translated, an unknown one is passed through, and a missing one falls
// back to the operation's generic message.
func normalize(msgs *messages.Catalog, err error, fallback messages.Key) (reason, text string) {
	if reason, ok := gateway.Detail(err); ok {
		if known, ok := msgs.Reason(reason); ok {
			return reason, known
		}
		return reason, reason
	}

	switch {
	case errors.Is(err, gateway.ErrUnauthenticated):
		return "", msgs.Text(messages.SessionExpired)
	case errors.Is(err, gateway.ErrUnavailable):
		return "", msgs.Text(messages.ServiceUnavailable)
	}
	return "", msgs.Text(fallback)
}
