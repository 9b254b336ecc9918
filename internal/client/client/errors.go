package client

import (
	"errors"

	"github.com/dmitrijs2005/ocrdesk/internal/client/gateway"
)

var (
	ErrUnavailable  = gateway.ErrUnavailable
	ErrUnauthorized = gateway.ErrUnauthenticated
	// ErrBadResponse is returned when a 2xx body lacks a required field.
	ErrBadResponse = errors.New("malformed service response")
)
