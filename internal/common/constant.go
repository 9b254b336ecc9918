// Package common contains small constants and helpers shared by the client,
// the gateway and the reference service.
package common

const (
	// AuthorizationHeaderName carries the bearer credential on outbound requests.
	AuthorizationHeaderName = "Authorization"

	// BearerPrefix precedes the token inside the Authorization header.
	BearerPrefix = "Bearer "

	// RequestIDHeaderName correlates client and service log lines.
	RequestIDHeaderName = "X-Request-ID"
)
