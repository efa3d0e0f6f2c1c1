package homeassistant

import "errors"

// Domain-specific errors for the Home Assistant client.
var (
	// ErrAuthFailed is returned when Home Assistant rejects the access token.
	// It is not retried: a bad token will not fix itself.
	ErrAuthFailed = errors.New("homeassistant: authentication failed")

	// ErrProtocol indicates an unexpected message on the WebSocket API.
	ErrProtocol = errors.New("homeassistant: protocol error")

	// ErrCommandFailed is returned when a command result has success=false.
	ErrCommandFailed = errors.New("homeassistant: command failed")

	// ErrNotConnected is returned when a command is sent without a session.
	ErrNotConnected = errors.New("homeassistant: not connected")

	// ErrInvalidURL is returned when the configured URL cannot be turned
	// into a WebSocket endpoint.
	ErrInvalidURL = errors.New("homeassistant: invalid url")
)
