package repository

import "errors"

var (
	// ErrSessionNotFound indicates the session has no stored batch
	ErrSessionNotFound = errors.New("session not found")

	// ErrInvalidSessionID indicates an empty session identifier
	ErrInvalidSessionID = errors.New("invalid session id")
)
