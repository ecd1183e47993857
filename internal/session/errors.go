package session

import "errors"

var (
	// ErrNotFound is returned when no session matches a code.
	ErrNotFound = errors.New("session not found")
	// ErrCodeTaken is returned by a Store when inserting a code that already exists.
	ErrCodeTaken = errors.New("session code already in use")
	// ErrCodeExhausted is returned when Create could not find a free code.
	ErrCodeExhausted = errors.New("could not allocate a unique session code")
	// ErrRoundInProgress is returned when a round is started while one is already running.
	ErrRoundInProgress = errors.New("round already in progress")
	// ErrConnClosed is returned by a Conn that can no longer accept messages.
	ErrConnClosed = errors.New("connection closed")
)
