package scan

import "errors"

var (
	// ErrStreamClosed is returned by Run when the frame channel closes before
	// a stable result was found.
	ErrStreamClosed = errors.New("frame stream closed before a stable result")
	// ErrSessionNotFound is returned for unknown or expired session ids.
	ErrSessionNotFound = errors.New("scan session not found")
	// ErrNoRecognizer is returned when an image frame reaches a session that
	// was created without a recognizer.
	ErrNoRecognizer = errors.New("session has no line recognizer")
)
