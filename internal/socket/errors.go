package socket

import "errors"

// Sentinel errors for the socket package. Wrap with context when returning:
//
//	fmt.Errorf("%w: %s", ErrListenFailed, addr)
var (
	// ErrAlreadyStarted is returned by Start on a running server.
	ErrAlreadyStarted = errors.New("socket server already started")

	// ErrListenFailed is returned when the listen port cannot be bound.
	ErrListenFailed = errors.New("socket listen failed")
)
