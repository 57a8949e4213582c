package domain

import "errors"

// Sentinel errors for domain operations.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrEmptyKey is returned when storing an entity without an id.
	ErrEmptyKey = errors.New("domain: entity key cannot be empty")

	// ErrMissingType is returned when an inbound message carries no type tag.
	ErrMissingType = errors.New("domain: message type missing")

	// ErrUnexpectedType is returned when a payload is decoded against the
	// wrong message type.
	ErrUnexpectedType = errors.New("domain: unexpected message type")
)
