package models

import "errors"

var (
	// ErrInvalidFilter is returned for filters referencing unknown values.
	ErrInvalidFilter = errors.New("invalid filter")

	// ErrFilterIndex is returned when a filter index is out of range.
	ErrFilterIndex = errors.New("filter index out of range")

	// ErrSubscriberNotFound is returned by persistence for unknown subscribers.
	ErrSubscriberNotFound = errors.New("subscriber not found")

	// ErrFetchExhausted is returned when every fetch attempt failed.
	ErrFetchExhausted = errors.New("server list fetch exhausted retries")
)
