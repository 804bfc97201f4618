package domain

import "errors"

var (
	// ErrSourceConfig means the source credentials or channel identity
	// are missing or malformed. A run never starts in this state.
	ErrSourceConfig = errors.New("source configuration invalid")

	// ErrSourceUnavailable means the external channel could not be
	// reached (network or API failure). Retryable on the next run.
	ErrSourceUnavailable = errors.New("source unavailable")

	// ErrSourceTimeout means the source call exceeded its deadline.
	// Kept distinct from ErrSourceUnavailable so callers can tell
	// "source is down" from "source is slow".
	ErrSourceTimeout = errors.New("source timeout")

	// ErrDuplicate means a record with the same
	// (source_platform, source_message_id) already exists. Expected
	// during sync, counted as a skipped duplicate.
	ErrDuplicate = errors.New("duplicate source message")

	// ErrNotFound means the referenced record does not exist.
	ErrNotFound = errors.New("record not found")
)
