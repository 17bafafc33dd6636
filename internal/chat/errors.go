// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import "errors"

// ============================================================================
// ERROR TAXONOMY
// ============================================================================

var (
	// ErrSessionAlreadyActive is returned when a new streaming session is
	// requested while another one is still in flight.
	ErrSessionAlreadyActive = errors.New("a streaming session is already active")

	// ErrCredentialMissing is returned when no API key is stored for the
	// selected endpoint. The request is never dispatched.
	ErrCredentialMissing = errors.New("no API key configured for endpoint")

	// ErrInvalidRoleSequence is returned when an append would violate turn
	// ordering (system after position 0, or two adjacent same-role turns).
	ErrInvalidRoleSequence = errors.New("invalid role sequence")

	// ErrNoPendingTurn is returned when a finalization is attempted with no
	// streaming cycle in flight.
	ErrNoPendingTurn = errors.New("no pending assistant turn")

	// ErrEmptyFinalization is returned when a finalization carries no text.
	ErrEmptyFinalization = errors.New("empty finalization")

	// ErrSessionConsumed is returned when a single-use session is started
	// twice.
	ErrSessionConsumed = errors.New("session already consumed")
)

// TransportError reports a connection, protocol, or server failure during a
// streaming request. The message is surfaced to the caller verbatim.
type TransportError struct {
	Message string
	Err     error
}

func (e *TransportError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "transport error"
}

func (e *TransportError) Unwrap() error { return e.Err }

// Is allows errors.Is(err, &TransportError{}) style matching on the type.
func (e *TransportError) Is(target error) bool {
	_, ok := target.(*TransportError)
	return ok
}
