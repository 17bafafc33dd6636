// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ============================================================================
// ROLES AND TURNS
// ============================================================================

// Role identifies the author of a turn.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one finalized entry in a conversation transcript. Turns are
// immutable once appended.
type Turn struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// NewTurn creates a turn with a fresh identifier.
func NewTurn(role Role, content string) Turn {
	return Turn{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		CreatedAt: time.Now(),
	}
}

// ============================================================================
// TRANSCRIPT
// ============================================================================

// Transcript is an append-only log of finalized turns. While a streaming
// cycle is in flight it additionally tracks one pending assistant turn that
// lives outside the durable log until it is finalized or dropped.
//
// All methods are safe for concurrent use.
type Transcript struct {
	mu      sync.Mutex
	turns   []Turn
	pending bool
}

// NewTranscript returns an empty transcript.
func NewTranscript() *Transcript {
	return &Transcript{}
}

// Append adds a finalized turn to the log. Role ordering is enforced: a
// system turn is only accepted as the very first entry, and two user or two
// assistant turns may not be adjacent.
func (t *Transcript) Append(role Role, content string) (Turn, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.checkRole(role); err != nil {
		return Turn{}, err
	}
	turn := NewTurn(role, content)
	t.turns = append(t.turns, turn)
	return turn, nil
}

func (t *Transcript) checkRole(role Role) error {
	switch role {
	case RoleSystem:
		if len(t.turns) > 0 {
			return fmt.Errorf("%w: system turn after position 0", ErrInvalidRoleSequence)
		}
	case RoleUser, RoleAssistant:
		if n := len(t.turns); n > 0 && t.turns[n-1].Role == role {
			return fmt.Errorf("%w: consecutive %s turns", ErrInvalidRoleSequence, role)
		}
	default:
		return fmt.Errorf("%w: unknown role %q", ErrInvalidRoleSequence, role)
	}
	return nil
}

// Snapshot returns a copy of the finalized turns in order. The pending
// assistant turn, if any, is not included. Mutating the returned slice does
// not affect the transcript.
func (t *Transcript) Snapshot() []Turn {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Turn, len(t.turns))
	copy(out, t.turns)
	return out
}

// Len returns the number of finalized turns.
func (t *Transcript) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.turns)
}

// BeginPending marks the start of a streaming cycle. The pending assistant
// turn accumulates outside the log and is only committed through
// ReplacePendingAssistant. Starting a cycle while one is already pending, or
// when the last finalized turn is not a user turn, is a role-sequence error.
func (t *Transcript) BeginPending() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.pending {
		return fmt.Errorf("%w: streaming cycle already in flight", ErrInvalidRoleSequence)
	}
	if n := len(t.turns); n == 0 || t.turns[n-1].Role != RoleUser {
		return fmt.Errorf("%w: assistant turn must follow a user turn", ErrInvalidRoleSequence)
	}
	t.pending = true
	return nil
}

// ReplacePendingAssistant finalizes the in-flight streaming cycle by
// appending final as an assistant turn and clearing the pending state. It
// fails with ErrNoPendingTurn when no cycle is in flight and with
// ErrEmptyFinalization when final is empty; the pending state survives an
// empty finalization so the caller can decide how to dispose of the cycle.
func (t *Transcript) ReplacePendingAssistant(final string) (Turn, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.pending {
		return Turn{}, ErrNoPendingTurn
	}
	if final == "" {
		return Turn{}, ErrEmptyFinalization
	}
	t.pending = false
	turn := NewTurn(RoleAssistant, final)
	t.turns = append(t.turns, turn)
	return turn, nil
}

// DropPending abandons the in-flight streaming cycle without appending
// anything. It is a no-op when no cycle is in flight.
func (t *Transcript) DropPending() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pending = false
}

// HasPending reports whether a streaming cycle is in flight.
func (t *Transcript) HasPending() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pending
}
