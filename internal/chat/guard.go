// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import "sync"

// ============================================================================
// SESSION GUARD
// ============================================================================

// Guard enforces the single-active-session policy over a transcript. All
// streaming cycles go through Start, which freezes the draft into a user
// turn, opens a pending assistant cycle, and hands back a single-use
// Session. The slot is held until that session reaches a terminal state, so
// transcript appends from consecutive cycles can never interleave.
type Guard struct {
	mu     sync.Mutex
	active *Session

	transcript *Transcript
	transport  Transport
	creds      CredentialSource
}

// NewGuard returns a guard over transcript wired to the given collaborators.
func NewGuard(transcript *Transcript, transport Transport, creds CredentialSource) *Guard {
	return &Guard{
		transcript: transcript,
		transport:  transport,
		creds:      creds,
	}
}

// StartOptions selects the endpoint and model for one cycle and optionally
// registers a live-update callback.
type StartOptions struct {
	EndpointID string
	Model      string
	// OnUpdate, when set, receives the accumulated visible and reasoning
	// text after every delta. It runs on the transport's goroutine.
	OnUpdate func(visible, reasoning string)
}

// Start freezes draft into a user turn, appends it, and returns a new
// session ready to Run. It fails with ErrSessionAlreadyActive while a
// previous session has not reached a terminal state, and with
// ErrInvalidRoleSequence when the transcript cannot accept a user turn; in
// both cases the transcript is left untouched.
func (g *Guard) Start(draft *Draft, opts StartOptions) (*Session, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.active != nil {
		select {
		case <-g.active.done:
			g.active = nil
		default:
			return nil, ErrSessionAlreadyActive
		}
	}

	frozen := draft.Freeze()
	if _, err := g.transcript.Append(frozen.Role, frozen.Content); err != nil {
		return nil, err
	}
	if err := g.transcript.BeginPending(); err != nil {
		return nil, err
	}

	s := &Session{
		state:      StateIdle,
		transcript: g.transcript,
		transport:  g.transport,
		creds:      g.creds,
		endpointID: opts.EndpointID,
		model:      opts.Model,
		splitter:   NewTagSplitter(),
		onUpdate:   opts.OnUpdate,
		done:       make(chan struct{}),
	}
	g.active = s
	return s, nil
}

// Active returns the session currently holding the slot, or nil once it has
// reached a terminal state.
func (g *Guard) Active() *Session {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.active != nil {
		select {
		case <-g.active.done:
			g.active = nil
		default:
		}
	}
	return g.active
}

// CancelActive aborts the in-flight session, if any, and blocks until it
// reaches a terminal state. Calling it with no active session is a no-op.
func (g *Guard) CancelActive() {
	g.mu.Lock()
	s := g.active
	g.mu.Unlock()
	if s == nil {
		return
	}
	s.Cancel()
	<-s.done
}
