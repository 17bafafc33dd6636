// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// ============================================================================
// SESSION STATE MACHINE
// ============================================================================

// State is the lifecycle position of a streaming session.
type State int

const (
	StateIdle State = iota
	StateRequesting
	StateStreaming
	StateFinalizing
	StateCompleted
	StateFailed
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRequesting:
		return "requesting"
	case StateStreaming:
		return "streaming"
	case StateFinalizing:
		return "finalizing"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transitions can occur.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed || s == StateCancelled
}

// Request is one outgoing chat-completion call: the conversation so far plus
// the credentials and model resolved for this cycle.
type Request struct {
	EndpointID string
	Model      string
	APIKey     string
	Turns      []Turn
}

// Transport streams one chat completion. Implementations deliver assistant
// deltas through onDelta in arrival order and return nil on clean
// end-of-stream. A return of context.Canceled (or ctx's error) means the
// caller cancelled; any other error is a transport failure. onDelta must not
// be called after StreamChat returns.
type Transport interface {
	StreamChat(ctx context.Context, req Request, onDelta func(text string)) error
}

// CredentialSource resolves the API key for an endpoint.
type CredentialSource interface {
	APIKey(endpointID string) (string, error)
}

// Result is the terminal outcome of a session run.
type Result struct {
	State     State
	Visible   string
	Reasoning string
	// Turn is the finalized assistant turn, nil when nothing was appended
	// (failure, cancellation, or an all-reasoning completion).
	Turn *Turn
}

// Session drives one streaming cycle against a transcript: it dispatches the
// request, splits the incoming token stream into visible and reasoning text,
// and finalizes exactly one assistant turn on success. Sessions are
// single-use; SessionGuard is the only intended constructor path.
type Session struct {
	mu        sync.Mutex
	state     State
	consumed  bool
	cancel    context.CancelFunc
	visible   strings.Builder
	reasoning strings.Builder

	transcript *Transcript
	transport  Transport
	creds      CredentialSource
	endpointID string
	model      string
	splitter   *TagSplitter

	// onUpdate receives the accumulated visible and reasoning text after
	// every delta. It is invoked from the transport's goroutine.
	onUpdate func(visible, reasoning string)

	done chan struct{}
}

// State returns the session's current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Live returns the visible and reasoning text accumulated so far.
func (s *Session) Live() (visible, reasoning string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.visible.String(), s.reasoning.String()
}

// Cancel aborts the in-flight request. Calling it before Run or after a
// terminal state is a no-op.
func (s *Session) Cancel() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Done is closed when Run reaches a terminal state.
func (s *Session) Done() <-chan struct{} { return s.done }

func (s *Session) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

// Run executes the full streaming cycle and blocks until a terminal state.
// The returned error is non-nil only for StateFailed; cancellation is
// reported through Result.State, not as an error. Run may be called once.
func (s *Session) Run(ctx context.Context) (Result, error) {
	s.mu.Lock()
	if s.consumed {
		s.mu.Unlock()
		return Result{State: StateFailed}, ErrSessionConsumed
	}
	s.consumed = true
	s.mu.Unlock()
	defer close(s.done)

	key, err := s.creds.APIKey(s.endpointID)
	if err != nil || key == "" {
		s.transcript.DropPending()
		s.setState(StateFailed)
		return s.result(nil), fmt.Errorf("%w: %s", ErrCredentialMissing, s.endpointID)
	}

	cctx, cancel := context.WithCancel(ctx)
	defer cancel()
	s.mu.Lock()
	s.cancel = cancel
	s.state = StateRequesting
	s.mu.Unlock()

	req := Request{
		EndpointID: s.endpointID,
		Model:      s.model,
		APIKey:     key,
		Turns:      s.transcript.Snapshot(),
	}

	streamErr := s.transport.StreamChat(cctx, req, s.handleDelta)
	if streamErr != nil {
		s.transcript.DropPending()
		if errors.Is(streamErr, context.Canceled) || cctx.Err() != nil {
			s.setState(StateCancelled)
			return s.result(nil), nil
		}
		s.setState(StateFailed)
		var terr *TransportError
		if !errors.As(streamErr, &terr) {
			streamErr = &TransportError{Message: streamErr.Error(), Err: streamErr}
		}
		return s.result(nil), streamErr
	}

	s.setState(StateFinalizing)
	s.mu.Lock()
	s.visible.WriteString(s.splitter.Finalize())
	visible := s.visible.String()
	s.mu.Unlock()

	if visible == "" {
		// All-reasoning or empty response: nothing durable to commit.
		s.transcript.DropPending()
		s.setState(StateCompleted)
		return s.result(nil), nil
	}

	turn, err := s.transcript.ReplacePendingAssistant(visible)
	if err != nil {
		s.setState(StateFailed)
		return s.result(nil), err
	}
	s.setState(StateCompleted)
	return s.result(&turn), nil
}

func (s *Session) handleDelta(text string) {
	s.mu.Lock()
	if s.state == StateRequesting {
		s.state = StateStreaming
	}
	vis, rea := s.splitter.Feed(text)
	s.visible.WriteString(vis)
	s.reasoning.WriteString(rea)
	v, r := s.visible.String(), s.reasoning.String()
	update := s.onUpdate
	s.mu.Unlock()
	if update != nil {
		update(v, r)
	}
}

func (s *Session) result(turn *Turn) Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Result{
		State:     s.state,
		Visible:   s.visible.String(),
		Reasoning: s.reasoning.String(),
		Turn:      turn,
	}
}
