// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat implements the streaming conversation core: the transcript
// log, the outgoing draft with injected file context, the think-tag
// splitter, and the session state machine that ties them to a transport.
package chat

import "strings"

// ============================================================================
// THINK TAG SPLITTER
// ============================================================================

const (
	thinkOpen  = "<think>"
	thinkClose = "</think>"
)

// TagSplitter incrementally separates a token stream into visible text and
// reasoning text. Reasoning is everything between <think> and </think>
// markers; the markers themselves appear in neither output. Fragments may
// split a marker at any byte position, so a trailing run that could still
// become a marker is withheld in a carry buffer until the next Feed or
// Finalize decides it.
//
// A TagSplitter is single-use per stream and is not safe for concurrent use.
type TagSplitter struct {
	inThink bool
	carry   string
}

// NewTagSplitter returns a splitter in visible mode with an empty carry.
func NewTagSplitter() *TagSplitter {
	return &TagSplitter{}
}

// Feed consumes the next stream fragment and returns the visible and
// reasoning text that became unambiguous with it. Concatenating the visible
// returns of every Feed plus Finalize yields the full input minus all
// complete <think> spans, regardless of how the input was chunked.
func (s *TagSplitter) Feed(fragment string) (visible, reasoning string) {
	if fragment == "" && s.carry == "" {
		return "", ""
	}

	buf := s.carry + fragment
	s.carry = ""

	var vis, rea strings.Builder
	for buf != "" {
		marker := thinkOpen
		out := &vis
		if s.inThink {
			marker = thinkClose
			out = &rea
		}

		idx := strings.Index(buf, marker)
		if idx >= 0 {
			out.WriteString(buf[:idx])
			buf = buf[idx+len(marker):]
			s.inThink = !s.inThink
			continue
		}

		// No complete marker. Withhold the longest tail that is still a
		// prefix of the marker we are looking for; emit the rest.
		hold := partialMarkerLen(buf, marker)
		out.WriteString(buf[:len(buf)-hold])
		s.carry = buf[len(buf)-hold:]
		buf = ""
	}
	return vis.String(), rea.String()
}

// Finalize ends the stream and returns any remaining visible text. A carry
// that never completed a marker is emitted as literal visible text when the
// splitter is in visible mode. If the stream ended inside an unmatched
// <think> span the carry belongs to reasoning that was never closed; it is
// dropped.
func (s *TagSplitter) Finalize() (visible string) {
	carry := s.carry
	s.carry = ""
	if s.inThink {
		return ""
	}
	return carry
}

// InThink reports whether the splitter is currently inside a <think> span.
func (s *TagSplitter) InThink() bool {
	return s.inThink
}

// partialMarkerLen returns the length of the longest proper suffix of buf
// that is a prefix of marker.
func partialMarkerLen(buf, marker string) int {
	max := len(marker) - 1
	if max > len(buf) {
		max = len(buf)
	}
	for n := max; n > 0; n-- {
		if buf[len(buf)-n:] == marker[:n] {
			return n
		}
	}
	return 0
}
