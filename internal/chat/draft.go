// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"
)

// ============================================================================
// OUTGOING DRAFT AND CONTEXT INJECTION
// ============================================================================

// FileReader resolves a path to its text content. Implementations must
// return an error value for unreadable files, never panic.
type FileReader interface {
	ReadFileText(path string) (string, error)
}

// ContextBlock is one labeled file section attached to a draft. Unreadable
// files keep their slot with Failed set; the failure is rendered as visible
// text so the user sees exactly what the model sees.
type ContextBlock struct {
	Path    string
	Content string
	Failed  bool
}

func (b ContextBlock) render() string {
	if b.Failed {
		return fmt.Sprintf("--- Failed to read file: %s ---\n", b.Path)
	}
	return fmt.Sprintf("--- File: %s ---\n%s\n", b.Path, b.Content)
}

// Draft is an outgoing user turn under construction: the typed message plus
// the file context blocks merged into it. A draft is mutable until frozen
// into a Turn.
type Draft struct {
	base   string
	blocks []ContextBlock
	seen   map[string]bool
}

// NewDraft creates a draft around the user's typed message.
func NewDraft(base string) *Draft {
	return &Draft{base: base, seen: make(map[string]bool)}
}

// Blocks returns the context blocks in injection order.
func (d *Draft) Blocks() []ContextBlock {
	out := make([]ContextBlock, len(d.blocks))
	copy(out, d.blocks)
	return out
}

// Base returns the user's typed message.
func (d *Draft) Base() string { return d.base }

// Render produces the final user-turn text: context blocks in injection
// order, a delimiter line, then the typed message. A draft with no blocks
// renders to the typed message alone.
func (d *Draft) Render() string {
	if len(d.blocks) == 0 {
		return d.base
	}
	var sb strings.Builder
	for _, b := range d.blocks {
		sb.WriteString(b.render())
		sb.WriteString("\n")
	}
	sb.WriteString("---\n\n")
	sb.WriteString(d.base)
	return sb.String()
}

// Freeze renders the draft into an immutable user turn.
func (d *Draft) Freeze() Turn {
	return NewTurn(RoleUser, d.Render())
}

// Injector merges file contents into outgoing drafts using a FileReader.
type Injector struct {
	reader FileReader
}

// NewInjector returns an injector backed by reader.
func NewInjector(reader FileReader) *Injector {
	return &Injector{reader: reader}
}

// MergeIntoDraft reads each path in order and appends a context block to the
// draft. Read failures become failed blocks, not errors: a missing file is
// information the user should see inline, not a reason to abort the turn.
// A path already present in the draft is skipped, so merging is idempotent
// per draft.
func (inj *Injector) MergeIntoDraft(d *Draft, paths []string) {
	for _, p := range paths {
		if d.seen[p] {
			continue
		}
		d.seen[p] = true
		content, err := inj.reader.ReadFileText(p)
		if err != nil {
			d.blocks = append(d.blocks, ContextBlock{Path: p, Failed: true})
			continue
		}
		d.blocks = append(d.blocks, ContextBlock{Path: p, Content: content})
	}
}
