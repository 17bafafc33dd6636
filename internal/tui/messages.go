// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/contextcraft/contextcraft-tui/internal/chat"
	"github.com/contextcraft/contextcraft-tui/internal/scan"
)

// Streaming deltas arrive on the transport goroutine, outside the Bubble Tea
// loop, so they are injected with Program.Send through this reference.
var (
	programMu  sync.RWMutex
	programRef *tea.Program
)

// SetProgram registers the running program for cross-goroutine sends.
func SetProgram(p *tea.Program) {
	programMu.Lock()
	programRef = p
	programMu.Unlock()
}

func sendMsg(msg tea.Msg) {
	programMu.RLock()
	p := programRef
	programMu.RUnlock()
	if p != nil {
		p.Send(msg)
	}
}

// streamUpdateMsg carries the accumulated live text mid-stream.
type streamUpdateMsg struct {
	visible   string
	reasoning string
}

// streamDoneMsg carries the terminal outcome of a streaming cycle.
type streamDoneMsg struct {
	result chat.Result
	err    error
}

// treeRefreshMsg delivers a re-scanned project tree after watcher activity.
type treeRefreshMsg struct {
	items []scan.Item
}

// previewMsg delivers the highlighted preview of the file under the cursor.
type previewMsg struct {
	path    string
	content string
}
