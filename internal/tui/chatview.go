// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/glamour"

	"github.com/contextcraft/contextcraft-tui/internal/chat"
	"github.com/contextcraft/contextcraft-tui/internal/util"
)

// chatView renders the transcript with the live streaming buffers and hosts
// the input box. Finalized assistant turns go through glamour; the live
// buffer stays plain text until the turn completes so re-rendering is cheap.
type chatView struct {
	theme    Theme
	viewport viewport.Model
	input    textarea.Model
	spin     spinner.Model
	renderer *glamour.TermRenderer

	showThinking bool
	width        int
	height       int

	requesting    bool
	streaming     bool
	liveVisible   string
	liveReasoning string
	errText       string
}

func newChatView(theme Theme, showThinking bool) chatView {
	ta := textarea.New()
	ta.Placeholder = "Ask about the selected files..."
	ta.Prompt = "> "
	ta.SetHeight(3)
	ta.ShowLineNumbers = false
	ta.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return chatView{
		theme:        theme,
		viewport:     viewport.New(0, 0),
		input:        ta,
		spin:         sp,
		showThinking: showThinking,
	}
}

func (c *chatView) setSize(width, height int) {
	c.width = width
	c.height = height

	inputHeight := c.input.Height() + 1
	c.viewport.Width = width
	c.viewport.Height = height - inputHeight - 3
	c.input.SetWidth(width - 2)

	wrap := width - 2
	if wrap > 100 {
		wrap = 100
	}
	style := "dark"
	if !c.theme.IsDark {
		style = "light"
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(wrap),
	)
	if err == nil {
		c.renderer = renderer
	}
}

// busy reports whether a cycle is in flight.
func (c *chatView) busy() bool {
	return c.requesting || c.streaming
}

func (c *chatView) beginCycle() {
	c.requesting = true
	c.streaming = false
	c.liveVisible = ""
	c.liveReasoning = ""
	c.errText = ""
}

func (c *chatView) applyUpdate(visible, reasoning string) {
	c.requesting = false
	c.streaming = true
	c.liveVisible = visible
	c.liveReasoning = reasoning
}

func (c *chatView) endCycle(errText string) {
	c.requesting = false
	c.streaming = false
	c.liveVisible = ""
	c.liveReasoning = ""
	c.errText = errText
}

// renderMarkdown renders assistant content, falling back to plain text.
func (c *chatView) renderMarkdown(content string) string {
	if c.renderer == nil {
		return content
	}
	out, err := c.renderer.Render(content)
	if err != nil {
		return content
	}
	return strings.TrimRight(out, "\n") + "\n"
}

// refresh rebuilds the viewport content from the transcript and live state.
func (c *chatView) refresh(turns []chat.Turn, result chat.Result) {
	var b strings.Builder

	for _, turn := range turns {
		switch turn.Role {
		case chat.RoleUser:
			b.WriteString(c.theme.UserLabel.Render("You"))
			b.WriteString("\n")
			b.WriteString(turn.Content)
			b.WriteString("\n\n")
		case chat.RoleAssistant:
			b.WriteString(c.theme.AssistantLabel.Render("Assistant"))
			b.WriteString("\n")
			b.WriteString(c.renderMarkdown(turn.Content))
			b.WriteString("\n")
		case chat.RoleSystem:
			// System turns steer the model; they are not part of the
			// visible conversation.
		}
	}

	if c.busy() {
		b.WriteString(c.theme.AssistantLabel.Render("Assistant"))
		b.WriteString("\n")
		if c.showThinking && c.liveReasoning != "" {
			b.WriteString(c.theme.Thinking.Render("thinking: " + c.liveReasoning))
			b.WriteString("\n")
		}
		if c.liveVisible != "" {
			b.WriteString(c.theme.Streaming.Render(c.liveVisible))
			b.WriteString("\n")
		} else if c.requesting {
			b.WriteString(c.theme.Thinking.Render(c.spin.View() + " waiting for response"))
			b.WriteString("\n")
		}
	} else if result.State == chat.StateCancelled {
		b.WriteString(c.theme.Thinking.Render("(cancelled)"))
		b.WriteString("\n")
	}

	if c.errText != "" {
		b.WriteString(c.theme.Error.Render("error: " + c.errText))
		b.WriteString("\n")
	}

	atBottom := c.viewport.AtBottom()
	c.viewport.SetContent(b.String())
	if atBottom || c.busy() {
		c.viewport.GotoBottom()
	}
}

func (c *chatView) view(statusLeft string) string {
	var b strings.Builder
	b.WriteString(c.theme.Header.Render("contextcraft"))
	b.WriteString("\n")
	b.WriteString(c.viewport.View())
	b.WriteString("\n")
	b.WriteString(c.input.View())
	b.WriteString("\n")

	status := util.TruncateWidth(statusLeft, c.width-2)
	help := "enter send · esc cancel · tab thinking · ctrl+f files · ctrl+c quit"
	b.WriteString(c.theme.StatusBar.Render(status))
	b.WriteString("\n")
	b.WriteString(c.theme.Help.Render(help))
	return b.String()
}
