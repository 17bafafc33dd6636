// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package tui is the terminal front end: a project file picker feeding the
// streaming chat view. It owns no conversation logic; everything durable
// happens in the chat core it drives.
package tui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme holds the styles for both views. The palette is picked from the
// terminal background unless the config forces dark or light.
type Theme struct {
	IsDark bool

	Header    lipgloss.Style
	StatusBar lipgloss.Style
	Help      lipgloss.Style
	Error     lipgloss.Style

	// Picker
	Cursor     lipgloss.Style
	Selected   lipgloss.Style
	Dir        lipgloss.Style
	File       lipgloss.Style
	PreviewBox lipgloss.Style

	// Chat
	UserLabel      lipgloss.Style
	AssistantLabel lipgloss.Style
	Thinking       lipgloss.Style
	Streaming      lipgloss.Style
}

// NewTheme builds a theme. mode is "auto", "dark", or "light".
func NewTheme(mode string) Theme {
	dark := true
	switch mode {
	case "light":
		dark = false
	case "dark":
		dark = true
	default:
		dark = termenv.HasDarkBackground()
	}

	accent := lipgloss.Color("205")
	muted := lipgloss.Color("243")
	good := lipgloss.Color("42")
	bad := lipgloss.Color("196")
	text := lipgloss.Color("252")
	if !dark {
		accent = lipgloss.Color("161")
		muted = lipgloss.Color("245")
		good = lipgloss.Color("28")
		bad = lipgloss.Color("124")
		text = lipgloss.Color("235")
	}

	return Theme{
		IsDark: dark,

		Header:    lipgloss.NewStyle().Bold(true).Foreground(accent).Padding(0, 1),
		StatusBar: lipgloss.NewStyle().Foreground(muted).Padding(0, 1),
		Help:      lipgloss.NewStyle().Foreground(muted),
		Error:     lipgloss.NewStyle().Foreground(bad).Bold(true),

		Cursor:   lipgloss.NewStyle().Foreground(accent).Bold(true),
		Selected: lipgloss.NewStyle().Foreground(good),
		Dir:      lipgloss.NewStyle().Bold(true).Foreground(text),
		File:     lipgloss.NewStyle().Foreground(text),
		PreviewBox: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(muted).
			Padding(0, 1),

		UserLabel:      lipgloss.NewStyle().Bold(true).Foreground(accent),
		AssistantLabel: lipgloss.NewStyle().Bold(true).Foreground(good),
		Thinking:       lipgloss.NewStyle().Foreground(muted).Italic(true),
		Streaming:      lipgloss.NewStyle().Foreground(text),
	}
}
