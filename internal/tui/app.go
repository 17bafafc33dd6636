// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tui

import (
	"context"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/contextcraft/contextcraft-tui/internal/chat"
	"github.com/contextcraft/contextcraft-tui/internal/config"
	"github.com/contextcraft/contextcraft-tui/internal/scan"
)

type view int

const (
	viewPicker view = iota
	viewChat
)

// Options wires the application model to its collaborators.
type Options struct {
	ProjectRoot  string
	ProjectName  string
	Items        []scan.Item
	Endpoint     config.Endpoint
	Model        string
	Theme        string
	ShowThinking bool

	Transport   chat.Transport
	Credentials chat.CredentialSource
	Reader      *scan.Reader
	Watcher     *scan.Watcher
}

// App is the root Bubble Tea model.
type App struct {
	theme  Theme
	view   view
	width  int
	height int

	projectRoot string
	projectName string
	endpoint    config.Endpoint
	model       string

	transcript *chat.Transcript
	guard      *chat.Guard
	injector   *chat.Injector
	reader     *scan.Reader
	watcher    *scan.Watcher

	picker     picker
	chatUI     chatView
	lastResult chat.Result
}

// NewApp builds the application model. The transcript starts with a system
// turn so the model knows its job before the first user message.
func NewApp(opts Options) *App {
	theme := NewTheme(opts.Theme)

	transcript := chat.NewTranscript()
	_, _ = transcript.Append(chat.RoleSystem,
		"You are a helpful assistant. Answer questions about the project files the user shares with you.")

	return &App{
		theme:       theme,
		view:        viewPicker,
		projectRoot: opts.ProjectRoot,
		projectName: opts.ProjectName,
		endpoint:    opts.Endpoint,
		model:       opts.Model,
		transcript:  transcript,
		guard:       chat.NewGuard(transcript, opts.Transport, opts.Credentials),
		injector:    chat.NewInjector(opts.Reader),
		reader:      opts.Reader,
		watcher:     opts.Watcher,
		picker:      newPicker(theme, opts.Items),
		chatUI:      newChatView(theme, opts.ShowThinking),
	}
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	cmds := []tea.Cmd{a.chatUI.spin.Tick}
	if cmd := a.waitForChange(); cmd != nil {
		cmds = append(cmds, cmd)
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.picker.setSize(msg.Width, msg.Height)
		a.chatUI.setSize(msg.Width, msg.Height)
		a.refreshChat()
		return a, nil

	case tea.KeyMsg:
		return a.handleKey(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.chatUI.spin, cmd = a.chatUI.spin.Update(msg)
		if a.chatUI.requesting {
			a.refreshChat()
		}
		return a, cmd

	case streamUpdateMsg:
		a.chatUI.applyUpdate(msg.visible, msg.reasoning)
		a.refreshChat()
		return a, nil

	case streamDoneMsg:
		errText := ""
		if msg.err != nil {
			errText = msg.err.Error()
		}
		a.lastResult = msg.result
		a.chatUI.endCycle(errText)
		a.refreshChat()
		return a, nil

	case treeRefreshMsg:
		if msg.items != nil {
			a.picker.setItems(msg.items)
		}
		return a, a.waitForChange()

	case previewMsg:
		a.picker.setPreview(msg.path, msg.content)
		return a, nil
	}

	return a, nil
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		if a.chatUI.busy() {
			go a.guard.CancelActive()
		}
		return a, tea.Quit
	}

	if a.view == viewPicker {
		return a.handlePickerKey(msg)
	}
	return a.handleChatKey(msg)
}

func (a *App) handlePickerKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		a.picker.moveCursor(-1)
		return a, a.loadPreview()
	case "down", "j":
		a.picker.moveCursor(1)
		return a, a.loadPreview()
	case "pgup":
		a.picker.moveCursor(-a.picker.listHeight())
		return a, a.loadPreview()
	case "pgdown":
		a.picker.moveCursor(a.picker.listHeight())
		return a, a.loadPreview()
	case " ":
		a.picker.toggle()
		return a, nil
	case "enter":
		a.view = viewChat
		a.chatUI.input.Focus()
		a.refreshChat()
		return a, nil
	case "q":
		return a, tea.Quit
	}
	return a, nil
}

func (a *App) handleChatKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		return a, a.sendDraft()
	case tea.KeyEsc:
		if a.chatUI.busy() {
			go a.guard.CancelActive()
			return a, nil
		}
	case tea.KeyTab:
		a.chatUI.showThinking = !a.chatUI.showThinking
		a.refreshChat()
		return a, nil
	case tea.KeyCtrlF:
		a.view = viewPicker
		return a, a.loadPreview()
	case tea.KeyPgUp, tea.KeyPgDown:
		var cmd tea.Cmd
		a.chatUI.viewport, cmd = a.chatUI.viewport.Update(msg)
		return a, cmd
	}

	var cmd tea.Cmd
	a.chatUI.input, cmd = a.chatUI.input.Update(msg)
	return a, cmd
}

// sendDraft freezes the current input plus selected files into a user turn
// and starts a streaming cycle. The session runs on its own goroutine and
// reports back through Program.Send.
func (a *App) sendDraft() tea.Cmd {
	text := a.chatUI.input.Value()
	if text == "" || a.chatUI.busy() {
		return nil
	}

	draft := chat.NewDraft(text)
	a.injector.MergeIntoDraft(draft, a.picker.selectedPaths())

	session, err := a.guard.Start(draft, chat.StartOptions{
		EndpointID: a.endpoint.ID,
		Model:      a.model,
		OnUpdate: func(visible, reasoning string) {
			sendMsg(streamUpdateMsg{visible: visible, reasoning: reasoning})
		},
	})
	if err != nil {
		a.chatUI.errText = err.Error()
		a.refreshChat()
		return nil
	}

	a.chatUI.input.Reset()
	a.chatUI.beginCycle()
	a.refreshChat()

	go func() {
		result, runErr := session.Run(context.Background())
		sendMsg(streamDoneMsg{result: result, err: runErr})
	}()
	return nil
}

func (a *App) refreshChat() {
	a.chatUI.refresh(a.transcript.Snapshot(), a.lastResult)
}

// loadPreview reads and highlights the file under the picker cursor.
func (a *App) loadPreview() tea.Cmd {
	row, ok := a.picker.current()
	if !ok || row.item.IsDir || row.item.Path == a.picker.previewPath {
		return nil
	}
	path := row.item.Path
	dark := a.theme.IsDark
	reader := a.reader
	return func() tea.Msg {
		content, err := reader.ReadFileText(path)
		if err != nil {
			return previewMsg{path: path, content: "(" + err.Error() + ")"}
		}
		return previewMsg{path: path, content: highlightPreview(path, content, dark)}
	}
}

// waitForChange blocks on the next watcher signal and re-scans the tree.
func (a *App) waitForChange() tea.Cmd {
	if a.watcher == nil {
		return nil
	}
	watcher := a.watcher
	root := a.projectRoot
	return func() tea.Msg {
		<-watcher.Changes()
		items, err := scan.Analyze(root)
		if err != nil {
			return treeRefreshMsg{}
		}
		return treeRefreshMsg{items: items}
	}
}

// View implements tea.Model.
func (a *App) View() string {
	if a.width == 0 {
		return "loading..."
	}
	if a.view == viewPicker {
		return a.picker.view(a.projectName)
	}

	status := a.endpoint.Name + " · " + a.model + " · " + formatSelectionCount(len(a.picker.selectedPaths()))
	if a.chatUI.requesting {
		status += " · requesting"
	} else if a.chatUI.streaming {
		status += " · streaming"
	}
	return a.chatUI.view(status)
}
