// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tui

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/contextcraft/contextcraft-tui/internal/scan"
	"github.com/contextcraft/contextcraft-tui/internal/util"
)

// pickerRow is one visible line of the file tree.
type pickerRow struct {
	item  scan.Item
	depth int
}

// picker is the file selection view: the project tree on the left, a
// highlighted preview of the file under the cursor on the right.
type picker struct {
	theme       Theme
	rows        []pickerRow
	cursor      int
	offset      int
	selected    map[string]bool
	preview     string
	previewPath string
	width       int
	height      int
}

func newPicker(theme Theme, items []scan.Item) picker {
	return picker{
		theme:    theme,
		rows:     flattenTree(items, 0),
		selected: make(map[string]bool),
	}
}

func flattenTree(items []scan.Item, depth int) []pickerRow {
	var rows []pickerRow
	for _, it := range items {
		rows = append(rows, pickerRow{item: it, depth: depth})
		if it.IsDir {
			rows = append(rows, flattenTree(it.Children, depth+1)...)
		}
	}
	return rows
}

// setItems swaps in a re-scanned tree, keeping selections for paths that
// still exist and clamping the cursor.
func (p *picker) setItems(items []scan.Item) {
	p.rows = flattenTree(items, 0)
	alive := make(map[string]bool, len(p.rows))
	for _, r := range p.rows {
		alive[r.item.Path] = true
	}
	for path := range p.selected {
		if !alive[path] {
			delete(p.selected, path)
		}
	}
	if p.cursor >= len(p.rows) {
		p.cursor = len(p.rows) - 1
	}
	if p.cursor < 0 {
		p.cursor = 0
	}
}

func (p *picker) setSize(width, height int) {
	p.width = width
	p.height = height
}

// current returns the row under the cursor.
func (p *picker) current() (pickerRow, bool) {
	if p.cursor < 0 || p.cursor >= len(p.rows) {
		return pickerRow{}, false
	}
	return p.rows[p.cursor], true
}

func (p *picker) moveCursor(delta int) {
	p.cursor += delta
	if p.cursor < 0 {
		p.cursor = 0
	}
	if p.cursor >= len(p.rows) {
		p.cursor = len(p.rows) - 1
	}
	p.scrollIntoView()
}

func (p *picker) scrollIntoView() {
	visible := p.listHeight()
	if visible <= 0 {
		return
	}
	if p.cursor < p.offset {
		p.offset = p.cursor
	}
	if p.cursor >= p.offset+visible {
		p.offset = p.cursor - visible + 1
	}
}

// listHeight is the number of tree rows that fit between header and footer.
func (p *picker) listHeight() int {
	return p.height - 4
}

// toggle flips the selection of the item under the cursor. Toggling a
// directory applies to every file beneath it.
func (p *picker) toggle() {
	row, ok := p.current()
	if !ok {
		return
	}
	if !row.item.IsDir {
		if p.selected[row.item.Path] {
			delete(p.selected, row.item.Path)
		} else {
			p.selected[row.item.Path] = true
		}
		return
	}

	files := scan.Files(row.item.Children)
	all := len(files) > 0
	for _, f := range files {
		if !p.selected[f] {
			all = false
			break
		}
	}
	for _, f := range files {
		if all {
			delete(p.selected, f)
		} else {
			p.selected[f] = true
		}
	}
}

// selectedPaths returns the selected files in tree order, which becomes the
// context injection order.
func (p *picker) selectedPaths() []string {
	var out []string
	for _, r := range p.rows {
		if !r.item.IsDir && p.selected[r.item.Path] {
			out = append(out, r.item.Path)
		}
	}
	return out
}

func (p *picker) setPreview(path, content string) {
	p.previewPath = path
	p.preview = content
}

func (p *picker) view(projectName string) string {
	var b strings.Builder
	b.WriteString(p.theme.Header.Render("contextcraft — " + projectName))
	b.WriteString("\n")

	listWidth := p.width
	showPreview := p.width >= 100
	if showPreview {
		listWidth = p.width / 2
	}

	list := p.renderList(listWidth)
	if showPreview {
		preview := p.renderPreview(p.width - listWidth - 4)
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, list, preview))
	} else {
		b.WriteString(list)
	}
	b.WriteString("\n")

	count := len(p.selectedPaths())
	status := p.theme.StatusBar.Render(
		util.TruncateWidth(formatSelectionCount(count), p.width-2))
	help := p.theme.Help.Render("  ↑/↓ move · space select · enter chat · q quit")
	b.WriteString(status + "\n" + help)
	return b.String()
}

func (p *picker) renderList(width int) string {
	visible := p.listHeight()
	if visible < 1 {
		visible = 1
	}

	var lines []string
	end := p.offset + visible
	if end > len(p.rows) {
		end = len(p.rows)
	}
	for i := p.offset; i < end; i++ {
		row := p.rows[i]
		indent := strings.Repeat("  ", row.depth)

		marker := "[ ]"
		style := p.theme.File
		if row.item.IsDir {
			marker = "   "
			style = p.theme.Dir
		} else if p.selected[row.item.Path] {
			marker = "[x]"
			style = p.theme.Selected
		}

		name := row.item.Name
		if row.item.IsDir {
			name += "/"
		}
		line := indent + marker + " " + name
		line = util.TruncateWidth(line, width-2)

		if i == p.cursor {
			line = p.theme.Cursor.Render("> " + line)
		} else {
			line = "  " + style.Render(line)
		}
		lines = append(lines, line)
	}
	if len(lines) == 0 {
		lines = append(lines, p.theme.Help.Render("  (no selectable files)"))
	}
	for len(lines) < visible {
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}

func (p *picker) renderPreview(width int) string {
	if p.preview == "" {
		return ""
	}
	box := p.theme.PreviewBox.Width(width).MaxHeight(p.listHeight())
	title := p.theme.Help.Render(util.TruncateWidth(p.previewPath, width-2))
	return box.Render(title + "\n" + p.preview)
}

func formatSelectionCount(n int) string {
	switch n {
	case 0:
		return "no files selected"
	case 1:
		return "1 file selected"
	default:
		return strconv.Itoa(n) + " files selected"
	}
}
