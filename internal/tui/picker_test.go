// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tui

import (
	"testing"

	"github.com/contextcraft/contextcraft-tui/internal/scan"
)

func testTree() []scan.Item {
	return []scan.Item{
		{
			Path: "src", Name: "src", IsDir: true,
			Children: []scan.Item{
				{Path: "src/a.go", Name: "a.go"},
				{Path: "src/b.go", Name: "b.go"},
			},
		},
		{Path: "main.go", Name: "main.go"},
	}
}

func TestFlattenTreeOrder(t *testing.T) {
	p := newPicker(NewTheme("dark"), testTree())

	want := []string{"src", "src/a.go", "src/b.go", "main.go"}
	if len(p.rows) != len(want) {
		t.Fatalf("rows = %d, want %d", len(p.rows), len(want))
	}
	for i, w := range want {
		if p.rows[i].item.Path != w {
			t.Errorf("rows[%d] = %q, want %q", i, p.rows[i].item.Path, w)
		}
	}
	if p.rows[1].depth != 1 {
		t.Errorf("depth of src/a.go = %d, want 1", p.rows[1].depth)
	}
}

func TestToggleFile(t *testing.T) {
	p := newPicker(NewTheme("dark"), testTree())
	p.cursor = 1 // src/a.go

	p.toggle()
	if got := p.selectedPaths(); len(got) != 1 || got[0] != "src/a.go" {
		t.Errorf("selected = %v", got)
	}
	p.toggle()
	if got := p.selectedPaths(); len(got) != 0 {
		t.Errorf("selected after untoggle = %v", got)
	}
}

func TestToggleDirSelectsSubtree(t *testing.T) {
	p := newPicker(NewTheme("dark"), testTree())
	p.cursor = 0 // src/

	p.toggle()
	got := p.selectedPaths()
	if len(got) != 2 || got[0] != "src/a.go" || got[1] != "src/b.go" {
		t.Errorf("selected = %v", got)
	}

	// Toggling a fully-selected directory clears it.
	p.toggle()
	if got := p.selectedPaths(); len(got) != 0 {
		t.Errorf("selected after clear = %v", got)
	}
}

func TestSelectedPathsFollowTreeOrder(t *testing.T) {
	p := newPicker(NewTheme("dark"), testTree())
	p.cursor = 3 // main.go
	p.toggle()
	p.cursor = 1 // src/a.go
	p.toggle()

	got := p.selectedPaths()
	if len(got) != 2 || got[0] != "src/a.go" || got[1] != "main.go" {
		t.Errorf("selected = %v, want tree order", got)
	}
}

func TestSetItemsKeepsLivingSelections(t *testing.T) {
	p := newPicker(NewTheme("dark"), testTree())
	p.cursor = 1
	p.toggle() // src/a.go
	p.cursor = 3
	p.toggle() // main.go

	p.setItems([]scan.Item{
		{
			Path: "src", Name: "src", IsDir: true,
			Children: []scan.Item{{Path: "src/a.go", Name: "a.go"}},
		},
	})

	got := p.selectedPaths()
	if len(got) != 1 || got[0] != "src/a.go" {
		t.Errorf("selected = %v, want only surviving path", got)
	}
	if p.cursor >= len(p.rows) {
		t.Errorf("cursor = %d out of range", p.cursor)
	}
}

func TestMoveCursorClamps(t *testing.T) {
	p := newPicker(NewTheme("dark"), testTree())
	p.setSize(80, 24)

	p.moveCursor(-10)
	if p.cursor != 0 {
		t.Errorf("cursor = %d, want 0", p.cursor)
	}
	p.moveCursor(100)
	if p.cursor != len(p.rows)-1 {
		t.Errorf("cursor = %d, want %d", p.cursor, len(p.rows)-1)
	}
}
