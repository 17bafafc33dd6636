// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"errors"
	"strings"
	"testing"
)

type mapReader map[string]string

func (m mapReader) ReadFileText(path string) (string, error) {
	content, ok := m[path]
	if !ok {
		return "", errors.New("open " + path + ": no such file or directory")
	}
	return content, nil
}

func TestInjectorMergeOrder(t *testing.T) {
	reader := mapReader{"a.txt": "hello"}
	inj := NewInjector(reader)

	d := NewDraft("explain this")
	inj.MergeIntoDraft(d, []string{"a.txt"})

	text := d.Render()
	header := strings.Index(text, "--- File: a.txt ---")
	body := strings.Index(text, "hello")
	delim := strings.Index(text, "\n---\n")
	base := strings.Index(text, "explain this")

	for name, idx := range map[string]int{"header": header, "body": body, "delimiter": delim, "base": base} {
		if idx < 0 {
			t.Fatalf("%s missing from rendered draft:\n%s", name, text)
		}
	}
	if !(header < body && body < delim && delim < base) {
		t.Errorf("sections out of order (header=%d body=%d delim=%d base=%d):\n%s",
			header, body, delim, base, text)
	}
}

func TestInjectorReadFailureIsVisibleText(t *testing.T) {
	inj := NewInjector(mapReader{})
	d := NewDraft("what broke?")
	inj.MergeIntoDraft(d, []string{"gone.go"})

	text := d.Render()
	if !strings.Contains(text, "--- Failed to read file: gone.go ---") {
		t.Errorf("missing failure block:\n%s", text)
	}
	if !strings.Contains(text, "what broke?") {
		t.Errorf("base content lost:\n%s", text)
	}
}

func TestInjectorDedupWithinDraft(t *testing.T) {
	reader := mapReader{"a.txt": "A", "b.txt": "B"}
	inj := NewInjector(reader)

	d := NewDraft("q")
	inj.MergeIntoDraft(d, []string{"a.txt", "b.txt"})
	inj.MergeIntoDraft(d, []string{"a.txt"})

	if n := len(d.Blocks()); n != 2 {
		t.Fatalf("blocks = %d, want 2", n)
	}
	if c := strings.Count(d.Render(), "--- File: a.txt ---"); c != 1 {
		t.Errorf("a.txt appears %d times, want 1", c)
	}
}

func TestInjectorPreservesSelectionOrder(t *testing.T) {
	reader := mapReader{"z.go": "zz", "a.go": "aa"}
	inj := NewInjector(reader)

	d := NewDraft("q")
	inj.MergeIntoDraft(d, []string{"z.go", "a.go"})

	text := d.Render()
	if strings.Index(text, "z.go") > strings.Index(text, "a.go") {
		t.Errorf("selection order not preserved:\n%s", text)
	}
}

func TestDraftWithoutBlocksRendersBaseOnly(t *testing.T) {
	d := NewDraft("just a question")
	if got := d.Render(); got != "just a question" {
		t.Errorf("Render = %q, want base content only", got)
	}
}

func TestDraftFreeze(t *testing.T) {
	d := NewDraft("hi")
	turn := d.Freeze()
	if turn.Role != RoleUser {
		t.Errorf("role = %s, want user", turn.Role)
	}
	if turn.Content != "hi" || turn.ID == "" {
		t.Errorf("turn = %+v", turn)
	}
}
