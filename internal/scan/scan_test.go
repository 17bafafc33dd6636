// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package scan

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir failed: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write failed: %v", err)
	}
}

func TestAnalyzeSkipsIgnoredEntries(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "main.go"), "package main")
	writeFile(t, filepath.Join(dir, "src", "app.ts"), "export {}")
	writeFile(t, filepath.Join(dir, "node_modules", "lib", "index.js"), "x")
	writeFile(t, filepath.Join(dir, ".git", "HEAD"), "ref")
	writeFile(t, filepath.Join(dir, ".env"), "SECRET=1")
	writeFile(t, filepath.Join(dir, "debug.log"), "noise")
	writeFile(t, filepath.Join(dir, "package-lock.json"), "{}")

	items, err := Analyze(dir)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	files := Files(items)
	want := []string{"src/app.ts", "main.go"}
	if len(files) != len(want) {
		t.Fatalf("files = %v, want %v", files, want)
	}
	for i := range want {
		if files[i] != want[i] {
			t.Errorf("files[%d] = %q, want %q", i, files[i], want[i])
		}
	}
}

func TestAnalyzeOrdersDirsFirst(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "zz.txt"), "z")
	writeFile(t, filepath.Join(dir, "aa", "f.txt"), "a")

	items, err := Analyze(dir)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if len(items) != 2 || !items[0].IsDir || items[0].Name != "aa" {
		t.Errorf("items = %+v, want directory aa first", items)
	}
	if items[1].Name != "zz.txt" {
		t.Errorf("items[1] = %+v", items[1])
	}
}

func TestAnalyzeMissingRoot(t *testing.T) {
	if _, err := Analyze(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Fatal("expected error for missing root")
	}
}

func TestReaderReadsRelativePath(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "sub", "a.txt"), "hello")

	got, err := NewReader(dir).ReadFileText("sub/a.txt")
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if got != "hello" {
		t.Errorf("content = %q", got)
	}
}

func TestReaderRejectsEscape(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.txt"), "x")

	_, err := NewReader(filepath.Join(dir, "sub")).ReadFileText("../a.txt")
	if !errors.Is(err, ErrOutsideRoot) {
		t.Errorf("err = %v, want ErrOutsideRoot", err)
	}
}

func TestReaderRejectsOversized(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "big.txt"), "0123456789")

	_, err := NewReader(dir).WithMaxSize(5).ReadFileText("big.txt")
	if !errors.Is(err, ErrFileTooLarge) {
		t.Errorf("err = %v, want ErrFileTooLarge", err)
	}
}

func TestReaderRejectsBinary(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "blob.bin"), []byte{0x7F, 'E', 'L', 'F', 0, 0, 1}, 0o644); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	_, err := NewReader(dir).ReadFileText("blob.bin")
	if !errors.Is(err, ErrBinaryFile) {
		t.Errorf("err = %v, want ErrBinaryFile", err)
	}
}

func TestReaderMissingFile(t *testing.T) {
	if _, err := NewReader(t.TempDir()).ReadFileText("gone.txt"); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestWatcherSignalsOnChange(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.txt"), "x")

	w, err := NewWatcher(dir, 50*time.Millisecond)
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}
	defer w.Close()
	if err := w.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	writeFile(t, filepath.Join(dir, "b.txt"), "y")

	select {
	case <-w.Changes():
	case <-time.After(5 * time.Second):
		t.Fatal("no change signal received")
	}
}

func TestWatcherIgnoresNoise(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWatcher(dir, 50*time.Millisecond)
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}
	defer w.Close()
	if err := w.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	writeFile(t, filepath.Join(dir, "debug.log"), "noise")

	select {
	case <-w.Changes():
		t.Fatal("ignored file produced a change signal")
	case <-time.After(300 * time.Millisecond):
	}
}
