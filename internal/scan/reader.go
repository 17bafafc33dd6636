// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package scan

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

const (
	// DefaultMaxFileSize caps how much of a file is pulled into a prompt.
	DefaultMaxFileSize = 1 << 20 // 1MB

	// binarySniffLen is how many leading bytes are inspected for binary
	// content.
	binarySniffLen = 8000
)

var (
	// ErrBinaryFile indicates the file looks like binary data.
	ErrBinaryFile = errors.New("binary file")

	// ErrFileTooLarge indicates the file exceeds the size cap.
	ErrFileTooLarge = errors.New("file too large")

	// ErrOutsideRoot indicates a path escaping the project root.
	ErrOutsideRoot = errors.New("path outside project root")
)

// Reader reads project file contents for context injection. Paths are
// resolved relative to the project root and must stay inside it. Reader
// satisfies the draft injector's file-read interface: failures come back as
// error values, never panics.
type Reader struct {
	root    string
	maxSize int64
}

// NewReader creates a reader rooted at the project directory.
func NewReader(root string) *Reader {
	return &Reader{root: root, maxSize: DefaultMaxFileSize}
}

// WithMaxSize overrides the file size cap.
func (r *Reader) WithMaxSize(n int64) *Reader {
	r.maxSize = n
	return r
}

// ReadFileText returns the file's content as text. Oversized files, binary
// files, and paths resolving outside the project root are errors.
func (r *Reader) ReadFileText(path string) (string, error) {
	abs := filepath.Join(r.root, filepath.FromSlash(path))
	abs = filepath.Clean(abs)

	rel, err := filepath.Rel(r.root, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, path)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return "", err
	}
	if info.IsDir() {
		return "", fmt.Errorf("%s is a directory", path)
	}
	if info.Size() > r.maxSize {
		return "", fmt.Errorf("%w: %s (%d bytes)", ErrFileTooLarge, path, info.Size())
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return "", err
	}
	if isBinary(data) {
		return "", fmt.Errorf("%w: %s", ErrBinaryFile, path)
	}
	return string(data), nil
}

// isBinary sniffs the leading bytes for NUL characters or invalid UTF-8.
func isBinary(data []byte) bool {
	sniff := data
	if len(sniff) > binarySniffLen {
		sniff = sniff[:binarySniffLen]
	}
	if bytes.IndexByte(sniff, 0) >= 0 {
		return true
	}
	// A truncated multi-byte rune at the sniff boundary is fine; count
	// actual decode failures only.
	invalid := 0
	for len(sniff) > 0 {
		r, size := utf8.DecodeRune(sniff)
		if r == utf8.RuneError && size == 1 {
			invalid++
		}
		sniff = sniff[size:]
	}
	return invalid > 16
}
