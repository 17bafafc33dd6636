// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package scan builds the selectable file tree of a project folder and reads
// file contents for context injection. Traversal skips directories and files
// that never belong in a prompt (dependency trees, VCS internals, build
// output, lock files).
package scan

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ignoredDirs are directory names skipped during traversal.
var ignoredDirs = map[string]bool{
	"node_modules": true,
	".git":         true,
	".svn":         true,
	".hg":          true,
	"dist":         true,
	"build":        true,
	"out":          true,
	"target":       true,
	"__pycache__":  true,
	"venv":         true,
	".venv":        true,
	".next":        true,
	".nuxt":        true,
	"coverage":     true,
	".idea":        true,
	".vscode":      true,
	".cache":       true,
}

// ignoredFiles are exact file names skipped during traversal.
var ignoredFiles = map[string]bool{
	".DS_Store":         true,
	"Thumbs.db":         true,
	".env":              true,
	"package-lock.json": true,
	"yarn.lock":         true,
	"pnpm-lock.yaml":    true,
	"go.sum":            true,
}

// ignoredSuffixes are file name suffixes skipped during traversal.
var ignoredSuffixes = []string{".log", ".lock"}

// Item is one node of the project tree. Paths are relative to the analyzed
// root and use forward slashes.
type Item struct {
	Path     string
	Name     string
	IsDir    bool
	Children []Item
}

// Flatten returns the subtree in depth-first order, directories before their
// children.
func (it Item) Flatten() []Item {
	out := []Item{it}
	for _, c := range it.Children {
		out = append(out, c.Flatten()...)
	}
	return out
}

// skip reports whether a directory entry should be left out of the tree.
func skip(name string, isDir bool) bool {
	if isDir {
		return ignoredDirs[name]
	}
	if ignoredFiles[name] {
		return true
	}
	for _, suffix := range ignoredSuffixes {
		if strings.HasSuffix(name, suffix) {
			return true
		}
	}
	return false
}

// Analyze builds the project tree rooted at dir. Unreadable subdirectories
// are skipped rather than failing the whole scan; only an unreadable root is
// an error. Entries are sorted directories-first, then by name.
func Analyze(dir string) ([]Item, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to analyze %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}
	return analyzeDir(dir, "")
}

func analyzeDir(absDir, relDir string) ([]Item, error) {
	entries, err := os.ReadDir(absDir)
	if err != nil {
		if relDir == "" {
			return nil, fmt.Errorf("failed to read %s: %w", absDir, err)
		}
		return nil, nil
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].IsDir() != entries[j].IsDir() {
			return entries[i].IsDir()
		}
		return entries[i].Name() < entries[j].Name()
	})

	var items []Item
	for _, e := range entries {
		name := e.Name()
		if skip(name, e.IsDir()) {
			continue
		}
		rel := name
		if relDir != "" {
			rel = relDir + "/" + name
		}
		item := Item{Path: rel, Name: name, IsDir: e.IsDir()}
		if e.IsDir() {
			children, err := analyzeDir(filepath.Join(absDir, name), rel)
			if err != nil {
				return nil, err
			}
			item.Children = children
		}
		items = append(items, item)
	}
	return items, nil
}

// Files returns the relative paths of all non-directory items in tree order.
func Files(items []Item) []string {
	var out []string
	for _, it := range items {
		if it.IsDir {
			out = append(out, Files(it.Children)...)
			continue
		}
		out = append(out, it.Path)
	}
	return out
}
