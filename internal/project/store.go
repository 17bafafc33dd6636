// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package project persists the history of opened project folders so the
// picker can offer recent projects on startup.
package project

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// ErrNotFound indicates no project record matches the query.
var ErrNotFound = errors.New("project not found")

const schema = `
CREATE TABLE IF NOT EXISTS projects (
	id             TEXT PRIMARY KEY,
	path           TEXT NOT NULL UNIQUE,
	name           TEXT NOT NULL,
	created_at     INTEGER NOT NULL,
	last_opened_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_projects_last_opened ON projects(last_opened_at DESC);
`

// Project is one remembered project folder.
type Project struct {
	ID         string
	Path       string
	Name       string
	CreatedAt  time.Time
	LastOpened time.Time
}

// Store is the SQLite-backed project history.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the history database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite allows one writer; a single pooled connection avoids lock
	// contention entirely at this scale.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Add records that the project at path was opened. Re-adding a known path
// refreshes its last-opened time and returns the existing record, so the ID
// is stable across reopens.
func (s *Store) Add(ctx context.Context, path string) (Project, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return Project{}, fmt.Errorf("failed to resolve path: %w", err)
	}
	now := time.Now()

	existing, err := s.byPath(ctx, abs)
	if err == nil {
		if _, err := s.db.ExecContext(ctx,
			"UPDATE projects SET last_opened_at = ? WHERE id = ?",
			now.UnixMilli(), existing.ID); err != nil {
			return Project{}, fmt.Errorf("failed to update project: %w", err)
		}
		existing.LastOpened = now
		return existing, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return Project{}, err
	}

	p := Project{
		ID:         uuid.NewString(),
		Path:       abs,
		Name:       filepath.Base(abs),
		CreatedAt:  now,
		LastOpened: now,
	}
	if _, err := s.db.ExecContext(ctx,
		"INSERT INTO projects (id, path, name, created_at, last_opened_at) VALUES (?, ?, ?, ?, ?)",
		p.ID, p.Path, p.Name, p.CreatedAt.UnixMilli(), p.LastOpened.UnixMilli()); err != nil {
		return Project{}, fmt.Errorf("failed to insert project: %w", err)
	}
	return p, nil
}

func (s *Store) byPath(ctx context.Context, path string) (Project, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, path, name, created_at, last_opened_at FROM projects WHERE path = ?", path)
	return scanProject(row)
}

// List returns all remembered projects, most recently opened first.
func (s *Store) List(ctx context.Context) ([]Project, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, path, name, created_at, last_opened_at FROM projects ORDER BY last_opened_at DESC")
	if err != nil {
		return nil, fmt.Errorf("failed to query projects: %w", err)
	}
	defer rows.Close()

	var out []Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Remove deletes a project record by ID.
func (s *Store) Remove(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM projects WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProject(row rowScanner) (Project, error) {
	var p Project
	var created, opened int64
	err := row.Scan(&p.ID, &p.Path, &p.Name, &created, &opened)
	if errors.Is(err, sql.ErrNoRows) {
		return Project{}, ErrNotFound
	}
	if err != nil {
		return Project{}, fmt.Errorf("failed to scan project: %w", err)
	}
	p.CreatedAt = time.UnixMilli(created)
	p.LastOpened = time.UnixMilli(opened)
	return p, nil
}
