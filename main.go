// contextcraft TUI - Chat with an OpenAI-compatible model about a local project.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/contextcraft/contextcraft-tui/internal/config"
	"github.com/contextcraft/contextcraft-tui/internal/llm"
	"github.com/contextcraft/contextcraft-tui/internal/project"
	"github.com/contextcraft/contextcraft-tui/internal/scan"
	"github.com/contextcraft/contextcraft-tui/internal/secrets"
	"github.com/contextcraft/contextcraft-tui/internal/tui"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
)

const usage = `contextcraft - chat with a model about a local project

Usage:
  contextcraft [flags] [project-dir]     launch the TUI (default dir ".")
  contextcraft key set [endpoint-id]     store an API key (prompts, no echo)
  contextcraft key delete [endpoint-id]  remove a stored API key
  contextcraft key list                  list endpoints with stored keys
  contextcraft models [endpoint-id]      fetch and save the endpoint's model list
  contextcraft projects                  list remembered projects

Flags:
  -endpoint ID   endpoint to use (overrides config default)
  -model NAME    model to use (overrides endpoint default)
  -version       print version and exit
`

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run() error {
	endpointFlag := flag.String("endpoint", "", "endpoint ID to use")
	modelFlag := flag.String("model", "", "model to use")
	versionFlag := flag.Bool("version", false, "print version and exit")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	if *versionFlag {
		fmt.Printf("contextcraft %s (%s)\n", Version, GitCommit)
		return nil
	}

	cfgDir, err := config.Dir()
	if err != nil {
		return err
	}
	cfgPath, err := config.Path()
	if err != nil {
		return err
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	if *endpointFlag != "" {
		if _, err := cfg.EndpointByID(*endpointFlag); err != nil {
			return err
		}
		cfg.DefaultEndpoint = *endpointFlag
	}

	store, err := secrets.NewFileStore(cfgDir)
	if err != nil {
		return err
	}

	args := flag.Args()
	if len(args) > 0 {
		switch args[0] {
		case "key":
			return runKeyCommand(store, cfg, args[1:])
		case "models":
			return runModelsCommand(cfg, cfgPath, store, args[1:])
		case "projects":
			return runProjectsCommand(cfgDir)
		}
	}

	projectDir := "."
	if len(args) > 0 {
		projectDir = args[0]
	}
	return runTUI(cfg, cfgDir, store, projectDir, *modelFlag)
}

func resolveEndpoint(cfg *config.Config, args []string) (*config.Endpoint, error) {
	if len(args) > 0 {
		return cfg.EndpointByID(args[0])
	}
	return cfg.DefaultEndpointConfig()
}

func runKeyCommand(store secrets.Store, cfg *config.Config, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: contextcraft key set|delete|list [endpoint-id]")
	}

	switch args[0] {
	case "set":
		ep, err := resolveEndpoint(cfg, args[1:])
		if err != nil {
			return err
		}
		key, err := promptSecret(fmt.Sprintf("API key for %s: ", ep.Name))
		if err != nil {
			return err
		}
		if err := store.Set(ep.ID, key); err != nil {
			return err
		}
		fmt.Printf("stored key for %s\n", ep.ID)
		return nil

	case "delete":
		ep, err := resolveEndpoint(cfg, args[1:])
		if err != nil {
			return err
		}
		if err := store.Delete(ep.ID); err != nil {
			return err
		}
		fmt.Printf("deleted key for %s\n", ep.ID)
		return nil

	case "list":
		ids, err := store.IDs()
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			fmt.Println("no keys stored")
			return nil
		}
		for _, id := range ids {
			fmt.Println(id)
		}
		return nil
	}
	return fmt.Errorf("unknown key command %q", args[0])
}

// promptSecret reads a line without echo when stdin is a terminal, falling
// back to a plain read otherwise (pipes, scripts).
func promptSecret(prompt string) (string, error) {
	fmt.Print(prompt)
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		raw, err := term.ReadPassword(fd)
		fmt.Println()
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(raw)), nil
	}
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// runModelsCommand queries the endpoint's /models route, prints the result,
// and saves the list into the endpoint config.
func runModelsCommand(cfg *config.Config, cfgPath string, store secrets.Store, args []string) error {
	ep, err := resolveEndpoint(cfg, args)
	if err != nil {
		return err
	}
	key, err := store.APIKey(ep.ID)
	if err != nil {
		return fmt.Errorf("no API key for %s (run: contextcraft key set %s): %w", ep.ID, ep.ID, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	models, err := llm.NewClient(ep.BaseURL).ListModels(ctx, key)
	if err != nil {
		return err
	}
	for _, m := range models {
		fmt.Println(m)
	}

	ep.Models = models
	if ep.DefaultModel == "" && len(models) > 0 {
		ep.DefaultModel = models[0]
	}
	if err := cfg.UpdateEndpoint(*ep); err != nil {
		return err
	}
	return config.Save(cfg, cfgPath)
}

func runProjectsCommand(cfgDir string) error {
	history, err := project.Open(filepath.Join(cfgDir, "projects.db"))
	if err != nil {
		return err
	}
	defer history.Close()

	list, err := history.List(context.Background())
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Println("no projects yet")
		return nil
	}
	for _, p := range list {
		fmt.Printf("%s\t%s\n", p.Name, p.Path)
	}
	return nil
}

func runTUI(cfg *config.Config, cfgDir string, store secrets.Store, projectDir, modelChoice string) error {
	ep, err := cfg.DefaultEndpointConfig()
	if err != nil {
		return err
	}
	model := ep.ModelFor(modelChoice)
	if model == "" {
		return fmt.Errorf("endpoint %s has no model configured (run: contextcraft models %s)", ep.ID, ep.ID)
	}

	root, err := filepath.Abs(projectDir)
	if err != nil {
		return err
	}
	items, err := scan.Analyze(root)
	if err != nil {
		return err
	}

	// Remember the project, but never block the launch on history.
	if history, err := project.Open(filepath.Join(cfgDir, "projects.db")); err == nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if _, err := history.Add(ctx, root); err != nil {
			fmt.Fprintln(os.Stderr, "warning: failed to record project:", err)
		}
		cancel()
		history.Close()
	}

	reader := scan.NewReader(root)
	if cfg.Scan.MaxFileSize > 0 {
		reader = reader.WithMaxSize(cfg.Scan.MaxFileSize)
	}

	watcher, err := scan.NewWatcher(root, 500*time.Millisecond)
	if err != nil {
		fmt.Fprintln(os.Stderr, "warning: file watching disabled:", err)
		watcher = nil
	} else if err := watcher.Start(); err != nil {
		watcher.Close()
		watcher = nil
	}
	if watcher != nil {
		defer watcher.Close()
	}

	app := tui.NewApp(tui.Options{
		ProjectRoot:  root,
		ProjectName:  filepath.Base(root),
		Items:        items,
		Endpoint:     *ep,
		Model:        model,
		Theme:        cfg.UI.Theme,
		ShowThinking: cfg.UI.ShowThinking,
		Transport:    llm.NewClient(ep.BaseURL),
		Credentials:  store,
		Reader:       reader,
		Watcher:      watcher,
	})

	program := tea.NewProgram(app, tea.WithAltScreen())
	tui.SetProgram(program)
	_, err = program.Run()
	return err
}
