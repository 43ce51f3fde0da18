package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// gramatron.toml lets a project pin its grammar and limits so that
// `gramatron compile` works without arguments from anywhere inside
// the project tree. Flags always win over the manifest.

type projectManifest struct {
	Path   string
	Root   string
	Config manifestConfig
}

type manifestConfig struct {
	Grammar grammarConfig `toml:"grammar"`
	Limits  limitsConfig  `toml:"limits"`
	Output  outputConfig  `toml:"output"`
}

type grammarConfig struct {
	Path  string `toml:"path"`
	Start string `toml:"start"`
}

type limitsConfig struct {
	StackLimit int `toml:"stack_limit"`
	MaxStates  int `toml:"max_states"`
}

type outputConfig struct {
	Path string `toml:"path"`
}

func findManifest(startDir string) (string, bool, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, "gramatron.toml")
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

func loadManifest(startDir string) (*projectManifest, bool, error) {
	path, ok, err := findManifest(startDir)
	if err != nil || !ok {
		return nil, ok, err
	}
	cfg, err := loadManifestConfig(path)
	if err != nil {
		return nil, true, err
	}
	return &projectManifest{
		Path:   path,
		Root:   filepath.Dir(path),
		Config: cfg,
	}, true, nil
}

func loadManifestConfig(path string) (manifestConfig, error) {
	var cfg manifestConfig
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return manifestConfig{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if !meta.IsDefined("grammar") {
		return manifestConfig{}, fmt.Errorf("%s: missing [grammar]", path)
	}
	if !meta.IsDefined("grammar", "path") || strings.TrimSpace(cfg.Grammar.Path) == "" {
		return manifestConfig{}, fmt.Errorf("%s: missing [grammar].path", path)
	}
	return cfg, nil
}

// grammarPath resolves the manifest's grammar path against its root.
func (m *projectManifest) grammarPath() string {
	return filepath.Join(m.Root, filepath.FromSlash(m.Config.Grammar.Path))
}

// outputPath resolves the manifest's output path, empty if unset.
func (m *projectManifest) outputPath() string {
	if m.Config.Output.Path == "" {
		return ""
	}
	return filepath.Join(m.Root, filepath.FromSlash(m.Config.Output.Path))
}
