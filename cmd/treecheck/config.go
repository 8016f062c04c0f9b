package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"treecheck/internal/grammar"
)

// treecheck.toml даёт проекту дефолты фаззинга и настройку алфавитов
// отдельных языков. Всё опционально; флаги командной строки сильнее.

type manifest struct {
	Path   string
	Root   string
	Config manifestConfig
}

type manifestConfig struct {
	Fuzz      fuzzConfig                `toml:"fuzz"`
	Languages map[string]languageConfig `toml:"languages"`
}

type fuzzConfig struct {
	Seeds     int    `toml:"seeds"`
	Edits     int    `toml:"edits"`
	TimeoutMS int64  `toml:"timeout_ms"`
	Alphabet  string `toml:"alphabet"`
}

type languageConfig struct {
	Alphabet []string `toml:"alphabet"`
}

func (c fuzzConfig) timeout() time.Duration {
	if c.TimeoutMS <= 0 {
		return 0
	}
	return time.Duration(c.TimeoutMS) * time.Millisecond
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
		candidate := filepath.Join(dir, "treecheck.toml")
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

func loadManifest(startDir string) (*manifest, bool, error) {
	path, ok, err := findManifest(startDir)
	if err != nil || !ok {
		return nil, ok, err
	}
	cfg, err := loadManifestConfig(path)
	if err != nil {
		return nil, true, err
	}
	return &manifest{
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
	if len(meta.Undecoded()) > 0 {
		return manifestConfig{}, fmt.Errorf("%s: unknown key %q", path, meta.Undecoded()[0].String())
	}
	if cfg.Fuzz.Seeds < 0 {
		return manifestConfig{}, fmt.Errorf("%s: [fuzz].seeds must not be negative", path)
	}
	if cfg.Fuzz.Edits < 0 {
		return manifestConfig{}, fmt.Errorf("%s: [fuzz].edits must not be negative", path)
	}
	switch strings.TrimSpace(cfg.Fuzz.Alphabet) {
	case "", "grammar", "ident", "raw":
	default:
		return manifestConfig{}, fmt.Errorf("%s: [fuzz].alphabet must be grammar, ident or raw", path)
	}
	return cfg, nil
}

// newRegistry builds the language registry with manifest alphabet
// overrides applied on top of the built-in grammars.
func newRegistry(m *manifest) (*grammar.Registry, error) {
	reg := grammar.NewRegistry()
	if m == nil {
		return reg, nil
	}
	for name, lc := range m.Config.Languages {
		if len(lc.Alphabet) == 0 {
			continue
		}
		lang, err := reg.Lookup(name)
		if err != nil {
			return nil, fmt.Errorf("%s: [languages.%s]: %w", m.Path, name, err)
		}
		reg.Register(grammar.Override(lang, lc.Alphabet))
	}
	return reg, nil
}
