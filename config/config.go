// Copyright (c) 2024 The BitFS developers
// Use of this source code is governed by the Open BSV License v5
// that can be found in the LICENSE file.

// Package config loads and saves the pyramidfs configuration file: a flat
// list of "key = value" lines with '#' comments.
package config

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/bitfsorg/pyramid-go/ledger"
	"github.com/bitfsorg/pyramid-go/session"
)

// Placement names accepted by the "placement" key.
const (
	PlacementSequential = "sequential"
	PlacementShuffled   = "shuffled"
)

// Config holds every configurable setting.
type Config struct {
	DataDir    string // directory holding the config file and ledger
	MetaSuffix string // appended to a data file path to name its metadata file
	Placement  string // initial block placement of new metadata files
	Ledger     string // nonce ledger path; empty disables the ledger
	Lock       bool   // take an advisory lock on metadata files
	LogLevel   string
	LogFile    string // empty logs to stderr
	Salt       string // hex, used to derive keys from passphrases
}

// DefaultDataDir returns ~/.pyramidfs, or .pyramidfs if the home directory
// cannot be determined.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".pyramidfs"
	}
	return filepath.Join(home, ".pyramidfs")
}

// DefaultConfig returns the configuration used when no file overrides it.
func DefaultConfig() Config {
	dir := DefaultDataDir()
	return Config{
		DataDir:    dir,
		MetaSuffix: session.DefaultMetaSuffix,
		Placement:  PlacementShuffled,
		Ledger:     filepath.Join(dir, "nonces.db"),
		Lock:       true,
		LogLevel:   "info",
	}
}

// ConfigPath returns the config file path inside dataDir.
func ConfigPath(dataDir string) string {
	return filepath.Join(filepath.Clean(dataDir), "config")
}

// LoadConfig reads the config file at path. Keys missing from the file keep
// their default values; unknown keys are ignored.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return cfg, fmt.Errorf("config: open %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, err := parseKeyValue(line)
		if err != nil {
			return cfg, fmt.Errorf("%w: line %d: %q", ErrInvalidConfigLine, lineNo, line)
		}
		if err := cfg.set(key, value); err != nil {
			return cfg, fmt.Errorf("line %d: %w", lineNo, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	return cfg, nil
}

// parseKeyValue splits a line on its first '='.
func parseKeyValue(line string) (string, string, error) {
	key, value, ok := strings.Cut(line, "=")
	if !ok {
		return "", "", ErrInvalidConfigLine
	}
	key = strings.ToLower(strings.TrimSpace(key))
	if key == "" {
		return "", "", ErrInvalidConfigLine
	}
	return key, strings.TrimSpace(value), nil
}

func (c *Config) set(key, value string) error {
	switch key {
	case "datadir":
		c.DataDir = value
	case "metasuffix":
		c.MetaSuffix = value
	case "placement":
		c.Placement = strings.ToLower(value)
	case "ledger":
		c.Ledger = value
	case "lock":
		switch strings.ToLower(value) {
		case "true":
			c.Lock = true
		case "false":
			c.Lock = false
		default:
			return fmt.Errorf("%w: lock = %q", ErrInvalidBool, value)
		}
	case "loglevel":
		c.LogLevel = value
	case "logfile":
		c.LogFile = value
	case "salt":
		c.Salt = strings.ToLower(value)
	}
	return nil
}

// SaveConfig writes cfg to path, creating the parent directory if needed.
func SaveConfig(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("config: create directory: %w", err)
	}

	var b strings.Builder
	b.WriteString("# pyramidfs configuration\n\n")
	fmt.Fprintf(&b, "datadir = %s\n", cfg.DataDir)
	fmt.Fprintf(&b, "metasuffix = %s\n", cfg.MetaSuffix)
	fmt.Fprintf(&b, "placement = %s\n", cfg.Placement)
	fmt.Fprintf(&b, "ledger = %s\n", cfg.Ledger)
	fmt.Fprintf(&b, "lock = %t\n", cfg.Lock)
	fmt.Fprintf(&b, "loglevel = %s\n", cfg.LogLevel)
	fmt.Fprintf(&b, "logfile = %s\n", cfg.LogFile)
	fmt.Fprintf(&b, "salt = %s\n", cfg.Salt)

	if err := os.WriteFile(path, []byte(b.String()), 0600); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}

// nopCloser is the closer of a logger that writes to stderr.
type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// NewLogger builds a logger at the configured level writing to LogFile, or
// to stderr when LogFile is empty. The returned closer releases the log
// file.
func (c Config) NewLogger() (*logrus.Logger, io.Closer, error) {
	level, err := logrus.ParseLevel(strings.ToLower(c.LogLevel))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrInvalidLogLevel, err)
	}
	log := logrus.New()
	log.SetLevel(level)
	if c.LogFile == "" {
		return log, nopCloser{}, nil
	}
	f, err := os.OpenFile(c.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, nil, fmt.Errorf("config: open log file: %w", err)
	}
	log.SetOutput(f)
	log.SetFormatter(&logrus.JSONFormatter{})
	return log, f, nil
}

// OpenLedger opens the configured nonce ledger, or returns nil when the
// ledger is disabled.
func (c Config) OpenLedger() (*ledger.Ledger, error) {
	if c.Ledger == "" {
		return nil, nil
	}
	return ledger.Open(c.Ledger)
}

// Options maps the configuration onto session options.
func (c Config) Options(log *logrus.Logger, l *ledger.Ledger) *session.Options {
	return &session.Options{
		Logger:     log,
		Ledger:     l,
		MetaSuffix: c.MetaSuffix,
		Sequential: c.Placement == PlacementSequential,
		NoLock:     !c.Lock,
	}
}
