// Copyright (c) 2024 The BitFS developers
// Use of this source code is governed by the Open BSV License v5
// that can be found in the LICENSE file.

package config

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// validLogLevels lists the accepted log level strings.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// ValidateConfig checks that all configuration values are within acceptable
// ranges and returns the first error encountered, or nil if valid.
func ValidateConfig(cfg Config) error {
	if cfg.DataDir == "" {
		return ErrEmptyDataDir
	}

	if cfg.MetaSuffix == "" {
		return ErrEmptyMetaSuffix
	}

	if cfg.Placement != PlacementSequential && cfg.Placement != PlacementShuffled {
		return ErrInvalidPlacement
	}

	if !validLogLevels[strings.ToLower(cfg.LogLevel)] {
		return ErrInvalidLogLevel
	}

	if cfg.Salt != "" {
		if err := validateSalt(cfg.Salt); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidSalt, err)
		}
	}

	return nil
}

// validateSalt checks that salt decodes to SaltSize bytes.
func validateSalt(salt string) error {
	b, err := hex.DecodeString(salt)
	if err != nil {
		return err
	}
	if len(b) != SaltSize {
		return fmt.Errorf("decoded %d bytes, want %d", len(b), SaltSize)
	}
	return nil
}
