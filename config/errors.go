// Copyright (c) 2024 The BitFS developers
// Use of this source code is governed by the Open BSV License v5
// that can be found in the LICENSE file.

package config

import "errors"

var (
	// ErrInvalidPlacement indicates the placement name is not recognized.
	ErrInvalidPlacement = errors.New("config: invalid placement (must be \"sequential\" or \"shuffled\")")

	// ErrInvalidLogLevel indicates the log level is not recognized.
	ErrInvalidLogLevel = errors.New("config: invalid log level (must be \"debug\", \"info\", \"warn\", or \"error\")")

	// ErrEmptyDataDir indicates the data directory path is empty.
	ErrEmptyDataDir = errors.New("config: data directory must not be empty")

	// ErrEmptyMetaSuffix indicates the metadata file suffix is empty.
	ErrEmptyMetaSuffix = errors.New("config: metadata suffix must not be empty")

	// ErrInvalidSalt indicates the key derivation salt is not 16 hex-encoded bytes.
	ErrInvalidSalt = errors.New("config: invalid salt (must be 32 hex characters)")

	// ErrMissingSalt indicates a key was requested before a salt was configured.
	ErrMissingSalt = errors.New("config: salt is not set")

	// ErrInvalidBool indicates a boolean key holds something other than true or false.
	ErrInvalidBool = errors.New("config: invalid boolean (must be \"true\" or \"false\")")

	// ErrConfigNotFound indicates the configuration file does not exist.
	ErrConfigNotFound = errors.New("config: configuration file not found")

	// ErrInvalidConfigLine indicates a line in the config file is malformed.
	ErrInvalidConfigLine = errors.New("config: invalid configuration line")
)
