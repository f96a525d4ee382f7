// Copyright (c) 2024 The BitFS developers
// Use of this source code is governed by the Open BSV License v5
// that can be found in the LICENSE file.

package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/argon2"

	"github.com/bitfsorg/pyramid-go/seal"
)

const (
	// Argon2id parameters for passphrase keys.
	Argon2Time        = 3
	Argon2Memory      = 64 * 1024 // 64 MB
	Argon2Parallelism = 4

	// SaltSize is the decoded length of the configured salt.
	SaltSize = 16
)

// NewSalt returns a fresh random salt, hex encoded.
func NewSalt() (string, error) {
	b := make([]byte, SaltSize)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("config: generate salt: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// DeriveKey stretches passphrase into a seal.KeySize key with argon2id
// under the configured salt.
func (c Config) DeriveKey(passphrase []byte) ([]byte, error) {
	if c.Salt == "" {
		return nil, ErrMissingSalt
	}
	salt, err := hex.DecodeString(c.Salt)
	if err != nil || len(salt) != SaltSize {
		return nil, ErrInvalidSalt
	}
	return argon2.IDKey(passphrase, salt, Argon2Time, Argon2Memory, Argon2Parallelism, seal.KeySize), nil
}
