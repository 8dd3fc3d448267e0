// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package security

import (
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"

	"golang.org/x/crypto/pbkdf2"

	"github.com/jeranaias/auditchat/internal/util"
)

// Files kept next to the settings store.
const (
	KeyFileName  = "master.key"
	SaltFileName = "master.salt"
)

const (
	SaltSize         = 32
	PBKDF2Iterations = 600000
)

// DeriveKey derives a KeySize-byte key from a passphrase.
func DeriveKey(passphrase string, salt []byte) []byte {
	return pbkdf2.Key([]byte(passphrase), salt, PBKDF2Iterations, KeySize, sha256.New)
}

// LoadOrCreateKey returns the key for dir. With a passphrase the key is
// derived from it and the salt in dir; otherwise the random master key in
// dir is used. Missing files are created with mode 0600.
func LoadOrCreateKey(dir, passphrase string) ([]byte, error) {
	if passphrase != "" {
		salt, err := loadOrCreate(filepath.Join(dir, SaltFileName), SaltSize)
		if err != nil {
			return nil, fmt.Errorf("salt: %w", err)
		}
		return DeriveKey(passphrase, salt), nil
	}
	key, err := loadOrCreate(filepath.Join(dir, KeyFileName), KeySize)
	if err != nil {
		return nil, fmt.Errorf("master key: %w", err)
	}
	return key, nil
}

func loadOrCreate(path string, size int) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err == nil {
		if len(data) != size {
			return nil, fmt.Errorf("%s is corrupt: %d bytes, want %d", path, len(data), size)
		}
		if err := checkPermissions(path); err != nil {
			return nil, err
		}
		return data, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	data = make([]byte, size)
	if _, err := io.ReadFull(rand.Reader, data); err != nil {
		return nil, fmt.Errorf("failed to generate random bytes: %w", err)
	}
	if err := util.AtomicWriteFile(path, data, 0600); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", path, err)
	}
	return data, nil
}

// checkPermissions rejects key files readable by group or others.
func checkPermissions(path string) error {
	if runtime.GOOS == "windows" {
		return nil
	}
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if mode := info.Mode().Perm(); mode&0077 != 0 {
		return fmt.Errorf("%s has insecure permissions (%o); fix with: chmod 600 %s", path, mode, path)
	}
	return nil
}
