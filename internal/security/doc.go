// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package security seals secrets stored on the local device.
//
// Values are encrypted with AES-256-GCM and written as "ENC:" followed by
// base64(nonce || ciphertext). The key is either a random master key kept
// in a 0600 key file, or derived from a passphrase with PBKDF2-SHA-256 and
// a stored salt.
//
// Usage:
//
//	key, err := security.LoadOrCreateKey(dir, os.Getenv("AUDITCHAT_PASSPHRASE"))
//	sealer, err := security.NewSealer(key)
//	settings.WithSecrets(sealer)
package security
