// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"errors"
	"fmt"
	"strings"
)

// Keys persisted by the client.
const (
	KeyTheme              = "theme"
	KeyLastConversationID = "last_conversation_id"
	KeySessionToken       = "session_token"
	KeyActiveProfile      = "active_profile"

	// QueueKey holds the serialized offline operation queue.
	QueueKey = "pending_ops"
)

// SecretCodec seals values before they reach the store.
type SecretCodec interface {
	Seal(plaintext string) (string, error)
	Open(value string) (string, error)
}

// Settings wraps a Store with typed accessors for string settings.
type Settings struct {
	store   Store
	secrets SecretCodec
}

// NewSettings creates settings backed by store.
func NewSettings(store Store) *Settings {
	return &Settings{store: store}
}

// WithSecrets seals the session token with codec. Without a codec the token
// is stored as plain text.
func (s *Settings) WithSecrets(codec SecretCodec) *Settings {
	s.secrets = codec
	return s
}

// Store returns the underlying store.
func (s *Settings) Store() Store {
	return s.store
}

// GetString returns the value for key, or fallback when it is not set.
func (s *Settings) GetString(key, fallback string) (string, error) {
	v, err := s.store.Get(key)
	if errors.Is(err, ErrNotFound) {
		return fallback, nil
	}
	if err != nil {
		return fallback, err
	}
	return string(v), nil
}

// SetString stores value under key. An empty value deletes the key.
func (s *Settings) SetString(key, value string) error {
	value = strings.TrimSpace(value)
	if value == "" {
		return s.store.Delete(key)
	}
	return s.store.Put(key, []byte(value))
}

// Theme returns the persisted theme preference ("" if unset).
func (s *Settings) Theme() string {
	v, _ := s.GetString(KeyTheme, "")
	return v
}

// SetTheme persists the theme preference.
func (s *Settings) SetTheme(theme string) error {
	return s.SetString(KeyTheme, theme)
}

// LastConversationID returns the id of the conversation open when the
// client last exited.
func (s *Settings) LastConversationID() string {
	v, _ := s.GetString(KeyLastConversationID, "")
	return v
}

// SetLastConversationID persists id. An empty id clears the setting.
func (s *Settings) SetLastConversationID(id string) error {
	return s.SetString(KeyLastConversationID, id)
}

// SessionToken returns the stored bearer token. A token that cannot be
// unsealed reads as signed out.
func (s *Settings) SessionToken() string {
	v, _ := s.GetString(KeySessionToken, "")
	if s.secrets == nil || v == "" {
		return v
	}
	plain, err := s.secrets.Open(v)
	if err != nil {
		return ""
	}
	return plain
}

// SetSessionToken persists the bearer token.
func (s *Settings) SetSessionToken(token string) error {
	token = strings.TrimSpace(token)
	if s.secrets != nil && token != "" {
		sealed, err := s.secrets.Seal(token)
		if err != nil {
			return fmt.Errorf("seal session token: %w", err)
		}
		token = sealed
	}
	return s.SetString(KeySessionToken, token)
}

// ActiveProfile returns the persisted audit profile key.
func (s *Settings) ActiveProfile() string {
	v, _ := s.GetString(KeyActiveProfile, "")
	return v
}

// SetActiveProfile persists the audit profile key.
func (s *Settings) SetActiveProfile(key string) error {
	return s.SetString(KeyActiveProfile, key)
}
