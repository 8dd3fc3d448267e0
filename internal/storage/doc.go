// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides durable key-value storage for per-device client
// state.
//
// # Key Types
//
//   - Store: byte-oriented key-value interface
//   - SQLiteStore: single-table store backed by modernc.org/sqlite
//   - BoltStore: single-bucket store backed by bbolt
//   - MemoryStore: in-process store used by tests and --ephemeral runs
//   - Settings: typed accessors for the keys the client persists
//
// # Usage
//
//	store, err := storage.Open(storage.BackendSQLite, path)
//	settings := storage.NewSettings(store)
//	_ = settings.SetLastConversationID("c_123")
//
// # Keys
//
// The client persists the theme preference, the last active conversation
// id, the session token and the offline operation queue. The queue is owned
// by package offline and stored under QueueKey.
package storage
