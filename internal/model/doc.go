// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations, turns and audits.
//
// This package defines the core domain types used throughout the application
// for representing audited chat conversations.
//
// # Key Types
//
//   - Conversation: Identity, title and ordering timestamp of a conversation
//   - Turn: Single user or assistant message, optionally carrying an audit
//   - AuditPayload: Ledger, values and spirit score attached after the fact
//   - LedgerEntry: One value judgment produced by the audit
//   - Role: Turn role enumeration (user, assistant)
//
// # Usage
//
//	turn := model.NewUserTurn("Hello")
//	reply := model.NewAssistantTurn("msg_123", "", time.Now())
//	reply.DisplayContent() // model.FallbackContent
//
//	groups := model.GroupLedger(payload.Ledger)
//	for _, e := range groups.Upholds {
//	    fmt.Printf("%s (%.0f%%)\n", e.Value, e.Confidence*100)
//	}
package model
