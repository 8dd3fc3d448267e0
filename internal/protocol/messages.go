// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package protocol

import (
	"github.com/jeranaias/auditchat/internal/api"
	"github.com/jeranaias/auditchat/internal/model"
	"github.com/jeranaias/auditchat/internal/offline"
)

// Messages returned by controller commands. Each carries the view
// generation it was issued under; results from an older generation belong
// to a conversation the user has navigated away from.

// =============================================================================
// SEND MESSAGES
// =============================================================================

// ConversationCreatedMsg is the result of creating a conversation for the
// first message of a draft.
type ConversationCreatedMsg struct {
	Generation   uint64
	Text         string
	Conversation model.Conversation
	Err          error
}

// ProcessResultMsg is the primary reply to a user message.
type ProcessResultMsg struct {
	Generation     uint64
	ConversationID string
	Text           string
	Response       *api.ProcessResponse
	Err            error
}

// =============================================================================
// AUDIT MESSAGES
// =============================================================================

// AuditTickMsg fires when an audit job is due for its next fetch.
type AuditTickMsg struct {
	MessageID      string
	ConversationID string
}

// AuditResultMsg is the outcome of one audit fetch.
type AuditResultMsg struct {
	MessageID      string
	ConversationID string
	Result         *api.AuditResult
	Err            error
}

// AuditFinishedMsg reports that an audit job reached a terminal state.
type AuditFinishedMsg struct {
	MessageID string
	State     AuditState
}

// =============================================================================
// CONVERSATION MESSAGES
// =============================================================================

// ConversationsLoadedMsg carries a fresh conversation list.
type ConversationsLoadedMsg struct {
	Conversations []model.Conversation
	Err           error
}

// HistoryLoadedMsg carries the turns of a conversation being opened.
type HistoryLoadedMsg struct {
	Generation     uint64
	ConversationID string
	Turns          []*model.Turn
	Err            error
}

// BootstrapMsg is the result of the concurrent startup fetch.
type BootstrapMsg struct {
	Conversations []model.Conversation
	Profiles      []api.Profile
	LastID        string
	History       []*model.Turn
	HistoryErr    error
	Err           error
}

// =============================================================================
// MUTATION MESSAGES
// =============================================================================

// MutationResultMsg is the outcome of a queueable mutation. Err is
// api.ErrQueued when the operation was saved for replay.
type MutationResultMsg struct {
	Kind           offline.OperationKind
	ConversationID string
	Title          string
	ProfileKey     string
	Models         map[string]string
	Err            error
}

// Queued reports whether the mutation was queued for replay.
func (m MutationResultMsg) Queued() bool {
	return isQueued(m.Err)
}

// =============================================================================
// OFFLINE MESSAGES
// =============================================================================

// ReconnectedMsg is sent when the connectivity monitor sees the server again.
type ReconnectedMsg struct{}

// ReplayDoneMsg is the outcome of one pass over the offline queue.
type ReplayDoneMsg struct {
	Report offline.Report
	Err    error
}
