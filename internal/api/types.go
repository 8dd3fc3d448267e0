// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"encoding/json"

	"github.com/jeranaias/auditchat/internal/model"
)

// =============================================================================
// REQUESTS
// =============================================================================

// ProcessRequest is the body of POST /api/process.
type ProcessRequest struct {
	Text           string `json:"text"`
	ConversationID string `json:"conversationId"`
	Profile        string `json:"profile,omitempty"`
}

type createConversationRequest struct {
	Title string `json:"title,omitempty"`
}

type renameRequest struct {
	Title string `json:"title"`
}

type profileRequest struct {
	Profile string `json:"profile"`
}

type modelsRequest struct {
	Models map[string]string `json:"models"`
}

// =============================================================================
// RESPONSES
// =============================================================================

// ProcessResponse is the normalized reply to a user message.
type ProcessResponse struct {
	FinalOutput string
	MessageID   string

	// Audit is set only when the reply carried a non-empty ledger.
	Audit *model.AuditPayload

	SuggestedFollowUps []string

	// NewTitle is set when the server renamed the conversation.
	NewTitle string
}

// NeedsAudit reports whether the audit must be polled for.
func (r *ProcessResponse) NeedsAudit() bool {
	return r.MessageID != "" && !r.Audit.HasLedger()
}

// AuditStatus is the state of an audit on the server.
type AuditStatus string

const (
	AuditPending  AuditStatus = "pending"
	AuditComplete AuditStatus = "complete"
)

// AuditResult is the normalized answer of GET /api/messages/{id}/audit.
type AuditResult struct {
	Status             AuditStatus
	Payload            *model.AuditPayload
	SuggestedFollowUps []string
}

// Complete reports whether the audit has finished.
func (r *AuditResult) Complete() bool {
	return r.Status == AuditComplete
}

// Profile is an audit profile offered by the server.
type Profile struct {
	Key         string `json:"key"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// =============================================================================
// WIRE SHAPES
// =============================================================================

type conversationWire struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	LastUpdated flexTime `json:"lastUpdated"`
	UpdatedAt   flexTime `json:"updated_at"`
}

type conversationListWire struct {
	Conversations []conversationWire `json:"conversations"`
}

type auditFieldsWire struct {
	Ledger           json.RawMessage `json:"ledger"`
	Values           json.RawMessage `json:"values"`
	SpiritScore      json.RawMessage `json:"spiritScore"`
	Profile          string          `json:"profile"`
	ProfileName      string          `json:"profileName"`
	SuggestedPrompts json.RawMessage `json:"suggestedPrompts"`
}

type historyTurnWire struct {
	auditFieldsWire
	Role      string   `json:"role"`
	Content   string   `json:"content"`
	Timestamp flexTime `json:"timestamp"`
	MessageID string   `json:"messageId"`
	ID        string   `json:"id"`
}

type historyWire struct {
	Messages []historyTurnWire `json:"messages"`
}

type processResponseWire struct {
	auditFieldsWire
	FinalOutput string `json:"finalOutput"`
	MessageID   string `json:"messageId"`
	NewTitle    string `json:"newTitle"`
}

type auditResultWire struct {
	auditFieldsWire
	Status string `json:"status"`
}

type errorResponseWire struct {
	Error   json.RawMessage `json:"error"`
	Code    string          `json:"code"`
	Message string          `json:"message"`
}
