// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations, turns and audits.
package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// FallbackContent replaces an empty assistant body before display.
const FallbackContent = "The assistant did not return a response. Please try again."

// ErrorContent is the generic assistant-role bubble shown when a send fails.
const ErrorContent = "Sorry, something went wrong while sending your message. Your text has been restored so you can retry."

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "Assistant"
	default:
		return string(r)
	}
}

// =============================================================================
// TURN TYPE
// =============================================================================

// Turn is one message within a conversation.
//
// ID is the server message id. Optimistic user turns keep an empty ID; they
// are addressed by ClientID instead and are never patched afterwards.
type Turn struct {
	ID        string    `json:"id,omitempty"`
	ClientID  string    `json:"client_id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`

	// Audit is nil until the audit result is known.
	Audit *AuditPayload `json:"audit,omitempty"`

	SuggestedFollowUps []string `json:"suggested_follow_ups,omitempty"`

	// IsError marks locally generated error bubbles.
	IsError bool `json:"-"`
}

// NewUserTurn creates an optimistic user turn stamped with the client clock.
func NewUserTurn(content string) *Turn {
	return &Turn{
		ClientID:  newClientID(),
		Role:      RoleUser,
		Content:   content,
		Timestamp: time.Now(),
	}
}

// NewAssistantTurn creates an assistant turn from a server reply.
// A zero timestamp is replaced with the current time.
func NewAssistantTurn(id, content string, ts time.Time) *Turn {
	if ts.IsZero() {
		ts = time.Now()
	}
	return &Turn{
		ID:        id,
		ClientID:  newClientID(),
		Role:      RoleAssistant,
		Content:   content,
		Timestamp: ts,
	}
}

// NewErrorTurn creates the generic assistant-role error bubble.
func NewErrorTurn() *Turn {
	t := NewAssistantTurn("", ErrorContent, time.Now())
	t.IsError = true
	return t
}

// DisplayContent returns the text to render. Assistant turns never render empty.
func (t *Turn) DisplayContent() string {
	if t.Role == RoleAssistant && strings.TrimSpace(t.Content) == "" {
		return FallbackContent
	}
	return t.Content
}

// HasAudit reports whether an audit has been attached.
func (t *Turn) HasAudit() bool {
	return t.Audit != nil
}

// Preview returns a truncated preview of the turn content.
// Uses rune-based truncation to handle Unicode correctly.
func (t *Turn) Preview(maxLen int) string {
	content := strings.ReplaceAll(t.DisplayContent(), "\n", " ")
	runes := []rune(content)
	if len(runes) <= maxLen {
		return content
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}

// AddFollowUps appends suggestions not already present, preserving order.
// Returns the number of suggestions added.
func (t *Turn) AddFollowUps(suggestions []string) int {
	seen := make(map[string]bool, len(t.SuggestedFollowUps))
	for _, s := range t.SuggestedFollowUps {
		seen[s] = true
	}
	added := 0
	for _, s := range suggestions {
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		t.SuggestedFollowUps = append(t.SuggestedFollowUps, s)
		added++
	}
	return added
}

// newClientID creates a unique local turn id.
func newClientID() string {
	return "turn_" + uuid.NewString()
}
