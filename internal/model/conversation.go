// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations, turns and audits.
package model

import (
	"sort"
	"time"
)

// DefaultTitle is shown for conversations the server has not titled yet.
const DefaultTitle = "New Conversation"

// =============================================================================
// CONVERSATION TYPE
// =============================================================================

// Conversation is the list-level view of a server-side conversation.
//
// ID is empty while the conversation only exists as a local draft; a draft is
// never inserted into the conversation list.
type Conversation struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	LastUpdated time.Time `json:"last_updated"`
}

// IsDraft reports whether the server has not assigned an ID yet.
func (c Conversation) IsDraft() bool {
	return c.ID == ""
}

// GetTitle returns the conversation title or a default.
func (c Conversation) GetTitle() string {
	if c.Title != "" {
		return c.Title
	}
	return DefaultTitle
}

// SortConversations orders conversations by LastUpdated, most recent first.
// Ties keep their relative order.
func SortConversations(convs []Conversation) {
	sort.SliceStable(convs, func(i, j int) bool {
		return convs[i].LastUpdated.After(convs[j].LastUpdated)
	})
}
