// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"go.uber.org/zap"

	"github.com/jeranaias/auditchat/internal/model"
	"github.com/jeranaias/auditchat/internal/protocol"
)

var _ protocol.Renderer = (*Model)(nil)

// DisplayMessage appends a turn and scrolls to it.
func (m *Model) DisplayMessage(turn *model.Turn) {
	if turn == nil {
		return
	}
	m.turns = append(m.turns, turn)
	m.followUpCursor = 0
	m.refreshTranscript(true)
}

// UpdateMessageWithAudit redraws a displayed turn whose audit was patched.
// The scroll position is kept unless the view was already at the bottom.
func (m *Model) UpdateMessageWithAudit(messageID string, payload *model.AuditPayload) {
	for _, t := range m.turns {
		if t.ID == messageID {
			m.logger.Debug("audit attached",
				zap.String("message_id", messageID),
				zap.Bool("has_ledger", payload.HasLedger()))
			m.refreshTranscript(m.viewport.AtBottom())
			return
		}
	}
}

// SetActiveConversation updates the header and sidebar highlight.
func (m *Model) SetActiveConversation(id, title string) {
	m.conversationID = id
	if title == "" {
		title = model.DefaultTitle
	}
	m.title = title
	m.confirmDelete = ""
}

// ResetTranscript clears the visible turns.
func (m *Model) ResetTranscript() {
	m.turns = nil
	m.followUpCursor = 0
	m.md.reset()
	m.refreshTranscript(true)
}

// RefreshConversationList redraws the sidebar, keeping the selected row on
// the same conversation when it is still listed.
func (m *Model) RefreshConversationList(items []model.Conversation) {
	selectedID := ""
	if m.selected < len(m.conversations) {
		selectedID = m.conversations[m.selected].ID
	}
	m.conversations = items
	m.selected = 0
	for i, c := range items {
		if c.ID == selectedID {
			m.selected = i
			break
		}
	}
}

// Notify shows text in the status bar until NoticeTTL passes.
func (m *Model) Notify(level protocol.Level, text string) {
	m.notice = notice{level: level, text: text}
	m.noticeSeq++
}

// RestoreInput puts text back into the composer.
func (m *Model) RestoreInput(text string) {
	m.input.SetValue(text)
	m.input.CursorEnd()
}
