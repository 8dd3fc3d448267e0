// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/auditchat/internal/model"
	"github.com/jeranaias/auditchat/internal/protocol"
)

// =============================================================================
// KEY HANDLING
// =============================================================================

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.toggleHelp()
		return nil

	case key.Matches(msg, m.keys.NewConversation):
		m.cancelRename()
		m.setFocus(FocusComposer)
		return m.ctrl.NewConversation()

	case key.Matches(msg, m.keys.ToggleLedger):
		m.showLedger = !m.showLedger
		return nil

	case key.Matches(msg, m.keys.SwitchFocus):
		if m.focus == FocusComposer {
			m.cancelRename()
			m.setFocus(FocusSidebar)
		} else {
			m.setFocus(FocusComposer)
		}
		return nil

	case key.Matches(msg, m.keys.PageUp, m.keys.PageDown):
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return cmd
	}

	if m.focus == FocusSidebar {
		return m.handleSidebarKey(msg)
	}
	return m.handleComposerKey(msg)
}

func (m *Model) handleComposerKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case msg.Type == tea.KeyEsc:
		m.cancelRename()
		return nil

	case key.Matches(msg, m.keys.Submit):
		return m.submit()

	case key.Matches(msg, m.keys.FollowUp):
		m.cycleFollowUp()
		return nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return cmd
}

func (m *Model) handleSidebarKey(msg tea.KeyMsg) tea.Cmd {
	if msg.Type == tea.KeyEsc {
		m.setFocus(FocusComposer)
		return nil
	}
	if len(m.conversations) == 0 {
		return nil
	}
	if m.selected >= len(m.conversations) {
		m.selected = len(m.conversations) - 1
	}
	conv := m.conversations[m.selected]

	switch {
	case key.Matches(msg, m.keys.Up):
		if m.selected > 0 {
			m.selected--
		}
		m.confirmDelete = ""

	case key.Matches(msg, m.keys.Down):
		if m.selected < len(m.conversations)-1 {
			m.selected++
		}
		m.confirmDelete = ""

	case key.Matches(msg, m.keys.Open):
		m.setFocus(FocusComposer)
		return m.ctrl.OpenConversation(conv.ID)

	case key.Matches(msg, m.keys.Rename):
		m.startRename(conv.ID, conv.GetTitle())

	case key.Matches(msg, m.keys.Delete):
		if m.confirmDelete == conv.ID {
			m.confirmDelete = ""
			return m.ctrl.DeleteConversation(conv.ID)
		}
		m.confirmDelete = conv.ID
		m.Notify(protocol.LevelWarning, fmt.Sprintf("Press d again to delete %q", conv.GetTitle()))
	}
	return nil
}

// submit sends the composer text, runs a slash command or finishes a rename.
func (m *Model) submit() tea.Cmd {
	if m.ctrl.Busy() {
		return nil
	}
	text := m.input.Value()

	if m.renameID != "" {
		id := m.renameID
		m.cancelRename()
		return m.ctrl.RenameConversation(id, text)
	}
	if isCommand(text) {
		m.input.Reset()
		return m.runCommand(text)
	}

	m.input.Reset()
	m.ctrl.Session().RecordActivity()
	return m.ctrl.SendMessage(text)
}

// =============================================================================
// COMPOSER MODES
// =============================================================================

func (m *Model) setFocus(f Focus) {
	m.focus = f
	m.confirmDelete = ""
	if f == FocusComposer && !m.ctrl.Busy() {
		m.input.Focus()
	} else {
		m.input.Blur()
	}
}

func (m *Model) startRename(id, title string) {
	m.draft = m.input.Value()
	m.renameID = id
	m.input.Prompt = renamePrompt
	m.input.SetValue(title)
	m.input.CursorEnd()
	m.setFocus(FocusComposer)
}

func (m *Model) cancelRename() {
	if m.renameID == "" {
		return
	}
	m.renameID = ""
	m.input.Prompt = composerPrompt
	m.input.SetValue(m.draft)
	m.input.CursorEnd()
	m.draft = ""
}

// cycleFollowUp copies the next suggestion of the latest assistant turn
// into the composer.
func (m *Model) cycleFollowUp() {
	for i := len(m.turns) - 1; i >= 0; i-- {
		t := m.turns[i]
		if t.IsError || t.Role != model.RoleAssistant {
			continue
		}
		if len(t.SuggestedFollowUps) == 0 {
			return
		}
		s := t.SuggestedFollowUps[m.followUpCursor%len(t.SuggestedFollowUps)]
		m.followUpCursor++
		m.input.SetValue(s)
		m.input.CursorEnd()
		return
	}
}

func (m *Model) toggleHelp() {
	m.showHelp = !m.showHelp
	m.help.ShowAll = m.showHelp
}

func isCommand(text string) bool {
	text = strings.TrimSpace(text)
	return len(text) > 1 && strings.HasPrefix(text, "/")
}
