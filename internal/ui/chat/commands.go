// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"errors"
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/auditchat/internal/model"
	"github.com/jeranaias/auditchat/internal/protocol"
)

// =============================================================================
// COMMAND HANDLER REGISTRY
// =============================================================================

// CommandHandler handles one slash command. args excludes the command name.
type CommandHandler func(m *Model, args []string) tea.Cmd

// Command describes a slash command for dispatch and help.
type Command struct {
	Name    string
	Aliases []string
	Usage   string
	Desc    string
	Run     CommandHandler
}

// Commands returns the available slash commands in help order.
func Commands() []Command {
	return []Command{
		{Name: "new", Aliases: []string{"n"}, Usage: "/new", Desc: "start a new conversation", Run: handleNewCommand},
		{Name: "rename", Usage: "/rename TITLE", Desc: "rename the open conversation", Run: handleRenameCommand},
		{Name: "delete", Usage: "/delete", Desc: "delete the open conversation", Run: handleDeleteCommand},
		{Name: "profile", Aliases: []string{"p"}, Usage: "/profile [KEY]", Desc: "list or switch the values profile", Run: handleProfileCommand},
		{Name: "model", Usage: "/model ROLE=NAME...", Desc: "choose models per role", Run: handleModelCommand},
		{Name: "ledger", Aliases: []string{"why"}, Usage: "/ledger", Desc: "toggle the reasoning ledger", Run: handleLedgerCommand},
		{Name: "copy", Usage: "/copy", Desc: "copy the latest reply", Run: handleCopyCommand},
		{Name: "sync", Usage: "/sync", Desc: "replay queued offline changes", Run: handleSyncCommand},
		{Name: "refresh", Usage: "/refresh", Desc: "reload the conversation list", Run: handleRefreshCommand},
		{Name: "delete-account", Usage: "/delete-account confirm", Desc: "delete your account", Run: handleDeleteAccountCommand},
		{Name: "help", Aliases: []string{"h", "?"}, Usage: "/help", Desc: "toggle help", Run: handleHelpCommand},
		{Name: "quit", Aliases: []string{"q", "exit"}, Usage: "/quit", Desc: "exit auditchat", Run: handleQuitCommand},
	}
}

// LookupCommand finds a command by name or alias.
func LookupCommand(name string) (Command, bool) {
	name = strings.ToLower(name)
	for _, c := range Commands() {
		if c.Name == name {
			return c, true
		}
		for _, a := range c.Aliases {
			if a == name {
				return c, true
			}
		}
	}
	return Command{}, false
}

// runCommand parses and dispatches a slash command line.
func (m *Model) runCommand(line string) tea.Cmd {
	fields := strings.Fields(strings.TrimPrefix(strings.TrimSpace(line), "/"))
	if len(fields) == 0 {
		return nil
	}
	cmd, ok := LookupCommand(fields[0])
	if !ok {
		m.Notify(protocol.LevelWarning, fmt.Sprintf("Unknown command /%s. Type /help for commands.", fields[0]))
		return nil
	}
	return cmd.Run(m, fields[1:])
}

// =============================================================================
// HANDLERS
// =============================================================================

func handleNewCommand(m *Model, _ []string) tea.Cmd {
	return m.ctrl.NewConversation()
}

func handleRenameCommand(m *Model, args []string) tea.Cmd {
	if m.conversationID == "" {
		m.Notify(protocol.LevelWarning, "Send a message first; drafts cannot be renamed")
		return nil
	}
	title := strings.Join(args, " ")
	if strings.TrimSpace(title) == "" {
		m.startRename(m.conversationID, m.title)
		return nil
	}
	return m.ctrl.RenameConversation(m.conversationID, title)
}

func handleDeleteCommand(m *Model, _ []string) tea.Cmd {
	if m.conversationID == "" {
		return m.ctrl.NewConversation()
	}
	return m.ctrl.DeleteConversation(m.conversationID)
}

func handleProfileCommand(m *Model, args []string) tea.Cmd {
	profiles := m.ctrl.Session().Profiles()
	if len(args) == 0 {
		if len(profiles) == 0 {
			m.Notify(protocol.LevelInfo, "No profiles available")
			return nil
		}
		names := make([]string, 0, len(profiles))
		for _, p := range profiles {
			entry := p.Key
			if p.Key == m.ctrl.Session().Profile() {
				entry = "*" + entry
			}
			names = append(names, entry)
		}
		m.Notify(protocol.LevelInfo, "Profiles: "+strings.Join(names, ", "))
		return nil
	}

	key := args[0]
	if len(profiles) > 0 {
		known := false
		for _, p := range profiles {
			if p.Key == key {
				known = true
				break
			}
		}
		if !known {
			m.Notify(protocol.LevelWarning, fmt.Sprintf("Unknown profile %q", key))
			return nil
		}
	}
	return m.ctrl.ChangeProfile(key)
}

func handleModelCommand(m *Model, args []string) tea.Cmd {
	models, err := parseModelArgs(args)
	if err != nil {
		m.Notify(protocol.LevelWarning, err.Error())
		return nil
	}
	return m.ctrl.ChangeModels(models)
}

// parseModelArgs turns ["chat=gpt", "audit=judge"] into a role map.
func parseModelArgs(args []string) (map[string]string, error) {
	if len(args) == 0 {
		return nil, errors.New("usage: /model ROLE=NAME...")
	}
	models := make(map[string]string, len(args))
	for _, arg := range args {
		role, name, ok := strings.Cut(arg, "=")
		role = strings.TrimSpace(role)
		if !ok || role == "" {
			return nil, fmt.Errorf("invalid model selection %q, want ROLE=NAME", arg)
		}
		models[role] = strings.TrimSpace(name)
	}
	return models, nil
}

func handleLedgerCommand(m *Model, _ []string) tea.Cmd {
	m.showLedger = !m.showLedger
	return nil
}

// writeClipboard is swapped out in tests.
var writeClipboard = clipboard.WriteAll

func handleCopyCommand(m *Model, _ []string) tea.Cmd {
	reply := latestReply(m.turns)
	if reply == nil {
		m.Notify(protocol.LevelInfo, "Nothing to copy yet")
		return nil
	}
	if err := writeClipboard(reply.DisplayContent()); err != nil {
		m.Notify(protocol.LevelError, "Could not copy: "+err.Error())
		return nil
	}
	m.Notify(protocol.LevelSuccess, "Copied latest reply")
	return nil
}

func handleSyncCommand(m *Model, _ []string) tea.Cmd {
	if m.ctrl.PendingOperations() == 0 {
		m.Notify(protocol.LevelInfo, "Nothing to sync")
		return nil
	}
	return m.ctrl.ReplayQueue()
}

func handleRefreshCommand(m *Model, _ []string) tea.Cmd {
	return m.ctrl.RefreshConversations()
}

func handleDeleteAccountCommand(m *Model, args []string) tea.Cmd {
	if len(args) != 1 || args[0] != "confirm" {
		m.Notify(protocol.LevelWarning, "This deletes your account and all conversations. Type /delete-account confirm")
		return nil
	}
	return m.ctrl.DeleteAccount()
}

func handleHelpCommand(m *Model, _ []string) tea.Cmd {
	m.toggleHelp()
	return nil
}

func handleQuitCommand(_ *Model, _ []string) tea.Cmd {
	return tea.Quit
}

// latestReply returns the newest assistant turn that is not an error bubble.
func latestReply(turns []*model.Turn) *model.Turn {
	for i := len(turns) - 1; i >= 0; i-- {
		if turns[i].Role == model.RoleAssistant && !turns[i].IsError {
			return turns[i]
		}
	}
	return nil
}

// commandHelp renders the slash command list shown with the key help.
func commandHelp() string {
	var b strings.Builder
	for _, c := range Commands() {
		fmt.Fprintf(&b, "  %-26s %s\n", c.Usage, c.Desc)
	}
	return strings.TrimRight(b.String(), "\n")
}
