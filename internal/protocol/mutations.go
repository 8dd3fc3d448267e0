// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package protocol

import (
	"context"
	"fmt"
	"maps"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/jeranaias/auditchat/internal/api"
	"github.com/jeranaias/auditchat/internal/model"
	"github.com/jeranaias/auditchat/internal/offline"
)

// =============================================================================
// ACCOUNT OPERATIONS
// =============================================================================

// ChangeProfile switches the active audit profile.
func (c *Controller) ChangeProfile(key string) tea.Cmd {
	key = strings.TrimSpace(key)
	if key == "" || key == c.session.Profile() {
		return nil
	}
	return c.mutationCmd(MutationResultMsg{Kind: offline.KindProfileChange, ProfileKey: key},
		func(ctx context.Context) error {
			return c.gateway.UpdateUserProfile(ctx, key)
		})
}

// ChangeModels updates the per-role model selection.
func (c *Controller) ChangeModels(models map[string]string) tea.Cmd {
	if len(models) == 0 {
		return nil
	}
	models = maps.Clone(models)
	return c.mutationCmd(MutationResultMsg{Kind: offline.KindModelChange, Models: models},
		func(ctx context.Context) error {
			return c.gateway.UpdateUserModels(ctx, models)
		})
}

// DeleteAccount deletes the signed-in user and clears local state.
func (c *Controller) DeleteAccount() tea.Cmd {
	return c.mutationCmd(MutationResultMsg{Kind: offline.KindDeleteAccount},
		func(ctx context.Context) error {
			return c.gateway.DeleteAccount(ctx)
		})
}

// =============================================================================
// MUTATION RESULTS
// =============================================================================

// mutationCmd runs call off the update loop and reports into result.Err.
func (c *Controller) mutationCmd(result MutationResultMsg, call func(context.Context) error) tea.Cmd {
	c.session.RecordActivity()
	return func() tea.Msg {
		ctx, cancel := c.requestContext()
		defer cancel()
		result.Err = call(ctx)
		return result
	}
}

// handleMutationResult applies the local update when the server accepted
// the change or it was queued for replay.
func (c *Controller) handleMutationResult(msg MutationResultMsg) tea.Cmd {
	queued := msg.Queued()
	if msg.Err != nil && !queued {
		c.logger.Warn("mutation failed", zap.String("kind", msg.Kind.String()), zap.Error(msg.Err))
		c.renderer.Notify(LevelError, fmt.Sprintf("Could not %s: %s", msg.Kind.Describe(), api.UserMessage(msg.Err)))
		return nil
	}

	c.applyMutation(msg)

	if queued {
		c.renderer.Notify(LevelInfo, api.UserMessage(api.ErrQueued))
	} else {
		c.renderer.Notify(LevelSuccess, successText(msg))
	}
	return nil
}

func (c *Controller) applyMutation(msg MutationResultMsg) {
	switch msg.Kind {
	case offline.KindRename:
		c.store.Rename(msg.ConversationID, msg.Title)
		if c.store.CurrentID() == msg.ConversationID {
			c.renderer.SetActiveConversation(msg.ConversationID, msg.Title)
		}
		c.refreshList()

	case offline.KindDelete:
		wasOpen := c.store.CurrentID() == msg.ConversationID
		c.store.Remove(msg.ConversationID)
		if wasOpen {
			c.advance("")
			c.store.StartDraft()
			c.renderer.ResetTranscript()
			c.renderer.SetActiveConversation("", model.DefaultTitle)
			c.rememberConversation("")
		}
		c.refreshList()

	case offline.KindProfileChange:
		if err := c.session.SetProfile(msg.ProfileKey); err != nil {
			c.logger.Warn("failed to persist profile", zap.Error(err))
		}

	case offline.KindModelChange:
		c.session.SetModels(msg.Models)

	case offline.KindDeleteAccount:
		// A queued deletion still needs the token when it is replayed.
		signOut := c.session.Clear
		if msg.Queued() {
			signOut = c.session.ClearLocal
		}
		if err := signOut(); err != nil {
			c.logger.Warn("failed to clear session", zap.Error(err))
		}
		c.advance("")
		c.store.SetConversations(nil)
		c.store.StartDraft()
		c.renderer.ResetTranscript()
		c.renderer.SetActiveConversation("", model.DefaultTitle)
		c.refreshList()
	}
}

func successText(msg MutationResultMsg) string {
	switch msg.Kind {
	case offline.KindRename:
		return fmt.Sprintf("Renamed to %q", msg.Title)
	case offline.KindDelete:
		return "Conversation deleted"
	case offline.KindProfileChange:
		return "Audit profile switched to " + msg.ProfileKey
	case offline.KindModelChange:
		return "Model selection updated"
	case offline.KindDeleteAccount:
		return "Account deleted"
	default:
		return "Done"
	}
}
