// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package protocol

import (
	"context"
	"errors"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jeranaias/auditchat/internal/api"
	"github.com/jeranaias/auditchat/internal/model"
	"github.com/jeranaias/auditchat/internal/offline"
)

// =============================================================================
// NAVIGATION
// =============================================================================

// NewConversation puts an empty draft on screen.
func (c *Controller) NewConversation() tea.Cmd {
	if c.store.Current().IsDraft() && len(c.store.Turns()) == 0 {
		return nil
	}
	c.advance("")
	c.store.StartDraft()
	c.renderer.ResetTranscript()
	c.renderer.SetActiveConversation("", model.DefaultTitle)
	c.rememberConversation("")
	return nil
}

// OpenConversation loads and shows a conversation's history. Responses for
// a conversation the user has since left are discarded.
func (c *Controller) OpenConversation(id string) tea.Cmd {
	if id == "" || id == c.store.CurrentID() {
		return nil
	}
	conv, ok := c.store.Lookup(id)
	if !ok {
		conv = model.Conversation{ID: id}
	}

	c.advance(id)
	c.loadingID = id
	c.store.Open(conv, nil)
	c.renderer.ResetTranscript()
	c.renderer.SetActiveConversation(id, conv.GetTitle())
	c.rememberConversation(id)

	return c.fetchHistoryCmd(id)
}

func (c *Controller) fetchHistoryCmd(id string) tea.Cmd {
	gen := c.generation
	return func() tea.Msg {
		ctx, cancel := c.requestContext()
		defer cancel()
		turns, err := c.gateway.FetchHistory(ctx, id)
		return HistoryLoadedMsg{Generation: gen, ConversationID: id, Turns: turns, Err: err}
	}
}

func (c *Controller) handleHistoryLoaded(msg HistoryLoadedMsg) tea.Cmd {
	if msg.Generation != c.generation || msg.ConversationID != c.store.CurrentID() {
		c.logger.Debug("discarding stale history", zap.String("conversation_id", msg.ConversationID))
		return nil
	}
	c.loadingID = ""
	if msg.Err != nil {
		c.logger.Warn("fetch history failed", zap.String("conversation_id", msg.ConversationID), zap.Error(msg.Err))
		c.renderer.Notify(LevelError, api.UserMessage(msg.Err))
		return nil
	}
	c.showHistory(c.store.Current(), msg.Turns)
	return nil
}

// showHistory opens conv with turns and renders every turn.
func (c *Controller) showHistory(conv model.Conversation, turns []*model.Turn) {
	c.store.Open(conv, turns)
	for _, t := range c.store.Turns() {
		c.renderer.DisplayMessage(t)
	}
}

// =============================================================================
// LIST
// =============================================================================

// RefreshConversations reloads the conversation list.
func (c *Controller) RefreshConversations() tea.Cmd {
	return c.fetchConversationsCmd()
}

func (c *Controller) fetchConversationsCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := c.requestContext()
		defer cancel()
		convs, err := c.gateway.FetchConversations(ctx)
		return ConversationsLoadedMsg{Conversations: convs, Err: err}
	}
}

func (c *Controller) handleConversationsLoaded(msg ConversationsLoadedMsg) tea.Cmd {
	if msg.Err != nil {
		c.logger.Warn("fetch conversations failed", zap.Error(msg.Err))
		return nil
	}
	c.store.SetConversations(msg.Conversations)
	if cur := c.store.Current(); !cur.IsDraft() {
		c.renderer.SetActiveConversation(cur.ID, cur.GetTitle())
	}
	c.refreshList()
	return nil
}

// =============================================================================
// RENAME / DELETE
// =============================================================================

// RenameConversation renames a listed conversation. Offline renames are
// queued and applied locally.
func (c *Controller) RenameConversation(id, title string) tea.Cmd {
	title = strings.TrimSpace(title)
	if id == "" || title == "" {
		return nil
	}
	return c.mutationCmd(MutationResultMsg{Kind: offline.KindRename, ConversationID: id, Title: title},
		func(ctx context.Context) error {
			return c.gateway.RenameConversation(ctx, id, title)
		})
}

// DeleteConversation deletes a conversation. Deleting the open one puts a
// fresh draft on screen.
func (c *Controller) DeleteConversation(id string) tea.Cmd {
	if id == "" {
		return nil
	}
	return c.mutationCmd(MutationResultMsg{Kind: offline.KindDelete, ConversationID: id},
		func(ctx context.Context) error {
			return c.gateway.DeleteConversation(ctx, id)
		})
}

// =============================================================================
// BOOTSTRAP
// =============================================================================

// bootstrapCmd fetches the conversation list, the profile list and the last
// open conversation's history concurrently.
func (c *Controller) bootstrapCmd() tea.Cmd {
	lastID := ""
	if c.settings != nil {
		lastID = c.settings.LastConversationID()
	}

	return func() tea.Msg {
		ctx, cancel := c.requestContext()
		defer cancel()

		msg := BootstrapMsg{LastID: lastID}
		g, gctx := errgroup.WithContext(ctx)

		g.Go(func() error {
			convs, err := c.gateway.FetchConversations(gctx)
			if err != nil {
				return err
			}
			msg.Conversations = convs
			return nil
		})
		g.Go(func() error {
			profiles, err := c.gateway.FetchProfiles(gctx)
			if err != nil {
				c.logger.Debug("fetch profiles failed", zap.Error(err))
				return nil
			}
			msg.Profiles = profiles
			return nil
		})
		if lastID != "" {
			g.Go(func() error {
				msg.History, msg.HistoryErr = c.gateway.FetchHistory(gctx, lastID)
				return nil
			})
		}

		msg.Err = g.Wait()
		return msg
	}
}

func (c *Controller) handleBootstrap(msg BootstrapMsg) tea.Cmd {
	if msg.Err != nil {
		c.logger.Warn("bootstrap failed", zap.Error(msg.Err))
		c.renderer.Notify(LevelWarning, api.UserMessage(msg.Err))
		return nil
	}

	c.store.SetConversations(msg.Conversations)
	if len(msg.Profiles) > 0 {
		c.session.SetProfiles(msg.Profiles)
	}
	c.refreshList()

	if msg.LastID == "" {
		return nil
	}
	if msg.HistoryErr != nil {
		c.logger.Info("last conversation unavailable", zap.String("conversation_id", msg.LastID), zap.Error(msg.HistoryErr))
		// Only forget it when the server says it is gone for good.
		if errors.Is(msg.HistoryErr, api.ErrNotFound) || api.IsPermanent(msg.HistoryErr) {
			c.rememberConversation("")
		}
		return nil
	}
	// The user already started something; leave it on screen.
	if !c.store.Current().IsDraft() || len(c.store.Turns()) > 0 {
		return nil
	}

	conv, ok := c.store.Lookup(msg.LastID)
	if !ok {
		conv = model.Conversation{ID: msg.LastID}
	}
	c.advance(conv.ID)
	c.renderer.ResetTranscript()
	c.renderer.SetActiveConversation(conv.ID, conv.GetTitle())
	c.showHistory(conv, msg.History)
	return nil
}
