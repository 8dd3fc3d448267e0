// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package protocol

import (
	"errors"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"

	"github.com/jeranaias/auditchat/internal/api"
	"github.com/jeranaias/auditchat/internal/model"
	"github.com/jeranaias/auditchat/internal/util"
)

// maxTitleWidth bounds the provisional title sent on conversation creation.
const maxTitleWidth = 60

// normalizeInput trims the composer text, unifies line endings and
// composes Unicode to NFC so the server sees one canonical form.
func normalizeInput(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return norm.NFC.String(strings.TrimSpace(text))
}

// =============================================================================
// SEND
// =============================================================================

// SendMessage sends text in the open conversation.
//
// The user turn is displayed before any network call. When a draft is open
// the conversation is created first. Blank text, a send while another is in
// flight, or a send before the open conversation's history has loaded is a
// no-op.
func (c *Controller) SendMessage(text string) tea.Cmd {
	text = normalizeInput(text)
	if text == "" {
		return nil
	}
	if c.sending {
		c.logger.Debug("send ignored, previous send in flight")
		return nil
	}
	if c.loadingID != "" {
		c.logger.Debug("send ignored, history still loading", zap.String("conversation_id", c.loadingID))
		return nil
	}

	c.session.RecordActivity()
	c.sending = true

	turn := model.NewUserTurn(text)
	c.store.Append(turn)
	c.renderer.DisplayMessage(turn)

	if c.store.Current().IsDraft() {
		return c.createConversationCmd(text)
	}
	return c.processCmd(c.store.CurrentID(), text)
}

func (c *Controller) createConversationCmd(text string) tea.Cmd {
	gen := c.generation
	title := util.TruncateWidth(util.SingleLine(text), maxTitleWidth)
	return func() tea.Msg {
		ctx, cancel := c.requestContext()
		defer cancel()
		conv, err := c.gateway.CreateConversation(ctx, title)
		return ConversationCreatedMsg{Generation: gen, Text: text, Conversation: conv, Err: err}
	}
}

func (c *Controller) processCmd(conversationID, text string) tea.Cmd {
	gen := c.generation
	req := api.ProcessRequest{
		Text:           text,
		ConversationID: conversationID,
		Profile:        c.session.Profile(),
	}
	return func() tea.Msg {
		ctx, cancel := c.requestContext()
		defer cancel()
		resp, err := c.gateway.ProcessUserMessage(ctx, req)
		return ProcessResultMsg{
			Generation:     gen,
			ConversationID: conversationID,
			Text:           text,
			Response:       resp,
			Err:            err,
		}
	}
}

func (c *Controller) handleConversationCreated(msg ConversationCreatedMsg) tea.Cmd {
	if msg.Err == nil && msg.Conversation.IsDraft() {
		msg.Err = errors.New("create conversation: server returned no id")
	}
	if msg.Err != nil {
		c.logger.Warn("create conversation failed", zap.Error(msg.Err))
		c.failSend(msg.Generation, msg.Text, msg.Err)
		return nil
	}

	if msg.Generation != c.generation {
		// The user left the draft; keep the new conversation listed but
		// do not submit into whatever is on screen now.
		c.sending = false
		c.store.Upsert(msg.Conversation)
		c.refreshList()
		return nil
	}

	c.store.AssignID(msg.Conversation)
	c.renderer.SetActiveConversation(msg.Conversation.ID, msg.Conversation.GetTitle())
	c.refreshList()
	c.rememberConversation(msg.Conversation.ID)
	c.logger.Info("conversation created", zap.String("conversation_id", msg.Conversation.ID))

	return c.processCmd(msg.Conversation.ID, msg.Text)
}

func (c *Controller) handleProcessResult(msg ProcessResultMsg) tea.Cmd {
	if msg.Err == nil && msg.Response == nil {
		msg.Err = errors.New("process message: empty response")
	}
	if msg.Err != nil {
		c.logger.Warn("process message failed",
			zap.String("conversation_id", msg.ConversationID), zap.Error(msg.Err))
		c.failSend(msg.Generation, msg.Text, msg.Err)
		return nil
	}
	c.sending = false

	resp := msg.Response
	now := time.Now()
	c.store.Touch(msg.ConversationID, now)

	if msg.Generation != c.generation || c.store.CurrentID() != msg.ConversationID {
		c.logger.Debug("reply for a conversation no longer open",
			zap.String("conversation_id", msg.ConversationID))
		return c.fetchConversationsCmd()
	}

	turn := model.NewAssistantTurn(resp.MessageID, resp.FinalOutput, now)
	turn.AddFollowUps(resp.SuggestedFollowUps)
	c.store.Append(turn)
	if resp.Audit.HasLedger() {
		turn.Audit = resp.Audit.Clone()
		turn.Audit.SpiritScoreHistory = model.ScoreHistory(c.store.Turns(), len(c.store.Turns())-1)
	}
	c.renderer.DisplayMessage(turn)

	var cmds []tea.Cmd
	if title := resp.NewTitle; title != "" && title != c.store.Current().Title {
		c.store.Rename(msg.ConversationID, title)
		c.renderer.SetActiveConversation(msg.ConversationID, title)
		cmds = append(cmds, c.fetchConversationsCmd())
	}
	c.refreshList()

	if resp.NeedsAudit() {
		cmds = append(cmds, c.startAudit(resp.MessageID, msg.ConversationID))
	}
	return tea.Batch(cmds...)
}

// failSend shows the generic error bubble and gives the text back to the
// composer. The optimistic user turn stays.
func (c *Controller) failSend(gen uint64, text string, err error) {
	c.sending = false
	if gen != c.generation {
		c.renderer.Notify(LevelError, api.UserMessage(err))
		return
	}

	bubble := model.NewErrorTurn()
	c.store.Append(bubble)
	c.renderer.DisplayMessage(bubble)
	c.renderer.RestoreInput(text)

	switch {
	case errors.Is(err, api.ErrOffline), errors.Is(err, api.ErrConflict), errors.Is(err, api.ErrUnauthorized):
		c.renderer.Notify(LevelError, api.UserMessage(err))
	}
}
