// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/jeranaias/auditchat/internal/model"
	"github.com/jeranaias/auditchat/internal/offline"
)

// ErrNotReplayable is returned when a queued operation kind cannot be
// replayed. It is permanent, so the replayer drops the operation.
var ErrNotReplayable = &APIError{Status: http.StatusUnprocessableEntity, Message: "operation cannot be replayed"}

// =============================================================================
// CONVERSATIONS
// =============================================================================

// CreateConversation creates a conversation on the server.
func (c *Client) CreateConversation(ctx context.Context, title string) (model.Conversation, error) {
	var wire conversationWire
	if err := c.do(ctx, http.MethodPost, "/api/conversations", createConversationRequest{Title: title}, &wire); err != nil {
		return model.Conversation{}, fmt.Errorf("create conversation: %w", err)
	}
	if wire.ID == "" {
		return model.Conversation{}, errors.New("create conversation: server returned no id")
	}
	return c.decode.conversation(wire), nil
}

// FetchConversations lists the user's conversations, most recent first.
func (c *Client) FetchConversations(ctx context.Context) ([]model.Conversation, error) {
	body, err := c.doRaw(ctx, http.MethodGet, "/api/conversations", nil)
	if err != nil {
		return nil, fmt.Errorf("fetch conversations: %w", err)
	}
	convs, err := c.decode.conversations(body)
	if err != nil {
		return nil, fmt.Errorf("fetch conversations: failed to parse response: %w", err)
	}
	return convs, nil
}

// FetchHistory returns the turns of a conversation in order.
func (c *Client) FetchHistory(ctx context.Context, conversationID string) ([]*model.Turn, error) {
	body, err := c.doRaw(ctx, http.MethodGet, "/api/conversations/"+url.PathEscape(conversationID)+"/history", nil)
	if err != nil {
		return nil, fmt.Errorf("fetch history: %w", err)
	}
	turns, err := c.decode.history(body)
	if err != nil {
		return nil, fmt.Errorf("fetch history: failed to parse response: %w", err)
	}
	return turns, nil
}

// RenameConversation sets a conversation's title. Returns ErrQueued when
// offline.
func (c *Client) RenameConversation(ctx context.Context, id, title string) error {
	payload := offline.RenamePayload{ConversationID: id, Title: title}
	return c.mutate(ctx, offline.KindRename, payload, func(ctx context.Context) error {
		return c.renameConversation(ctx, payload)
	})
}

func (c *Client) renameConversation(ctx context.Context, p offline.RenamePayload) error {
	path := "/api/conversations/" + url.PathEscape(p.ConversationID)
	if err := c.do(ctx, http.MethodPut, path, renameRequest{Title: p.Title}, nil); err != nil {
		return fmt.Errorf("rename conversation: %w", err)
	}
	return nil
}

// DeleteConversation deletes a conversation. Returns ErrQueued when offline.
func (c *Client) DeleteConversation(ctx context.Context, id string) error {
	payload := offline.DeletePayload{ConversationID: id}
	return c.mutate(ctx, offline.KindDelete, payload, func(ctx context.Context) error {
		return c.deleteConversation(ctx, payload)
	})
}

func (c *Client) deleteConversation(ctx context.Context, p offline.DeletePayload) error {
	path := "/api/conversations/" + url.PathEscape(p.ConversationID)
	if err := c.do(ctx, http.MethodDelete, path, nil, nil); err != nil {
		return fmt.Errorf("delete conversation: %w", err)
	}
	return nil
}

// =============================================================================
// MESSAGES AND AUDITS
// =============================================================================

// ProcessUserMessage submits a user message and returns the primary reply.
// It is never queued: a transport failure returns ErrOffline.
func (c *Client) ProcessUserMessage(ctx context.Context, req ProcessRequest) (*ProcessResponse, error) {
	req.Text = strings.TrimSpace(req.Text)
	if req.Text == "" {
		return nil, errors.New("process message: empty text")
	}
	var wire processResponseWire
	if err := c.do(ctx, http.MethodPost, "/api/process", req, &wire); err != nil {
		return nil, fmt.Errorf("process message: %w", err)
	}
	return c.decode.processResponse(wire), nil
}

// FetchAuditResult returns the audit status of an assistant message.
func (c *Client) FetchAuditResult(ctx context.Context, messageID string) (*AuditResult, error) {
	var wire auditResultWire
	path := "/api/messages/" + url.PathEscape(messageID) + "/audit"
	if err := c.do(ctx, http.MethodGet, path, nil, &wire); err != nil {
		return nil, fmt.Errorf("fetch audit: %w", err)
	}
	return c.decode.auditResult(wire), nil
}

// =============================================================================
// ACCOUNT
// =============================================================================

// DeleteAccount deletes the signed-in user. Returns ErrQueued when offline.
func (c *Client) DeleteAccount(ctx context.Context) error {
	return c.mutate(ctx, offline.KindDeleteAccount, nil, c.deleteAccount)
}

func (c *Client) deleteAccount(ctx context.Context) error {
	if err := c.do(ctx, http.MethodDelete, "/api/user", nil, nil); err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	return nil
}

// UpdateUserProfile selects the audit profile. Returns ErrQueued when offline.
func (c *Client) UpdateUserProfile(ctx context.Context, key string) error {
	payload := offline.ProfilePayload{ProfileKey: key}
	return c.mutate(ctx, offline.KindProfileChange, payload, func(ctx context.Context) error {
		return c.updateUserProfile(ctx, payload)
	})
}

func (c *Client) updateUserProfile(ctx context.Context, p offline.ProfilePayload) error {
	if err := c.do(ctx, http.MethodPut, "/api/user/profile", profileRequest{Profile: p.ProfileKey}, nil); err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	return nil
}

// UpdateUserModels selects the models used per role, for example
// {"generation": "...", "audit": "..."}. Returns ErrQueued when offline.
func (c *Client) UpdateUserModels(ctx context.Context, models map[string]string) error {
	payload := offline.ModelsPayload{Models: models}
	return c.mutate(ctx, offline.KindModelChange, payload, func(ctx context.Context) error {
		return c.updateUserModels(ctx, payload)
	})
}

func (c *Client) updateUserModels(ctx context.Context, p offline.ModelsPayload) error {
	if err := c.do(ctx, http.MethodPut, "/api/user/models", modelsRequest{Models: p.Models}, nil); err != nil {
		return fmt.Errorf("update models: %w", err)
	}
	return nil
}

// FetchProfiles lists the audit profiles offered by the server.
func (c *Client) FetchProfiles(ctx context.Context) ([]Profile, error) {
	var profiles []Profile
	if err := c.do(ctx, http.MethodGet, "/api/profiles", nil, &profiles); err != nil {
		return nil, fmt.Errorf("fetch profiles: %w", err)
	}
	return profiles, nil
}

// Health checks that the server is reachable.
func (c *Client) Health(ctx context.Context) error {
	if _, err := c.doRaw(ctx, http.MethodGet, "/api/health", nil); err != nil {
		return fmt.Errorf("health: %w", err)
	}
	return nil
}

// =============================================================================
// REPLAY
// =============================================================================

// Execute replays a queued operation through the same request path as the
// live call, without queueing it again. Implements offline.Executor.
func (c *Client) Execute(ctx context.Context, op offline.QueuedOperation) error {
	switch op.Kind {
	case offline.KindRename:
		var p offline.RenamePayload
		if err := op.Decode(&p); err != nil {
			return errors.Join(ErrNotReplayable, err)
		}
		return c.renameConversation(ctx, p)
	case offline.KindDelete:
		var p offline.DeletePayload
		if err := op.Decode(&p); err != nil {
			return errors.Join(ErrNotReplayable, err)
		}
		return c.deleteConversation(ctx, p)
	case offline.KindProfileChange:
		var p offline.ProfilePayload
		if err := op.Decode(&p); err != nil {
			return errors.Join(ErrNotReplayable, err)
		}
		return c.updateUserProfile(ctx, p)
	case offline.KindModelChange:
		var p offline.ModelsPayload
		if err := op.Decode(&p); err != nil {
			return errors.Join(ErrNotReplayable, err)
		}
		return c.updateUserModels(ctx, p)
	case offline.KindDeleteAccount:
		return c.deleteAccount(ctx)
	default:
		// Message sends need a live reply and are never replayed.
		return ErrNotReplayable
	}
}
