// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package protocol

import (
	"context"

	"github.com/jeranaias/auditchat/internal/api"
	"github.com/jeranaias/auditchat/internal/model"
)

// Gateway is the subset of the remote API the controller uses.
// *api.Client implements it.
type Gateway interface {
	CreateConversation(ctx context.Context, title string) (model.Conversation, error)
	FetchConversations(ctx context.Context) ([]model.Conversation, error)
	FetchHistory(ctx context.Context, conversationID string) ([]*model.Turn, error)
	ProcessUserMessage(ctx context.Context, req api.ProcessRequest) (*api.ProcessResponse, error)
	FetchAuditResult(ctx context.Context, messageID string) (*api.AuditResult, error)
	RenameConversation(ctx context.Context, id, title string) error
	DeleteConversation(ctx context.Context, id string) error
	DeleteAccount(ctx context.Context) error
	UpdateUserProfile(ctx context.Context, key string) error
	UpdateUserModels(ctx context.Context, models map[string]string) error
	FetchProfiles(ctx context.Context) ([]api.Profile, error)
}

var _ Gateway = (*api.Client)(nil)

// Level is the severity of a user notification.
type Level int

const (
	LevelInfo Level = iota
	LevelSuccess
	LevelWarning
	LevelError
)

// String returns the level name.
func (l Level) String() string {
	switch l {
	case LevelInfo:
		return "info"
	case LevelSuccess:
		return "success"
	case LevelWarning:
		return "warning"
	case LevelError:
		return "error"
	default:
		return "unknown"
	}
}

// Renderer receives presentation updates from the controller. All methods
// are called from the Bubble Tea update loop.
type Renderer interface {
	// DisplayMessage appends a turn to the visible transcript.
	DisplayMessage(turn *model.Turn)

	// UpdateMessageWithAudit re-renders an already displayed assistant turn
	// after its audit or follow-ups changed. The turn was mutated in place.
	UpdateMessageWithAudit(messageID string, payload *model.AuditPayload)

	// SetActiveConversation updates the visible conversation id and title.
	// It does not touch the transcript.
	SetActiveConversation(id, title string)

	// ResetTranscript clears the visible transcript before another
	// conversation is shown.
	ResetTranscript()

	// RefreshConversationList redraws the sidebar.
	RefreshConversationList(items []model.Conversation)

	// Notify shows a transient notification.
	Notify(level Level, text string)

	// RestoreInput puts text back into the composer.
	RestoreInput(text string)
}

// NopRenderer discards all presentation updates.
type NopRenderer struct{}

func (NopRenderer) DisplayMessage(*model.Turn) {}
func (NopRenderer) UpdateMessageWithAudit(string, *model.AuditPayload) {}
func (NopRenderer) SetActiveConversation(string, string) {}
func (NopRenderer) ResetTranscript() {}
func (NopRenderer) RefreshConversationList([]model.Conversation) {}
func (NopRenderer) Notify(Level, string) {}
func (NopRenderer) RestoreInput(string) {}
