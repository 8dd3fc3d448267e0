// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package offline

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// OperationKind identifies the gateway function a queued operation replays.
type OperationKind string

const (
	KindSendMessage   OperationKind = "sendMessage"
	KindRename        OperationKind = "rename"
	KindDelete        OperationKind = "delete"
	KindProfileChange OperationKind = "profileChange"
	KindModelChange   OperationKind = "modelChange"
	KindDeleteAccount OperationKind = "deleteAccount"
)

// String returns the kind name.
func (k OperationKind) String() string {
	return string(k)
}

// Describe returns a short human-readable label for notifications.
func (k OperationKind) Describe() string {
	switch k {
	case KindSendMessage:
		return "send message"
	case KindRename:
		return "rename conversation"
	case KindDelete:
		return "delete conversation"
	case KindProfileChange:
		return "change audit profile"
	case KindModelChange:
		return "change models"
	case KindDeleteAccount:
		return "delete account"
	default:
		return string(k)
	}
}

// QueuedOperation is a mutation waiting to be replayed.
type QueuedOperation struct {
	ID         string          `json:"id"`
	Kind       OperationKind   `json:"kind"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	EnqueuedAt time.Time       `json:"enqueued_at"`
}

// NewOperation creates an operation with a fresh id and payload encoded as JSON.
func NewOperation(kind OperationKind, payload any) (QueuedOperation, error) {
	op := QueuedOperation{
		ID:         uuid.NewString(),
		Kind:       kind,
		EnqueuedAt: time.Now().UTC(),
	}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return QueuedOperation{}, fmt.Errorf("encode %s payload: %w", kind, err)
		}
		op.Payload = data
	}
	return op, nil
}

// Decode unmarshals the payload into v.
func (op QueuedOperation) Decode(v any) error {
	if len(op.Payload) == 0 {
		return fmt.Errorf("%s operation %s has no payload", op.Kind, op.ID)
	}
	if err := json.Unmarshal(op.Payload, v); err != nil {
		return fmt.Errorf("decode %s payload: %w", op.Kind, err)
	}
	return nil
}

// Age returns how long the operation has been queued.
func (op QueuedOperation) Age() time.Duration {
	return time.Since(op.EnqueuedAt)
}

// =============================================================================
// PAYLOADS
// =============================================================================

// RenamePayload is the payload of a KindRename operation.
type RenamePayload struct {
	ConversationID string `json:"conversation_id"`
	Title          string `json:"title"`
}

// DeletePayload is the payload of a KindDelete operation.
type DeletePayload struct {
	ConversationID string `json:"conversation_id"`
}

// ProfilePayload is the payload of a KindProfileChange operation.
type ProfilePayload struct {
	ProfileKey string `json:"profile_key"`
}

// ModelsPayload is the payload of a KindModelChange operation.
type ModelsPayload struct {
	Models map[string]string `json:"models"`
}
