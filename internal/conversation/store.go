// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package conversation holds the in-memory conversation list and the turn
// history of the currently open conversation.
//
// The Store is the single source of truth for rendering. It is owned by the
// event loop and is not safe for concurrent use.
package conversation

import (
	"time"

	"github.com/jeranaias/auditchat/internal/model"
)

// PatchOutcome describes what PatchAudit did.
type PatchOutcome int

const (
	// PatchApplied means the turn changed and should be re-rendered.
	PatchApplied PatchOutcome = iota
	// PatchUnchanged means the same audit was already attached.
	PatchUnchanged
	// PatchMissing means no turn in the open conversation has that message id.
	PatchMissing
)

// String returns a short name for logging.
func (o PatchOutcome) String() string {
	switch o {
	case PatchApplied:
		return "applied"
	case PatchUnchanged:
		return "unchanged"
	case PatchMissing:
		return "missing"
	default:
		return "unknown"
	}
}

// Store keeps the conversation list and the open conversation.
type Store struct {
	conversations []model.Conversation
	current       model.Conversation
	turns         []*model.Turn
}

// NewStore creates an empty store with a draft conversation open.
func NewStore() *Store {
	return &Store{}
}

// =============================================================================
// CONVERSATION LIST
// =============================================================================

// Conversations returns a copy of the list, most recently updated first.
func (s *Store) Conversations() []model.Conversation {
	out := make([]model.Conversation, len(s.conversations))
	copy(out, s.conversations)
	return out
}

// SetConversations replaces the list. Drafts are dropped.
func (s *Store) SetConversations(convs []model.Conversation) {
	list := make([]model.Conversation, 0, len(convs))
	for _, c := range convs {
		if c.IsDraft() {
			continue
		}
		list = append(list, c)
	}
	model.SortConversations(list)
	s.conversations = list

	if !s.current.IsDraft() {
		if c, ok := s.Lookup(s.current.ID); ok {
			s.current.Title = c.Title
		}
	}
}

// Upsert inserts or replaces a conversation by ID. Drafts are ignored.
func (s *Store) Upsert(conv model.Conversation) bool {
	if conv.IsDraft() {
		return false
	}
	replaced := false
	for i := range s.conversations {
		if s.conversations[i].ID == conv.ID {
			s.conversations[i] = conv
			replaced = true
			break
		}
	}
	if !replaced {
		s.conversations = append(s.conversations, conv)
	}
	model.SortConversations(s.conversations)
	if s.current.ID == conv.ID {
		s.current = conv
	}
	return true
}

// Lookup finds a listed conversation by ID.
func (s *Store) Lookup(id string) (model.Conversation, bool) {
	for _, c := range s.conversations {
		if c.ID == id {
			return c, true
		}
	}
	return model.Conversation{}, false
}

// Remove deletes a conversation from the list. Removing the open
// conversation resets the store to a fresh draft.
func (s *Store) Remove(id string) bool {
	for i, c := range s.conversations {
		if c.ID == id {
			s.conversations = append(s.conversations[:i], s.conversations[i+1:]...)
			if s.current.ID == id {
				s.StartDraft()
			}
			return true
		}
	}
	return false
}

// Rename sets the title of a conversation in the list and, if open, the
// current conversation.
func (s *Store) Rename(id, title string) bool {
	found := false
	for i := range s.conversations {
		if s.conversations[i].ID == id {
			s.conversations[i].Title = title
			found = true
		}
	}
	if s.current.ID == id && id != "" {
		s.current.Title = title
		found = true
	}
	return found
}

// Touch bumps LastUpdated of a listed conversation and re-sorts the list.
func (s *Store) Touch(id string, at time.Time) {
	for i := range s.conversations {
		if s.conversations[i].ID == id {
			s.conversations[i].LastUpdated = at
		}
	}
	if s.current.ID == id {
		s.current.LastUpdated = at
	}
	model.SortConversations(s.conversations)
}

// =============================================================================
// OPEN CONVERSATION
// =============================================================================

// Current returns the open conversation (possibly a draft).
func (s *Store) Current() model.Conversation {
	return s.current
}

// CurrentID returns the open conversation's ID, or "" for a draft.
func (s *Store) CurrentID() string {
	return s.current.ID
}

// StartDraft opens an empty, unsaved conversation.
func (s *Store) StartDraft() {
	s.current = model.Conversation{}
	s.turns = nil
}

// AssignID promotes the open draft to a server conversation, keeping the
// turns already displayed, and lists it.
func (s *Store) AssignID(conv model.Conversation) {
	if conv.LastUpdated.IsZero() {
		conv.LastUpdated = time.Now()
	}
	s.current = conv
	s.Upsert(conv)
}

// Open replaces the open conversation and its turns. Score histories of
// audited turns are rebuilt from the history.
func (s *Store) Open(conv model.Conversation, turns []*model.Turn) {
	s.current = conv
	s.turns = turns
	s.recomputeHistories(0)
}

// Turns returns the open conversation's turns in order. The slice must not
// be modified by the caller.
func (s *Store) Turns() []*model.Turn {
	return s.turns
}

// Append adds a turn to the open conversation.
func (s *Store) Append(turn *model.Turn) {
	s.turns = append(s.turns, turn)
}

// FindTurn returns the turn with the given server message id and its index.
func (s *Store) FindTurn(messageID string) (*model.Turn, int) {
	if messageID == "" {
		return nil, -1
	}
	for i, t := range s.turns {
		if t.ID == messageID {
			return t, i
		}
	}
	return nil, -1
}

// PatchAudit attaches an audit to an already displayed turn in place.
//
// The score history is recomputed from the turns up to and including the
// patched one. Repeating the same judgment does not change the turn and
// follow-up suggestions are never duplicated.
func (s *Store) PatchAudit(messageID string, payload *model.AuditPayload, followUps []string) (*model.Turn, PatchOutcome) {
	turn, idx := s.FindTurn(messageID)
	if turn == nil {
		return nil, PatchMissing
	}

	changed := false
	if payload != nil && !turn.Audit.SameJudgment(payload) {
		turn.Audit = payload.Clone()
		turn.Audit.SpiritScoreHistory = model.ScoreHistory(s.turns, idx)
		s.recomputeHistories(idx + 1)
		changed = true
	}
	if turn.AddFollowUps(followUps) > 0 {
		changed = true
	}

	if !changed {
		return turn, PatchUnchanged
	}
	return turn, PatchApplied
}

// recomputeHistories refreshes score histories of audited turns from index
// start onwards.
func (s *Store) recomputeHistories(start int) {
	for i := start; i < len(s.turns); i++ {
		if s.turns[i].Audit != nil {
			s.turns[i].Audit.SpiritScoreHistory = model.ScoreHistory(s.turns, i)
		}
	}
}
