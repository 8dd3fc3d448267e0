// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jeranaias/auditchat/internal/model"
)

// =============================================================================
// DECODER
// =============================================================================

// decoder normalizes server payloads. Malformed audit fields decode to empty
// values and are logged, never returned as errors.
type decoder struct {
	logger *zap.Logger
}

// unwrapSerialized returns the JSON held in raw. Fields that were serialized
// into a JSON string are unwrapped once. Null and empty input return nil.
func unwrapSerialized(raw json.RawMessage) (json.RawMessage, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, true
	}
	if raw[0] != '"' {
		return raw, true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, false
	}
	s = strings.TrimSpace(s)
	if s == "" || s == "null" {
		return nil, true
	}
	return json.RawMessage(s), true
}

// ledgerEntryWire tolerates numbers sent as strings.
type ledgerEntryWire struct {
	Value      string    `json:"value"`
	Name       string    `json:"name"`
	Score      flexFloat `json:"score"`
	Confidence flexFloat `json:"confidence"`
	Reason     string    `json:"reason"`
}

func (d decoder) ledger(raw json.RawMessage) []model.LedgerEntry {
	data, ok := unwrapSerialized(raw)
	if !ok {
		d.logger.Warn("malformed ledger, using empty ledger")
		return nil
	}
	if data == nil {
		return nil
	}

	var wire []ledgerEntryWire
	if err := json.Unmarshal(data, &wire); err != nil {
		d.logger.Warn("malformed ledger, using empty ledger", zap.Error(err))
		return nil
	}

	entries := make([]model.LedgerEntry, 0, len(wire))
	for _, w := range wire {
		value := w.Value
		if value == "" {
			value = w.Name
		}
		entries = append(entries, model.LedgerEntry{
			Value:      value,
			Score:      float64(w.Score),
			Confidence: float64(w.Confidence),
			Reason:     w.Reason,
		})
	}
	return entries
}

func (d decoder) values(raw json.RawMessage) []string {
	data, ok := unwrapSerialized(raw)
	if !ok {
		d.logger.Warn("malformed values, using empty list")
		return nil
	}
	if data == nil {
		return nil
	}

	var names []string
	if err := json.Unmarshal(data, &names); err == nil {
		return names
	}

	var objects []struct {
		Name  string `json:"name"`
		Value string `json:"value"`
	}
	if err := json.Unmarshal(data, &objects); err != nil {
		d.logger.Warn("malformed values, using empty list", zap.Error(err))
		return nil
	}
	out := make([]string, 0, len(objects))
	for _, o := range objects {
		if o.Name != "" {
			out = append(out, o.Name)
		} else if o.Value != "" {
			out = append(out, o.Value)
		}
	}
	return out
}

func (d decoder) stringList(raw json.RawMessage) []string {
	data, ok := unwrapSerialized(raw)
	if !ok || data == nil {
		return nil
	}
	var out []string
	if err := json.Unmarshal(data, &out); err != nil {
		d.logger.Warn("malformed suggestion list", zap.Error(err))
		return nil
	}
	return out
}

func (d decoder) score(raw json.RawMessage) *float64 {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	var f flexFloat
	if err := json.Unmarshal(raw, &f); err != nil {
		d.logger.Warn("malformed spirit score", zap.Error(err))
		return nil
	}
	s := model.ClampScore(float64(f))
	return &s
}

// audit builds a payload from the shared audit fields. It returns nil when
// the fields carry neither a ledger nor a score.
func (d decoder) audit(w auditFieldsWire) *model.AuditPayload {
	ledger := d.ledger(w.Ledger)
	score := d.score(w.SpiritScore)
	if len(ledger) == 0 && score == nil {
		return nil
	}
	profile := w.ProfileName
	if profile == "" {
		profile = w.Profile
	}
	return &model.AuditPayload{
		Ledger:      ledger,
		ProfileName: profile,
		Values:      d.values(w.Values),
		SpiritScore: score,
	}
}

// =============================================================================
// RESPONSE NORMALIZATION
// =============================================================================

func (d decoder) processResponse(w processResponseWire) *ProcessResponse {
	resp := &ProcessResponse{
		FinalOutput:        w.FinalOutput,
		MessageID:          w.MessageID,
		NewTitle:           strings.TrimSpace(w.NewTitle),
		SuggestedFollowUps: d.stringList(w.SuggestedPrompts),
	}
	if payload := d.audit(w.auditFieldsWire); payload.HasLedger() {
		resp.Audit = payload
	}
	return resp
}

func (d decoder) auditResult(w auditResultWire) *AuditResult {
	result := &AuditResult{Status: AuditPending}
	if strings.EqualFold(strings.TrimSpace(w.Status), string(AuditComplete)) {
		result.Status = AuditComplete
	}
	if !result.Complete() {
		return result
	}

	result.Payload = d.audit(w.auditFieldsWire)
	if result.Payload == nil {
		// complete with nothing to show still resolves the job
		result.Payload = &model.AuditPayload{ProfileName: w.Profile, Values: d.values(w.Values)}
	}
	result.SuggestedFollowUps = d.stringList(w.SuggestedPrompts)
	return result
}

func (d decoder) conversation(w conversationWire) model.Conversation {
	updated := w.LastUpdated.Time()
	if updated.IsZero() {
		updated = w.UpdatedAt.Time()
	}
	return model.Conversation{ID: w.ID, Title: w.Title, LastUpdated: updated}
}

// conversations accepts a bare array or an object with a conversations field.
func (d decoder) conversations(body []byte) ([]model.Conversation, error) {
	var list []conversationWire
	if err := json.Unmarshal(body, &list); err != nil {
		var wrapped conversationListWire
		if err2 := json.Unmarshal(body, &wrapped); err2 != nil {
			return nil, err
		}
		list = wrapped.Conversations
	}

	out := make([]model.Conversation, 0, len(list))
	for _, w := range list {
		if w.ID == "" {
			continue
		}
		out = append(out, d.conversation(w))
	}
	model.SortConversations(out)
	return out, nil
}

// history accepts a bare array or an object with a messages field.
func (d decoder) history(body []byte) ([]*model.Turn, error) {
	var list []historyTurnWire
	if err := json.Unmarshal(body, &list); err != nil {
		var wrapped historyWire
		if err2 := json.Unmarshal(body, &wrapped); err2 != nil {
			return nil, err
		}
		list = wrapped.Messages
	}

	turns := make([]*model.Turn, 0, len(list))
	for _, w := range list {
		id := w.MessageID
		if id == "" {
			id = w.ID
		}
		var turn *model.Turn
		if strings.EqualFold(w.Role, string(model.RoleUser)) {
			turn = model.NewUserTurn(w.Content)
			turn.ID = id
			if ts := w.Timestamp.Time(); !ts.IsZero() {
				turn.Timestamp = ts
			}
		} else {
			turn = model.NewAssistantTurn(id, w.Content, w.Timestamp.Time())
			turn.Audit = d.audit(w.auditFieldsWire)
			turn.AddFollowUps(d.stringList(w.SuggestedPrompts))
		}
		turns = append(turns, turn)
	}
	return turns, nil
}

// =============================================================================
// FLEXIBLE SCALARS
// =============================================================================

// flexFloat accepts a JSON number or a numeric string.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = 0
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*f = 0
			return nil
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return err
		}
		*f = flexFloat(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = flexFloat(v)
	return nil
}

// flexTime accepts RFC 3339 strings, "YYYY-MM-DD HH:MM:SS" strings and
// epoch milliseconds. Unparseable input decodes to the zero time.
type flexTime time.Time

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

func (t *flexTime) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*t = flexTime{}
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if data[0] != '"' {
		ms, err := strconv.ParseInt(string(data), 10, 64)
		if err == nil {
			*t = flexTime(time.UnixMilli(ms).UTC())
		}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return nil
	}
	for _, layout := range timeLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			*t = flexTime(parsed)
			return nil
		}
	}
	return nil
}

// Time returns the parsed time.
func (t flexTime) Time() time.Time {
	return time.Time(t)
}
