// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"strings"
	"testing"
	"time"
)

func score(v float64) *float64 { return &v }

// =============================================================================
// TURN TESTS
// =============================================================================

func TestTurn_DisplayContentFallback(t *testing.T) {
	tests := []struct {
		name string
		turn *Turn
		want string
	}{
		{"empty assistant", NewAssistantTurn("m1", "", time.Time{}), FallbackContent},
		{"whitespace assistant", NewAssistantTurn("m1", "  \n", time.Time{}), FallbackContent},
		{"assistant with text", NewAssistantTurn("m1", "Hi", time.Time{}), "Hi"},
		{"user text", NewUserTurn("Hello"), "Hello"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.turn.DisplayContent(); got != tc.want {
				t.Errorf("DisplayContent() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestNewUserTurn_IsOptimistic(t *testing.T) {
	turn := NewUserTurn("Hello")
	if turn.ID != "" {
		t.Errorf("optimistic user turn should have no server id, got %q", turn.ID)
	}
	if !strings.HasPrefix(turn.ClientID, "turn_") {
		t.Errorf("ClientID = %q, want turn_ prefix", turn.ClientID)
	}
	if turn.Timestamp.IsZero() {
		t.Error("optimistic turn should carry a client timestamp")
	}
}

func TestTurn_AddFollowUpsDeduplicates(t *testing.T) {
	turn := NewAssistantTurn("m1", "ok", time.Now())

	if n := turn.AddFollowUps([]string{"Why?", "Tell me more", "Why?"}); n != 2 {
		t.Errorf("first AddFollowUps added %d, want 2", n)
	}
	if n := turn.AddFollowUps([]string{"Why?", "Tell me more", " "}); n != 0 {
		t.Errorf("second AddFollowUps added %d, want 0", n)
	}
	if len(turn.SuggestedFollowUps) != 2 {
		t.Errorf("SuggestedFollowUps = %v, want 2 entries", turn.SuggestedFollowUps)
	}
}

func TestTurn_Preview(t *testing.T) {
	turn := NewUserTurn("héllo wörld, this is long")
	if got := turn.Preview(8); got != "héllo..." {
		t.Errorf("Preview(8) = %q", got)
	}
	if got := turn.Preview(100); got != "héllo wörld, this is long" {
		t.Errorf("Preview(100) = %q", got)
	}
}

// =============================================================================
// LEDGER TESTS
// =============================================================================

func TestGroupLedger_PartitionAndOrder(t *testing.T) {
	entries := []LedgerEntry{
		{Value: "honesty", Score: 1, Confidence: 0.4},
		{Value: "care", Score: -0.5, Confidence: 0.7},
		{Value: "privacy", Score: 0, Confidence: 0.2},
		{Value: "fairness", Score: 0.3, Confidence: 0.9},
		{Value: "autonomy", Score: -1, Confidence: 0.95},
		{Value: "humility", Score: 0, Confidence: 0.8},
	}

	g := GroupLedger(entries)

	if g.Len() != len(entries) {
		t.Fatalf("grouped %d entries, want %d", g.Len(), len(entries))
	}

	wantOrder := func(name string, got []LedgerEntry, want ...string) {
		t.Helper()
		if len(got) != len(want) {
			t.Fatalf("%s: got %d entries, want %d", name, len(got), len(want))
		}
		for i, w := range want {
			if got[i].Value != w {
				t.Errorf("%s[%d] = %q, want %q", name, i, got[i].Value, w)
			}
		}
	}
	wantOrder("upholds", g.Upholds, "fairness", "honesty")
	wantOrder("conflicts", g.Conflicts, "autonomy", "care")
	wantOrder("neutral", g.Neutral, "humility", "privacy")
}

func TestGroupLedger_Empty(t *testing.T) {
	if g := GroupLedger(nil); g.Len() != 0 {
		t.Errorf("GroupLedger(nil).Len() = %d, want 0", g.Len())
	}
}

// =============================================================================
// AUDIT PAYLOAD TESTS
// =============================================================================

func TestAuditPayload_SameJudgmentIgnoresHistory(t *testing.T) {
	a := &AuditPayload{
		Ledger:      []LedgerEntry{{Value: "honesty", Score: 1, Confidence: 0.9}},
		SpiritScore: score(8),
	}
	b := a.Clone()
	b.SpiritScoreHistory = []float64{7, 8}

	if !a.SameJudgment(b) {
		t.Error("payloads differing only in history should be the same judgment")
	}

	b.SpiritScore = score(3)
	if a.SameJudgment(b) {
		t.Error("payloads with different scores should differ")
	}

	var nilPayload *AuditPayload
	if nilPayload.SameJudgment(a) {
		t.Error("nil payload should not equal a non-nil payload")
	}
}

func TestAuditPayload_CloneIsDeep(t *testing.T) {
	a := &AuditPayload{
		Ledger:      []LedgerEntry{{Value: "honesty", Score: 1}},
		SpiritScore: score(5),
	}
	c := a.Clone()
	c.Ledger[0].Value = "changed"
	*c.SpiritScore = 9

	if a.Ledger[0].Value != "honesty" {
		t.Error("Clone shares ledger storage")
	}
	if s, _ := a.Score(); s != 5 {
		t.Error("Clone shares score storage")
	}
}

func TestAuditPayload_Summary(t *testing.T) {
	p := &AuditPayload{
		Ledger: []LedgerEntry{
			{Value: "a", Score: 1},
			{Value: "b", Score: -1},
		},
		SpiritScore: score(7.25),
	}
	got := p.Summary()
	if !strings.HasPrefix(got, "7.2/10") && !strings.HasPrefix(got, "7.3/10") {
		t.Errorf("Summary() = %q, want score prefix", got)
	}
	if !strings.Contains(got, "1 upholds, 1 conflicts, 0 neutral") {
		t.Errorf("Summary() = %q, want group counts", got)
	}
}

func TestClampScore(t *testing.T) {
	for in, want := range map[float64]float64{-2: 0, 0: 0, 5.5: 5.5, 10: 10, 12: 10} {
		if got := ClampScore(in); got != want {
			t.Errorf("ClampScore(%v) = %v, want %v", in, got, want)
		}
	}
}

func TestScoreHistory(t *testing.T) {
	turns := []*Turn{
		NewUserTurn("q1"),
		{Role: RoleAssistant, Audit: &AuditPayload{SpiritScore: score(6)}},
		NewUserTurn("q2"),
		{Role: RoleAssistant}, // never audited
		NewUserTurn("q3"),
		{Role: RoleAssistant, Audit: &AuditPayload{SpiritScore: score(9)}},
	}

	if got := ScoreHistory(turns, 5); len(got) != 2 || got[0] != 6 || got[1] != 9 {
		t.Errorf("ScoreHistory(all) = %v, want [6 9]", got)
	}
	if got := ScoreHistory(turns, 2); len(got) != 1 || got[0] != 6 {
		t.Errorf("ScoreHistory(upTo 2) = %v, want [6]", got)
	}
	if got := ScoreHistory(turns, 99); len(got) != 2 {
		t.Errorf("ScoreHistory(out of range) = %v, want 2 entries", got)
	}
}

// =============================================================================
// CONVERSATION TESTS
// =============================================================================

func TestSortConversations(t *testing.T) {
	now := time.Now()
	convs := []Conversation{
		{ID: "old", LastUpdated: now.Add(-time.Hour)},
		{ID: "new", LastUpdated: now},
		{ID: "mid", LastUpdated: now.Add(-time.Minute)},
	}
	SortConversations(convs)

	for i, want := range []string{"new", "mid", "old"} {
		if convs[i].ID != want {
			t.Errorf("convs[%d] = %q, want %q", i, convs[i].ID, want)
		}
	}
}

func TestConversation_DraftAndTitle(t *testing.T) {
	var c Conversation
	if !c.IsDraft() {
		t.Error("zero conversation should be a draft")
	}
	if c.GetTitle() != DefaultTitle {
		t.Errorf("GetTitle() = %q, want %q", c.GetTitle(), DefaultTitle)
	}
	c.ID, c.Title = "c1", "Ethics"
	if c.IsDraft() || c.GetTitle() != "Ethics" {
		t.Errorf("unexpected conversation state %+v", c)
	}
}
