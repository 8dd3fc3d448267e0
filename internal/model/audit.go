// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations, turns and audits.
package model

import (
	"fmt"
	"slices"
	"sort"
)

// Spirit scores are reported on a 0-10 scale.
const (
	MinSpiritScore = 0.0
	MaxSpiritScore = 10.0
)

// =============================================================================
// LEDGER
// =============================================================================

// LedgerEntry is one value-by-value judgment produced by the audit.
// Score is conceptually in [-1, 1]; only its sign is used for grouping.
type LedgerEntry struct {
	Value      string  `json:"value"`
	Score      float64 `json:"score"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason"`
}

// LedgerGroups partitions a ledger by the sign of each entry's score.
type LedgerGroups struct {
	Upholds   []LedgerEntry
	Conflicts []LedgerEntry
	Neutral   []LedgerEntry
}

// Len returns the total number of grouped entries.
func (g LedgerGroups) Len() int {
	return len(g.Upholds) + len(g.Conflicts) + len(g.Neutral)
}

// GroupLedger splits entries into upholds (score > 0), conflicts (score < 0)
// and neutral (score == 0), each ordered by descending confidence. Entries
// with equal confidence keep their ledger order.
func GroupLedger(entries []LedgerEntry) LedgerGroups {
	var g LedgerGroups
	for _, e := range entries {
		switch {
		case e.Score > 0:
			g.Upholds = append(g.Upholds, e)
		case e.Score < 0:
			g.Conflicts = append(g.Conflicts, e)
		default:
			g.Neutral = append(g.Neutral, e)
		}
	}
	byConfidence := func(s []LedgerEntry) {
		sort.SliceStable(s, func(i, j int) bool {
			return s[i].Confidence > s[j].Confidence
		})
	}
	byConfidence(g.Upholds)
	byConfidence(g.Conflicts)
	byConfidence(g.Neutral)
	return g
}

// =============================================================================
// AUDIT PAYLOAD
// =============================================================================

// AuditPayload is the audit judgment attached to an assistant turn.
type AuditPayload struct {
	Ledger      []LedgerEntry `json:"ledger"`
	ProfileName string        `json:"profile_name,omitempty"`
	Values      []string      `json:"values,omitempty"`

	// SpiritScore is nil when the server did not report one.
	SpiritScore *float64 `json:"spirit_score,omitempty"`

	// SpiritScoreHistory is recomputed locally from the turn history.
	SpiritScoreHistory []float64 `json:"spirit_score_history,omitempty"`
}

// HasLedger reports whether the payload carries at least one ledger entry.
func (p *AuditPayload) HasLedger() bool {
	return p != nil && len(p.Ledger) > 0
}

// Score returns the spirit score and whether one is present.
func (p *AuditPayload) Score() (float64, bool) {
	if p == nil || p.SpiritScore == nil {
		return 0, false
	}
	return *p.SpiritScore, true
}

// Groups returns the grouped ledger.
func (p *AuditPayload) Groups() LedgerGroups {
	if p == nil {
		return LedgerGroups{}
	}
	return GroupLedger(p.Ledger)
}

// SameJudgment reports whether two payloads carry the same server judgment.
// The locally computed score history is ignored.
func (p *AuditPayload) SameJudgment(other *AuditPayload) bool {
	if p == nil || other == nil {
		return p == other
	}
	if p.ProfileName != other.ProfileName {
		return false
	}
	if !slices.Equal(p.Ledger, other.Ledger) || !slices.Equal(p.Values, other.Values) {
		return false
	}
	a, okA := p.Score()
	b, okB := other.Score()
	return okA == okB && a == b
}

// Clone returns a deep copy of the payload.
func (p *AuditPayload) Clone() *AuditPayload {
	if p == nil {
		return nil
	}
	c := &AuditPayload{
		Ledger:             slices.Clone(p.Ledger),
		ProfileName:        p.ProfileName,
		Values:             slices.Clone(p.Values),
		SpiritScoreHistory: slices.Clone(p.SpiritScoreHistory),
	}
	if p.SpiritScore != nil {
		s := *p.SpiritScore
		c.SpiritScore = &s
	}
	return c
}

// Summary returns a one-line description such as "7.5/10 · 3 upholds, 1 conflict".
func (p *AuditPayload) Summary() string {
	g := p.Groups()
	counts := fmt.Sprintf("%d upholds, %d conflicts, %d neutral", len(g.Upholds), len(g.Conflicts), len(g.Neutral))
	if s, ok := p.Score(); ok {
		return fmt.Sprintf("%.1f/10 · %s", s, counts)
	}
	return counts
}

// ClampScore bounds a spirit score to the 0-10 scale.
func ClampScore(s float64) float64 {
	if s < MinSpiritScore {
		return MinSpiritScore
	}
	if s > MaxSpiritScore {
		return MaxSpiritScore
	}
	return s
}

// ScoreHistory collects the spirit scores of audited turns in turns[0..upTo],
// in turn order. Turns without a score are skipped.
func ScoreHistory(turns []*Turn, upTo int) []float64 {
	if upTo >= len(turns) {
		upTo = len(turns) - 1
	}
	history := make([]float64, 0, upTo+1)
	for i := 0; i <= upTo; i++ {
		if s, ok := turns[i].Audit.Score(); ok {
			history = append(history, s)
		}
	}
	return history
}
