// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package protocol

import (
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/auditchat/internal/api"
	"github.com/jeranaias/auditchat/internal/model"
)

func TestAudit_BoundedRetryAlwaysPending(t *testing.T) {
	h := newHarness(t, func(o *Options) { o.MaxAttempts = 3 })

	var finished []AuditFinishedMsg
	h.runUntil(h.c.SendMessage("Hello"), func(msg tea.Msg) bool {
		if f, ok := msg.(AuditFinishedMsg); ok {
			finished = append(finished, f)
		}
		return false
	})

	assert.Equal(t, 3, h.gw.AuditCalls("m1"))
	assert.Zero(t, h.r.patched["m1"])
	turn, _ := h.c.store.FindTurn("m1")
	require.NotNil(t, turn)
	assert.False(t, turn.HasAudit())
	assert.Empty(t, h.c.Jobs())
	require.Len(t, finished, 1)
	assert.Equal(t, AuditTimedOut, finished[0].State)
	assert.Empty(t, h.r.notes, "timeouts are silent")
}

func TestAudit_FetchErrorsCountAsAttempts(t *testing.T) {
	h := newHarness(t, func(o *Options) { o.MaxAttempts = 3 })
	h.gw.audit = func(string, int) (*api.AuditResult, error) {
		return nil, api.ErrOffline
	}

	h.run(h.c.SendMessage("Hello"))

	assert.Equal(t, 3, h.gw.AuditCalls("m1"))
	assert.Empty(t, h.c.Jobs())
	assert.Empty(t, h.r.notes)
}

func TestAudit_ErrorThenComplete(t *testing.T) {
	h := newHarness(t, nil)
	h.gw.audit = func(_ string, n int) (*api.AuditResult, error) {
		if n == 1 {
			return nil, errors.New("boom")
		}
		return completeAudit(6), nil
	}

	h.run(h.c.SendMessage("Hello"))

	assert.Equal(t, 2, h.gw.AuditCalls("m1"))
	assert.Equal(t, 1, h.r.patched["m1"])
}

func TestAudit_DefaultsWhenUnset(t *testing.T) {
	c := New(Options{Gateway: newFakeGateway()})
	assert.Equal(t, DefaultMaxAttempts, c.maxAttempts)
	assert.Equal(t, DefaultInterval, c.interval)
	assert.Equal(t, 10, DefaultMaxAttempts)
	assert.Equal(t, 2*time.Second, DefaultInterval)
}

func TestAudit_CancelledOnNavigation(t *testing.T) {
	h := newHarness(t, nil)
	h.gw.audit = func(string, int) (*api.AuditResult, error) {
		return completeAudit(8), nil
	}
	h.openConversation("a")

	tick := h.runUntil(h.c.SendMessage("question"), func(msg tea.Msg) bool {
		_, ok := msg.(AuditTickMsg)
		return ok
	})
	require.IsType(t, AuditTickMsg{}, tick)
	require.Len(t, h.c.Jobs(), 1)

	h.openConversation("b")
	h.run(h.c.Update(tick))

	// A late completion for the old conversation is ignored too.
	h.run(h.c.Update(AuditResultMsg{MessageID: "m1", ConversationID: "a", Result: completeAudit(8)}))

	assert.Zero(t, h.gw.AuditCalls("m1"))
	assert.Zero(t, h.r.patched["m1"])
	assert.Empty(t, h.c.Jobs())
}

func TestAudit_CancelledWhenResultArrivesAfterNavigation(t *testing.T) {
	h := newHarness(t, nil)
	h.gw.audit = func(string, int) (*api.AuditResult, error) {
		return completeAudit(8), nil
	}
	h.openConversation("a")

	result := h.runUntil(h.c.SendMessage("question"), func(msg tea.Msg) bool {
		_, ok := msg.(AuditResultMsg)
		return ok
	})
	require.IsType(t, AuditResultMsg{}, result)

	h.run(h.c.NewConversation())
	h.run(h.c.Update(result))

	assert.Equal(t, 1, h.gw.AuditCalls("m1"))
	assert.Zero(t, h.r.patched["m1"])
}

func TestAudit_DuplicateArrivalPatchesOnce(t *testing.T) {
	h := newHarness(t, nil)
	h.openConversation("c1")
	turn := model.NewAssistantTurn("m1", "answer", time.Now())
	h.c.store.Append(turn)

	res := completeAudit(7, "Why?", "How?")
	h.c.applyAudit("m1", res.Payload, res.SuggestedFollowUps)
	h.c.applyAudit("m1", res.Payload.Clone(), res.SuggestedFollowUps)

	assert.Equal(t, 1, h.r.patched["m1"])
	assert.Equal(t, []string{"Why?", "How?"}, turn.SuggestedFollowUps)
	assert.Equal(t, []float64{7}, turn.Audit.SpiritScoreHistory)
}

func TestAudit_StaleTokenIgnored(t *testing.T) {
	h := newHarness(t, nil)
	h.openConversation("c1")
	h.c.store.Append(model.NewAssistantTurn("m1", "answer", time.Now()))
	h.run(h.c.startAudit("m1", "c1")) // runs to timeout with pending answers

	calls := h.gw.AuditCalls("m1")
	h.run(h.c.Update(AuditTickMsg{MessageID: "m1", ConversationID: "c1"}))
	h.run(h.c.Update(AuditResultMsg{MessageID: "m1", ConversationID: "c1", Result: completeAudit(5)}))

	assert.Equal(t, calls, h.gw.AuditCalls("m1"), "no fetch for a finished job")
	assert.Zero(t, h.r.patched["m1"])
}

func TestAudit_EmptyCompletionAddsOnlyFollowUps(t *testing.T) {
	h := newHarness(t, nil)
	h.gw.audit = func(string, int) (*api.AuditResult, error) {
		return &api.AuditResult{
			Status:             api.AuditComplete,
			Payload:            &model.AuditPayload{},
			SuggestedFollowUps: []string{"Next?"},
		}, nil
	}

	h.run(h.c.SendMessage("Hello"))

	turn, _ := h.c.store.FindTurn("m1")
	require.NotNil(t, turn)
	assert.False(t, turn.HasAudit())
	assert.Equal(t, []string{"Next?"}, turn.SuggestedFollowUps)
	assert.Equal(t, 1, h.gw.AuditCalls("m1"))
	assert.Empty(t, h.c.Jobs())
}

func TestAudit_IndependentJobs(t *testing.T) {
	h := newHarness(t, func(o *Options) { o.MaxAttempts = 5 })
	h.openConversation("c1")
	h.c.store.Append(model.NewAssistantTurn("m1", "one", time.Now()))
	h.c.store.Append(model.NewAssistantTurn("m2", "two", time.Now()))
	h.gw.audit = func(id string, n int) (*api.AuditResult, error) {
		switch {
		case id == "m1" && n == 3:
			return completeAudit(4), nil
		case id == "m2" && n == 1:
			return completeAudit(9), nil
		}
		return &api.AuditResult{Status: api.AuditPending}, nil
	}

	h.run(tea.Batch(h.c.startAudit("m1", "c1"), h.c.startAudit("m2", "c1")))

	assert.Equal(t, 3, h.gw.AuditCalls("m1"))
	assert.Equal(t, 1, h.gw.AuditCalls("m2"))
	assert.Equal(t, 1, h.r.patched["m1"])
	assert.Equal(t, 1, h.r.patched["m2"])

	second, _ := h.c.store.FindTurn("m2")
	assert.Equal(t, []float64{4, 9}, second.Audit.SpiritScoreHistory)
}

func TestAudit_StartIsIdempotent(t *testing.T) {
	h := newHarness(t, nil)
	h.openConversation("c1")

	require.NotNil(t, h.c.startAudit("m1", "c1"))
	assert.Nil(t, h.c.startAudit("m1", "c1"))
	assert.Nil(t, h.c.startAudit("", "c1"))
	assert.Len(t, h.c.Jobs(), 1)
}

func TestAudit_ScoreHistoryLengthMatchesAuditedTurns(t *testing.T) {
	h := newHarness(t, nil)
	next := 0
	h.gw.process = func(api.ProcessRequest) (*api.ProcessResponse, error) {
		next++
		return &api.ProcessResponse{FinalOutput: "ok", MessageID: "m" + string(rune('0'+next))}, nil
	}
	h.gw.audit = func(id string, _ int) (*api.AuditResult, error) {
		return completeAudit(float64(id[1] - '0')), nil
	}

	const n = 4
	for i := 0; i < n; i++ {
		h.run(h.c.SendMessage("question"))
	}

	last, _ := h.c.store.FindTurn("m4")
	require.NotNil(t, last)
	require.True(t, last.HasAudit())
	assert.Equal(t, []float64{1, 2, 3, 4}, last.Audit.SpiritScoreHistory)
	assert.Len(t, h.c.store.Conversations(), 1, "only the first send creates a conversation")
}

func TestAuditState_String(t *testing.T) {
	assert.Equal(t, "scheduled", AuditScheduled.String())
	assert.Equal(t, "timed_out", AuditTimedOut.String())
	assert.True(t, AuditCancelled.Terminal())
	assert.False(t, AuditPolling.Terminal())
}
