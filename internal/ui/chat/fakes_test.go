// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/auditchat/internal/api"
	"github.com/jeranaias/auditchat/internal/model"
	"github.com/jeranaias/auditchat/internal/protocol"
	"github.com/jeranaias/auditchat/internal/ui/styles"
)

// =============================================================================
// STUB GATEWAY
// =============================================================================

type stubGateway struct {
	mu    sync.Mutex
	calls []string

	conversations []model.Conversation
	history       map[string][]*model.Turn
	profiles      []api.Profile
	processErr    error
	reply         string
	mutationErr   error
	audit         *api.AuditResult
}

func newStubGateway() *stubGateway {
	s := 8.0
	return &stubGateway{
		reply:   "Hi there",
		history: make(map[string][]*model.Turn),
		audit: &api.AuditResult{
			Status: api.AuditComplete,
			Payload: &model.AuditPayload{
				Ledger: []model.LedgerEntry{
					{Value: "honesty", Score: 1, Confidence: 0.9, Reason: "states limits plainly"},
					{Value: "care", Score: -0.4, Confidence: 0.5},
				},
				SpiritScore: &s,
			},
			SuggestedFollowUps: []string{"Why?", "Tell me more"},
		},
	}
}

func (g *stubGateway) record(call string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, call)
}

func (g *stubGateway) count(call string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := 0
	for _, c := range g.calls {
		if c == call {
			n++
		}
	}
	return n
}

func (g *stubGateway) CreateConversation(context.Context, string) (model.Conversation, error) {
	g.record("create")
	return model.Conversation{ID: "c1", Title: "Hello", LastUpdated: time.Now()}, nil
}

func (g *stubGateway) FetchConversations(context.Context) ([]model.Conversation, error) {
	g.record("list")
	return g.conversations, nil
}

func (g *stubGateway) FetchHistory(_ context.Context, id string) ([]*model.Turn, error) {
	g.record("history:" + id)
	return g.history[id], nil
}

func (g *stubGateway) ProcessUserMessage(context.Context, api.ProcessRequest) (*api.ProcessResponse, error) {
	g.record("process")
	if g.processErr != nil {
		return nil, g.processErr
	}
	return &api.ProcessResponse{FinalOutput: g.reply, MessageID: "m1"}, nil
}

func (g *stubGateway) FetchAuditResult(context.Context, string) (*api.AuditResult, error) {
	g.record("audit")
	return g.audit, nil
}

func (g *stubGateway) RenameConversation(context.Context, string, string) error {
	g.record("rename")
	return g.mutationErr
}

func (g *stubGateway) DeleteConversation(context.Context, string) error {
	g.record("delete")
	return g.mutationErr
}

func (g *stubGateway) DeleteAccount(context.Context) error {
	g.record("delete_account")
	return g.mutationErr
}

func (g *stubGateway) UpdateUserProfile(context.Context, string) error {
	g.record("profile")
	return g.mutationErr
}

func (g *stubGateway) UpdateUserModels(context.Context, map[string]string) error {
	g.record("models")
	return g.mutationErr
}

func (g *stubGateway) FetchProfiles(context.Context) ([]api.Profile, error) {
	g.record("profiles")
	return g.profiles, nil
}

// =============================================================================
// HARNESS
// =============================================================================

type harness struct {
	t  *testing.T
	m  *Model
	gw *stubGateway
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	gw := newStubGateway()
	ctrl := protocol.New(protocol.Options{
		Gateway:     gw,
		MaxAttempts: 3,
		Interval:    time.Millisecond,
	})
	m := New(Options{
		Controller: ctrl,
		Theme:      styles.NewTheme(styles.ModeDark),
		ShowScores: true,
	})
	h := &harness{t: t, m: m, gw: gw}
	h.update(tea.WindowSizeMsg{Width: 120, Height: 48})
	return h
}

// update delivers msg and drains the resulting commands.
func (h *harness) update(msg tea.Msg) {
	h.t.Helper()
	_, cmd := h.m.Update(msg)
	h.drain(cmd)
}

func (h *harness) key(k tea.KeyType) {
	h.t.Helper()
	h.update(tea.KeyMsg{Type: k})
}

func (h *harness) runes(s string) {
	h.t.Helper()
	h.update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
}

// type puts text in the composer and presses Enter.
func (h *harness) submit(text string) {
	h.t.Helper()
	h.m.input.SetValue(text)
	h.key(tea.KeyEnter)
}

// drain runs commands and feeds controller messages back into the model.
// Timers longer than the poll interval (spinner, cursor blink, notice
// expiry) are dropped.
func (h *harness) drain(cmd tea.Cmd) {
	h.t.Helper()
	queue := []tea.Cmd{cmd}
	for steps := 0; len(queue) > 0; steps++ {
		if steps > 1000 {
			h.t.Fatal("command loop did not settle")
		}
		next := queue[0]
		queue = queue[1:]
		if next == nil {
			continue
		}
		msg := execute(next)
		if batch, ok := msg.(tea.BatchMsg); ok {
			queue = append(queue, batch...)
			continue
		}
		if !controllerMsg(msg) {
			continue
		}
		_, follow := h.m.Update(msg)
		queue = append(queue, follow)
	}
}

func execute(cmd tea.Cmd) tea.Msg {
	ch := make(chan tea.Msg, 1)
	go func() { ch <- cmd() }()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(50 * time.Millisecond):
		return nil
	}
}

func controllerMsg(msg tea.Msg) bool {
	switch msg.(type) {
	case protocol.ConversationCreatedMsg, protocol.ProcessResultMsg,
		protocol.AuditTickMsg, protocol.AuditResultMsg, protocol.AuditFinishedMsg,
		protocol.ConversationsLoadedMsg, protocol.HistoryLoadedMsg, protocol.BootstrapMsg,
		protocol.MutationResultMsg, protocol.ReplayDoneMsg:
		return true
	}
	return false
}
