// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package protocol

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/auditchat/internal/api"
	"github.com/jeranaias/auditchat/internal/model"
)

// =============================================================================
// FAKE GATEWAY
// =============================================================================

type fakeGateway struct {
	mu    sync.Mutex
	calls []string

	conversations []model.Conversation
	listErr       error
	history       map[string][]*model.Turn
	historyErr    error
	profiles      []api.Profile

	created   model.Conversation
	createErr error

	process  func(req api.ProcessRequest) (*api.ProcessResponse, error)
	requests []api.ProcessRequest

	// audit answers the nth (1-based) fetch for a message.
	audit      func(messageID string, n int) (*api.AuditResult, error)
	auditCalls map[string]int

	mutationErr error
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		history:    make(map[string][]*model.Turn),
		auditCalls: make(map[string]int),
		created:    model.Conversation{ID: "c1", Title: "Hello"},
		process: func(api.ProcessRequest) (*api.ProcessResponse, error) {
			return &api.ProcessResponse{FinalOutput: "Hi there", MessageID: "m1"}, nil
		},
		audit: func(string, int) (*api.AuditResult, error) {
			return &api.AuditResult{Status: api.AuditPending}, nil
		},
	}
}

func (g *fakeGateway) record(call string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, call)
}

func (g *fakeGateway) Calls() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.calls...)
}

func (g *fakeGateway) count(call string) int {
	n := 0
	for _, c := range g.Calls() {
		if c == call {
			n++
		}
	}
	return n
}

func (g *fakeGateway) AuditCalls(messageID string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.auditCalls[messageID]
}

func (g *fakeGateway) CreateConversation(_ context.Context, title string) (model.Conversation, error) {
	g.record("create")
	if g.createErr != nil {
		return model.Conversation{}, g.createErr
	}
	conv := g.created
	conv.LastUpdated = time.Now()
	return conv, nil
}

func (g *fakeGateway) FetchConversations(context.Context) ([]model.Conversation, error) {
	g.record("list")
	return g.conversations, g.listErr
}

func (g *fakeGateway) FetchHistory(_ context.Context, id string) ([]*model.Turn, error) {
	g.record("history:" + id)
	if g.historyErr != nil {
		return nil, g.historyErr
	}
	return g.history[id], nil
}

func (g *fakeGateway) ProcessUserMessage(_ context.Context, req api.ProcessRequest) (*api.ProcessResponse, error) {
	g.record("process")
	g.mu.Lock()
	g.requests = append(g.requests, req)
	g.mu.Unlock()
	return g.process(req)
}

func (g *fakeGateway) FetchAuditResult(_ context.Context, messageID string) (*api.AuditResult, error) {
	g.record("audit")
	g.mu.Lock()
	g.auditCalls[messageID]++
	n := g.auditCalls[messageID]
	g.mu.Unlock()
	return g.audit(messageID, n)
}

func (g *fakeGateway) RenameConversation(context.Context, string, string) error {
	g.record("rename")
	return g.mutationErr
}

func (g *fakeGateway) DeleteConversation(context.Context, string) error {
	g.record("delete")
	return g.mutationErr
}

func (g *fakeGateway) DeleteAccount(context.Context) error {
	g.record("delete_account")
	return g.mutationErr
}

func (g *fakeGateway) UpdateUserProfile(context.Context, string) error {
	g.record("profile")
	return g.mutationErr
}

func (g *fakeGateway) UpdateUserModels(context.Context, map[string]string) error {
	g.record("models")
	return g.mutationErr
}

func (g *fakeGateway) FetchProfiles(context.Context) ([]api.Profile, error) {
	g.record("profiles")
	return g.profiles, nil
}

// =============================================================================
// RECORDING RENDERER
// =============================================================================

type recorder struct {
	events    []string
	displayed []*model.Turn
	patched   map[string]int
	notes     []string
	restored  []string
	active    string
}

func newRecorder() *recorder {
	return &recorder{patched: make(map[string]int)}
}

func (r *recorder) DisplayMessage(turn *model.Turn) {
	r.displayed = append(r.displayed, turn)
	r.events = append(r.events, fmt.Sprintf("display:%s:%s", turn.Role, turn.DisplayContent()))
}

func (r *recorder) UpdateMessageWithAudit(messageID string, _ *model.AuditPayload) {
	r.patched[messageID]++
	r.events = append(r.events, "audit:"+messageID)
}

func (r *recorder) SetActiveConversation(id, title string) {
	r.active = id
	r.events = append(r.events, fmt.Sprintf("active:%s:%s", id, title))
}

func (r *recorder) ResetTranscript() {
	r.displayed = nil
	r.events = append(r.events, "reset")
}

func (r *recorder) RefreshConversationList(items []model.Conversation) {
	r.events = append(r.events, fmt.Sprintf("list:%d", len(items)))
}

func (r *recorder) Notify(level Level, text string) {
	r.notes = append(r.notes, level.String()+": "+text)
}

func (r *recorder) RestoreInput(text string) {
	r.restored = append(r.restored, text)
}

// indexOf returns the position of the first event equal to want, or -1.
func (r *recorder) indexOf(want string) int {
	for i, e := range r.events {
		if e == want {
			return i
		}
	}
	return -1
}

// =============================================================================
// HARNESS
// =============================================================================

type harness struct {
	t  *testing.T
	c  *Controller
	gw *fakeGateway
	r  *recorder
}

func newHarness(t *testing.T, mutate func(*Options)) *harness {
	t.Helper()
	gw := newFakeGateway()
	r := newRecorder()
	opts := Options{
		Gateway:     gw,
		Renderer:    r,
		MaxAttempts: 3,
		Interval:    time.Millisecond,
	}
	if mutate != nil {
		mutate(&opts)
	}
	return &harness{t: t, c: New(opts), gw: gw, r: r}
}

// run executes cmd and feeds every resulting message back into the
// controller until no commands remain.
func (h *harness) run(cmd tea.Cmd) {
	h.t.Helper()
	h.runUntil(cmd, nil)
}

// runUntil is run that stops before delivering the first message for which
// stop returns true. That message is returned undelivered.
func (h *harness) runUntil(cmd tea.Cmd, stop func(tea.Msg) bool) tea.Msg {
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
		msg := next()
		if msg == nil {
			continue
		}
		if batch, ok := msg.(tea.BatchMsg); ok {
			queue = append(queue, batch...)
			continue
		}
		if stop != nil && stop(msg) {
			return msg
		}
		queue = append(queue, h.c.Update(msg))
	}
	return nil
}

// openConversation puts an existing conversation on screen.
func (h *harness) openConversation(id string) {
	h.t.Helper()
	h.c.store.SetConversations(append(h.c.store.Conversations(), model.Conversation{ID: id, Title: id, LastUpdated: time.Now()}))
	h.run(h.c.OpenConversation(id))
}

func score(v float64) *float64 { return &v }

func completeAudit(s float64, followUps ...string) *api.AuditResult {
	return &api.AuditResult{
		Status: api.AuditComplete,
		Payload: &model.AuditPayload{
			Ledger:      []model.LedgerEntry{{Value: "honesty", Score: 1, Confidence: 0.8}},
			SpiritScore: score(s),
		},
		SuggestedFollowUps: followUps,
	}
}
