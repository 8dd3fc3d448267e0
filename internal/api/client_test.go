// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/auditchat/internal/offline"
	"github.com/jeranaias/auditchat/internal/storage"
)

// newTestServer starts a server that answers every request with handler and
// returns a client pointed at it.
func newTestServer(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(server.URL, "tok-123"), server
}

// deadURL returns the URL of a server that has been shut down.
func deadURL(t *testing.T) string {
	t.Helper()
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()
	return url
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	io.WriteString(w, body)
}

// =============================================================================
// REQUEST TESTS
// =============================================================================

func TestClient_SendsBearerTokenAndJSON(t *testing.T) {
	var got struct {
		auth, contentType, method, path string
		body                            ProcessRequest
	}
	client, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		got.auth = r.Header.Get("Authorization")
		got.contentType = r.Header.Get("Content-Type")
		got.method, got.path = r.Method, r.URL.Path
		json.NewDecoder(r.Body).Decode(&got.body)
		writeJSON(w, http.StatusOK, `{"finalOutput":"Hi!","messageId":"m1"}`)
	})

	resp, err := client.ProcessUserMessage(context.Background(), ProcessRequest{
		Text:           "  Hello ",
		ConversationID: "c1",
		Profile:        "virtue",
	})
	require.NoError(t, err)

	assert.Equal(t, "Bearer tok-123", got.auth)
	assert.Equal(t, "application/json", got.contentType)
	assert.Equal(t, http.MethodPost, got.method)
	assert.Equal(t, "/api/process", got.path)
	assert.Equal(t, ProcessRequest{Text: "Hello", ConversationID: "c1", Profile: "virtue"}, got.body)

	assert.Equal(t, "Hi!", resp.FinalOutput)
	assert.Equal(t, "m1", resp.MessageID)
	assert.Nil(t, resp.Audit)
	assert.True(t, resp.NeedsAudit())
}

func TestClient_ProcessWithEmbeddedLedger(t *testing.T) {
	client, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{
			"finalOutput": "I can't help with that.",
			"messageId": "m9",
			"ledger": "[{\"value\":\"harm avoidance\",\"score\":1,\"confidence\":0.9,\"reason\":\"declined\"}]",
			"values": ["harm avoidance"],
			"spiritScore": "8.5",
			"newTitle": "Blocked request",
			"suggestedPrompts": ["Ask something else"]
		}`)
	})

	resp, err := client.ProcessUserMessage(context.Background(), ProcessRequest{Text: "x", ConversationID: "c1"})
	require.NoError(t, err)

	require.NotNil(t, resp.Audit)
	assert.False(t, resp.NeedsAudit())
	require.Len(t, resp.Audit.Ledger, 1)
	assert.Equal(t, "harm avoidance", resp.Audit.Ledger[0].Value)
	score, ok := resp.Audit.Score()
	assert.True(t, ok)
	assert.Equal(t, 8.5, score)
	assert.Equal(t, "Blocked request", resp.NewTitle)
	assert.Equal(t, []string{"Ask something else"}, resp.SuggestedFollowUps)
}

func TestClient_ProcessEmptyText(t *testing.T) {
	client := NewClient("http://localhost:1", "")
	_, err := client.ProcessUserMessage(context.Background(), ProcessRequest{Text: "   "})
	assert.Error(t, err)
}

func TestClient_CreateAndListConversations(t *testing.T) {
	client, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			writeJSON(w, http.StatusCreated, `{"id":"c1","title":"New Conversation"}`)
		default:
			writeJSON(w, http.StatusOK, `{"conversations":[
				{"id":"old","title":"Old","lastUpdated":"2025-01-01T10:00:00Z"},
				{"id":"","title":"bogus"},
				{"id":"new","title":"New","lastUpdated":1767225600000}
			]}`)
		}
	})

	conv, err := client.CreateConversation(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "c1", conv.ID)

	convs, err := client.FetchConversations(context.Background())
	require.NoError(t, err)
	require.Len(t, convs, 2)
	assert.Equal(t, "new", convs[0].ID)
	assert.Equal(t, "old", convs[1].ID)
}

func TestClient_CreateConversationWithoutID(t *testing.T) {
	client, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{}`)
	})
	_, err := client.CreateConversation(context.Background(), "")
	assert.Error(t, err)
}

func TestClient_FetchHistory(t *testing.T) {
	client, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/conversations/c%2F1/history", r.URL.EscapedPath())
		writeJSON(w, http.StatusOK, `[
			{"role":"user","content":"Hello","timestamp":"2025-03-01T09:00:00Z"},
			{"role":"assistant","content":"","messageId":"m1","ledger":"not json","spiritScore":7},
			{"role":"assistant","content":"Sure","messageId":"m2","ledger":[{"value":"care","score":-0.4,"confidence":"0.7"}],"values":"[\"care\"]"}
		]`)
	})

	turns, err := client.FetchHistory(context.Background(), "c/1")
	require.NoError(t, err)
	require.Len(t, turns, 3)

	assert.Equal(t, "Hello", turns[0].Content)
	assert.Equal(t, 2025, turns[0].Timestamp.Year())

	// malformed ledger decodes to empty but the score survives
	require.NotNil(t, turns[1].Audit)
	assert.Empty(t, turns[1].Audit.Ledger)
	assert.Equal(t, "m1", turns[1].ID)

	require.NotNil(t, turns[2].Audit)
	assert.Equal(t, 0.7, turns[2].Audit.Ledger[0].Confidence)
	assert.Equal(t, []string{"care"}, turns[2].Audit.Values)
}

// =============================================================================
// AUDIT TESTS
// =============================================================================

func TestClient_FetchAuditResult(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		complete  bool
		ledgerLen int
		followUps int
	}{
		{"pending", `{"status":"pending"}`, false, 0, 0},
		{"complete raw", `{"status":"complete","ledger":[{"value":"honesty","score":1,"confidence":0.8}],"spiritScore":9,"profile":"virtue","suggestedPrompts":["Why?"]}`, true, 1, 1},
		{"complete serialized", `{"status":"complete","ledger":"[{\"value\":\"honesty\",\"score\":1}]","values":"[\"honesty\"]"}`, true, 1, 0},
		{"complete malformed", `{"status":"complete","ledger":"{oops","values":"[1,"}`, true, 0, 0},
		{"unknown status", `{"status":"queued"}`, false, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/api/messages/m1/audit", r.URL.Path)
				writeJSON(w, http.StatusOK, tt.body)
			})

			result, err := client.FetchAuditResult(context.Background(), "m1")
			require.NoError(t, err)
			assert.Equal(t, tt.complete, result.Complete())
			if !tt.complete {
				assert.Nil(t, result.Payload)
				return
			}
			require.NotNil(t, result.Payload)
			assert.Len(t, result.Payload.Ledger, tt.ledgerLen)
			assert.Len(t, result.SuggestedFollowUps, tt.followUps)
		})
	}
}

func TestClient_ScoreIsClamped(t *testing.T) {
	client, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"status":"complete","spiritScore":14}`)
	})
	result, err := client.FetchAuditResult(context.Background(), "m1")
	require.NoError(t, err)
	s, ok := result.Payload.Score()
	assert.True(t, ok)
	assert.Equal(t, 10.0, s)
}

// =============================================================================
// ERROR TESTS
// =============================================================================

func TestClient_ErrorMapping(t *testing.T) {
	tests := []struct {
		status    int
		body      string
		sentinel  error
		permanent bool
	}{
		{http.StatusConflict, `{"error":"title already exists"}`, ErrConflict, true},
		{http.StatusNotFound, `{"error":{"code":"not_found","message":"no such conversation"}}`, ErrNotFound, true},
		{http.StatusUnauthorized, `{"message":"expired"}`, ErrUnauthorized, true},
		{http.StatusTooManyRequests, ``, ErrRateLimited, false},
		{http.StatusBadGateway, `upstream down`, ErrServer, false},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			client, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tt.status, tt.body)
			})

			_, err := client.CreateConversation(context.Background(), "dup")
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.sentinel)
			assert.Equal(t, tt.permanent, IsPermanent(err))

			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.status, apiErr.Status)
		})
	}
}

func TestClient_NotConfigured(t *testing.T) {
	_, err := NewClient("", "").FetchConversations(context.Background())
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestUserMessage(t *testing.T) {
	assert.Contains(t, UserMessage(&APIError{Status: http.StatusConflict}), "conflicts")
	assert.Contains(t, UserMessage(ErrQueued), "offline")
	assert.Empty(t, UserMessage(nil))
}

// =============================================================================
// OFFLINE TESTS
// =============================================================================

func newOfflineClient(t *testing.T, url string) (*Client, *offline.Queue, *offline.Monitor) {
	t.Helper()
	queue, err := offline.NewQueue(storage.NewMemoryStore(), 0)
	require.NoError(t, err)
	monitor := offline.NewMonitor(nil, time.Second, false, nil)
	client := NewClient(url, "tok").WithQueue(queue).WithMonitor(monitor).WithTimeout(2 * time.Second)
	return client, queue, monitor
}

func TestClient_MutationsQueueWhenOffline(t *testing.T) {
	client, queue, monitor := newOfflineClient(t, deadURL(t))
	ctx := context.Background()

	assert.ErrorIs(t, client.RenameConversation(ctx, "c1", "Renamed"), ErrQueued)
	assert.ErrorIs(t, client.DeleteConversation(ctx, "c2"), ErrQueued)
	assert.ErrorIs(t, client.UpdateUserProfile(ctx, "care"), ErrQueued)
	assert.ErrorIs(t, client.UpdateUserModels(ctx, map[string]string{"audit": "m"}), ErrQueued)
	assert.ErrorIs(t, client.DeleteAccount(ctx), ErrQueued)

	assert.False(t, monitor.Online())

	var kinds []offline.OperationKind
	for _, op := range queue.Pending() {
		kinds = append(kinds, op.Kind)
	}
	assert.Equal(t, []offline.OperationKind{
		offline.KindRename,
		offline.KindDelete,
		offline.KindProfileChange,
		offline.KindModelChange,
		offline.KindDeleteAccount,
	}, kinds)
}

func TestClient_SendFailsLoudlyWhenOffline(t *testing.T) {
	client, queue, _ := newOfflineClient(t, deadURL(t))

	_, err := client.ProcessUserMessage(context.Background(), ProcessRequest{Text: "Hello", ConversationID: "c1"})
	assert.ErrorIs(t, err, ErrOffline)
	assert.NotErrorIs(t, err, ErrQueued)
	assert.Equal(t, 0, queue.Len())
}

func TestClient_ServerRejectionIsNotQueued(t *testing.T) {
	client, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusConflict, `{"error":"duplicate"}`)
	})
	queue, _ := offline.NewQueue(storage.NewMemoryStore(), 0)
	client.WithQueue(queue)

	err := client.RenameConversation(context.Background(), "c1", "dup")
	assert.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, 0, queue.Len())
}

func TestClient_ForcedOffline(t *testing.T) {
	var hits int
	client, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		hits++
		writeJSON(w, http.StatusOK, `{}`)
	})
	queue, _ := offline.NewQueue(storage.NewMemoryStore(), 0)
	client.WithQueue(queue).WithMonitor(offline.NewMonitor(nil, time.Second, true, nil))

	assert.ErrorIs(t, client.UpdateUserProfile(context.Background(), "p"), ErrQueued)
	assert.Equal(t, 0, hits)
}

func TestClient_ReplayThroughExecute(t *testing.T) {
	var requests []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests = append(requests, r.Method+" "+r.URL.Path)
		if r.URL.Path == "/api/conversations/gone" {
			writeJSON(w, http.StatusNotFound, `{"error":"gone"}`)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	queue, _ := offline.NewQueue(storage.NewMemoryStore(), 0)
	queue.Enqueue(offline.KindRename, offline.RenamePayload{ConversationID: "c1", Title: "T"})
	queue.Enqueue(offline.KindDelete, offline.DeletePayload{ConversationID: "gone"})
	queue.Enqueue(offline.KindSendMessage, map[string]string{"text": "hi"})
	queue.Enqueue(offline.KindProfileChange, offline.ProfilePayload{ProfileKey: "virtue"})

	client := NewClient(server.URL, "tok").WithQueue(queue)
	report, err := offline.NewReplayer(queue, client, 0, nil).Replay(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{
		"PUT /api/conversations/c1",
		"DELETE /api/conversations/gone",
		"PUT /api/user/profile",
	}, requests)
	assert.Equal(t, 2, report.Replayed)
	assert.Len(t, report.Dropped, 2)
	assert.Equal(t, 0, queue.Len())
}

func TestClient_HealthReportsReconnect(t *testing.T) {
	client, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"status":"ok"}`)
	})
	monitor := offline.NewMonitor(nil, time.Second, false, nil)
	client.WithMonitor(monitor)
	monitor.ReportFailure(errors.New("down"))

	require.NoError(t, client.Health(context.Background()))
	assert.True(t, monitor.Online())
	select {
	case <-monitor.Reconnected():
	default:
		t.Fatal("expected reconnect signal")
	}
}
