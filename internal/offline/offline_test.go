// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package offline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/jeranaias/auditchat/internal/storage"
)

// =============================================================================
// URL VALIDATION TESTS
// =============================================================================

func TestIsLocalhost(t *testing.T) {
	tests := []struct {
		host   string
		expect bool
	}{
		{"localhost", true},
		{"LOCALHOST", true},
		{"127.0.0.1", true},
		{"127.0.0.1:8080", true},
		{"::1", true},
		{"[::1]:8080", true},
		{"api.example.com", false},
		{"192.168.1.1", false},
		{"0.0.0.0", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.host, func(t *testing.T) {
			if got := IsLocalhost(tt.host); got != tt.expect {
				t.Errorf("IsLocalhost(%q) = %v, want %v", tt.host, got, tt.expect)
			}
		})
	}
}

func TestValidateServerURL(t *testing.T) {
	tests := []struct {
		url  string
		want error
	}{
		{"https://audit.example.com", nil},
		{"http://localhost:8080", nil},
		{"http://127.0.0.1:3000/", nil},
		{"http://audit.example.com", ErrInsecureURL},
		{"file:///etc/passwd", ErrInvalidURLScheme},
		{"javascript:alert(1)", ErrInvalidURLScheme},
		{"not a url", ErrInvalidURLScheme},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			err := ValidateServerURL(tt.url)
			if !errors.Is(err, tt.want) {
				t.Errorf("ValidateServerURL(%q) = %v, want %v", tt.url, err, tt.want)
			}
		})
	}
}

// =============================================================================
// QUEUE TESTS
// =============================================================================

func TestQueue_EnqueuePersistsFIFO(t *testing.T) {
	store := storage.NewMemoryStore()
	q, err := NewQueue(store, 0)
	require.NoError(t, err)

	_, err = q.Enqueue(KindRename, RenamePayload{ConversationID: "c1", Title: "A"})
	require.NoError(t, err)
	_, err = q.Enqueue(KindProfileChange, ProfilePayload{ProfileKey: "virtue"})
	require.NoError(t, err)

	reloaded, err := NewQueue(store, 0)
	require.NoError(t, err)

	pending := reloaded.Pending()
	require.Len(t, pending, 2)
	assert.Equal(t, KindRename, pending[0].Kind)
	assert.Equal(t, KindProfileChange, pending[1].Kind)

	var rename RenamePayload
	require.NoError(t, pending[0].Decode(&rename))
	assert.Equal(t, "A", rename.Title)
}

func TestQueue_MaxSize(t *testing.T) {
	q, err := NewQueue(storage.NewMemoryStore(), 1)
	require.NoError(t, err)

	_, err = q.Enqueue(KindDelete, DeletePayload{ConversationID: "c1"})
	require.NoError(t, err)
	_, err = q.Enqueue(KindDelete, DeletePayload{ConversationID: "c2"})
	assert.ErrorIs(t, err, ErrQueueFull)
	assert.Equal(t, 1, q.Len())
}

func TestQueue_CorruptEntryStartsEmpty(t *testing.T) {
	store := storage.NewMemoryStore()
	require.NoError(t, store.Put(storage.QueueKey, []byte("{not json")))

	q, err := NewQueue(store, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, q.Len())
}

func TestQueue_RemoveAndClear(t *testing.T) {
	store := storage.NewMemoryStore()
	q, _ := NewQueue(store, 0)
	op, _ := q.Enqueue(KindDeleteAccount, nil)
	q.Enqueue(KindDelete, DeletePayload{ConversationID: "c1"})

	removed, err := q.Remove(op.ID)
	require.NoError(t, err)
	assert.True(t, removed)
	removed, _ = q.Remove(op.ID)
	assert.False(t, removed)

	require.NoError(t, q.Clear())
	_, err = store.Get(storage.QueueKey)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

// =============================================================================
// REPLAY TESTS
// =============================================================================

type permanentErr struct{}

func (permanentErr) Error() string   { return "rejected" }
func (permanentErr) Permanent() bool { return true }

type recordingExecutor struct {
	calls []OperationKind
	fail  map[OperationKind]error
}

func (e *recordingExecutor) Execute(_ context.Context, op QueuedOperation) error {
	e.calls = append(e.calls, op.Kind)
	return e.fail[op.Kind]
}

func TestReplayer_FIFOAndRemoval(t *testing.T) {
	q, _ := NewQueue(storage.NewMemoryStore(), 0)
	q.Enqueue(KindRename, RenamePayload{ConversationID: "c1", Title: "x"})
	q.Enqueue(KindModelChange, ModelsPayload{Models: map[string]string{"generation": "m"}})
	q.Enqueue(KindDeleteAccount, nil)

	exec := &recordingExecutor{}
	report, err := NewReplayer(q, exec, 0, nil).Replay(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []OperationKind{KindRename, KindModelChange, KindDeleteAccount}, exec.calls)
	assert.Equal(t, 3, report.Replayed)
	assert.True(t, report.Completed(KindDeleteAccount))
	assert.Equal(t, 0, report.Remaining)
	assert.Equal(t, 0, q.Len())
}

func TestReplayer_DropsPermanentRejections(t *testing.T) {
	q, _ := NewQueue(storage.NewMemoryStore(), 0)
	q.Enqueue(KindRename, RenamePayload{ConversationID: "gone", Title: "x"})
	q.Enqueue(KindProfileChange, ProfilePayload{ProfileKey: "p"})

	exec := &recordingExecutor{fail: map[OperationKind]error{KindRename: permanentErr{}}}
	report, err := NewReplayer(q, exec, 0, nil).Replay(context.Background())

	require.NoError(t, err)
	require.Len(t, report.Dropped, 1)
	assert.Equal(t, KindRename, report.Dropped[0].Operation.Kind)
	assert.Equal(t, 1, report.Replayed)
	assert.False(t, report.Completed(KindRename), "dropped operations are not completed")
	assert.Equal(t, 0, q.Len())
}

func TestReplayer_StopsOnTransientError(t *testing.T) {
	q, _ := NewQueue(storage.NewMemoryStore(), 0)
	q.Enqueue(KindRename, RenamePayload{ConversationID: "c1", Title: "x"})
	q.Enqueue(KindDelete, DeletePayload{ConversationID: "c2"})

	transient := errors.New("connection refused")
	exec := &recordingExecutor{fail: map[OperationKind]error{KindRename: transient}}
	report, err := NewReplayer(q, exec, 0, nil).Replay(context.Background())

	assert.ErrorIs(t, err, transient)
	assert.Equal(t, []OperationKind{KindRename}, exec.calls)
	assert.Equal(t, 2, report.Remaining)

	head, ok := q.Peek()
	require.True(t, ok)
	assert.Equal(t, KindRename, head.Kind)
}

func TestReplayer_RateLimited(t *testing.T) {
	q, _ := NewQueue(storage.NewMemoryStore(), 0)
	for i := 0; i < 3; i++ {
		q.Enqueue(KindDelete, DeletePayload{ConversationID: "c"})
	}

	start := time.Now()
	_, err := NewReplayer(q, &recordingExecutor{}, 20, nil).Replay(context.Background())
	require.NoError(t, err)

	// burst of 1, then two waits of 50ms
	assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
}

func TestReplayer_ContextCancelled(t *testing.T) {
	q, _ := NewQueue(storage.NewMemoryStore(), 0)
	q.Enqueue(KindDelete, DeletePayload{ConversationID: "a"})
	q.Enqueue(KindDelete, DeletePayload{ConversationID: "b"})

	ctx, cancel := context.WithCancel(context.Background())
	exec := ExecutorFunc(func(context.Context, QueuedOperation) error {
		cancel()
		return nil
	})

	report, err := NewReplayer(q, exec, 0.001, nil).Replay(ctx)
	assert.Error(t, err)
	assert.Equal(t, 1, report.Replayed)
	assert.Equal(t, 1, q.Len())
}

func TestIsPermanent(t *testing.T) {
	assert.True(t, IsPermanent(permanentErr{}))
	assert.True(t, IsPermanent(errors.Join(errors.New("wrap"), permanentErr{})))
	assert.False(t, IsPermanent(errors.New("timeout")))
	assert.False(t, IsPermanent(nil))
}

// =============================================================================
// MONITOR TESTS
// =============================================================================

func TestMonitor_TransitionsSignalReconnect(t *testing.T) {
	m := NewMonitor(nil, time.Second, false, nil)
	assert.True(t, m.Online())

	m.ReportFailure(errors.New("dial tcp: refused"))
	assert.False(t, m.Online())

	m.ReportSuccess()
	assert.True(t, m.Online())

	select {
	case <-m.Reconnected():
	default:
		t.Fatal("expected a reconnect signal")
	}

	// Staying online does not signal again
	m.ReportSuccess()
	select {
	case <-m.Reconnected():
		t.Fatal("unexpected reconnect signal")
	default:
	}
}

func TestMonitor_Forced(t *testing.T) {
	m := NewMonitor(nil, time.Second, true, nil)
	assert.False(t, m.Online())
	assert.True(t, m.Forced())

	m.SetForced(false)
	assert.True(t, m.Online())
	select {
	case <-m.Reconnected():
	default:
		t.Fatal("leaving forced offline mode should signal reconnect")
	}
}

func TestMonitor_RunProbesWhileOffline(t *testing.T) {
	defer goleak.VerifyNone(t)

	probes := make(chan struct{}, 10)
	healthy := make(chan bool, 1)
	healthy <- false

	probe := func(context.Context) error {
		probes <- struct{}{}
		ok := <-healthy
		healthy <- true
		if !ok {
			return errors.New("still down")
		}
		return nil
	}

	m := NewMonitor(probe, 10*time.Millisecond, false, nil)
	m.ReportFailure(errors.New("down"))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(done)
	}()

	select {
	case <-m.Reconnected():
	case <-time.After(2 * time.Second):
		t.Fatal("monitor never reconnected")
	}
	cancel()
	<-done

	assert.True(t, m.Online())
	assert.GreaterOrEqual(t, len(probes), 2)
}
