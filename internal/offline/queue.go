// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package offline

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/jeranaias/auditchat/internal/storage"
)

// ErrQueueFull is returned by Enqueue when the queue is at capacity.
var ErrQueueFull = errors.New("offline queue is full")

// =============================================================================
// QUEUE
// =============================================================================

// Queue is a durable FIFO of pending operations. Every change is written
// through to the backing store. It is safe for concurrent use.
type Queue struct {
	store storage.Store
	ops   []QueuedOperation

	// maxSize is the maximum number of pending operations (0 = unlimited)
	maxSize int

	mu sync.RWMutex
}

// NewQueue loads the queue persisted in store. A corrupt entry is discarded
// and the queue starts empty.
func NewQueue(store storage.Store, maxSize int) (*Queue, error) {
	q := &Queue{store: store, maxSize: maxSize}

	data, err := store.Get(storage.QueueKey)
	if errors.Is(err, storage.ErrNotFound) {
		return q, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load offline queue: %w", err)
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &q.ops); err != nil {
			q.ops = nil
			_ = store.Delete(storage.QueueKey)
		}
	}
	return q, nil
}

// Enqueue appends an operation of kind with payload and persists the queue.
func (q *Queue) Enqueue(kind OperationKind, payload any) (QueuedOperation, error) {
	op, err := NewOperation(kind, payload)
	if err != nil {
		return QueuedOperation{}, err
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.maxSize > 0 && len(q.ops) >= q.maxSize {
		return QueuedOperation{}, fmt.Errorf("%w: %d pending (max: %d)", ErrQueueFull, len(q.ops), q.maxSize)
	}

	q.ops = append(q.ops, op)
	if err := q.saveLocked(); err != nil {
		q.ops = q.ops[:len(q.ops)-1]
		return QueuedOperation{}, err
	}
	return op, nil
}

// Pending returns a copy of the pending operations in enqueue order.
func (q *Queue) Pending() []QueuedOperation {
	q.mu.RLock()
	defer q.mu.RUnlock()

	out := make([]QueuedOperation, len(q.ops))
	copy(out, q.ops)
	return out
}

// Peek returns the oldest pending operation.
func (q *Queue) Peek() (QueuedOperation, bool) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if len(q.ops) == 0 {
		return QueuedOperation{}, false
	}
	return q.ops[0], true
}

// Len returns the number of pending operations.
func (q *Queue) Len() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return len(q.ops)
}

// Remove deletes the operation with id. Returns false if it is not queued.
func (q *Queue) Remove(id string) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, op := range q.ops {
		if op.ID == id {
			q.ops = append(q.ops[:i], q.ops[i+1:]...)
			return true, q.saveLocked()
		}
	}
	return false, nil
}

// Clear drops every pending operation.
func (q *Queue) Clear() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.ops = nil
	return q.store.Delete(storage.QueueKey)
}

// saveLocked persists the queue. Caller must hold the write lock.
func (q *Queue) saveLocked() error {
	if len(q.ops) == 0 {
		return q.store.Delete(storage.QueueKey)
	}
	data, err := json.Marshal(q.ops)
	if err != nil {
		return fmt.Errorf("encode offline queue: %w", err)
	}
	if err := q.store.Put(storage.QueueKey, data); err != nil {
		return fmt.Errorf("persist offline queue: %w", err)
	}
	return nil
}
