// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package offline

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Executor runs a queued operation against the server.
type Executor interface {
	Execute(ctx context.Context, op QueuedOperation) error
}

// ExecutorFunc adapts a function to Executor.
type ExecutorFunc func(ctx context.Context, op QueuedOperation) error

// Execute calls f.
func (f ExecutorFunc) Execute(ctx context.Context, op QueuedOperation) error {
	return f(ctx, op)
}

// IsPermanent reports whether err is a rejection that will not succeed on
// retry. Errors opt in by implementing Permanent() bool.
func IsPermanent(err error) bool {
	var p interface{ Permanent() bool }
	return errors.As(err, &p) && p.Permanent()
}

// DroppedOperation is an operation removed after a permanent rejection.
type DroppedOperation struct {
	Operation QueuedOperation
	Err       error
}

// Report summarizes one replay pass.
type Report struct {
	Replayed  int
	Succeeded []QueuedOperation
	Dropped   []DroppedOperation
	Remaining int

	// Skipped is set when another replay was already running.
	Skipped bool
}

// Completed reports whether an operation of kind was accepted by the server
// during the pass.
func (r Report) Completed(kind OperationKind) bool {
	for _, op := range r.Succeeded {
		if op.Kind == kind {
			return true
		}
	}
	return false
}

// Empty reports whether the pass did nothing worth telling the user about.
func (r Report) Empty() bool {
	return r.Replayed == 0 && len(r.Dropped) == 0
}

// =============================================================================
// REPLAYER
// =============================================================================

// Replayer drains a Queue through an Executor.
type Replayer struct {
	queue   *Queue
	exec    Executor
	limiter *rate.Limiter
	logger  *zap.Logger

	// running serializes replay passes
	running sync.Mutex
}

// NewReplayer creates a replayer that executes at most perSecond operations
// per second. A non-positive rate disables pacing.
func NewReplayer(queue *Queue, exec Executor, perSecond float64, logger *zap.Logger) *Replayer {
	if logger == nil {
		logger = zap.NewNop()
	}
	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}
	return &Replayer{
		queue:   queue,
		exec:    exec,
		limiter: rate.NewLimiter(limit, 1),
		logger:  logger.Named("replay"),
	}
}

// Replay executes pending operations oldest first.
//
// A successful operation is removed. A permanent rejection removes the
// operation and records it in the report. Any other error stops the pass
// and is returned; the failed operation stays at the head of the queue.
func (r *Replayer) Replay(ctx context.Context) (Report, error) {
	if !r.running.TryLock() {
		return Report{Skipped: true, Remaining: r.queue.Len()}, nil
	}
	defer r.running.Unlock()

	var report Report
	for {
		op, ok := r.queue.Peek()
		if !ok {
			break
		}
		if err := r.limiter.Wait(ctx); err != nil {
			report.Remaining = r.queue.Len()
			return report, err
		}

		err := r.exec.Execute(ctx, op)
		switch {
		case err == nil:
			report.Replayed++
			report.Succeeded = append(report.Succeeded, op)
			r.logger.Debug("replayed operation", zap.String("kind", op.Kind.String()), zap.String("id", op.ID))
		case IsPermanent(err):
			report.Dropped = append(report.Dropped, DroppedOperation{Operation: op, Err: err})
			r.logger.Warn("dropped rejected operation",
				zap.String("kind", op.Kind.String()),
				zap.String("id", op.ID),
				zap.Error(err))
		default:
			report.Remaining = r.queue.Len()
			r.logger.Info("replay stopped", zap.String("kind", op.Kind.String()), zap.Error(err))
			return report, err
		}

		if _, err := r.queue.Remove(op.ID); err != nil {
			report.Remaining = r.queue.Len()
			return report, err
		}
	}

	report.Remaining = r.queue.Len()
	return report, nil
}
