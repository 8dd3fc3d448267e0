// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package protocol

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/jeranaias/auditchat/internal/conversation"
	"github.com/jeranaias/auditchat/internal/model"
)

// =============================================================================
// AUDIT JOB
// =============================================================================

// AuditState is the lifecycle state of an audit job.
type AuditState int

const (
	AuditScheduled AuditState = iota
	AuditPolling
	AuditComplete
	AuditTimedOut
	AuditCancelled
)

// String returns the state name.
func (s AuditState) String() string {
	switch s {
	case AuditScheduled:
		return "scheduled"
	case AuditPolling:
		return "polling"
	case AuditComplete:
		return "complete"
	case AuditTimedOut:
		return "timed_out"
	case AuditCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Terminal reports whether the job has finished.
func (s AuditState) Terminal() bool {
	return s >= AuditComplete
}

// AuditJob polls for the audit of one assistant message.
// Attempts never exceeds MaxAttempts.
type AuditJob struct {
	MessageID      string
	ConversationID string
	Attempts       int
	MaxAttempts    int
	Interval       time.Duration
	State          AuditState
	StartedAt      time.Time
}

// Exhausted reports whether every allowed fetch has been made.
func (j *AuditJob) Exhausted() bool {
	return j.Attempts >= j.MaxAttempts
}

// Jobs returns a snapshot of the running audit jobs.
func (c *Controller) Jobs() []AuditJob {
	out := make([]AuditJob, 0, len(c.jobs))
	for _, j := range c.jobs {
		out = append(out, *j)
	}
	return out
}

// AuditPending reports whether an audit job is still polling for messageID.
func (c *Controller) AuditPending(messageID string) bool {
	_, ok := c.jobs[messageID]
	return ok
}

// =============================================================================
// POLLING
// =============================================================================

// startAudit schedules polling for messageID. A job already running for the
// message is left alone.
func (c *Controller) startAudit(messageID, conversationID string) tea.Cmd {
	if messageID == "" {
		return nil
	}
	if _, running := c.jobs[messageID]; running {
		return nil
	}
	job := &AuditJob{
		MessageID:      messageID,
		ConversationID: conversationID,
		MaxAttempts:    c.maxAttempts,
		Interval:       c.interval,
		State:          AuditScheduled,
		StartedAt:      time.Now(),
	}
	c.jobs[messageID] = job
	c.logger.Debug("audit scheduled", zap.String("message_id", messageID),
		zap.Int("max_attempts", job.MaxAttempts), zap.Duration("interval", job.Interval))
	return c.scheduleTick(job)
}

func (c *Controller) scheduleTick(job *AuditJob) tea.Cmd {
	msg := AuditTickMsg{MessageID: job.MessageID, ConversationID: job.ConversationID}
	return tea.Tick(job.Interval, func(time.Time) tea.Msg {
		return msg
	})
}

// job returns the live job matching the message's owning token.
func (c *Controller) job(messageID, conversationID string) *AuditJob {
	job, ok := c.jobs[messageID]
	if !ok || job.ConversationID != conversationID {
		return nil
	}
	return job
}

func (c *Controller) handleAuditTick(msg AuditTickMsg) tea.Cmd {
	job := c.job(msg.MessageID, msg.ConversationID)
	if job == nil {
		return nil
	}
	if c.store.CurrentID() != job.ConversationID {
		return c.finish(job, AuditCancelled)
	}

	job.State = AuditPolling
	job.Attempts++

	messageID, conversationID := job.MessageID, job.ConversationID
	return func() tea.Msg {
		ctx, cancel := c.requestContext()
		defer cancel()
		res, err := c.gateway.FetchAuditResult(ctx, messageID)
		return AuditResultMsg{MessageID: messageID, ConversationID: conversationID, Result: res, Err: err}
	}
}

func (c *Controller) handleAuditResult(msg AuditResultMsg) tea.Cmd {
	job := c.job(msg.MessageID, msg.ConversationID)
	if job == nil {
		return nil
	}
	if c.store.CurrentID() != job.ConversationID {
		return c.finish(job, AuditCancelled)
	}

	switch {
	case msg.Err != nil:
		c.logger.Debug("audit fetch failed", zap.String("message_id", job.MessageID),
			zap.Int("attempt", job.Attempts), zap.Error(msg.Err))
	case msg.Result != nil && msg.Result.Complete():
		c.applyAudit(job.MessageID, msg.Result.Payload, msg.Result.SuggestedFollowUps)
		return c.finish(job, AuditComplete)
	}

	if job.Exhausted() {
		return c.finish(job, AuditTimedOut)
	}
	return c.scheduleTick(job)
}

// applyAudit patches the displayed turn. A completed audit with neither a
// ledger nor a score only contributes its follow-ups.
func (c *Controller) applyAudit(messageID string, payload *model.AuditPayload, followUps []string) {
	if _, scored := payload.Score(); !payload.HasLedger() && !scored {
		payload = nil
	}
	turn, outcome := c.store.PatchAudit(messageID, payload, followUps)
	c.logger.Debug("audit patch", zap.String("message_id", messageID), zap.Stringer("outcome", outcome))
	if outcome != conversation.PatchApplied {
		return
	}
	c.renderer.UpdateMessageWithAudit(messageID, turn.Audit)
}

// finish ends a job. Timeouts and cancellations are logged, never shown.
func (c *Controller) finish(job *AuditJob, state AuditState) tea.Cmd {
	job.State = state
	delete(c.jobs, job.MessageID)

	fields := []zap.Field{
		zap.String("message_id", job.MessageID),
		zap.String("state", state.String()),
		zap.Int("attempts", job.Attempts),
		zap.Duration("elapsed", time.Since(job.StartedAt)),
	}
	if state == AuditTimedOut {
		c.logger.Info("audit abandoned", fields...)
	} else {
		c.logger.Debug("audit finished", fields...)
	}

	messageID := job.MessageID
	return func() tea.Msg {
		return AuditFinishedMsg{MessageID: messageID, State: state}
	}
}

// cancelJobsExcept cancels every job not owned by conversationID.
func (c *Controller) cancelJobsExcept(conversationID string) {
	for _, job := range c.jobs {
		if job.ConversationID != conversationID {
			job.State = AuditCancelled
			delete(c.jobs, job.MessageID)
			c.logger.Debug("audit cancelled", zap.String("message_id", job.MessageID))
		}
	}
}
