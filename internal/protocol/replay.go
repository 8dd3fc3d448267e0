// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package protocol

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/jeranaias/auditchat/internal/api"
	"github.com/jeranaias/auditchat/internal/offline"
)

// ReplayQueue replays queued offline operations now.
func (c *Controller) ReplayQueue() tea.Cmd {
	return c.replayCmd()
}

func (c *Controller) replayCmd() tea.Cmd {
	if c.replayer == nil {
		return nil
	}
	return func() tea.Msg {
		ctx, cancel := c.requestContext()
		defer cancel()
		report, err := c.replayer.Replay(ctx)
		return ReplayDoneMsg{Report: report, Err: err}
	}
}

// waitReconnectCmd blocks off-loop until the monitor reports a reconnect.
func (c *Controller) waitReconnectCmd() tea.Cmd {
	if c.monitor == nil {
		return nil
	}
	reconnected := c.monitor.Reconnected()
	ctx := c.ctx
	return func() tea.Msg {
		select {
		case <-reconnected:
			return ReconnectedMsg{}
		case <-ctx.Done():
			return nil
		}
	}
}

func (c *Controller) handleReplayDone(msg ReplayDoneMsg) tea.Cmd {
	report := msg.Report
	if report.Skipped {
		return nil
	}

	for _, d := range report.Dropped {
		c.renderer.Notify(LevelWarning, fmt.Sprintf("Discarded offline change (%s): %s",
			d.Operation.Kind.Describe(), api.UserMessage(d.Err)))
	}
	if msg.Err != nil {
		c.logger.Info("replay stopped", zap.Int("remaining", report.Remaining), zap.Error(msg.Err))
	}
	if report.Replayed == 0 {
		return nil
	}
	if report.Completed(offline.KindDeleteAccount) {
		c.logger.Info("queued account deletion replayed, signing out")
		if err := c.session.Clear(); err != nil {
			c.logger.Warn("failed to clear session", zap.Error(err))
		}
	}

	c.renderer.Notify(LevelSuccess, fmt.Sprintf("Synced %d offline change(s)", report.Replayed))
	return c.fetchConversationsCmd()
}
