// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/jeranaias/auditchat/internal/model"
	"github.com/jeranaias/auditchat/internal/protocol"
	"github.com/jeranaias/auditchat/internal/ui/styles"
	"github.com/jeranaias/auditchat/internal/util"
)

const emptyTranscript = "Start typing to begin a conversation. Replies are audited after they arrive."

// sparkTicks are the bar heights of the score trend, low to high.
var sparkTicks = []rune("▁▂▃▄▅▆▇█")

// =============================================================================
// MAIN RENDER
// =============================================================================

// renderScreen lays out header, sidebar, transcript, composer and status bar.
func (m *Model) renderScreen() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	main := lipgloss.JoinVertical(lipgloss.Left,
		m.viewport.View(),
		m.renderComposer(),
	)
	if m.sidebarVisible() {
		main = lipgloss.JoinHorizontal(lipgloss.Top, m.renderSidebar(lipgloss.Height(main)), main)
	}

	sections := []string{m.renderHeader(), main, m.renderStatusBar()}
	if m.showHelp {
		sections = append(sections, m.help.View(m.keys), m.theme.ShortcutDesc.Render(commandHelp()))
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// =============================================================================
// HEADER AND SIDEBAR
// =============================================================================

func (m *Model) renderHeader() string {
	brand := m.theme.HeaderBrand.Render("auditchat")
	title := m.theme.HeaderTitle.Render(util.TruncateWidth(m.title, m.width/2))

	parts := []string{brand, title}
	if profile := m.ctrl.Session().ProfileName(); profile != "" {
		parts = append(parts, m.theme.HeaderSubtitle.Render("profile: "+profile))
	}
	return m.theme.Header.Width(m.width).Render(strings.Join(parts, "  "))
}

func (m *Model) renderSidebar(height int) string {
	inner := sidebarWidth - 2
	lines := []string{m.theme.SidebarHeading.Render("Conversations")}

	if len(m.conversations) == 0 {
		lines = append(lines, m.theme.SidebarMeta.Render("No conversations yet"))
	}
	for i, c := range m.conversations {
		title := util.PadRight(util.TruncateWidth(util.SingleLine(c.GetTitle()), inner), inner)
		style := m.theme.SidebarItem
		switch {
		case m.focus == FocusSidebar && i == m.selected:
			style = m.theme.SidebarSelected
		case c.ID == m.conversationID:
			style = m.theme.SidebarActive
		}
		lines = append(lines, style.Render(title))
		if !c.LastUpdated.IsZero() {
			lines = append(lines, m.theme.SidebarMeta.Render("  "+humanize.Time(c.LastUpdated)))
		}
	}

	return m.theme.Sidebar.
		Width(sidebarWidth).
		Height(height).
		Render(strings.Join(lines, "\n"))
}

// =============================================================================
// TRANSCRIPT
// =============================================================================

// refreshTranscript re-renders every turn into the viewport.
func (m *Model) refreshTranscript(toBottom bool) {
	if len(m.turns) == 0 {
		m.viewport.SetContent(m.theme.Timestamp.Render(emptyTranscript))
		return
	}

	blocks := make([]string, 0, len(m.turns))
	for _, t := range m.turns {
		blocks = append(blocks, m.renderTurn(t))
	}
	m.viewport.SetContent(strings.Join(blocks, "\n\n"))
	if toBottom {
		m.viewport.GotoBottom()
	}
}

func (m *Model) renderTurn(t *model.Turn) string {
	width := m.transcriptWidth() - 2
	label := m.theme.RoleLabel.Render(t.Role.DisplayName()) + " " +
		m.theme.Timestamp.Render(formatTimestamp(t.Timestamp))

	var body string
	switch {
	case t.IsError:
		body = m.theme.ErrorBubble.Width(width).Render(t.DisplayContent())
	case t.Role == model.RoleUser:
		body = m.theme.UserBubble.Width(width).Render(t.DisplayContent())
	default:
		body = m.theme.AssistantBubble.Render(m.md.render(t.ClientID, t.DisplayContent()))
	}

	parts := []string{label, body}
	if t.Role == model.RoleAssistant && !t.IsError {
		if audit := m.renderAudit(t); audit != "" {
			parts = append(parts, audit)
		}
		if follow := m.renderFollowUps(t); follow != "" {
			parts = append(parts, follow)
		}
	}
	return strings.Join(parts, "\n")
}

// renderAudit shows the audit summary line, the trend and, when toggled,
// the grouped ledger. A turn still being polled shows a pending marker.
func (m *Model) renderAudit(t *model.Turn) string {
	if t.Audit == nil {
		if t.ID != "" && m.ctrl.AuditPending(t.ID) {
			return m.theme.AuditPending.Render(m.spinner.View() + " auditing reply...")
		}
		return ""
	}

	g := t.Audit.Groups()
	summary := fmt.Sprintf("%d upholds, %d conflicts, %d neutral", len(g.Upholds), len(g.Conflicts), len(g.Neutral))
	if t.Audit.ProfileName != "" {
		summary += " · " + t.Audit.ProfileName
	}
	line := m.theme.AuditSummary.Render(summary)
	if s, ok := t.Audit.Score(); ok && m.showScores {
		line = m.theme.Score(s) + "  " + line
		if len(t.Audit.SpiritScoreHistory) > 1 {
			line += "  " + m.theme.AuditSummary.Render("trend "+sparkline(t.Audit.SpiritScoreHistory))
		}
	}

	if !m.showLedger || g.Len() == 0 {
		return line
	}
	return line + "\n" + m.renderLedger(g)
}

func (m *Model) renderLedger(g model.LedgerGroups) string {
	var b strings.Builder
	section := func(heading, mark string, style lipgloss.Style, entries []model.LedgerEntry) {
		if len(entries) == 0 {
			return
		}
		b.WriteString(m.theme.LedgerHeading.Render(heading))
		b.WriteString("\n")
		for _, e := range entries {
			b.WriteString(style.Render(fmt.Sprintf("  %s %s (%.0f%%)", mark, e.Value, e.Confidence*100)))
			b.WriteString("\n")
			if e.Reason != "" {
				b.WriteString(m.theme.LedgerReason.Render(util.TruncateWidth(util.SingleLine(e.Reason), m.transcriptWidth()-6)))
				b.WriteString("\n")
			}
		}
	}
	section("Upholds", styles.MarkUpholds, m.theme.LedgerUpholds, g.Upholds)
	section("Conflicts", styles.MarkConflicts, m.theme.LedgerConflicts, g.Conflicts)
	section("Neutral", styles.MarkNeutral, m.theme.LedgerNeutral, g.Neutral)
	return strings.TrimRight(b.String(), "\n")
}

func (m *Model) renderFollowUps(t *model.Turn) string {
	if len(t.SuggestedFollowUps) == 0 {
		return ""
	}
	lines := make([]string, 0, len(t.SuggestedFollowUps))
	for i, s := range t.SuggestedFollowUps {
		lines = append(lines, m.theme.FollowUp.Render(fmt.Sprintf("  %d) %s", i+1, s)))
	}
	return strings.Join(lines, "\n")
}

// =============================================================================
// COMPOSER AND STATUS BAR
// =============================================================================

func (m *Model) renderComposer() string {
	if m.ctrl.Busy() {
		status := "waiting for reply..."
		if m.ctrl.Loading() {
			status = "loading conversation..."
		}
		return m.theme.InputContainer.Width(m.transcriptWidth()).
			Render(m.spinner.View() + " " + m.theme.AuditPending.Render(status))
	}
	return m.theme.InputContainer.Width(m.transcriptWidth()).Render(m.input.View())
}

func (m *Model) renderStatusBar() string {
	var left string
	if m.ctrl.Online() {
		left = m.theme.StatusOnline.Render(styles.StatusIndicators.Active + " online")
	} else {
		left = m.theme.StatusOffline.Render(styles.StatusIndicators.Warning + " offline")
	}
	if n := m.ctrl.PendingOperations(); n > 0 {
		left += m.theme.ShortcutDesc.Render(fmt.Sprintf("  %d queued", n))
	}

	right := m.help.ShortHelpView(m.keys.ShortHelp())
	if m.notice.text != "" {
		right = renderNotice(m.notice)
	}

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 1 {
		gap = 1
	}
	return m.theme.StatusBar.Width(m.width).Render(left + strings.Repeat(" ", gap) + right)
}

func renderNotice(n notice) string {
	switch n.level {
	case protocol.LevelSuccess:
		return styles.RenderSuccess(n.text)
	case protocol.LevelWarning:
		return styles.RenderWarning(n.text)
	case protocol.LevelError:
		return styles.RenderError(n.text)
	default:
		return styles.RenderInfo(n.text)
	}
}

// =============================================================================
// FORMATTING
// =============================================================================

// formatTimestamp formats a turn timestamp:
//   - Today: just time (e.g., "15:04")
//   - This week: day and time (e.g., "Mon 15:04")
//   - Older: date and time (e.g., "Jan 2 15:04")
func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	now := time.Now()
	if t.Year() == now.Year() && t.YearDay() == now.YearDay() {
		return t.Format("15:04")
	}
	if now.Sub(t) < 7*24*time.Hour {
		return t.Format("Mon 15:04")
	}
	return t.Format("Jan 2 15:04")
}

// sparkline draws spirit scores on the 0-10 scale as block characters.
func sparkline(scores []float64) string {
	var b strings.Builder
	top := len(sparkTicks) - 1
	for _, s := range scores {
		idx := int(model.ClampScore(s) / model.MaxSpiritScore * float64(top))
		b.WriteRune(sparkTicks[idx])
	}
	return b.String()
}
