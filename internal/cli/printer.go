// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/auditchat/internal/model"
	"github.com/jeranaias/auditchat/internal/protocol"
	"github.com/jeranaias/auditchat/internal/ui/styles"
)

// =============================================================================
// HEADLESS RENDERER
// =============================================================================

// Printer writes controller output as plain text, or styled markdown when
// Styled is set. It implements protocol.Renderer for one-shot commands.
type Printer struct {
	out    io.Writer
	errOut io.Writer

	styled     bool
	showScores bool
	showLedger bool
	markdown   *glamour.TermRenderer

	replies map[string]*model.Turn
	audited map[string]bool
	title   string
	failed  bool
}

var _ protocol.Renderer = (*Printer)(nil)

// PrinterOptions configure a Printer.
type PrinterOptions struct {
	Styled     bool
	ShowScores bool
	ShowLedger bool
	Width      int
}

// NewPrinter creates a printer writing replies to out and notices to errOut.
func NewPrinter(out, errOut io.Writer, opts PrinterOptions) *Printer {
	p := &Printer{
		out:        out,
		errOut:     errOut,
		styled:     opts.Styled,
		showScores: opts.ShowScores,
		showLedger: opts.ShowLedger,
		replies:    make(map[string]*model.Turn),
		audited:    make(map[string]bool),
	}
	if p.styled {
		width := opts.Width
		if width <= 0 {
			width = DefaultTerminalWidth
		}
		r, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(width-2),
		)
		if err == nil {
			p.markdown = r
		}
	}
	return p
}

// Failed reports whether an error turn or error notice was printed.
func (p *Printer) Failed() bool {
	return p.failed
}

// Title returns the last conversation title set by the controller.
func (p *Printer) Title() string {
	return p.title
}

// DisplayMessage prints assistant replies and error bubbles. The user's own
// turn is not echoed.
func (p *Printer) DisplayMessage(turn *model.Turn) {
	switch {
	case turn.IsError:
		p.failed = true
		fmt.Fprintln(p.errOut, p.style(ErrorStyle, turn.DisplayContent()))
	case turn.Role == model.RoleAssistant:
		if turn.ID != "" {
			p.replies[turn.ID] = turn
		}
		fmt.Fprintln(p.out, p.renderMarkdown(turn.DisplayContent()))
		if turn.Audit != nil {
			p.printAudit(turn)
		}
	}
}

// UpdateMessageWithAudit prints the audit summary of a reply once.
func (p *Printer) UpdateMessageWithAudit(messageID string, _ *model.AuditPayload) {
	turn, ok := p.replies[messageID]
	if !ok {
		return
	}
	p.printAudit(turn)
}

func (p *Printer) SetActiveConversation(_ string, title string) {
	p.title = title
}

func (p *Printer) ResetTranscript() {}

func (p *Printer) RefreshConversationList([]model.Conversation) {}

// Notify prints notices to the error stream.
func (p *Printer) Notify(level protocol.Level, text string) {
	switch level {
	case protocol.LevelError:
		p.failed = true
		fmt.Fprintln(p.errOut, p.style(ErrorStyle, styles.StatusIndicators.Error+" "+text))
	case protocol.LevelWarning:
		fmt.Fprintln(p.errOut, p.style(WarningStyle, styles.StatusIndicators.Warning+" "+text))
	default:
		fmt.Fprintln(p.errOut, p.style(DimStyle, styles.StatusIndicators.Info+" "+text))
	}
}

func (p *Printer) RestoreInput(string) {}

// =============================================================================
// AUDIT OUTPUT
// =============================================================================

func (p *Printer) printAudit(turn *model.Turn) {
	if p.audited[turn.ID] {
		return
	}
	p.audited[turn.ID] = true

	if turn.Audit != nil {
		fmt.Fprintln(p.out, RenderSeparator())
		fmt.Fprintln(p.out, p.auditLine(turn.Audit))
		if p.showLedger {
			p.printLedger(turn.Audit.Groups())
		}
	}
	p.printFollowUps(turn)
}

func (p *Printer) auditLine(a *model.AuditPayload) string {
	g := a.Groups()
	counts := fmt.Sprintf("%d upholds, %d conflicts, %d neutral", len(g.Upholds), len(g.Conflicts), len(g.Neutral))
	if a.ProfileName != "" {
		counts += " (" + a.ProfileName + ")"
	}
	line := RenderLabel("audit") + p.style(ValueStyle, counts)
	if s, ok := a.Score(); ok && p.showScores {
		score := fmt.Sprintf("%.1f/10", s)
		if p.styled {
			score = lipgloss.NewStyle().Foreground(styles.ScoreColor(s)).Bold(true).Render(score)
		}
		line = RenderLabel("spirit score") + score + "\n" + line
	}
	return line
}

func (p *Printer) printLedger(g model.LedgerGroups) {
	write := func(mark string, entries []model.LedgerEntry) {
		for _, e := range entries {
			fmt.Fprintf(p.out, "  %s %s (%.0f%%)\n", mark, e.Value, e.Confidence*100)
			if e.Reason != "" {
				fmt.Fprintln(p.out, p.style(DimStyle, "      "+e.Reason))
			}
		}
	}
	write(styles.MarkUpholds, g.Upholds)
	write(styles.MarkConflicts, g.Conflicts)
	write(styles.MarkNeutral, g.Neutral)
}

func (p *Printer) printFollowUps(turn *model.Turn) {
	if len(turn.SuggestedFollowUps) == 0 {
		return
	}
	fmt.Fprintln(p.out, p.style(TitleStyle, "Follow-ups"))
	for i, s := range turn.SuggestedFollowUps {
		fmt.Fprintf(p.out, "  %d) %s\n", i+1, s)
	}
}

// =============================================================================
// HELPERS
// =============================================================================

// renderMarkdown renders content when styled, else returns it unchanged.
func (p *Printer) renderMarkdown(content string) string {
	if p.markdown == nil {
		return content
	}
	rendered, err := p.markdown.Render(content)
	if err != nil {
		return content
	}
	return strings.Trim(rendered, "\n")
}

func (p *Printer) style(s lipgloss.Style, text string) string {
	if !p.styled {
		return text
	}
	return s.Render(text)
}
