// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/jeranaias/auditchat/internal/model"
)

// =============================================================================
// MARKDOWN EXPORTER
// =============================================================================

// MarkdownExporter exports transcripts to Markdown.
type MarkdownExporter struct {
	options *Options
}

// NewMarkdownExporter creates a new Markdown exporter.
func NewMarkdownExporter(opts *Options) *MarkdownExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &MarkdownExporter{options: opts}
}

// Export converts a transcript to Markdown.
func (e *MarkdownExporter) Export(t Transcript) ([]byte, error) {
	if len(t.Turns) == 0 {
		return nil, ErrEmptyTranscript
	}
	exported := t.ExportedAt
	if exported.IsZero() {
		exported = time.Now()
	}
	title := t.Conversation.GetTitle()

	var sb strings.Builder

	sb.WriteString("---\n")
	fmt.Fprintf(&sb, "title: %s\n", escapeYAML(title))
	if t.Conversation.ID != "" {
		fmt.Fprintf(&sb, "id: %s\n", t.Conversation.ID)
	}
	if !t.Conversation.LastUpdated.IsZero() {
		fmt.Fprintf(&sb, "updated: %s\n", t.Conversation.LastUpdated.Format(time.RFC3339))
	}
	fmt.Fprintf(&sb, "messages: %d\n", len(t.Turns))
	fmt.Fprintf(&sb, "exported: %s\n", exported.Format(time.RFC3339))
	sb.WriteString("---\n\n")

	fmt.Fprintf(&sb, "# %s\n\n", escapeMarkdown(title))

	for i, turn := range t.Turns {
		if e.options.IncludeTimestamps && !turn.Timestamp.IsZero() {
			fmt.Fprintf(&sb, "### %s <sub>%s</sub>\n\n", turn.Role.DisplayName(), formatTimestamp(turn.Timestamp))
		} else {
			fmt.Fprintf(&sb, "### %s\n\n", turn.Role.DisplayName())
		}

		sb.WriteString(strings.TrimSpace(turn.DisplayContent()))
		sb.WriteString("\n\n")

		if turn.Role == model.RoleAssistant && turn.HasAudit() {
			sb.WriteString(e.formatAudit(turn.Audit))
		}
		if len(turn.SuggestedFollowUps) > 0 {
			sb.WriteString("**Follow-ups**\n\n")
			for _, s := range turn.SuggestedFollowUps {
				fmt.Fprintf(&sb, "- %s\n", s)
			}
			sb.WriteString("\n")
		}

		if i < len(t.Turns)-1 {
			sb.WriteString("---\n\n")
		}
	}

	return []byte(sb.String()), nil
}

// FileExtension returns the file extension for Markdown.
func (e *MarkdownExporter) FileExtension() string {
	return ".md"
}

// =============================================================================
// FORMATTING HELPERS
// =============================================================================

// formatAudit renders the audit summary as a blockquote and, optionally,
// the grouped ledger as a table.
func (e *MarkdownExporter) formatAudit(p *model.AuditPayload) string {
	var sb strings.Builder

	sb.WriteString("> **Audit**")
	if score, ok := p.Score(); ok {
		fmt.Fprintf(&sb, " spirit score %.1f/10", score)
	}
	groups := p.Groups()
	fmt.Fprintf(&sb, ", %d upholds, %d conflicts, %d neutral", len(groups.Upholds), len(groups.Conflicts), len(groups.Neutral))
	if p.ProfileName != "" {
		fmt.Fprintf(&sb, " (%s)", p.ProfileName)
	}
	sb.WriteString("\n\n")

	if !e.options.IncludeLedger || groups.Len() == 0 {
		return sb.String()
	}

	sb.WriteString("| | Value | Confidence | Reason |\n")
	sb.WriteString("|---|---|---|---|\n")
	write := func(mark string, entries []model.LedgerEntry) {
		for _, le := range entries {
			fmt.Fprintf(&sb, "| %s | %s | %.0f%% | %s |\n",
				mark, escapeTableCell(le.Value), le.Confidence*100, escapeTableCell(le.Reason))
		}
	}
	write("+", groups.Upholds)
	write("-", groups.Conflicts)
	write("=", groups.Neutral)
	sb.WriteString("\n")
	return sb.String()
}

// =============================================================================
// ESCAPING HELPERS
// =============================================================================

// escapeMarkdown escapes characters that break headings.
func escapeMarkdown(s string) string {
	r := strings.NewReplacer("#", `\#`, "*", `\*`, "_", `\_`, "[", `\[`, "]", `\]`)
	return r.Replace(s)
}

func escapeTableCell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.Join(strings.Fields(s), " ")
}

// escapeYAML quotes values containing YAML special characters.
func escapeYAML(s string) string {
	if strings.ContainsAny(s, ":#|>@`\"'[]{}!%&*\n\r\\") || strings.HasPrefix(s, " ") || strings.HasSuffix(s, " ") {
		r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`, "\r", `\r`)
		return `"` + r.Replace(s) + `"`
	}
	return s
}
