// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package styles provides the visual styling system for the auditchat TUI.

All colors use Lip Gloss AdaptiveColor so the same palette works on light and
dark terminals. NewTheme resolves the configured mode ("auto", "dark",
"light"); in auto mode the background is queried through termenv.

# Colors

  - Purple - assistant turns and the open conversation
  - Cyan - brand, user highlights and follow-up suggestions
  - Emerald - upheld values, high spirit scores, online indicator
  - Amber - pending audits, mid scores, offline indicator
  - Rose - conflicting values, low scores, errors

Spirit scores are banded by ScoreColor: 7 and above is emerald, below 4 is
rose, anything in between is amber.

# Accessibility

Every status carries an ASCII shape next to its color (StatusIndicators) and
ledger groups are prefixed with "+", "-" and "~" so they stay distinguishable
without color.
*/
package styles
