// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export writes a conversation transcript, including the audit
// ledger of every reply, to a file.
//
// Formats:
//
//	markdown  human-readable transcript with frontmatter
//	json      the transcript as structured data
//
// Usage:
//
//	t := export.Transcript{Conversation: conv, Turns: turns}
//	path, err := export.ToFile(t, export.NewMarkdownExporter(nil), nil)
package export
