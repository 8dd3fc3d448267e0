// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package chat provides the interactive chat screen for auditchat.

The Model is a Bubble Tea model that owns no conversation state of its own:
the protocol.Controller keeps the store, and the Model implements
protocol.Renderer so the controller can push turns, audit patches, sidebar
updates and notifications into it. Every message the Model does not handle
itself is forwarded to the controller's Update.

# Layout

	+--------------------------------------------------+
	| auditchat  <title>  profile: <name>              |
	+---------------+----------------------------------+
	| Conversations | transcript (viewport)            |
	|  ...          |                                  |
	|               +----------------------------------+
	|               | > composer                       |
	+---------------+----------------------------------+
	| [*] online  2 queued              notice / help  |
	+--------------------------------------------------+

The sidebar is hidden on terminals narrower than 80 columns.

# Keys

Enter sends, Tab moves between composer and sidebar, Ctrl+N starts a new
conversation, Ctrl+L toggles the reasoning ledger and Ctrl+F copies the next
suggested follow-up into the composer. In the sidebar, r renames and d
(pressed twice) deletes. F1 shows all bindings and slash commands.

# Audits

Assistant turns show "auditing reply..." while a poll job is running. Once
the audit is patched in, the turn shows the spirit score in its band color,
the ledger group counts and a sparkline of the conversation's score trend.
*/
package chat
