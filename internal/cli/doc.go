// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the auditchat command line.
//
// Running auditchat without arguments starts the interactive interface.
// The subcommands work without a terminal and are safe to script.
//
// # Commands
//
//   - ask TEXT: send one message, print the reply and wait for its audit
//   - conversations: list conversations
//   - export [ID]: write a conversation and its audits as Markdown or JSON
//   - queue list|replay|clear: manage changes queued while offline
//   - token set|status|clear: manage the stored session token
//   - config show|path|set|init: view and edit configuration
//   - version: print build information
//
// # Wiring
//
// NewApp opens local storage and builds the offline queue, connectivity
// monitor, replayer and API client from the loaded config. The stored
// session token is sealed with a device key kept next to the store. Every command,
// interactive or not, drives the same protocol.Controller.
//
// Output is styled only when stdout is a terminal and NO_COLOR is unset.
package cli
