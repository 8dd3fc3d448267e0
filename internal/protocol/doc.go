// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package protocol implements the conversation send and audit
// synchronization protocol.
//
// The Controller runs inside a Bubble Tea program. Every network call is a
// tea.Cmd that returns one of the messages in messages.go, and every state
// change happens in Controller.Update, so the conversation store needs no
// locking.
//
// # Send
//
// SendMessage appends and displays the user turn before any network call,
// creates the conversation when a draft is open, submits the message, and
// displays the reply. Replies without an embedded audit start an AuditJob.
//
// # Audit reconciliation
//
// An AuditJob polls FetchAuditResult on a fixed interval for a bounded
// number of attempts. The job belongs to the conversation that was open
// when it started and ends without patching once that conversation is no
// longer on screen.
//
// # Offline
//
// Conversation and account mutations that cannot reach the server are
// queued by the gateway and applied locally. The queue is replayed when the
// connectivity monitor reports a reconnect and when the terminal regains
// focus.
package protocol
