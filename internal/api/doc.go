// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api provides the typed client for the audited-assistant server.
//
// Every gateway function takes a context and returns normalized model types.
// Ledger and values fields arrive either as JSON or as JSON serialized into a
// string; both shapes are handled in one decode step so callers never see
// the difference.
//
// # Offline behavior
//
// Transport failures are reported as ErrOffline. For the queueable
// mutations (rename, delete, delete account, profile change, model change)
// the client instead persists the operation to the offline queue and
// returns ErrQueued, which callers treat as success-enough. Message sending
// is never queued.
//
// # Usage
//
//	client := api.NewClient(cfg.Server.URL, token).
//		WithLogger(logger).
//		WithQueue(queue).
//		WithMonitor(monitor)
//
//	resp, err := client.ProcessUserMessage(ctx, api.ProcessRequest{
//		Text:           "Hello",
//		ConversationID: conv.ID,
//	})
package api
