// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package offline tracks connectivity and holds mutations that could not
// reach the server.
//
// # Key Types
//
//   - QueuedOperation: a persisted mutation with its kind and JSON payload
//   - Queue: FIFO of pending operations stored under storage.QueueKey
//   - Replayer: drains the queue through an Executor at a bounded rate
//   - Monitor: online/offline state with a periodic health probe
//
// # Usage
//
//	queue, _ := offline.NewQueue(store, 0)
//	monitor := offline.NewMonitor(client.Health, 15*time.Second, false, logger)
//	go monitor.Run(ctx)
//
//	<-monitor.Reconnected()
//	report, err := offline.NewReplayer(queue, client, 2, logger).Replay(ctx)
//
// Operations are replayed in enqueue order. A successful operation is
// removed, a permanently rejected one is dropped and reported, and a
// transient failure stops the replay with the rest of the queue intact.
package offline
