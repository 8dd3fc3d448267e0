// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jeranaias/auditchat/internal/api"
	"github.com/jeranaias/auditchat/internal/offline"
)

// =============================================================================
// QUEUE COMMAND
// =============================================================================

func newQueueCmd(root *rootOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and replay changes made while offline",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(root, func(app *App) error { return listQueue(cmd, app.Queue, asJSON) })
		},
	}
	cmd.PersistentFlags().BoolVar(&asJSON, "json", false, "output JSON")

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List queued operations, oldest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(root, func(app *App) error { return listQueue(cmd, app.Queue, asJSON) })
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "replay",
		Short: "Replay queued operations now",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(root, func(app *App) error {
				if err := app.RequireServer(); err != nil {
					return err
				}
				return replayQueue(cmd, app)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Discard every queued operation",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(root, func(app *App) error {
				n := app.Queue.Len()
				if err := app.Queue.Clear(); err != nil {
					return fmt.Errorf("failed to clear queue: %w", err)
				}
				app.Logger.Info("offline queue cleared", zap.Int("discarded", n))
				fmt.Fprintf(cmd.OutOrStdout(), "%s discarded %d queued operation(s)\n", SuccessStyle.Render("[OK]"), n)
				return nil
			})
		},
	})
	return cmd
}

// withApp wires the app for one command and closes it afterwards.
func withApp(root *rootOptions, fn func(app *App) error) error {
	app, err := root.app()
	if err != nil {
		return err
	}
	defer app.Close()
	return fn(app)
}

type queueEntry struct {
	ID         string `json:"id"`
	Kind       string `json:"kind"`
	EnqueuedAt string `json:"enqueued_at"`
}

func listQueue(cmd *cobra.Command, q *offline.Queue, asJSON bool) error {
	ops := q.Pending()
	if asJSON {
		entries := make([]queueEntry, 0, len(ops))
		for _, op := range ops {
			entries = append(entries, queueEntry{
				ID:         op.ID,
				Kind:       op.Kind.String(),
				EnqueuedAt: op.EnqueuedAt.UTC().Format("2006-01-02T15:04:05Z"),
			})
		}
		return writeJSON(cmd, entries)
	}

	out := cmd.OutOrStdout()
	if len(ops) == 0 {
		fmt.Fprintln(out, "No queued operations")
		return nil
	}
	fmt.Fprintln(out, TitleStyle.Render(fmt.Sprintf("Queued operations (%d)", len(ops))))
	for _, op := range ops {
		fmt.Fprintf(out, "  %s %s\n", RenderLabel(op.Kind.Describe()), DimStyle.Render(humanize.Time(op.EnqueuedAt)))
	}
	return nil
}

func replayQueue(cmd *cobra.Command, app *App) error {
	out := cmd.OutOrStdout()
	if app.Queue.Len() == 0 {
		fmt.Fprintln(out, "Nothing to replay")
		return nil
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	report, err := app.Replayer.Replay(ctx)
	for _, d := range report.Dropped {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s discarded %s: %s\n",
			WarningStyle.Render("[!]"), d.Operation.Kind.Describe(), api.UserMessage(d.Err))
	}
	if report.Completed(offline.KindDeleteAccount) {
		if cerr := app.Session.Clear(); cerr != nil {
			app.Logger.Warn("failed to clear session", zap.Error(cerr))
		}
		fmt.Fprintf(out, "%s account deleted; signed out\n", SuccessStyle.Render("[OK]"))
	}
	fmt.Fprintf(out, "%s replayed %d, %d remaining\n", SuccessStyle.Render("[OK]"), report.Replayed, report.Remaining)
	if err != nil {
		return fmt.Errorf("replay stopped: %s", api.UserMessage(err))
	}
	return nil
}
