// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jeranaias/auditchat/internal/api"
	"github.com/jeranaias/auditchat/internal/export"
	"github.com/jeranaias/auditchat/internal/model"
)

type exportOptions struct {
	format    string
	outputDir string
	noLedger  bool
	stdout    bool
}

func newExportCmd(root *rootOptions) *cobra.Command {
	opts := exportOptions{}

	cmd := &cobra.Command{
		Use:   "export [CONVERSATION_ID]",
		Short: "Export a conversation with its audits",
		Long: `Export a conversation transcript, including the audit of every reply.

Without an ID the most recently opened conversation is exported.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(root, func(app *App) error {
				if err := app.RequireServer(); err != nil {
					return err
				}
				id := app.Settings.LastConversationID()
				if len(args) == 1 {
					id = args[0]
				}
				if id == "" {
					return errors.New("no conversation given and none opened yet")
				}
				return runExport(cmd, app, id, opts)
			})
		},
	}
	cmd.Flags().StringVarP(&opts.format, "format", "f", "markdown", "markdown or json")
	cmd.Flags().StringVarP(&opts.outputDir, "output", "o", ".", "output directory")
	cmd.Flags().BoolVar(&opts.noLedger, "no-ledger", false, "write only the audit summary of each reply")
	cmd.Flags().BoolVar(&opts.stdout, "stdout", false, "write to standard output instead of a file")
	return cmd
}

func runExport(cmd *cobra.Command, app *App, id string, opts exportOptions) error {
	exportOpts := export.DefaultOptions()
	exportOpts.OutputDir = opts.outputDir
	exportOpts.IncludeLedger = !opts.noLedger

	exporter, err := export.ForFormat(opts.format, exportOpts)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, app.Config.RequestTimeout())
	defer cancel()

	transcript, err := fetchTranscript(ctx, app.Client, id)
	if err != nil {
		return err
	}

	if opts.stdout {
		content, err := exporter.Export(transcript)
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(content)
		return err
	}

	path, err := export.ToFile(transcript, exporter, exportOpts)
	if err != nil {
		return err
	}
	app.Logger.Info("conversation exported",
		zap.String("conversation", id),
		zap.String("path", path),
		zap.Int("turns", len(transcript.Turns)))
	fmt.Fprintf(cmd.OutOrStdout(), "%s exported %d message(s) to %s\n", SuccessStyle.Render("[OK]"), len(transcript.Turns), path)
	return nil
}

// fetchTranscript loads the conversation's title and history.
func fetchTranscript(ctx context.Context, client *api.Client, id string) (export.Transcript, error) {
	t := export.Transcript{Conversation: model.Conversation{ID: id}}

	convs, err := client.FetchConversations(ctx)
	if err != nil {
		return t, fmt.Errorf("could not load conversation: %s", api.UserMessage(err))
	}
	for _, c := range convs {
		if c.ID == id {
			t.Conversation = c
			break
		}
	}

	turns, err := client.FetchHistory(ctx, id)
	if err != nil {
		return t, fmt.Errorf("could not load messages: %s", api.UserMessage(err))
	}
	t.Turns = turns
	return t, nil
}
