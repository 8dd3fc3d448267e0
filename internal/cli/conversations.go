// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jeranaias/auditchat/internal/api"
	"github.com/jeranaias/auditchat/internal/model"
	"github.com/jeranaias/auditchat/internal/util"
)

func newConversationsCmd(root *rootOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:     "conversations",
		Aliases: []string{"ls"},
		Short:   "List conversations, most recent first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(root, func(app *App) error {
				if err := app.RequireServer(); err != nil {
					return err
				}
				ctx := cmd.Context()
				if ctx == nil {
					ctx = context.Background()
				}
				ctx, cancel := context.WithTimeout(ctx, app.Config.RequestTimeout())
				defer cancel()

				convs, err := app.Client.FetchConversations(ctx)
				if err != nil {
					return fmt.Errorf("could not list conversations: %s", api.UserMessage(err))
				}
				model.SortConversations(convs)
				return printConversations(cmd, convs, app.Settings.LastConversationID(), asJSON)
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "output JSON")
	return cmd
}

type conversationEntry struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	LastUpdated string `json:"last_updated,omitempty"`
}

func printConversations(cmd *cobra.Command, convs []model.Conversation, lastID string, asJSON bool) error {
	if asJSON {
		entries := make([]conversationEntry, 0, len(convs))
		for _, c := range convs {
			e := conversationEntry{ID: c.ID, Title: c.GetTitle()}
			if !c.LastUpdated.IsZero() {
				e.LastUpdated = c.LastUpdated.UTC().Format("2006-01-02T15:04:05Z")
			}
			entries = append(entries, e)
		}
		return writeJSON(cmd, entries)
	}

	out := cmd.OutOrStdout()
	if len(convs) == 0 {
		fmt.Fprintln(out, "No conversations yet")
		return nil
	}
	width := GetTerminalWidth() - 30
	for _, c := range convs {
		marker := " "
		if c.ID == lastID {
			marker = "*"
		}
		title := util.PadRight(util.TruncateWidth(util.SingleLine(c.GetTitle()), width), width)
		updated := ""
		if !c.LastUpdated.IsZero() {
			updated = humanize.Time(c.LastUpdated)
		}
		fmt.Fprintf(out, "%s %s  %s\n", marker, title, DimStyle.Render(updated))
	}
	return nil
}
