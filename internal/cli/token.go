// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

// newTokenCmd manages the session token kept in local storage. The stored
// token is sealed with the device key; server.token in the config file or
// AUDITCHAT_TOKEN take precedence over it.
func newTokenCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage the stored session token",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "set [TOKEN]",
		Short: "Store a session token (reads stdin when omitted)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := tokenArg(args, cmd.InOrStdin())
			if err != nil {
				return err
			}
			return withApp(root, func(app *App) error {
				if err := app.Session.SetToken(token); err != nil {
					return fmt.Errorf("failed to store token: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s token stored (%s)\n", SuccessStyle.Render("[OK]"), maskSecret(token))
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show which session token is in use",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(root, func(app *App) error {
				out := cmd.OutOrStdout()
				switch {
				case app.Config.Server.Token != "":
					fmt.Fprintf(out, "%s%s\n", RenderLabel("Token"), ValueStyle.Render(maskSecret(app.Config.Server.Token)+" (config)"))
				case app.Session.SignedIn():
					fmt.Fprintf(out, "%s%s\n", RenderLabel("Token"), ValueStyle.Render(maskSecret(app.Session.Token())+" (stored)"))
				default:
					fmt.Fprintf(out, "%s%s\n", RenderLabel("Token"), DimStyle.Render("none"))
				}
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Forget the stored token, active profile and last conversation",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(root, func(app *App) error {
				if err := app.Session.Clear(); err != nil {
					return fmt.Errorf("failed to clear session: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s session cleared\n", SuccessStyle.Render("[OK]"))
				return nil
			})
		},
	})
	return cmd
}

func tokenArg(args []string, stdin io.Reader) (string, error) {
	var token string
	if len(args) == 1 {
		token = args[0]
	} else if stdin != nil {
		data, err := io.ReadAll(io.LimitReader(stdin, 64*1024))
		if err != nil {
			return "", err
		}
		token = string(data)
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", errors.New("no token given")
	}
	return token, nil
}
