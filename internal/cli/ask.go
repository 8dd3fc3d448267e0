// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// ask.go - One-shot send from the command line.
//
// The same controller that drives the TUI runs inside a headless Bubble Tea
// program. The reply is printed as soon as it arrives; the audit summary
// follows when polling finishes.

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jeranaias/auditchat/internal/protocol"
)

// ErrAskFailed is returned when no reply could be obtained.
var ErrAskFailed = errors.New("no reply received")

type askOptions struct {
	noWait bool
	ledger bool
}

func newAskCmd(root *rootOptions) *cobra.Command {
	var opts askOptions

	cmd := &cobra.Command{
		Use:   "ask [TEXT]",
		Short: "Send one message and print the reply and its audit",
		Long: `Send one message in a new conversation and print the reply.

The command waits for the audit unless --no-wait is given. When TEXT is
omitted and stdin is not a terminal, the message is read from stdin.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := askText(args, cmd.InOrStdin())
			if err != nil {
				return err
			}
			app, err := root.app()
			if err != nil {
				return err
			}
			defer app.Close()
			if err := app.RequireServer(); err != nil {
				return err
			}

			styled := ColorsEnabled() && cmd.OutOrStdout() == os.Stdout
			printer := NewPrinter(cmd.OutOrStdout(), cmd.ErrOrStderr(), PrinterOptions{
				Styled:     styled,
				ShowScores: app.Config.UI.ShowScores,
				ShowLedger: opts.ledger,
				Width:      GetTerminalWidth(),
			})
			ctrl := app.Controller(cmd.Context(), printer)
			return runAsk(cmd.Context(), ctrl, printer, text, opts, app.Logger)
		},
	}

	cmd.Flags().BoolVar(&opts.noWait, "no-wait", false, "print the reply without waiting for the audit")
	cmd.Flags().BoolVar(&opts.ledger, "ledger", false, "print the full reasoning ledger")
	return cmd
}

// askText joins the arguments, or reads stdin when there are none.
func askText(args []string, stdin io.Reader) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	if IsTTY() {
		return "", errors.New("nothing to ask; pass TEXT or pipe a message on stdin")
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("failed to read stdin: %w", err)
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", errors.New("nothing to ask; stdin was empty")
	}
	return text, nil
}

// runAsk drives ctrl until the send and, unless noWait, its audit settle.
func runAsk(ctx context.Context, ctrl *protocol.Controller, printer *Printer, text string, opts askOptions, logger *zap.Logger) error {
	if ctx == nil {
		ctx = context.Background()
	}
	m := &askModel{ctrl: ctrl, text: text, noWait: opts.noWait}
	program := tea.NewProgram(m,
		tea.WithContext(ctx),
		tea.WithInput(nil),
		tea.WithOutput(io.Discard),
		tea.WithoutRenderer(),
		tea.WithoutSignalHandler(),
	)
	if _, err := program.Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("ask: %w", err)
	}
	if logger != nil {
		logger.Debug("ask finished", zap.Bool("failed", printer.Failed()), zap.String("title", printer.Title()))
	}
	if printer.Failed() {
		return ErrAskFailed
	}
	return nil
}

// =============================================================================
// HEADLESS MODEL
// =============================================================================

// askModel sends once and quits when the controller has nothing in flight.
type askModel struct {
	ctrl   *protocol.Controller
	text   string
	noWait bool
}

func (m *askModel) Init() tea.Cmd {
	cmd := m.ctrl.SendMessage(m.text)
	if cmd == nil {
		return tea.Quit
	}
	return cmd
}

func (m *askModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	cmd := m.ctrl.Update(msg)
	if m.done() {
		return m, tea.Quit
	}
	return m, cmd
}

func (m *askModel) View() string {
	return ""
}

func (m *askModel) done() bool {
	if m.noWait {
		return !m.ctrl.Busy()
	}
	return m.ctrl.Idle()
}
