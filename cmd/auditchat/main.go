// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Command auditchat is a terminal chat client whose replies are audited by
// the server after they arrive.
package main

import (
	"os"

	"github.com/jeranaias/auditchat/internal/cli"
)

// Version info set via ldflags at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	cli.Version, cli.Commit, cli.Date = version, commit, date
	os.Exit(cli.Execute())
}
