// Package main is the entry point for the osclean CLI.
//
// osclean deletes OpenStack resources left behind by test clusters. It
// selects resources by a name filter or from a saved list, shows them, and
// deletes them in dependency order: advanced services, compute, storage,
// load balancers, then networking.
//
// For detailed usage information, run:
//
//	osclean --help
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/imamik/osclean/cmd/osclean/commands"
)

// Version information set by goreleaser at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	commands.SetVersionInfo(version, commit, date)
	if err := commands.Root().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
	return 0
}
