// Package main implements the actionitems CLI: extract tasks from a
// transcript file, serve extraction over HTTP, and inspect the rule tables.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	logLevel   string
	logFormat  string
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}

	root := &cobra.Command{
		Use:   "actionitems",
		Short: "Extract action items from meeting transcripts",
		Long: `actionitems finds tasks in transcribed meetings: who has to do what, by when,
and how urgently. Extraction is rule based, optionally refined by an LLM.

Configuration is read from ~/.config/actionitems/config.yaml (or --config)
and ACTIONITEMS_<SECTION>_<FIELD> environment variables.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&g.configPath, "config", "", "config file (default ~/.config/actionitems/config.yaml)")
	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "log level: trace, debug, info, warn, error")
	root.PersistentFlags().StringVar(&g.logFormat, "log-format", "", "log format: json or console")

	root.AddCommand(
		newExtractCmd(g),
		newServeCmd(g),
		newPatternsCmd(g),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "actionitems %s\n", version)
		},
	}
}
