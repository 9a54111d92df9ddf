package main

import (
	"fmt"
	"os"

	"github.com/danmuck/connstate/internal/logging"
	"github.com/spf13/cobra"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
)

func main() {
	logging.ConfigureRuntime()
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "connstatectl: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "connstatectl",
		Short: "Serve and inspect media session connection states",
		Long: `connstatectl hosts a media session that answers controller
connection requests with a connection state, and can encode, decode and
fetch those states for inspection.

Examples:
  connstatectl config init
  connstatectl serve --config session.toml
  connstatectl connect ws://127.0.0.1:8790/connect --interface-version 5
  connstatectl encode --interface-version 6 | connstatectl decode`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		configCmd(),
		serveCmd(),
		connectCmd(),
		encodeCmd(),
		decodeCmd(),
		versionCmd(),
	)
	return root
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "connstatectl %s (%s)\n", version, commit)
		},
	}
}
