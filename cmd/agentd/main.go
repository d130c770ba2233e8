package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	root := &cobra.Command{
		Use:           "agentd",
		Short:         "Local AI assistant daemon with on-demand component loading",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("config", "", "Path to config file (.yaml/.json/.toml)")
	root.PersistentFlags().String("addr", "", "HTTP address of the daemon (overrides config)")

	root.AddCommand(newServeCmd(), newAskCmd(), newStatusCmd(), newFetchCmd(), newVersionCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "agentd:", err)
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the agentd version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("agentd", version)
		},
	}
}
