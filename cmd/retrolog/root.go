package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "retrolog",
		Short: "retrolog keeps verbose logs in memory until they are worth writing",
		Long: `retrolog keeps verbose logs in memory until they are worth writing.
Lines below the write level are buffered. Lines at or above it are written,
and an error can dump the buffered lines that led up to it.`,
		SilenceUsage: true,
	}

	root.AddCommand(newPipeCmd(), newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "retrolog", version)
		},
	}
}
