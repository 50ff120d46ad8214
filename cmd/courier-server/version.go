package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// version/commit are overridden at build time via -ldflags
// "-X main.version=... -X main.commit=...".
var (
	version = "dev"
	commit  = "unknown"
)

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the courier-server version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Printf("courier-server %s (%s)\n", version, commit)
			return nil
		},
	}
}
