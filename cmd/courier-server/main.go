// Command courier-server is the headless API testing platform backend
// (spec.md §1): it wires the Variable Store, Template Expander, Auth
// Resolver/Applier, Script Sandbox, HTTP Proxy Executor, History
// Recorder, Assertion Engine, Collection Runner, and Run Registry
// behind the thin HTTP shim in internal/server.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "courier-server",
		Short: "CodeOps Courier API testing platform backend",
		Long:  "courier-server stores and executes team-shared HTTP request collections: variable resolution, auth inheritance, scripted pre/post hooks, and batch collection runs.",
	}

	rootCmd.AddCommand(serveCmd(), migrateCmd(), versionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
