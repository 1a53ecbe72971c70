// Command scopeql is a CLI for the scope expression resolution engine:
// parse expressions, inspect ASTs, resolve them against a world fixture or a
// PostgreSQL component store, and run the resolver as a service.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	root := &cobra.Command{
		Use:   "scopeql",
		Short: "Scope expression resolution engine",
	}
	root.Version = version
	root.SetVersionTemplate("{{.Version}}\n")
	root.AddCommand(parseCmd())
	root.AddCommand(resolveCmd())
	root.AddCommand(entitiesCmd())
	root.AddCommand(serveCmd())
	root.AddCommand(versionCmd())
	if err := root.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
