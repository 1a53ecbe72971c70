package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// entityLister is satisfied by both gateway implementations; the Gateway
// interface itself stays minimal for embedding hosts.
type entityLister interface {
	EntityIDs(ctx context.Context) ([]string, error)
}

func entitiesCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "entities",
		Short: "List entity IDs known to the configured storage backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEntities(cmd.Context(), configPath)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "scopeql.yaml", "path to the YAML configuration file")
	return cmd
}

func runEntities(ctx context.Context, configPath string) error {
	s, err := newSetup(ctx, configPath)
	if err != nil {
		return err
	}
	defer s.close()

	lister, ok := s.gw.(entityLister)
	if !ok {
		return fmt.Errorf("storage backend does not support listing entities")
	}
	ids, err := lister.EntityIDs(ctx)
	if err != nil {
		return err
	}
	for _, id := range ids {
		fmt.Fprintln(os.Stdout, id)
	}
	return nil
}
