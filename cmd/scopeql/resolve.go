package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/MrWong99/scopeql/internal/scope"
)

func resolveCmd() *cobra.Command {
	var (
		configPath string
		actorID    string
		targetID   string
	)

	cmd := &cobra.Command{
		Use:   "resolve <expression>",
		Short: "Resolve a scope expression against the configured world",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResolve(cmd.Context(), configPath, args[0], scope.Context{
				ActorID:  actorID,
				TargetID: targetID,
			})
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "scopeql.yaml", "path to the YAML configuration file")
	cmd.Flags().StringVar(&actorID, "actor", "", "entity ID bound to the actor root")
	cmd.Flags().StringVar(&targetID, "target", "", "entity ID bound to the target root")
	return cmd
}

func runResolve(ctx context.Context, configPath, expression string, rctx scope.Context) error {
	s, err := newSetup(ctx, configPath)
	if err != nil {
		return err
	}
	defer s.close()

	set, err := s.engine.ResolveExpression(ctx, expression, rctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, s.engine.UserMessage(err))
		return err
	}

	if set.Len() == 0 {
		fmt.Fprintln(os.Stdout, "(empty set)")
		return nil
	}
	for _, id := range set.Sorted() {
		fmt.Fprintln(os.Stdout, id)
	}
	return nil
}
