package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Strob0t/ReplyForge/internal/service"
)

func newSyncCmd(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "sync [location-id]",
		Short: "Pull new reviews from connected platforms",
		Long:  "Pull new reviews for one location, or for every location when no id is given.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}
			a, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			var results []service.SyncResult
			if len(args) == 1 {
				results, err = a.sync.SyncLocation(cmd.Context(), args[0])
			} else {
				results, err = a.sync.SyncAll(cmd.Context())
			}

			if encErr := writeIndented(cmd.OutOrStdout(), results); encErr != nil {
				return encErr
			}
			return err
		},
	}
}
