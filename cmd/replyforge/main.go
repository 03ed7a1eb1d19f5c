package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/Strob0t/ReplyForge/internal/config"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})))

	if err := newRootCmd().Execute(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "replyforge",
		Short:         "Draft, check and publish replies to customer reviews",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultConfigFile, "YAML config file (optional)")

	load := func() (*config.Config, error) {
		return config.LoadFrom(configPath)
	}

	root.AddCommand(
		newServeCmd(load),
		newMigrateCmd(load),
		newSyncCmd(load),
		newEventsCmd(load),
		newPolicyCmd(),
	)
	return root
}

// configLoader defers config loading until a command runs, so --help and the
// offline policy commands work without a valid config.
type configLoader func() (*config.Config, error)
