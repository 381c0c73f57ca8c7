// Command etl downloads the Río Sonora source datasets and turns them into
// tidy parquet and reference artifacts.
//
// Usage:
//
//	etl download [SOURCE...]   fetch catalog sources into data/raw (all when none named)
//	etl process                transform raw files into processed artifacts
//	etl run                    download, then process
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCommand().ExecuteContext(ctx); err != nil {
		return 1
	}
	return 0
}

func rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "etl COMMAND",
		Short:        "Río Sonora water-quality and livestock data pipeline",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	root.AddCommand(
		&cobra.Command{
			Use:   "download [SOURCE...]",
			Short: "Download catalog sources into the raw data directory",
			Args:  cobra.ArbitraryArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return execute(cmd.Context(), stepDownload, args...)
			},
		},
		&cobra.Command{
			Use:   "process",
			Short: "Transform downloaded files into tidy artifacts",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return execute(cmd.Context(), stepProcess)
			},
		},
		&cobra.Command{
			Use:   "run",
			Short: "Download, then process",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return execute(cmd.Context(), stepDownload|stepProcess)
			},
		},
	)
	return root
}
