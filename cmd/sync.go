package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/leadscore/internal/config"
)

var syncSource string

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Sync leads from the configured source into the store",
	Long:  "Fetches every row from the configured source, upserts the leads by contact identity and predicts newly inserted ones.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if syncSource != "" {
			cfg.Source.Kind = syncSource
		}

		env, err := initEnv(ctx, config.ModeSync, false)
		if err != nil {
			return err
		}
		defer env.Close()

		job, err := newSyncJob(env, cfg)
		if err != nil {
			return err
		}

		summary, err := job.Run(ctx)
		if err != nil {
			return err
		}
		zap.L().Info("sync complete",
			zap.String("source", summary.Source),
			zap.Int("inserted", summary.Result.Inserted),
			zap.Int("updated", summary.Result.Updated),
			zap.Int("predicted", summary.Result.Predicted),
		)
		return printJSON(cmd.OutOrStdout(), summary)
	},
}

func init() {
	syncCmd.Flags().StringVar(&syncSource, "source", "", "source kind: sheets, csv, xlsx, notion, salesforce (default from config)")
	rootCmd.AddCommand(syncCmd)
}
