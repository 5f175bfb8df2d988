package main

import (
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/leadscore/internal/config"
)

var batchLimit int

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Predict stored leads that have no prediction yet",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		limit := batchLimit
		if limit == 0 {
			limit = cfg.Batch.DefaultLimit
		}
		if limit < 0 {
			return eris.New("--limit must be positive")
		}

		env, err := initEnv(ctx, config.ModeStore, false)
		if err != nil {
			return err
		}
		defer env.Close()

		res, err := env.Predictor.Batch(ctx, limit)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), res)
	},
}

func init() {
	batchCmd.Flags().IntVar(&batchLimit, "limit", 0, "max number of leads to predict (default from config)")
	rootCmd.AddCommand(batchCmd)
}
