package main

import (
	"github.com/spf13/cobra"

	"github.com/sells-group/leadscore/internal/config"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print prediction coverage and temperature distribution",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		env, err := initEnv(ctx, config.ModeStore, false)
		if err != nil {
			return err
		}
		defer env.Close()

		s, err := env.Stats.Stats(ctx)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), s)
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
