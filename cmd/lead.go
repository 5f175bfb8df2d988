package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/leadscore/internal/config"
	"github.com/sells-group/leadscore/internal/model"
	"github.com/sells-group/leadscore/internal/store"
)

var (
	leadsLimit       int
	leadsTemperature string
)

var leadCmd = &cobra.Command{
	Use:   "lead <unique-id>",
	Short: "Print one stored lead",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		env, err := initEnv(ctx, config.ModeStore, false)
		if err != nil {
			return err
		}
		defer env.Close()

		l, err := env.Store.FindOne(ctx, store.ByUniqueID(args[0]))
		if err != nil {
			return err
		}
		if l == nil {
			return eris.Errorf("lead %s not found", args[0])
		}
		return printJSON(cmd.OutOrStdout(), l)
	},
}

var leadsCmd = &cobra.Command{
	Use:   "leads",
	Short: "List recent leads, optionally filtered by temperature",
	RunE: func(cmd *cobra.Command, args []string) error {
		q, err := leadsQuery(leadsTemperature, leadsLimit)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		env, err := initEnv(ctx, config.ModeStore, false)
		if err != nil {
			return err
		}
		defer env.Close()

		leads, err := env.Store.Find(ctx, q)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), leads)
	},
}

func leadsQuery(temperature string, limit int) (store.Query, error) {
	if limit < 1 || limit > 100 {
		return store.Query{}, eris.New("--limit must be between 1 and 100")
	}
	q := store.Query{Limit: limit}
	if temperature != "" {
		t, ok := model.ParseTemperature(temperature)
		if !ok {
			return store.Query{}, eris.Errorf("temperature %q must be one of Hot, Warm, Cold", temperature)
		}
		q.Match = map[string]string{model.FieldPrediction + ".predicted_temperature": string(t)}
	}
	return q, nil
}

func init() {
	leadsCmd.Flags().IntVar(&leadsLimit, "limit", 20, "max number of leads to list")
	leadsCmd.Flags().StringVar(&leadsTemperature, "temperature", "", "only leads predicted as Hot, Warm or Cold")
	rootCmd.AddCommand(leadCmd, leadsCmd)
}
