package main

import (
	"encoding/json"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/leadscore/internal/config"
	"github.com/sells-group/leadscore/internal/model"
)

var predictFile string

var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Classify one lead read as JSON from a file or stdin",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		rec, err := readLead(cmd.InOrStdin(), predictFile)
		if err != nil {
			return err
		}

		env, err := initEnv(ctx, config.ModeStore, true)
		if err != nil {
			return err
		}
		defer env.Close()

		res, err := env.Predictor.Process(ctx, rec)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), res.Output())
	},
}

// readLead decodes one JSON lead from path, or from stdin when path is
// empty or "-".
func readLead(stdin io.Reader, path string) (model.Lead, error) {
	r := stdin
	if path != "" && path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, eris.Wrapf(err, "open %s", path)
		}
		defer f.Close() //nolint:errcheck
		r = f
	}

	var rec model.Lead
	if err := json.NewDecoder(r).Decode(&rec); err != nil {
		return nil, eris.Wrap(err, "decode lead")
	}
	if len(rec) == 0 {
		return nil, eris.New("lead record is empty")
	}
	return rec, nil
}

func init() {
	predictCmd.Flags().StringVarP(&predictFile, "file", "f", "", "JSON lead file (default stdin)")
	rootCmd.AddCommand(predictCmd)
}
