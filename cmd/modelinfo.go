package main

import (
	"github.com/spf13/cobra"

	"github.com/sells-group/leadscore/internal/classifier"
)

type modelInfo struct {
	Loaded   bool                `json:"loaded"`
	Version  string              `json:"version,omitempty"`
	Metadata classifier.Metadata `json:"metadata"`
}

var modelCmd = &cobra.Command{
	Use:   "model",
	Short: "Load the classifier and print its metadata",
	RunE: func(cmd *cobra.Command, args []string) error {
		clf := classifier.Open(cfg.Model.Path, cfg.Model.MetadataPath)
		info := modelInfo{Loaded: clf.Loaded(), Metadata: clf.Metadata()}
		if clf.Loaded() {
			info.Version = clf.Metadata().Version()
		}
		return printJSON(cmd.OutOrStdout(), info)
	},
}

func init() {
	rootCmd.AddCommand(modelCmd)
}
