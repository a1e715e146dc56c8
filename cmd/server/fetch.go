package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/Brownie44l1/alzdetect/internal/artifact"
)

var fetchModelCmd = &cobra.Command{
	Use:   "fetch-model",
	Short: "Download the model artifact if it is not present",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup()
		if err != nil {
			return err
		}
		defer e.logger.Sync()

		return artifact.NewFetcher(e.logger, os.Stderr).Ensure(cmd.Context(), e.cfg.Model.Path, e.cfg.Model.URL)
	},
}
