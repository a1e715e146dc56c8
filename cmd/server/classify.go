package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Brownie44l1/alzdetect/internal/pipeline"
)

var submission pipeline.Submission

var classifyCmd = &cobra.Command{
	Use:   "classify <image>",
	Short: "Run one submission through the pipeline and print the outcome",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup()
		if err != nil {
			return err
		}
		defer e.logger.Sync()
		ctx := cmd.Context()

		image, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read image: %w", err)
		}
		sub := submission
		sub.Image = image

		classifier, err := e.loadClassifier(ctx)
		if err != nil {
			return err
		}
		defer classifier.Close()

		db, err := e.openStore(ctx)
		if err != nil {
			return err
		}
		defer db.Close()

		out := pipeline.New(classifier, db, e.logger).Run(ctx, sub)

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(map[string]any{
			"state":      out.State,
			"record":     out.Record,
			"prediction": out.Prediction,
			"persisted":  out.Persisted,
		}); err != nil {
			return err
		}
		if out.Err != nil {
			return out.Err
		}
		return nil
	},
}

func init() {
	f := classifyCmd.Flags()
	f.StringVar(&submission.Name, "name", "", "patient name")
	f.StringVar(&submission.Age, "age", "", "patient age")
	f.StringVar(&submission.Gender, "gender", "Male", "patient gender (Male, Female, Other)")
	f.StringVar(&submission.Contact, "contact", "", "10 digit contact number")
}
