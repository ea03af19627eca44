package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"metricsdash/internal/cli"
	applog "metricsdash/internal/log"
)

func seedCmd(a *app) *cobra.Command {
	var file string

	command := &cobra.Command{
		Use:   "seed",
		Short: "Replaces the store content with the sample dataset.",
		Long: "Clears every record in the configured store and inserts the built-in " +
			"twelve month dataset, or the records read from --file.",
		Args: cobra.NoArgs,
	}
	command.Flags().StringVar(&file, "file", "", "JSON file holding the records to seed")

	command.RunE = func(cmd *cobra.Command, args []string) error {
		recs, err := loadRecords(file)
		if err != nil {
			return err
		}

		res, _, err := a.openStore(cmd.Context(), true)
		if err != nil {
			return err
		}
		defer cli.CloseStore(a.log(), res)

		removed, err := res.Store.ReplaceAll(cmd.Context(), recs)
		if err != nil {
			return err
		}

		a.log().Info("Store seeded",
			applog.FieldOperation, applog.OpSeed,
			applog.FieldRecordCount, len(recs),
			"removed", removed)
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Cleared %d existing records\n", removed)
		fmt.Fprintf(out, "Inserted %d records\n", len(recs))
		return nil
	}

	return command
}
