package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"metricsdash/internal/amqp"
	"metricsdash/internal/core"
	applog "metricsdash/internal/log"
)

func publishCmd(a *app) *cobra.Command {
	var (
		file      string
		batchSize int
	)

	command := &cobra.Command{
		Use:   "publish",
		Short: "Publishes records to the ingest queue in batches.",
		Long: "Reads records from --file (or the built-in dataset) and publishes them " +
			"to AMQP_EXCHANGE for metricsdash-ingest to validate and store.",
		Args: cobra.NoArgs,
	}
	command.Flags().StringVar(&file, "file", "", "JSON file holding the records to publish")
	command.Flags().IntVar(&batchSize, "batch-size", 50, "Records per message")

	command.RunE = func(cmd *cobra.Command, args []string) error {
		if batchSize < 1 {
			return fmt.Errorf("invalid batch size %d: must be positive", batchSize)
		}
		recs, err := loadRecords(file)
		if err != nil {
			return err
		}

		cfg, err := a.config()
		if err != nil {
			return err
		}
		if cfg.AMQPURL == "" {
			return errors.New("AMQP_URL is required to publish")
		}

		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			return err
		}
		defer client.Close()

		batches := chunk(recs, batchSize)
		for i, batch := range batches {
			msg := amqp.NewRecordBatchMessage(batch)
			if err := client.PublishBatch(cmd.Context(), msg); err != nil {
				return fmt.Errorf("batch %d of %d: %w", i+1, len(batches), err)
			}
			a.log().Debug("Published batch",
				applog.FieldOperation, applog.OpPublish,
				applog.FieldBatchID, msg.BatchID,
				applog.FieldRecordCount, len(batch))
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Published %d records in %d batches\n", len(recs), len(batches))
		return nil
	}

	return command
}

// chunk splits recs into consecutive slices of at most size records.
func chunk(recs []core.Record, size int) [][]core.Record {
	var out [][]core.Record
	for len(recs) > size {
		out = append(out, recs[:size])
		recs = recs[size:]
	}
	if len(recs) > 0 {
		out = append(out, recs)
	}
	return out
}
