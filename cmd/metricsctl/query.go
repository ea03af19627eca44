package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"metricsdash/internal/cli"
	"metricsdash/internal/core"
	"metricsdash/internal/services"
)

func queryCmd(a *app) *cobra.Command {
	var (
		fields, from, to string
		asJSON           bool
	)

	command := &cobra.Command{
		Use:   "query",
		Short: "Prints the dashboard response for a field selection and date range.",
		Args:  cobra.NoArgs,
	}
	command.Flags().StringVar(&fields, "fields", "", "Comma separated fields to return (default all numeric fields)")
	command.Flags().StringVar(&from, "from", "", "Start date (YYYY-MM-DD); needs --to")
	command.Flags().StringVar(&to, "to", "", "End date (YYYY-MM-DD); needs --from")
	command.Flags().BoolVar(&asJSON, "json", false, "Print the JSON envelope instead of a table")

	command.RunE = func(cmd *cobra.Command, args []string) error {
		q, err := services.ParseQuery(fields, from, to)
		if err != nil {
			return err
		}

		res, cfg, err := a.openStore(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer cli.CloseStore(a.log(), res)

		svc := services.NewQueryService(res.Store, services.QueryServiceConfig{
			Backend:      cfg.DataBackend,
			FetchTimeout: cfg.FetchTimeout,
		}, a.log())

		env, err := svc.Query(cmd.Context(), q)
		if err != nil {
			return err
		}

		if asJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(env)
		}
		writeTable(cmd.OutOrStdout(), env)
		return nil
	}

	return command
}

// writeTable renders env as a table with one row per record and a column
// per returned field. Fields a record lacks are left blank.
func writeTable(w io.Writer, env services.Envelope) {
	columns := envelopeColumns(env)

	t := table.NewWriter()
	t.SetOutputMirror(w)

	header := table.Row{core.DateField}
	for _, c := range columns {
		header = append(header, c)
	}
	t.AppendHeader(header)

	for _, rec := range env.Data {
		row := table.Row{rec.Date.String()}
		for _, c := range columns {
			if v, ok := rec.Get(c); ok {
				row = append(row, v.String())
			} else {
				row = append(row, "")
			}
		}
		t.AppendRow(row)
	}

	t.AppendFooter(table.Row{fmt.Sprintf("%d records", len(env.Data))})
	t.SetCaption("available fields: %s", strings.Join(env.AvailableFields, ", "))
	t.SetStyle(table.StyleDefault)
	t.Render()
}

// envelopeColumns lists field names in the order they first appear.
func envelopeColumns(env services.Envelope) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, rec := range env.Data {
		for _, name := range rec.Names() {
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			out = append(out, name)
		}
	}
	return out
}
