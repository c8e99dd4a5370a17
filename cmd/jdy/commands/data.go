package commands

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Sternrassler/jdy-client/pkg/client"
)

func newWidgetsCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "widgets",
		Short: "List the fields of the entry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.newClient()
			if err != nil {
				return err
			}
			widgets, err := c.GetFormWidgets(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to get widgets: %w", err)
			}
			return a.render(cmd.OutOrStdout(), widgets, widgetsTable(widgets))
		},
	}
}

func newDataCommand(a *app) *cobra.Command {
	var (
		limit  int
		fields []string
		filter string
		cursor string
	)

	cmd := &cobra.Command{
		Use:   "data",
		Short: "Get one page of records",
		Long: `Get one page of records.

The page starts after the record given by --cursor (the _id of the last
record of the previous page). An empty result means there are no more
records.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := parseFilter(filter)
			if err != nil {
				return err
			}
			c, err := a.newClient()
			if err != nil {
				return err
			}
			records, err := c.GetFormData(cmd.Context(), limit, fields, f, cursor)
			if err != nil {
				return fmt.Errorf("failed to get data: %w", err)
			}
			return a.render(cmd.OutOrStdout(), records, recordsTable(records))
		},
	}

	cmd.Flags().IntVar(&limit, "limit", client.PageSize, "maximum number of records (at most 100)")
	cmd.Flags().StringSliceVar(&fields, "fields", nil, "fields to return (default all)")
	cmd.Flags().StringVar(&filter, "filter", "", `filter as JSON, for example '{"rel":"and","cond":[...]}'`)
	cmd.Flags().StringVar(&cursor, "cursor", "", "_id of the last record of the previous page")

	return cmd
}

func newAllCommand(a *app) *cobra.Command {
	var (
		fields []string
		filter string
	)

	cmd := &cobra.Command{
		Use:   "all",
		Short: "Get every record of the entry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := parseFilter(filter)
			if err != nil {
				return err
			}
			c, err := a.newClient()
			if err != nil {
				return err
			}
			records, err := c.GetAllFormData(cmd.Context(), fields, f)
			if err != nil {
				return fmt.Errorf("failed to get all data: %w", err)
			}
			a.logger.Info().Int("records", len(records)).Msg("Fetched all records")
			return a.render(cmd.OutOrStdout(), records, recordsTable(records))
		},
	}

	cmd.Flags().StringSliceVar(&fields, "fields", nil, "fields to return (default all)")
	cmd.Flags().StringVar(&filter, "filter", "", "filter as JSON")

	return cmd
}

func newGetCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get <data-id>",
		Short: "Get a single record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.newClient()
			if err != nil {
				return err
			}
			rec, err := c.RetrieveData(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("failed to get record %s: %w", args[0], err)
			}
			return a.render(cmd.OutOrStdout(), rec, recordTable(rec))
		},
	}
}

func newCreateCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "create <json>",
		Short: "Create a record",
		Long: `Create a record from a JSON object of field documents, for example

  jdy create '{"_widget_1528252846720":{"value":"123"}}'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := parseRecord(args[0])
			if err != nil {
				return err
			}
			c, err := a.newClient()
			if err != nil {
				return err
			}
			rec, err := c.CreateData(cmd.Context(), data)
			if err != nil {
				return fmt.Errorf("failed to create record: %w", err)
			}
			return a.render(cmd.OutOrStdout(), rec, recordTable(rec))
		},
	}
}

func newUpdateCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "update <data-id> <json>",
		Short: "Update a record",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := parseRecord(args[1])
			if err != nil {
				return err
			}
			c, err := a.newClient()
			if err != nil {
				return err
			}
			rec, err := c.UpdateData(cmd.Context(), args[0], data)
			if err != nil {
				return fmt.Errorf("failed to update record %s: %w", args[0], err)
			}
			return a.render(cmd.OutOrStdout(), rec, recordTable(rec))
		},
	}
}

func newDeleteCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <data-id>",
		Short: "Delete a record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.newClient()
			if err != nil {
				return err
			}
			result, err := c.DeleteData(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("failed to delete record %s: %w", args[0], err)
			}
			return a.render(cmd.OutOrStdout(), result, nil)
		},
	}
}

func parseFilter(raw string) (*client.Filter, error) {
	if raw == "" {
		return nil, nil
	}
	var f client.Filter
	if err := json.Unmarshal([]byte(raw), &f); err != nil {
		return nil, fmt.Errorf("invalid --filter: %w", err)
	}
	return &f, nil
}

func parseRecord(raw string) (client.Record, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.UseNumber()
	var rec client.Record
	if err := dec.Decode(&rec); err != nil {
		return nil, fmt.Errorf("invalid record JSON: %w", err)
	}
	if rec == nil {
		return nil, fmt.Errorf("invalid record JSON: expected an object")
	}
	return rec, nil
}
