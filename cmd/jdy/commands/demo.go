package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Sternrassler/jdy-client/pkg/client"
)

// Widgets of the sample form the demo runs against.
const (
	demoText     = "_widget_1528252846720"
	demoSubform  = "_widget_1528252846801"
	demoSubText  = "_widget_1528252846952"
	demoNumber   = "_widget_1528252847027"
	demoAddress  = "_widget_1528252846785"
	demoTextarea = "_widget_1528252846748"
)

func newDemoCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "demo",
		Short: "Run the sample walkthrough against the sample form",
		Long: `Run the sample walkthrough: list widgets, query records with a filter,
fetch all records, then create, update, retrieve and delete one record.

The record steps run in order and stop at the first error.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.newClient()
			if err != nil {
				return err
			}
			return a.runDemo(cmd.Context(), cmd.OutOrStdout(), c)
		},
	}
}

func (a *app) runDemo(ctx context.Context, w io.Writer, c *client.Client) error {
	step := func(title string, v any) error {
		if _, err := fmt.Fprintf(w, "== %s\n", title); err != nil {
			return err
		}
		return a.render(w, v, nil)
	}

	// The read steps are independent; failures are logged and the demo
	// continues.
	if widgets, err := c.GetFormWidgets(ctx); err != nil {
		a.logger.Error().Err(err).Msg("Get widgets failed")
	} else if err := step("widgets", widgets); err != nil {
		return err
	}

	filter := &client.Filter{
		Rel:  client.RelAnd,
		Cond: []client.Condition{{Field: demoText, Type: "text", Method: "empty"}},
	}
	if records, err := c.GetFormData(ctx, client.PageSize, []string{demoText, demoSubform}, filter, ""); err != nil {
		a.logger.Error().Err(err).Msg("Filtered query failed")
	} else if err := step("filtered data", records); err != nil {
		return err
	}

	if records, err := c.GetAllFormData(ctx, nil, nil); err != nil {
		a.logger.Error().Err(err).Msg("Get all data failed")
	} else if err := step("all data", records); err != nil {
		return err
	}

	created, err := c.CreateData(ctx, demoCreatePayload())
	if err != nil {
		return fmt.Errorf("create: %w", err)
	}
	if err := step("created", created); err != nil {
		return err
	}

	updated, err := c.UpdateData(ctx, created.ID(), demoUpdatePayload())
	if err != nil {
		return fmt.Errorf("update %s: %w", created.ID(), err)
	}
	if err := step("updated", updated); err != nil {
		return err
	}

	retrieved, err := c.RetrieveData(ctx, created.ID())
	if err != nil {
		return fmt.Errorf("retrieve %s: %w", created.ID(), err)
	}
	if err := step("retrieved", retrieved); err != nil {
		return err
	}

	deleted, err := c.DeleteData(ctx, created.ID())
	if err != nil {
		return fmt.Errorf("delete %s: %w", created.ID(), err)
	}
	return step("deleted", deleted)
}

func demoCreatePayload() client.Record {
	return client.Record{
		demoText: client.Value("123"),
		demoSubform: client.Value([]any{
			map[string]any{demoSubText: client.Value("123")},
		}),
		demoNumber: client.Value(123),
		demoAddress: client.Value(map[string]any{
			"province": "江苏省",
			"city":     "无锡市",
			"district": "南长区",
			"detail":   "清名桥街道",
		}),
		demoTextarea: client.Value("123123"),
	}
}

func demoUpdatePayload() client.Record {
	return client.Record{
		demoText: client.Value("12345"),
		demoSubform: client.Value([]any{
			map[string]any{demoSubText: client.Value("12345")},
		}),
		demoNumber: client.Value(12345),
	}
}
