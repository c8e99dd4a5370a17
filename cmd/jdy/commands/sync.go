package commands

import (
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/Sternrassler/jdy-client/pkg/sink"
)

// syncResult is printed after a successful sync.
type syncResult struct {
	App     string   `json:"app_id" yaml:"app_id"`
	Entry   string   `json:"entry_id" yaml:"entry_id"`
	Records int      `json:"records" yaml:"records"`
	Sinks   []string `json:"sinks" yaml:"sinks"`
}

func newSyncCommand(a *app) *cobra.Command {
	var (
		redisAddr string
		natsURL   string
		subject   string
	)

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Mirror every record of the entry into Redis and/or NATS",
		Long: `Fetch every record of the entry and write the set to the configured sinks.

Redis keeps the records in the hash jdy:{app}:{entry}:records, replaced on
every sync. NATS receives one message per record on
jdy.{app}.{entry}.records unless --subject is set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if redisAddr == "" && natsURL == "" {
				return fmt.Errorf("at least one of --redis-addr or --nats-url is required")
			}

			ctx := cmd.Context()
			var sinks []sink.Sink
			var names []string

			if redisAddr != "" {
				rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
				defer rdb.Close()
				if err := rdb.Ping(ctx).Err(); err != nil {
					return fmt.Errorf("failed to connect to Redis at %s: %w", redisAddr, err)
				}
				a.logger.Info().Str("addr", redisAddr).Msg("Connected to Redis")
				sinks = append(sinks, sink.NewRedisSink(rdb))
				names = append(names, "redis")
			}

			if natsURL != "" {
				nc, err := nats.Connect(natsURL, nats.Name("jdy"), nats.Timeout(5*time.Second))
				if err != nil {
					return fmt.Errorf("failed to connect to NATS at %s: %w", natsURL, err)
				}
				defer nc.Close()
				a.logger.Info().Str("url", natsURL).Msg("Connected to NATS")
				sinks = append(sinks, sink.NewNATSSink(nc, subject))
				names = append(names, "nats")
			}

			c, err := a.newClient()
			if err != nil {
				return err
			}
			records, err := c.GetAllFormData(ctx, nil, nil)
			if err != nil {
				return fmt.Errorf("failed to get all data: %w", err)
			}

			ref := sink.EntryRef{AppID: c.AppID(), EntryID: c.EntryID()}
			for i, s := range sinks {
				if err := s.Write(ctx, ref, records); err != nil {
					return fmt.Errorf("failed to write to %s: %w", names[i], err)
				}
				a.logger.Info().Str("sink", names[i]).Int("records", len(records)).Msg("Synced records")
			}

			return a.render(cmd.OutOrStdout(), syncResult{
				App:     ref.AppID,
				Entry:   ref.EntryID,
				Records: len(records),
				Sinks:   names,
			}, &tableData{
				header: []string{"App", "Entry", "Records", "Sinks"},
				rows:   [][]string{{ref.AppID, ref.EntryID, fmt.Sprint(len(records)), fmt.Sprint(names)}},
			})
		},
	}

	cmd.Flags().StringVar(&redisAddr, "redis-addr", "", "Redis address (host:port)")
	cmd.Flags().StringVar(&natsURL, "nats-url", "", "NATS server URL")
	cmd.Flags().StringVar(&subject, "subject", "", "NATS subject (default jdy.{app}.{entry}.records)")

	return cmd
}
