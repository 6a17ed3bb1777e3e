package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/spf13/cobra"

	"github.com/agromitra/agromitra/storage"
)

func newWorkflowsCmd(logLevel *string) *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "workflows",
		Short: "Inspect stored workflow runs",
	}
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file path (YAML)")

	var limit int
	eventsCmd := &cobra.Command{
		Use:   "events <workflow-id>",
		Short: "Print the event log of a workflow run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(configPath, *logLevel, func(ctx context.Context, store *storage.Store) error {
				events, err := store.ListEvents(ctx, args[0], limit)
				if err != nil {
					return err
				}
				return printJSON(events)
			})
		},
	}
	eventsCmd.Flags().IntVar(&limit, "limit", 0, "Maximum events to print (0 = all)")

	cmd.AddCommand(&cobra.Command{
		Use:   "get <workflow-id>",
		Short: "Print a workflow run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(configPath, *logLevel, func(ctx context.Context, store *storage.Store) error {
				run, err := store.GetRun(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSON(run)
			})
		},
	})
	cmd.AddCommand(eventsCmd)

	return cmd
}

// withStore connects to NATS, opens the entity store and runs fn against it.
func withStore(configPath, logLevel string, fn func(context.Context, *storage.Store) error) error {
	logger := newLogger(logLevel)

	cfg, err := loadConfig(configPath, logger)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	nc, err := nats.Connect(cfg.NATS.URL, nats.Name(appName))
	if err != nil {
		return fmt.Errorf("connect to NATS at %s: %w", cfg.NATS.URL, err)
	}
	defer nc.Close()

	js, err := jetstream.New(nc)
	if err != nil {
		return fmt.Errorf("create JetStream context: %w", err)
	}
	store, err := storage.NewStore(ctx, js)
	if err != nil {
		return fmt.Errorf("initialize storage: %w", err)
	}

	return fn(ctx, store)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
