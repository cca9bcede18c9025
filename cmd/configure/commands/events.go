package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/benvon/corsgate/internal/config"
	"github.com/benvon/corsgate/internal/queue"
	"github.com/spf13/cobra"
)

// NewEventsCmd creates the events command for following policy audit events.
func NewEventsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Follow policy audit events",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "watch",
		Short: "Print policy events from RabbitMQ as JSON lines until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if cfg.RabbitMQURL == "" {
				return fmt.Errorf("RABBITMQ_URL is required")
			}
			publisher, err := queue.NewRabbitMQPublisher(cfg.RabbitMQURL)
			if err != nil {
				return err
			}
			defer func() { _ = publisher.Close() }()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return watchEvents(ctx, publisher, json.NewEncoder(cmd.OutOrStdout()), cmd.ErrOrStderr())
		},
	})
	return cmd
}

// watchEvents encodes events until ctx ends or the stream closes. Undecodable
// messages are reported to warn and skipped.
func watchEvents(ctx context.Context, w queue.EventWatcher, enc *json.Encoder, warn io.Writer) error {
	events, errs, err := w.Watch(ctx)
	if err != nil {
		return err
	}
	var lastErr error
	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			lastErr = err
			_, _ = fmt.Fprintf(warn, "Warning: %v\n", err)
		case ev, ok := <-events:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				if errs != nil {
					for err := range errs {
						lastErr = err
					}
				}
				return lastErr
			}
			if err := enc.Encode(ev); err != nil {
				return err
			}
		}
	}
}
