package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/fleet/internal/events"
)

var watchCmd = &cobra.Command{
	Use:     "watch",
	Short:   "Follow export events",
	GroupID: "listings",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		topic, _ := cmd.Flags().GetString("topic")
		natsURL, _ := cmd.Flags().GetString("nats")

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		if natsURL != "" {
			return watchNATS(ctx, cmd.OutOrStdout(), natsURL, topic)
		}
		return watchStream(ctx, cmd.OutOrStdout(), topic)
	},
}

// watchNATS follows events straight from the bus.
func watchNATS(ctx context.Context, out io.Writer, natsURL, topic string) error {
	sub, err := events.NewNATSSubscriber(natsURL,
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			slog.Warn("nats disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			slog.Info("nats reconnected")
		}),
	)
	if err != nil {
		return fmt.Errorf("connecting to NATS: %w", err)
	}
	defer sub.Close()

	ch, cancel, err := sub.Subscribe(topic)
	if err != nil {
		return fmt.Errorf("subscribing to events: %w", err)
	}
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return nil
		case env, ok := <-ch:
			if !ok {
				return nil
			}
			if err := printEvent(out, env); err != nil {
				return err
			}
		}
	}
}

// watchStream follows the server's event stream.
func watchStream(ctx context.Context, out io.Writer, topic string) error {
	ch, err := fleetClient.Stream(ctx, []string{topic}, "")
	if err != nil {
		return fmt.Errorf("opening event stream: %w", err)
	}
	for evt := range ch {
		if err := printEvent(out, events.Envelope{Topic: evt.Topic, Data: evt.Data}); err != nil {
			return err
		}
	}
	return nil
}

func printEvent(out io.Writer, env events.Envelope) error {
	if jsonOutput {
		_, err := fmt.Fprintf(out, "{\"topic\":%q,\"data\":%s}\n", env.Topic, env.Data)
		return err
	}
	_, err := fmt.Fprintln(out, describeEvent(env))
	return err
}

// describeEvent renders an event as one human-readable line.
func describeEvent(env events.Envelope) string {
	v, err := events.Decode(env)
	if err != nil {
		return fmt.Sprintf("%s %s", env.Topic, strings.TrimSpace(string(env.Data)))
	}
	switch e := v.(type) {
	case *events.ExportCompleted:
		if e.Export == nil {
			return "export completed"
		}
		return fmt.Sprintf("export %s completed: %s %s, %d rows at s3://%s/%s",
			e.Export.ID, e.Export.Listing, e.Export.Format, e.Export.Rows, e.Export.Bucket, e.Export.Key)
	case *events.ExportFailed:
		return fmt.Sprintf("export %s failed: %s: %s", e.ID, e.Listing, e.Error)
	}
	return env.Topic
}

func defaultNATSURL() string {
	if s := os.Getenv("FLEET_NATS_URL"); s != "" {
		return s
	}
	return activeRemoteNATSURL()
}

func init() {
	watchCmd.Flags().String("topic", events.TopicExports, "topic pattern to follow")
	watchCmd.Flags().String("nats", defaultNATSURL(), "NATS URL (default: the server's event stream)")
}
