package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"manual-chatbot-be/internal/pkg/logger"
	"manual-chatbot-be/pkg/events"
	pktNats "manual-chatbot-be/pkg/nats"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func eventsCmd() *cobra.Command {
	var (
		natsURL string
		durable string
	)
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Tail session lifecycle events exported to NATS",
		RunE: func(cmd *cobra.Command, args []string) error {
			if natsURL == "" {
				natsURL = loadConfig().App.NatsURL
			}
			if natsURL == "" {
				return fmt.Errorf("no NATS server: set NATS_URL or --nats")
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			sub, err := pktNats.NewSubscriber(natsURL, logger.NewNop())
			if err != nil {
				return err
			}
			defer sub.Close()

			err = sub.Subscribe(ctx, pktNats.Subject("session.>"), durable, func(ctx context.Context, e events.Event) error {
				printEvent(e)
				return nil
			})
			if err != nil {
				return err
			}

			color.Cyan("Listening on %s, Ctrl+C to stop", natsURL)
			<-ctx.Done()
			return nil
		},
	}
	cmd.Flags().StringVar(&natsURL, "nats", "", "NATS URL (default from NATS_URL)")
	cmd.Flags().StringVar(&durable, "durable", "manualctl", "durable consumer name")
	return cmd
}

func printEvent(e events.Event) {
	ts := e.Timestamp().Local().Format("15:04:05")
	id, _ := e.Payload()["session_id"].(string)

	switch e.EventType() {
	case events.TypeSessionReady:
		color.Green("%s %-16s %s", ts, e.EventType(), id)
	case events.TypeSessionFailed:
		color.Red("%s %-16s %s %v", ts, e.EventType(), id, e.Payload()["error"])
	case events.TypeSessionDeleted:
		color.Yellow("%s %-16s %s", ts, e.EventType(), id)
	default:
		fmt.Printf("%s %-16s %s\n", ts, e.EventType(), id)
	}
}
