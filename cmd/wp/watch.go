package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/groblegark/warmpath/internal/events"
	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:     "watch [topic]",
	Short:   "Stream events from the bus (default topic warmpath.>)",
	GroupID: "system",
	Args:    cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		topic := "warmpath.>"
		if len(args) == 1 {
			topic = args[0]
		}

		natsURL, _ := cmd.Flags().GetString("nats")
		if natsURL == "" {
			natsURL = os.Getenv("WARMPATH_NATS_URL")
		}
		if natsURL == "" {
			natsURL = activeRemoteNATSURL()
		}
		if natsURL == "" {
			return fmt.Errorf("no NATS URL configured (set --nats, WARMPATH_NATS_URL, or a remote with a nats_url)")
		}

		sub, err := events.NewNATSSubscriber(natsURL,
			nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
				log.Printf("nats: disconnected: %v", err)
			}),
			nats.ReconnectHandler(func(_ *nats.Conn) {
				log.Printf("nats: reconnected")
			}),
		)
		if err != nil {
			return err
		}
		defer sub.Close()

		ch, cancel, err := sub.Subscribe(topic)
		if err != nil {
			return err
		}
		defer cancel()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		fmt.Fprintf(os.Stderr, "watching %s on %s (ctrl-c to stop)\n", topic, natsURL)
		for {
			select {
			case <-ctx.Done():
				return nil
			case payload, ok := <-ch:
				if !ok {
					return nil
				}
				printEvent(payload)
			}
		}
	},
}

// printEvent renders one raw event payload, compacting JSON when possible.
func printEvent(payload []byte) {
	ts := time.Now().Format("15:04:05")
	var compact json.RawMessage
	if err := json.Unmarshal(payload, &compact); err == nil {
		out, _ := json.Marshal(compact)
		fmt.Printf("%s %s\n", ts, out)
		return
	}
	fmt.Printf("%s %s\n", ts, payload)
}

func init() {
	watchCmd.Flags().String("nats", "", "NATS server URL")
}
