package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/EO-DataHub/eodhp-agent-runner/internal/events"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var watchSubscription string

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print agent run events from the Pulsar topic as they arrive",
	Run: func(cmd *cobra.Command, args []string) {

		commonSetUp()

		if appCfg.Pulsar.URL == "" || appCfg.Pulsar.TopicProducer == "" {
			log.Fatal().Msg("No Pulsar topic configured; set PULSAR_URL and PULSAR_TOPIC")
		}

		// Initialize event consumer
		consumer, err := events.NewEventConsumer(appCfg.Pulsar.URL, appCfg.Pulsar.TopicProducer, watchSubscription)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize event consumer")
		}
		defer consumer.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		enc := json.NewEncoder(cmd.OutOrStdout())

		// Consume messages
		for {
			event, err := consumer.Receive(ctx)
			if err != nil {
				if errors.Is(err, context.Canceled) || ctx.Err() != nil {
					return
				}
				log.Error().Err(err).Msg("Error receiving run event")
				continue
			}

			if err := enc.Encode(event); err != nil {
				log.Error().Err(err).Msg("Failed to write run event")
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().StringVar(&watchSubscription, "subscription", "agent-runner-watch", "Pulsar subscription name")
}
