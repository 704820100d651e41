package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/EO-DataHub/eodhp-agent-runner/models"
	"github.com/apache/pulsar-client-go/pulsar"
	"github.com/rs/zerolog/log"
)

// Notifier publishes agent run events.
type Notifier interface {
	Publish(event models.AgentRunEvent) error
	Close()
}

type EventPublisher struct {
	client   pulsar.Client
	producer pulsar.Producer
	timeout  time.Duration
}

// NewEventPublisher initializes the Pulsar client and producer
func NewEventPublisher(pulsarURL, topic string) (*EventPublisher, error) {
	client, err := pulsar.NewClient(pulsar.ClientOptions{
		URL: pulsarURL,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create Pulsar client: %w", err)
	}

	producer, err := client.CreateProducer(pulsar.ProducerOptions{
		Topic: topic,
	})
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("could not create Pulsar producer: %w", err)
	}

	log.Info().Str("topic", topic).Msg("Pulsar client and producer initialized successfully")
	return &EventPublisher{
		client:   client,
		producer: producer,
		timeout:  10 * time.Second,
	}, nil
}

// Publish sends the event to Pulsar keyed by thread id
func (p *EventPublisher) Publish(event models.AgentRunEvent) error {
	message, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("could not serialize event payload: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	_, err = p.producer.Send(ctx, &pulsar.ProducerMessage{
		Payload: message,
		Key:     event.ThreadID,
	})
	if err != nil {
		return fmt.Errorf("could not send event to Pulsar: %w", err)
	}

	log.Debug().RawJSON("event", message).Msg("Event sent to Pulsar")
	return nil
}

// Close closes the Pulsar client and producer
func (p *EventPublisher) Close() {
	p.producer.Close()
	p.client.Close()
	log.Info().Msg("Pulsar client and producer closed successfully")
}
