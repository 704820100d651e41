package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/EO-DataHub/eodhp-agent-runner/models"
	"github.com/apache/pulsar-client-go/pulsar"
)

type EventConsumer struct {
	client   pulsar.Client
	consumer pulsar.Consumer
}

// NewEventConsumer initializes the Pulsar client and consumer.
func NewEventConsumer(pulsarURL, topic, subscription string) (*EventConsumer, error) {
	client, err := pulsar.NewClient(pulsar.ClientOptions{URL: pulsarURL})
	if err != nil {
		return nil, fmt.Errorf("could not create Pulsar client: %w", err)
	}

	consumer, err := client.Subscribe(pulsar.ConsumerOptions{
		Topic:            topic,
		SubscriptionName: subscription,
		Type:             pulsar.Shared,
	})
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("could not create Pulsar consumer: %w", err)
	}

	return &EventConsumer{client: client, consumer: consumer}, nil
}

// Receive blocks for the next run event. Undecodable messages are acked and
// returned as an error so they do not redeliver forever.
func (c *EventConsumer) Receive(ctx context.Context) (*models.AgentRunEvent, error) {
	msg, err := c.consumer.Receive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to receive message: %w", err)
	}

	var event models.AgentRunEvent
	if err := DecodeEvent(msg.Payload(), &event); err != nil {
		_ = c.consumer.Ack(msg)
		return nil, err
	}

	if err := c.consumer.Ack(msg); err != nil {
		return nil, fmt.Errorf("failed to ack message: %w", err)
	}
	return &event, nil
}

// DecodeEvent unmarshals a published run event.
func DecodeEvent(payload []byte, event *models.AgentRunEvent) error {
	if err := json.Unmarshal(payload, event); err != nil {
		return fmt.Errorf("error unmarshaling run event: %w", err)
	}
	if event.ThreadID == "" {
		return fmt.Errorf("run event has no thread id")
	}
	return nil
}

// Close cleans up the Pulsar consumer and client.
func (c *EventConsumer) Close() {
	c.consumer.Close()
	c.client.Close()
}
