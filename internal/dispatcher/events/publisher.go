// Package events publishes job outcome events for downstream consumers.
package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cuongbtq/tool-sidecar/internal/dispatcher/domain"
)

// MessagePublisher is the broker capability the outcome publisher needs.
// shared/rabbitmq.Client satisfies it.
type MessagePublisher interface {
	PublishWithRetry(ctx context.Context, body []byte, contentType string) error
}

// BrokerPublisher serializes outcomes as JSON and hands them to a broker
type BrokerPublisher struct {
	broker MessagePublisher
}

// NewBrokerPublisher creates an outcome publisher backed by broker
func NewBrokerPublisher(broker MessagePublisher) *BrokerPublisher {
	return &BrokerPublisher{broker: broker}
}

// Publish sends one job outcome event
func (p *BrokerPublisher) Publish(ctx context.Context, outcome domain.JobOutcome) error {
	body, err := json.Marshal(outcome)
	if err != nil {
		return fmt.Errorf("marshal job outcome: %w", err)
	}

	if err := p.broker.PublishWithRetry(ctx, body, "application/json"); err != nil {
		return fmt.Errorf("publish outcome for job %s: %w", outcome.JobID, err)
	}
	return nil
}

// NopPublisher drops every event. Used when events are disabled.
type NopPublisher struct{}

func NewNopPublisher() *NopPublisher { return &NopPublisher{} }

func (NopPublisher) Publish(context.Context, domain.JobOutcome) error { return nil }
