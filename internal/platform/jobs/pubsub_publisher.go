// Package jobs publishes asynchronous work to Cloud Pub/Sub.
package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"cloud.google.com/go/pubsub"
)

// Publisher sends JSON events to Pub/Sub topics, caching topic handles.
type Publisher struct {
	client *pubsub.Client
	clock  func() time.Time

	mu     sync.Mutex
	topics map[string]*pubsub.Topic
}

// NewPublisher wraps the Pub/Sub client.
func NewPublisher(client *pubsub.Client) (*Publisher, error) {
	if client == nil {
		return nil, errors.New("jobs: pubsub client is required")
	}
	return &Publisher{
		client: client,
		clock:  time.Now,
		topics: make(map[string]*pubsub.Topic),
	}, nil
}

func (p *Publisher) topic(name string) *pubsub.Topic {
	p.mu.Lock()
	defer p.mu.Unlock()
	if topic, ok := p.topics[name]; ok {
		return topic
	}
	topic := p.client.Topic(name)
	p.topics[name] = topic
	return topic
}

// Publish marshals the event and publishes it, blocking until the server
// acknowledges the message.
func (p *Publisher) Publish(ctx context.Context, topicName string, eventType string, payload any) (string, error) {
	if strings.TrimSpace(topicName) == "" {
		return "", errors.New("jobs: topic name is required")
	}
	msg, err := buildMessage(eventType, payload, p.clock().UTC())
	if err != nil {
		return "", err
	}
	result := p.topic(topicName).Publish(ctx, msg)
	id, err := result.Get(ctx)
	if err != nil {
		return "", fmt.Errorf("jobs: publish to %s: %w", topicName, err)
	}
	return id, nil
}

// Stop flushes and releases every cached topic handle.
func (p *Publisher) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, topic := range p.topics {
		topic.Stop()
	}
	p.topics = make(map[string]*pubsub.Topic)
}

func buildMessage(eventType string, payload any, publishedAt time.Time) (*pubsub.Message, error) {
	if strings.TrimSpace(eventType) == "" {
		return nil, errors.New("jobs: event type is required")
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("jobs: marshal %s event: %w", eventType, err)
	}
	return &pubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"eventType":   eventType,
			"publishedAt": publishedAt.Format(time.RFC3339),
		},
	}, nil
}
