package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"marbles/events"

	log "github.com/sirupsen/logrus"
)

// MessagePublisher is the part of NATSClient the event publisher needs
type MessagePublisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
}

// NATSEventPublisher publishes ledger events to NATS inside an EventEnvelope
type NATSEventPublisher struct {
	client         MessagePublisher
	subjectMapper  *EventSubjectMapper
	publishTimeout time.Duration
}

// NewNATSEventPublisher creates a new NATS event publisher
func NewNATSEventPublisher(client MessagePublisher, subjectMapper *EventSubjectMapper) *NATSEventPublisher {
	return &NATSEventPublisher{
		client:         client,
		subjectMapper:  subjectMapper,
		publishTimeout: 5 * time.Second,
	}
}

// Publish publishes an event to NATS using the appropriate subject
func (p *NATSEventPublisher) Publish(event events.Event) error {
	ctx, cancel := context.WithTimeout(context.Background(), p.publishTimeout)
	defer cancel()

	subject := p.subjectMapper.MapEventToSubject(event)

	envelope, err := NewEventEnvelope(event)
	if err != nil {
		return err
	}

	envelopeData, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("failed to marshal event envelope: %w", err)
	}

	if err := p.client.Publish(ctx, subject, envelopeData); err != nil {
		// No stream bound to the subject yet; nothing is listening
		if strings.Contains(err.Error(), "no response from stream") {
			return nil
		}
		return fmt.Errorf("failed to publish event to NATS: %w", err)
	}

	log.WithFields(log.Fields{
		"eventType": event.Type(),
		"eventId":   envelope.EventID,
		"guildId":   envelope.GuildID,
		"subject":   subject,
	}).Debug("Successfully published event to NATS")

	return nil
}
