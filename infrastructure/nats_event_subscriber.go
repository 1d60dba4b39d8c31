package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"

	"marbles/events"

	log "github.com/sirupsen/logrus"
)

// MessageSubscriber is the part of NATSClient the event subscriber needs
type MessageSubscriber interface {
	Subscribe(subject string, handler func([]byte) error) error
}

// EnvelopeHandler receives a decoded event together with its envelope
type EnvelopeHandler func(ctx context.Context, envelope *EventEnvelope, event events.Event) error

// NATSEventSubscriber subscribes to NATS subjects and decodes ledger events for handlers
type NATSEventSubscriber struct {
	client        MessageSubscriber
	subjectMapper *EventSubjectMapper
}

// NewNATSEventSubscriber creates a new NATS event subscriber
func NewNATSEventSubscriber(client MessageSubscriber, subjectMapper *EventSubjectMapper) *NATSEventSubscriber {
	return &NATSEventSubscriber{
		client:        client,
		subjectMapper: subjectMapper,
	}
}

// Subscribe registers a handler for a single event type
func (s *NATSEventSubscriber) Subscribe(eventType events.EventType, handler EnvelopeHandler) error {
	subject := s.subjectMapper.MapEventTypeToSubject(eventType)

	log.WithFields(log.Fields{
		"eventType": eventType,
		"subject":   subject,
	}).Info("Registering event handler for subject")

	return s.client.Subscribe(subject, func(data []byte) error {
		return s.HandleMessage(subject, data, handler)
	})
}

// SubscribeAll registers a handler for every subject the ledger publishes to
func (s *NATSEventSubscriber) SubscribeAll(handler EnvelopeHandler) error {
	for _, subject := range s.subjectMapper.GetAllSubjects() {
		eventType := s.subjectMapper.MapSubjectToEventType(subject)
		if err := s.Subscribe(eventType, handler); err != nil {
			return err
		}
	}
	return nil
}

// HandleMessage decodes one NATS message and routes it to the handler
func (s *NATSEventSubscriber) HandleMessage(subject string, data []byte, handler EnvelopeHandler) error {
	var envelope EventEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		log.WithFields(log.Fields{
			"subject": subject,
			"error":   err,
		}).Error("Failed to unmarshal event envelope")
		return fmt.Errorf("failed to unmarshal event envelope: %w", err)
	}

	event, err := envelope.DecodeEvent()
	if err != nil {
		log.WithFields(log.Fields{
			"subject":     subject,
			"eventType":   envelope.EventType,
			"eventId":     envelope.EventID,
			"payloadSize": len(envelope.Payload),
			"error":       err,
		}).Error("Failed to deserialize event payload")
		return err
	}

	if err := handler(context.Background(), &envelope, event); err != nil {
		log.WithFields(log.Fields{
			"subject":   subject,
			"eventType": envelope.EventType,
			"eventId":   envelope.EventID,
			"error":     err,
		}).Error("Event handler failed")
		return err
	}

	log.WithFields(log.Fields{
		"subject":   subject,
		"eventType": envelope.EventType,
		"eventId":   envelope.EventID,
	}).Debug("Successfully processed NATS event")
	return nil
}
