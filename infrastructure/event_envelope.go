package infrastructure

import (
	"encoding/json"
	"fmt"

	"marbles/events"

	"github.com/google/uuid"
	"google.golang.org/protobuf/types/known/timestamppb"
)

const sourceService = "marbles"

// EventEnvelope wraps every event published to NATS
type EventEnvelope struct {
	EventID       string                 `json:"event_id"`
	EventType     string                 `json:"event_type"`
	Timestamp     *timestamppb.Timestamp `json:"timestamp"`
	SourceService string                 `json:"source_service"`
	GuildID       int64                  `json:"guild_id,omitempty"`
	Payload       json.RawMessage        `json:"payload"`
}

// NewEventEnvelope serializes an event into a fresh envelope
func NewEventEnvelope(event events.Event) (*EventEnvelope, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event payload: %w", err)
	}

	envelope := &EventEnvelope{
		EventID:       uuid.New().String(),
		EventType:     string(event.Type()),
		Timestamp:     timestamppb.Now(),
		SourceService: sourceService,
		Payload:       payload,
	}
	if scoped, ok := event.(events.GuildScoped); ok {
		envelope.GuildID = scoped.Scope()
	}
	return envelope, nil
}

// DecodeEvent deserializes the payload into the concrete event type
func (e *EventEnvelope) DecodeEvent() (events.Event, error) {
	var event events.Event
	switch events.EventType(e.EventType) {
	case events.EventTypeBalanceChange:
		event = &events.BalanceChangeEvent{}
	case events.EventTypeAccountCreated:
		event = &events.AccountCreatedEvent{}
	case events.EventTypeMatchStateChange:
		event = &events.MatchStateChangeEvent{}
	case events.EventTypeMatchResolved:
		event = &events.MatchResolvedEvent{}
	case events.EventTypeBetPlaced:
		event = &events.BetPlacedEvent{}
	case events.EventTypeBetRemoved:
		event = &events.BetRemovedEvent{}
	default:
		return nil, fmt.Errorf("unknown event type: %s", e.EventType)
	}

	if err := json.Unmarshal(e.Payload, event); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s payload: %w", e.EventType, err)
	}
	return derefEvent(event), nil
}

// derefEvent hands subscribers the same value types the in-process bus uses
func derefEvent(event events.Event) events.Event {
	switch e := event.(type) {
	case *events.BalanceChangeEvent:
		return *e
	case *events.AccountCreatedEvent:
		return *e
	case *events.MatchStateChangeEvent:
		return *e
	case *events.MatchResolvedEvent:
		return *e
	case *events.BetPlacedEvent:
		return *e
	case *events.BetRemovedEvent:
		return *e
	}
	return event
}
