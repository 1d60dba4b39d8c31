package infrastructure

import (
	"fmt"

	"marbles/events"
)

// EventSubjectMapper handles mapping between ledger events and NATS subjects
type EventSubjectMapper struct{}

// NewEventSubjectMapper creates a new event subject mapper
func NewEventSubjectMapper() *EventSubjectMapper {
	return &EventSubjectMapper{}
}

var subjectsByType = map[events.EventType]string{
	events.EventTypeBalanceChange:    EventSubjectPrefix + ".accounts.balance_changed",
	events.EventTypeAccountCreated:   EventSubjectPrefix + ".accounts.created",
	events.EventTypeMatchStateChange: EventSubjectPrefix + ".matches.state_changed",
	events.EventTypeMatchResolved:    EventSubjectPrefix + ".matches.resolved",
	events.EventTypeBetPlaced:        EventSubjectPrefix + ".bets.placed",
	events.EventTypeBetRemoved:       EventSubjectPrefix + ".bets.removed",
}

// MapEventToSubject converts an event to its NATS subject
func (m *EventSubjectMapper) MapEventToSubject(event events.Event) string {
	return m.MapEventTypeToSubject(event.Type())
}

// MapEventTypeToSubject converts an event type to its NATS subject
func (m *EventSubjectMapper) MapEventTypeToSubject(eventType events.EventType) string {
	if subject, ok := subjectsByType[eventType]; ok {
		return subject
	}
	return fmt.Sprintf("%s.unknown.%s", EventSubjectPrefix, eventType)
}

// MapSubjectToEventType converts a NATS subject back to an event type
func (m *EventSubjectMapper) MapSubjectToEventType(subject string) events.EventType {
	for eventType, s := range subjectsByType {
		if s == subject {
			return eventType
		}
	}
	return events.EventType(subject)
}

// GetAllSubjects returns all subjects the ledger publishes to
func (m *EventSubjectMapper) GetAllSubjects() []string {
	return []string{
		subjectsByType[events.EventTypeBalanceChange],
		subjectsByType[events.EventTypeAccountCreated],
		subjectsByType[events.EventTypeMatchStateChange],
		subjectsByType[events.EventTypeMatchResolved],
		subjectsByType[events.EventTypeBetPlaced],
		subjectsByType[events.EventTypeBetRemoved],
	}
}
