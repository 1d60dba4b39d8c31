package events

import (
	"context"
	"sync"

	"marbles/models"

	log "github.com/sirupsen/logrus"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventTypeBalanceChange    EventType = "balance_change"
	EventTypeAccountCreated   EventType = "account_created"
	EventTypeMatchStateChange EventType = "match_state_change"
	EventTypeMatchResolved    EventType = "match_resolved"
	EventTypeBetPlaced        EventType = "bet_placed"
	EventTypeBetRemoved       EventType = "bet_removed"
)

// Event is the base interface for all events
type Event interface {
	Type() EventType
}

// GuildScoped is implemented by events that belong to a single guild
type GuildScoped interface {
	Scope() int64
}

// BalanceChangeEvent represents a balance change that occurred
type BalanceChangeEvent struct {
	UserID          int64                  `json:"user_id"`
	GuildID         int64                  `json:"guild_id"`
	OldBalance      int64                  `json:"old_balance"`
	NewBalance      int64                  `json:"new_balance"`
	TransactionType models.TransactionType `json:"transaction_type"`
	ChangeAmount    int64                  `json:"change_amount"`
}

func (e BalanceChangeEvent) Type() EventType { return EventTypeBalanceChange }
func (e BalanceChangeEvent) Scope() int64    { return e.GuildID }

// AccountCreatedEvent represents a new account in a guild
type AccountCreatedEvent struct {
	DiscordID      int64  `json:"discord_id"`
	GuildID        int64  `json:"guild_id"`
	DisplayName    string `json:"display_name"`
	InitialBalance int64  `json:"initial_balance"`
}

func (e AccountCreatedEvent) Type() EventType { return EventTypeAccountCreated }
func (e AccountCreatedEvent) Scope() int64    { return e.GuildID }

// MatchStateChangeEvent represents a match lifecycle transition
type MatchStateChangeEvent struct {
	MatchID      int64             `json:"match_id"`
	GuildID      int64             `json:"guild_id"`
	ChallengerID int64             `json:"challenger_id"`
	RecipientID  int64             `json:"recipient_id"`
	Amount       int64             `json:"amount"`
	OldState     models.MatchState `json:"old_state"`
	NewState     models.MatchState `json:"new_state"`
}

func (e MatchStateChangeEvent) Type() EventType { return EventTypeMatchStateChange }
func (e MatchStateChangeEvent) Scope() int64    { return e.GuildID }

// MatchResolvedEvent summarises a settled match
type MatchResolvedEvent struct {
	MatchID     int64 `json:"match_id"`
	GuildID     int64 `json:"guild_id"`
	WinnerID    int64 `json:"winner_id"`
	LoserID     int64 `json:"loser_id"`
	Amount      int64 `json:"amount"`
	WinnerPot   int64 `json:"winner_pot"`
	LoserPot    int64 `json:"loser_pot"`
	WinnerCount int   `json:"winner_count"`
	LoserCount  int   `json:"loser_count"`
	TotalPaid   int64 `json:"total_paid"`
}

func (e MatchResolvedEvent) Type() EventType { return EventTypeMatchResolved }
func (e MatchResolvedEvent) Scope() int64    { return e.GuildID }

// BetPlacedEvent represents a bet being created or replaced
type BetPlacedEvent struct {
	BetID          int64 `json:"bet_id"`
	MatchID        int64 `json:"match_id"`
	GuildID        int64 `json:"guild_id"`
	BettorID       int64 `json:"bettor_id"`
	TargetID       int64 `json:"target_id"`
	Amount         int64 `json:"amount"`
	PreviousAmount int64 `json:"previous_amount"`
}

func (e BetPlacedEvent) Type() EventType { return EventTypeBetPlaced }
func (e BetPlacedEvent) Scope() int64    { return e.GuildID }

// BetRemovedEvent represents a bet withdrawn by its bettor or refunded by a cancel
type BetRemovedEvent struct {
	BetID    int64 `json:"bet_id"`
	MatchID  int64 `json:"match_id"`
	GuildID  int64 `json:"guild_id"`
	BettorID int64 `json:"bettor_id"`
	Refunded int64 `json:"refunded"`
}

func (e BetRemovedEvent) Type() EventType { return EventTypeBetRemoved }
func (e BetRemovedEvent) Scope() int64    { return e.GuildID }

// Publisher delivers events somewhere outside the unit of work
type Publisher interface {
	Publish(event Event) error
}

// Handler is a function that handles events
type Handler func(ctx context.Context, event Event)

// Bus manages event subscriptions and dispatching
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
	sync     bool
}

// NewBus creates a new event bus that runs handlers asynchronously
func NewBus() *Bus {
	return &Bus{
		handlers: make(map[EventType][]Handler),
	}
}

// NewSyncBus creates a bus that runs handlers on the publishing goroutine
func NewSyncBus() *Bus {
	bus := NewBus()
	bus.sync = true
	return bus
}

// Subscribe adds a handler for a specific event type
func (b *Bus) Subscribe(eventType EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[eventType] = append(b.handlers[eventType], handler)

	log.WithFields(log.Fields{
		"eventType":    eventType,
		"handlerCount": len(b.handlers[eventType]),
	}).Debug("Subscribed handler to event type on main event bus")
}

// SubscribeAll adds a handler for every known event type
func (b *Bus) SubscribeAll(handler Handler) {
	for _, eventType := range []EventType{
		EventTypeBalanceChange,
		EventTypeAccountCreated,
		EventTypeMatchStateChange,
		EventTypeMatchResolved,
		EventTypeBetPlaced,
		EventTypeBetRemoved,
	} {
		b.Subscribe(eventType, handler)
	}
}

// Publish satisfies Publisher by emitting on a background context
func (b *Bus) Publish(event Event) error {
	b.Emit(context.Background(), event)
	return nil
}

// Emit publishes an event to all registered handlers
func (b *Bus) Emit(ctx context.Context, event Event) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers[event.Type()]))
	copy(handlers, b.handlers[event.Type()])
	b.mu.RUnlock()

	log.WithFields(log.Fields{
		"eventType":    event.Type(),
		"handlerCount": len(handlers),
	}).Debug("Emitting event to handlers on main event bus")

	for i, handler := range handlers {
		if b.sync {
			b.call(ctx, handler, i, event)
			continue
		}
		go b.call(ctx, handler, i, event)
	}
}

func (b *Bus) call(ctx context.Context, h Handler, handlerIndex int, event Event) {
	defer func() {
		if r := recover(); r != nil {
			log.WithFields(log.Fields{
				"eventType":    event.Type(),
				"handlerIndex": handlerIndex,
				"panic":        r,
			}).Error("Event handler panicked")
		}
	}()
	h(ctx, event)
}

// MultiPublisher fans an event out to several publishers, continuing past failures
type MultiPublisher struct {
	publishers []Publisher
}

// NewMultiPublisher creates a publisher that forwards to every given publisher
func NewMultiPublisher(publishers ...Publisher) *MultiPublisher {
	return &MultiPublisher{publishers: publishers}
}

// Publish forwards the event and returns the first error seen
func (m *MultiPublisher) Publish(event Event) error {
	var firstErr error
	for _, p := range m.publishers {
		if err := p.Publish(event); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// A transactional event bus for holding pending events coupled to the Unit of Work.
// Flushes to the underlying publisher.
type TransactionalBus struct {
	real    Publisher
	pending []Event // stashed until Flush
}

func NewTransactionalBus(real Publisher) *TransactionalBus {
	return &TransactionalBus{real: real}
}

func (b *TransactionalBus) Publish(e Event) error {
	log.WithFields(log.Fields{
		"eventType":    e.Type(),
		"pendingCount": len(b.pending),
	}).Debug("Adding event to transactional bus pending queue")
	b.pending = append(b.pending, e)
	return nil
}

// Pending returns the events waiting for commit
func (b *TransactionalBus) Pending() []Event {
	return b.pending
}

// called after successful DB commit
func (b *TransactionalBus) Flush(ctx context.Context) error {
	log.WithFields(log.Fields{
		"pendingEventCount": len(b.pending),
	}).Debug("Flushing pending events from transactional bus")

	for _, ev := range b.pending {
		if err := b.real.Publish(ev); err != nil {
			// The transaction is already committed, so a failed delivery only loses the notification.
			log.WithFields(log.Fields{
				"eventType": ev.Type(),
				"error":     err,
			}).Error("Failed to publish event during flush")
		}
	}
	b.pending = nil
	return nil
}

// called after db rollback or to clear state.
func (b *TransactionalBus) Discard() {
	log.WithFields(log.Fields{
		"discardedEventCount": len(b.pending),
	}).Debug("Discarding pending events from transactional bus")
	b.pending = nil
}
