package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"marbles/events"
	"marbles/infrastructure"

	log "github.com/sirupsen/logrus"
)

var errNATSRequired = errors.New("watch requires NATS_SERVERS to be set")

// watchLine is one streamed event
type watchLine struct {
	EventID   string          `json:"event_id"`
	EventType string          `json:"event_type"`
	GuildID   int64           `json:"guild_id"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// watch streams committed ledger events from JetStream until ctx is cancelled
func watch(ctx context.Context, rt *runtime, args []string, out io.Writer) error {
	fs := newCommandFlags("watch", out)
	guild := fs.OptionalID("guild", "only show events from this guild")
	if err := fs.parse(args); err != nil {
		return err
	}
	if rt.nats == nil {
		return errNATSRequired
	}

	var mu sync.Mutex
	enc := json.NewEncoder(out)
	handler := watchHandler(&mu, enc, guild)

	subscriber := infrastructure.NewNATSEventSubscriber(rt.nats, infrastructure.NewEventSubjectMapper())
	if err := subscriber.SubscribeAll(handler); err != nil {
		return fmt.Errorf("failed to subscribe to ledger events: %w", err)
	}

	log.Info("Watching ledger events, press Ctrl+C to stop")
	<-ctx.Done()
	return nil
}

func watchHandler(mu *sync.Mutex, enc *json.Encoder, guild *snowflakeFlag) infrastructure.EnvelopeHandler {
	return func(ctx context.Context, envelope *infrastructure.EventEnvelope, event events.Event) error {
		if guild.set && envelope.GuildID != guild.value {
			return nil
		}

		line := watchLine{
			EventID:   envelope.EventID,
			EventType: string(event.Type()),
			GuildID:   envelope.GuildID,
			Payload:   envelope.Payload,
		}
		if envelope.Timestamp != nil {
			line.Timestamp = envelope.Timestamp.AsTime()
		}

		mu.Lock()
		defer mu.Unlock()
		return enc.Encode(line)
	}
}
