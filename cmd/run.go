package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"marbles/application"
	"marbles/config"
	"marbles/database"
	"marbles/events"
	"marbles/infrastructure"
	"marbles/infrastructure/observability"
	"marbles/repository"

	log "github.com/sirupsen/logrus"
)

// runtime holds the connections a command needs
type runtime struct {
	db      *database.DB
	bus     *events.Bus
	nats    *infrastructure.NATSClient
	metrics *observability.MetricsProvider
	ledger  *application.Ledger
}

// Run wires the ledger from configuration and executes one command
func Run(ctx context.Context, cfg *config.Config, args []string, out io.Writer) error {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		PrintUsage(out)
		return nil
	}

	rt, err := newRuntime(ctx, cfg)
	if err != nil {
		return err
	}
	defer rt.close()

	if args[0] == "watch" {
		return watch(ctx, rt, args[1:], out)
	}
	return Execute(ctx, rt.ledger, args, out)
}

func newRuntime(ctx context.Context, cfg *config.Config) (*runtime, error) {
	rt := &runtime{}

	log.Debug("Connecting to database...")
	db, err := database.NewConnection(ctx, cfg.DatabaseConnectionURL())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	rt.db = db

	// Handlers run inline so a short-lived command never exits with events undelivered
	rt.bus = events.NewSyncBus()
	rt.bus.SubscribeAll(logEvent)

	rt.metrics = observability.NewMetricsProvider(cfg)
	if err := rt.metrics.Initialize(ctx); err != nil {
		rt.close()
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}
	rt.metrics.Subscribe(rt.bus)

	publishers := []events.Publisher{rt.bus}
	if cfg.NATSEnabled() {
		rt.nats = infrastructure.NewNATSClient(cfg.NATSServers)
		if err := rt.nats.Connect(ctx); err != nil {
			rt.close()
			return nil, err
		}
		if err := rt.nats.EnsureEventStream(); err != nil {
			rt.close()
			return nil, err
		}
		publishers = append(publishers, infrastructure.NewNATSEventPublisher(rt.nats, infrastructure.NewEventSubjectMapper()))
	} else {
		publishers = append(publishers, infrastructure.NewNoopEventPublisher())
	}

	uowFactory := repository.NewUnitOfWorkFactory(db, events.NewMultiPublisher(publishers...))
	rt.ledger = application.NewLedger(uowFactory, cfg.Economy())
	return rt, nil
}

func (rt *runtime) close() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if rt.metrics != nil {
		if err := rt.metrics.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Warn("Failed to shut down metrics provider")
		}
	}
	if rt.nats != nil {
		if err := rt.nats.Close(); err != nil {
			log.WithError(err).Warn("Failed to close NATS connection")
		}
	}
	if rt.db != nil {
		rt.db.Close()
	}
}

func logEvent(ctx context.Context, event events.Event) {
	fields := log.Fields{"eventType": event.Type()}
	if scoped, ok := event.(events.GuildScoped); ok {
		fields["guildId"] = scoped.Scope()
	}
	log.WithFields(fields).Debug("Ledger event committed")
}
