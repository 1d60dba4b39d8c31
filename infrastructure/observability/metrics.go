package observability

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"marbles/config"
	"marbles/events"
	"marbles/models"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

// MetricsProvider manages OpenTelemetry metrics for the ledger
type MetricsProvider struct {
	config        *config.Config
	meterProvider *sdkmetric.MeterProvider
	meter         metric.Meter
	initialized   bool
	mu            sync.RWMutex

	balanceTransactionsCounter metric.Int64Counter
	balanceMovedCounter        metric.Int64Counter
	accountsCreatedCounter     metric.Int64Counter
	matchTransitionsCounter    metric.Int64Counter
	matchesLiveGauge           metric.Int64UpDownCounter
	betsPlacedCounter          metric.Int64Counter
	betsRemovedCounter         metric.Int64Counter
	settlementsCounter         metric.Int64Counter
	settlementPayoutHist       metric.Int64Histogram
	settlementWinnersHist      metric.Int64Histogram
}

// NewMetricsProvider creates a new metrics provider
func NewMetricsProvider(cfg *config.Config) *MetricsProvider {
	return &MetricsProvider{
		config: cfg,
	}
}

// Initialize sets up the exporter configured by OTEL_EXPORTER_TYPE
func (mp *MetricsProvider) Initialize(ctx context.Context) error {
	if !mp.config.OTelEnabled {
		log.Info("OpenTelemetry metrics disabled")
		mp.markInitialized()
		return nil
	}

	var exporter sdkmetric.Exporter
	var err error
	switch mp.config.OTelExporterType {
	case "console":
		exporter, err = stdoutmetric.New()
		if err != nil {
			return fmt.Errorf("failed to create console exporter: %w", err)
		}
		log.Info("Using console metric exporter")

	case "otlp":
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		exporter, err = otlpmetricgrpc.New(ctx,
			otlpmetricgrpc.WithEndpoint(mp.config.OTelOTLPEndpoint),
			otlpmetricgrpc.WithInsecure(),
		)
		if err != nil {
			return fmt.Errorf("failed to create OTLP exporter: %w", err)
		}
		log.WithField("endpoint", mp.config.OTelOTLPEndpoint).Info("Using OTLP metric exporter")

	case "none":
		log.Info("Metrics export disabled (exporter_type='none')")
		mp.markInitialized()
		return nil

	default:
		return fmt.Errorf("unknown exporter type: %s", mp.config.OTelExporterType)
	}

	reader := sdkmetric.NewPeriodicReader(
		exporter,
		sdkmetric.WithInterval(time.Duration(mp.config.OTelExportIntervalMillis)*time.Millisecond),
	)
	return mp.InitializeWithReader(reader)
}

// InitializeWithReader builds the meter provider around an existing reader
func (mp *MetricsProvider) InitializeWithReader(reader sdkmetric.Reader) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if mp.initialized {
		log.Debug("Metrics provider already initialized")
		return nil
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(mp.config.OTelServiceName),
			attribute.String("environment", mp.config.Environment),
		),
	)
	if err != nil {
		return fmt.Errorf("failed to create resource: %w", err)
	}

	mp.meterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(reader),
	)
	otel.SetMeterProvider(mp.meterProvider)
	mp.meter = mp.meterProvider.Meter("marbles")

	if err := mp.createInstruments(); err != nil {
		return fmt.Errorf("failed to create instruments: %w", err)
	}

	mp.initialized = true
	log.Info("Metrics provider initialized successfully")
	return nil
}

func (mp *MetricsProvider) markInitialized() {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	mp.initialized = true
}

func (mp *MetricsProvider) createInstruments() error {
	var err error

	mp.balanceTransactionsCounter, err = mp.meter.Int64Counter(
		BalanceTransactionsTotal,
		metric.WithDescription("Total number of balance transactions"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create balance transactions counter: %w", err)
	}

	mp.balanceMovedCounter, err = mp.meter.Int64Counter(
		BalanceMovedTotal,
		metric.WithDescription("Total marbles moved by balance transactions, by absolute amount"),
		metric.WithUnit("{marble}"),
	)
	if err != nil {
		return fmt.Errorf("failed to create balance moved counter: %w", err)
	}

	mp.accountsCreatedCounter, err = mp.meter.Int64Counter(
		AccountsCreatedTotal,
		metric.WithDescription("Total number of accounts created"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create accounts created counter: %w", err)
	}

	mp.matchTransitionsCounter, err = mp.meter.Int64Counter(
		MatchTransitionsTotal,
		metric.WithDescription("Total number of match state transitions"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create match transitions counter: %w", err)
	}

	// UpDownCounter for gauge-like behavior
	mp.matchesLiveGauge, err = mp.meter.Int64UpDownCounter(
		MatchesLive,
		metric.WithDescription("Current number of live matches"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create live matches gauge: %w", err)
	}

	mp.betsPlacedCounter, err = mp.meter.Int64Counter(
		BetsPlacedTotal,
		metric.WithDescription("Total number of bets created or replaced"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create bets placed counter: %w", err)
	}

	mp.betsRemovedCounter, err = mp.meter.Int64Counter(
		BetsRemovedTotal,
		metric.WithDescription("Total number of bets withdrawn or refunded"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create bets removed counter: %w", err)
	}

	mp.settlementsCounter, err = mp.meter.Int64Counter(
		SettlementsTotal,
		metric.WithDescription("Total number of resolved matches"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create settlements counter: %w", err)
	}

	mp.settlementPayoutHist, err = mp.meter.Int64Histogram(
		SettlementPayout,
		metric.WithDescription("Marbles paid to winning bettors per settlement"),
		metric.WithUnit("{marble}"),
		metric.WithExplicitBucketBoundaries(0, 10, 25, 50, 100, 250, 500, 1000, 5000),
	)
	if err != nil {
		return fmt.Errorf("failed to create settlement payout histogram: %w", err)
	}

	mp.settlementWinnersHist, err = mp.meter.Int64Histogram(
		SettlementWinners,
		metric.WithDescription("Winning bets per settlement"),
		metric.WithUnit("1"),
		metric.WithExplicitBucketBoundaries(0, 1, 2, 5, 10, 25),
	)
	if err != nil {
		return fmt.Errorf("failed to create settlement winners histogram: %w", err)
	}

	return nil
}

// Shutdown flushes and stops the meter provider
func (mp *MetricsProvider) Shutdown(ctx context.Context) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if mp.meterProvider != nil {
		return mp.meterProvider.Shutdown(ctx)
	}
	return nil
}

// Subscribe records metrics for every event emitted on the bus
func (mp *MetricsProvider) Subscribe(bus *events.Bus) {
	bus.SubscribeAll(mp.HandleEvent)
}

// HandleEvent turns a ledger event into metric updates
func (mp *MetricsProvider) HandleEvent(ctx context.Context, event events.Event) {
	switch e := event.(type) {
	case events.BalanceChangeEvent:
		mp.RecordBalanceTransaction(ctx, e.GuildID, e.TransactionType, e.ChangeAmount)
	case events.AccountCreatedEvent:
		mp.RecordAccountCreated(ctx, e.GuildID)
	case events.MatchStateChangeEvent:
		mp.RecordMatchTransition(ctx, e.GuildID, e.NewState)
	case events.BetPlacedEvent:
		mp.RecordBetPlaced(ctx, e.GuildID, e.PreviousAmount > 0)
	case events.BetRemovedEvent:
		mp.RecordBetRemoved(ctx, e.GuildID)
	case events.MatchResolvedEvent:
		mp.RecordSettlement(ctx, e.GuildID, e.TotalPaid, e.WinnerCount)
	}
}

// RecordBalanceTransaction records a balance transaction and the marbles it moved
func (mp *MetricsProvider) RecordBalanceTransaction(ctx context.Context, guildID int64, transactionType models.TransactionType, amount int64) {
	if !mp.isEnabled() {
		return
	}

	attrs := metric.WithAttributes(
		guildAttr(guildID),
		attribute.String(LabelType, string(transactionType)),
	)
	if amount < 0 {
		amount = -amount
	}
	mp.balanceTransactionsCounter.Add(ctx, 1, attrs)
	mp.balanceMovedCounter.Add(ctx, amount, attrs)
}

// RecordAccountCreated records a new account
func (mp *MetricsProvider) RecordAccountCreated(ctx context.Context, guildID int64) {
	if !mp.isEnabled() {
		return
	}
	mp.accountsCreatedCounter.Add(ctx, 1, metric.WithAttributes(guildAttr(guildID)))
}

// RecordMatchTransition records a transition and keeps the live match gauge current
func (mp *MetricsProvider) RecordMatchTransition(ctx context.Context, guildID int64, to models.MatchState) {
	if !mp.isEnabled() {
		return
	}

	mp.matchTransitionsCounter.Add(ctx, 1, metric.WithAttributes(
		guildAttr(guildID),
		attribute.String(LabelState, string(to)),
	))

	switch to {
	case models.MatchStateProposed:
		mp.matchesLiveGauge.Add(ctx, 1, metric.WithAttributes(guildAttr(guildID)))
	case models.MatchStateResolved, models.MatchStateCancelled:
		mp.matchesLiveGauge.Add(ctx, -1, metric.WithAttributes(guildAttr(guildID)))
	}
}

// RecordBetPlaced records a new or replaced bet
func (mp *MetricsProvider) RecordBetPlaced(ctx context.Context, guildID int64, replaced bool) {
	if !mp.isEnabled() {
		return
	}
	mp.betsPlacedCounter.Add(ctx, 1, metric.WithAttributes(
		guildAttr(guildID),
		attribute.Bool(LabelReplaced, replaced),
	))
}

// RecordBetRemoved records a withdrawn or refunded bet
func (mp *MetricsProvider) RecordBetRemoved(ctx context.Context, guildID int64) {
	if !mp.isEnabled() {
		return
	}
	mp.betsRemovedCounter.Add(ctx, 1, metric.WithAttributes(guildAttr(guildID)))
}

// RecordSettlement records a resolved match and its payout
func (mp *MetricsProvider) RecordSettlement(ctx context.Context, guildID int64, totalPaid int64, winningBets int) {
	if !mp.isEnabled() {
		return
	}

	attrs := metric.WithAttributes(guildAttr(guildID))
	mp.settlementsCounter.Add(ctx, 1, attrs)
	mp.settlementPayoutHist.Record(ctx, totalPaid, attrs)
	mp.settlementWinnersHist.Record(ctx, int64(winningBets), attrs)
}

func guildAttr(guildID int64) attribute.KeyValue {
	return attribute.String(LabelGuild, strconv.FormatInt(guildID, 10))
}

// isEnabled checks if metrics are enabled and instruments exist
func (mp *MetricsProvider) isEnabled() bool {
	mp.mu.RLock()
	defer mp.mu.RUnlock()
	return mp.initialized && mp.meterProvider != nil
}
