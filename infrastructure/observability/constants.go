package observability

// Metric name prefixes
const (
	MetricPrefix = "marbles"
)

// Metric names
const (
	// Balance metrics
	BalanceTransactionsTotal = MetricPrefix + ".balance.transactions_total"
	BalanceMovedTotal        = MetricPrefix + ".balance.moved_total"

	// Account metrics
	AccountsCreatedTotal = MetricPrefix + ".accounts.created_total"

	// Match metrics
	MatchTransitionsTotal = MetricPrefix + ".matches.transitions_total"
	MatchesLive           = MetricPrefix + ".matches.live"

	// Bet metrics
	BetsPlacedTotal  = MetricPrefix + ".bets.placed_total"
	BetsRemovedTotal = MetricPrefix + ".bets.removed_total"

	// Settlement metrics
	SettlementsTotal  = MetricPrefix + ".settlements.total"
	SettlementPayout  = MetricPrefix + ".settlements.payout"
	SettlementWinners = MetricPrefix + ".settlements.winning_bets"
)

// Label keys
const (
	LabelType     = "type"
	LabelState    = "state"
	LabelGuild    = "guild_id"
	LabelReplaced = "replaced"
)
