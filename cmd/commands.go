package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"marbles/models"
)

// command is one CLI subcommand; run returns the value printed as JSON
type command struct {
	usage string
	run   func(ctx context.Context, ledger Ledger, fs *commandFlags, args []string) (any, error)
}

var commands = map[string]command{
	"account":          {"show an account, creating it when --name is given", runAccount},
	"credit":           {"add marbles to an account", runCredit},
	"debit":            {"remove marbles from an account", runDebit},
	"transfer":         {"move marbles between accounts", runTransfer},
	"set-balance":      {"overwrite a balance", runSetBalance},
	"rename":           {"change a display name", runRename},
	"adjust-wins":      {"change the win counter", runAdjustWins},
	"adjust-losses":    {"change the loss counter", runAdjustLosses},
	"friendly":         {"claim the daily friendly reward for two players", runFriendly},
	"propose":          {"challenge another player", runPropose},
	"accept":           {"accept a challenge and escrow both stakes", runAccept},
	"start":            {"close betting on an accepted match", runStart},
	"resolve":          {"pay out a match and its bets", runResolve},
	"cancel":           {"refund and remove a match", runCancel},
	"match":            {"show a live or resolved match", runMatch},
	"matches":          {"list live matches", runMatches},
	"bet":              {"place, replace or (with --amount=0) withdraw a bet", runBet},
	"bets":             {"list the bets on a live match", runBets},
	"leaderboard":      {"rank accounts by a stat, or show one account's place with --user", runLeaderboard},
	"stats":            {"show a player's statistics", runStats},
	"summary":          {"show the guild economy", runSummary},
	"match-history":    {"list a player's resolved matches", runMatchHistory},
	"bet-history":      {"list a bettor's settled bets", runBetHistory},
	"balance-history":  {"list an account's balance changes", runBalanceHistory},
	"season-start":     {"open the next ranked season", runSeasonStart},
	"season-end":       {"close the open ranked season", runSeasonEnd},
	"season":           {"show the open ranked season", runSeason},
	"seasons":          {"list ranked seasons", runSeasons},
	"season-standings": {"rank accounts by marbles won in a season", runSeasonStandings},
}

// Execute runs a single ledger command and writes its result to out as JSON
func Execute(ctx context.Context, ledger Ledger, args []string, out io.Writer) error {
	if len(args) == 0 {
		return errors.New("no command given, run 'marbles help' for a list")
	}

	name := args[0]
	c, ok := commands[name]
	if !ok {
		return fmt.Errorf("unknown command: %s", name)
	}

	result, err := c.run(ctx, ledger, newCommandFlags(name, out), args[1:])
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return writeJSON(out, result)
}

// PrintUsage lists the available commands
func PrintUsage(out io.Writer) {
	names := make([]string, 0, len(commands)+2)
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintln(out, "usage: marbles <command> --guild=<id> [flags]")
	fmt.Fprintln(out, "       marbles migrate up|down [steps]|status")
	fmt.Fprintln(out)
	for _, name := range names {
		fmt.Fprintf(out, "  %-16s %s\n", name, commands[name].usage)
	}
	fmt.Fprintf(out, "  %-16s %s\n", "watch", "stream ledger events from NATS")
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

// matchView adds the derived state to a live match
type matchView struct {
	*models.Match
	State models.MatchState
}

func viewMatch(m *models.Match) *matchView {
	if m == nil {
		return nil
	}
	return &matchView{Match: m, State: m.State()}
}

func viewMatches(matches []*models.Match) []*matchView {
	views := make([]*matchView, 0, len(matches))
	for _, m := range matches {
		views = append(views, viewMatch(m))
	}
	return views
}

// seasonView adds whether a season is open and past its planned end
type seasonView struct {
	*models.Season
	Active  bool
	Overdue bool
}

func viewSeason(s *models.Season, now time.Time) *seasonView {
	if s == nil {
		return nil
	}
	return &seasonView{Season: s, Active: s.IsActive(), Overdue: s.IsOverdue(now)}
}

type accountPair struct {
	From *models.Account `json:"from"`
	To   *models.Account `json:"to"`
}

type resolvedMatch struct {
	State models.MatchState    `json:"state"`
	Match *models.MatchHistory `json:"match"`
	Bets  []*models.BetHistory `json:"bets"`
}

func runAccount(ctx context.Context, ledger Ledger, fs *commandFlags, args []string) (any, error) {
	guild := fs.ID("guild", "guild id")
	user := fs.ID("user", "account id")
	name := fs.String("name", "", "display name; creates the account when missing")
	if err := fs.parse(args); err != nil {
		return nil, err
	}

	if *name == "" {
		return ledger.GetAccount(ctx, guild.value, user.value)
	}
	return ledger.EnsureAccount(ctx, models.Identity{GuildID: guild.value, DiscordID: user.value, DisplayName: *name})
}

func runCredit(ctx context.Context, ledger Ledger, fs *commandFlags, args []string) (any, error) {
	guild := fs.ID("guild", "guild id")
	user := fs.ID("user", "account id")
	amount := fs.Int64("amount", 0, "marbles to add")
	if err := fs.parse(args); err != nil {
		return nil, err
	}
	return ledger.Credit(ctx, guild.value, user.value, *amount)
}

func runDebit(ctx context.Context, ledger Ledger, fs *commandFlags, args []string) (any, error) {
	guild := fs.ID("guild", "guild id")
	user := fs.ID("user", "account id")
	amount := fs.Int64("amount", 0, "marbles to remove")
	if err := fs.parse(args); err != nil {
		return nil, err
	}
	return ledger.Debit(ctx, guild.value, user.value, *amount)
}

func runTransfer(ctx context.Context, ledger Ledger, fs *commandFlags, args []string) (any, error) {
	guild := fs.ID("guild", "guild id")
	from := fs.ID("from", "sending account id")
	to := fs.ID("to", "receiving account id")
	amount := fs.Int64("amount", 0, "marbles to move")
	if err := fs.parse(args); err != nil {
		return nil, err
	}

	sender, recipient, err := ledger.Transfer(ctx, guild.value, from.value, to.value, *amount)
	if err != nil {
		return nil, err
	}
	return accountPair{From: sender, To: recipient}, nil
}

func runSetBalance(ctx context.Context, ledger Ledger, fs *commandFlags, args []string) (any, error) {
	guild := fs.ID("guild", "guild id")
	user := fs.ID("user", "account id")
	amount := fs.Int64("amount", 0, "new balance")
	if err := fs.parse(args); err != nil {
		return nil, err
	}
	return ledger.SetBalance(ctx, guild.value, user.value, *amount)
}

func runRename(ctx context.Context, ledger Ledger, fs *commandFlags, args []string) (any, error) {
	guild := fs.ID("guild", "guild id")
	user := fs.ID("user", "account id")
	name := fs.String("name", "", "new display name")
	if err := fs.parse(args); err != nil {
		return nil, err
	}
	return ledger.SetDisplayName(ctx, guild.value, user.value, *name)
}

func runAdjustWins(ctx context.Context, ledger Ledger, fs *commandFlags, args []string) (any, error) {
	guild := fs.ID("guild", "guild id")
	user := fs.ID("user", "account id")
	delta := fs.Int("delta", 1, "change to apply, may be negative")
	if err := fs.parse(args); err != nil {
		return nil, err
	}
	return ledger.AdjustWins(ctx, guild.value, user.value, *delta)
}

func runAdjustLosses(ctx context.Context, ledger Ledger, fs *commandFlags, args []string) (any, error) {
	guild := fs.ID("guild", "guild id")
	user := fs.ID("user", "account id")
	delta := fs.Int("delta", 1, "change to apply, may be negative")
	if err := fs.parse(args); err != nil {
		return nil, err
	}
	return ledger.AdjustLosses(ctx, guild.value, user.value, *delta)
}

func runFriendly(ctx context.Context, ledger Ledger, fs *commandFlags, args []string) (any, error) {
	guild := fs.ID("guild", "guild id")
	user := fs.ID("user", "claiming player id")
	opponent := fs.ID("opponent", "opponent id")
	if err := fs.parse(args); err != nil {
		return nil, err
	}

	player, other, err := ledger.ClaimFriendly(ctx, guild.value, user.value, opponent.value)
	if err != nil {
		return nil, err
	}
	return accountPair{From: player, To: other}, nil
}

func runPropose(ctx context.Context, ledger Ledger, fs *commandFlags, args []string) (any, error) {
	guild := fs.ID("guild", "guild id")
	challenger := fs.ID("challenger", "challenging player id")
	recipient := fs.ID("recipient", "challenged player id")
	amount := fs.Int64("amount", 0, "stake per player")
	game := fs.String("game", "", "game played, defaults to DEFAULT_GAME")
	format := fs.String("format", "", "series format, defaults to DEFAULT_FORMAT")
	if err := fs.parse(args); err != nil {
		return nil, err
	}

	match, err := ledger.Propose(ctx, guild.value, challenger.value, recipient.value, *amount, *game, *format)
	if err != nil {
		return nil, err
	}
	return viewMatch(match), nil
}

func runAccept(ctx context.Context, ledger Ledger, fs *commandFlags, args []string) (any, error) {
	guild := fs.ID("guild", "guild id")
	matchID := fs.ID("match", "match id")
	user := fs.ID("user", "accepting player id")
	if err := fs.parse(args); err != nil {
		return nil, err
	}

	match, err := ledger.Accept(ctx, guild.value, matchID.value, user.value)
	if err != nil {
		return nil, err
	}
	return viewMatch(match), nil
}

func runStart(ctx context.Context, ledger Ledger, fs *commandFlags, args []string) (any, error) {
	guild := fs.ID("guild", "guild id")
	matchID := fs.ID("match", "match id")
	if err := fs.parse(args); err != nil {
		return nil, err
	}

	match, err := ledger.Start(ctx, guild.value, matchID.value)
	if err != nil {
		return nil, err
	}
	return viewMatch(match), nil
}

func runResolve(ctx context.Context, ledger Ledger, fs *commandFlags, args []string) (any, error) {
	guild := fs.ID("guild", "guild id")
	matchID := fs.ID("match", "match id")
	winner := fs.ID("winner", "winning player id")
	if err := fs.parse(args); err != nil {
		return nil, err
	}
	return ledger.Resolve(ctx, guild.value, matchID.value, winner.value)
}

func runCancel(ctx context.Context, ledger Ledger, fs *commandFlags, args []string) (any, error) {
	guild := fs.ID("guild", "guild id")
	matchID := fs.ID("match", "match id")
	if err := fs.parse(args); err != nil {
		return nil, err
	}

	if err := ledger.Cancel(ctx, guild.value, matchID.value); err != nil {
		return nil, err
	}
	return map[string]any{"match_id": matchID.value, "state": models.MatchStateCancelled}, nil
}

func runMatch(ctx context.Context, ledger Ledger, fs *commandFlags, args []string) (any, error) {
	guild := fs.ID("guild", "guild id")
	matchID := fs.ID("match", "match id")
	if err := fs.parse(args); err != nil {
		return nil, err
	}

	match, err := ledger.GetMatch(ctx, guild.value, matchID.value)
	if err == nil {
		return viewMatch(match), nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return nil, err
	}

	history, bets, err := ledger.GetResolvedMatch(ctx, guild.value, matchID.value)
	if err != nil {
		return nil, err
	}
	return resolvedMatch{State: models.MatchStateResolved, Match: history, Bets: bets}, nil
}

func runMatches(ctx context.Context, ledger Ledger, fs *commandFlags, args []string) (any, error) {
	guild := fs.ID("guild", "guild id")
	if err := fs.parse(args); err != nil {
		return nil, err
	}

	matches, err := ledger.ListMatches(ctx, guild.value)
	if err != nil {
		return nil, err
	}
	return viewMatches(matches), nil
}

func runBet(ctx context.Context, ledger Ledger, fs *commandFlags, args []string) (any, error) {
	guild := fs.ID("guild", "guild id")
	matchID := fs.ID("match", "match id")
	user := fs.ID("user", "bettor id")
	target := fs.ID("target", "player the bet backs")
	amount := fs.Int64("amount", 0, "stake, 0 withdraws the current bet on --target")
	if err := fs.parse(args); err != nil {
		return nil, err
	}
	return ledger.PlaceBet(ctx, guild.value, matchID.value, user.value, target.value, *amount)
}

func runBets(ctx context.Context, ledger Ledger, fs *commandFlags, args []string) (any, error) {
	guild := fs.ID("guild", "guild id")
	matchID := fs.ID("match", "match id")
	if err := fs.parse(args); err != nil {
		return nil, err
	}
	return ledger.ListBets(ctx, guild.value, matchID.value)
}

func leaderboardStatNames() string {
	names := make([]string, len(models.LeaderboardStats))
	for i, stat := range models.LeaderboardStats {
		names[i] = string(stat)
	}
	return strings.Join(names, ", ")
}

func runLeaderboard(ctx context.Context, ledger Ledger, fs *commandFlags, args []string) (any, error) {
	guild := fs.ID("guild", "guild id")
	stat := fs.String("stat", string(models.LeaderboardStatBalance), leaderboardStatNames())
	user := fs.OptionalID("user", "show only this account's place")
	limit := fs.Int("limit", 10, "number of entries")
	if err := fs.parse(args); err != nil {
		return nil, err
	}

	if user.set {
		return ledger.LeaderboardPosition(ctx, guild.value, models.LeaderboardStat(*stat), user.value)
	}
	return ledger.Leaderboard(ctx, guild.value, models.LeaderboardStat(*stat), *limit)
}

func runStats(ctx context.Context, ledger Ledger, fs *commandFlags, args []string) (any, error) {
	guild := fs.ID("guild", "guild id")
	user := fs.ID("user", "player id")
	if err := fs.parse(args); err != nil {
		return nil, err
	}
	return ledger.PlayerStats(ctx, guild.value, user.value)
}

func runSummary(ctx context.Context, ledger Ledger, fs *commandFlags, args []string) (any, error) {
	guild := fs.ID("guild", "guild id")
	if err := fs.parse(args); err != nil {
		return nil, err
	}
	return ledger.EconomySummary(ctx, guild.value)
}

func runMatchHistory(ctx context.Context, ledger Ledger, fs *commandFlags, args []string) (any, error) {
	guild := fs.ID("guild", "guild id")
	user := fs.ID("user", "player id")
	opponent := fs.OptionalID("opponent", "only matches against this player")
	limit := fs.Int("limit", 20, "number of matches")
	if err := fs.parse(args); err != nil {
		return nil, err
	}

	var opponentID *int64
	if opponent.set {
		opponentID = &opponent.value
	}
	return ledger.MatchHistory(ctx, guild.value, user.value, opponentID, *limit)
}

func runBetHistory(ctx context.Context, ledger Ledger, fs *commandFlags, args []string) (any, error) {
	guild := fs.ID("guild", "guild id")
	user := fs.ID("user", "bettor id")
	limit := fs.Int("limit", 20, "number of bets")
	if err := fs.parse(args); err != nil {
		return nil, err
	}
	return ledger.BetHistory(ctx, guild.value, user.value, *limit)
}

func runBalanceHistory(ctx context.Context, ledger Ledger, fs *commandFlags, args []string) (any, error) {
	guild := fs.ID("guild", "guild id")
	user := fs.ID("user", "account id")
	limit := fs.Int("limit", 20, "number of entries")
	if err := fs.parse(args); err != nil {
		return nil, err
	}
	return ledger.BalanceHistory(ctx, guild.value, user.value, *limit)
}

func runSeasonStart(ctx context.Context, ledger Ledger, fs *commandFlags, args []string) (any, error) {
	guild := fs.ID("guild", "guild id")
	ends := fs.String("ends", "", "planned end date, YYYY-MM-DD (UTC)")
	if err := fs.parse(args); err != nil {
		return nil, err
	}

	endsAt, err := time.Parse(time.DateOnly, *ends)
	if err != nil {
		return nil, fmt.Errorf("--ends must be a YYYY-MM-DD date: %w", err)
	}
	season, err := ledger.StartSeason(ctx, guild.value, endsAt)
	if err != nil {
		return nil, err
	}
	return viewSeason(season, time.Now()), nil
}

func runSeasonEnd(ctx context.Context, ledger Ledger, fs *commandFlags, args []string) (any, error) {
	guild := fs.ID("guild", "guild id")
	if err := fs.parse(args); err != nil {
		return nil, err
	}

	season, err := ledger.EndSeason(ctx, guild.value)
	if err != nil {
		return nil, err
	}
	return viewSeason(season, time.Now()), nil
}

func runSeason(ctx context.Context, ledger Ledger, fs *commandFlags, args []string) (any, error) {
	guild := fs.ID("guild", "guild id")
	if err := fs.parse(args); err != nil {
		return nil, err
	}

	season, err := ledger.CurrentSeason(ctx, guild.value)
	if err != nil {
		return nil, err
	}
	return viewSeason(season, time.Now()), nil
}

func runSeasons(ctx context.Context, ledger Ledger, fs *commandFlags, args []string) (any, error) {
	guild := fs.ID("guild", "guild id")
	if err := fs.parse(args); err != nil {
		return nil, err
	}

	seasons, err := ledger.ListSeasons(ctx, guild.value)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	views := make([]*seasonView, 0, len(seasons))
	for _, season := range seasons {
		views = append(views, viewSeason(season, now))
	}
	return views, nil
}

func runSeasonStandings(ctx context.Context, ledger Ledger, fs *commandFlags, args []string) (any, error) {
	guild := fs.ID("guild", "guild id")
	number := fs.Int("season", 0, "season number, 0 for the latest")
	limit := fs.Int("limit", 10, "number of entries")
	if err := fs.parse(args); err != nil {
		return nil, err
	}
	return ledger.SeasonStandings(ctx, guild.value, *number, *limit)
}
