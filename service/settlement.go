package service

import (
	"math/bits"

	"marbles/models"
)

// CalculateSettlement computes the parimutuel distribution of a match's bet book.
//
// Bets on the winner share the loser pool in proportion to their stake, floored
// to whole marbles. A winning bet whose share would be below one marble is paid
// stake+1 instead. When nobody bet on the loser every winning bet is paid back
// double. Losing bets pay nothing; their stake was taken when they were placed.
// Payouts follow the order of bets.
func CalculateSettlement(match *models.Match, winnerID int64, bets []*models.Bet) (*models.Settlement, error) {
	if !match.IsParticipant(winnerID) {
		return nil, models.NewInvalidArgument("winner %d is not a participant in match %d", winnerID, match.ID)
	}

	settlement := &models.Settlement{
		MatchID:  match.ID,
		WinnerID: winnerID,
		LoserID:  match.GetOpponent(winnerID),
	}

	for _, bet := range bets {
		if bet.TargetID == winnerID {
			settlement.WinnerPot += bet.Amount
			settlement.WinnerCount++
		} else {
			settlement.LoserPot += bet.Amount
			settlement.LoserCount++
		}
	}

	settlement.Payouts = make([]models.BetPayout, 0, len(bets))
	for _, bet := range bets {
		if bet.TargetID != winnerID {
			settlement.Payouts = append(settlement.Payouts, models.BetPayout{Bet: bet})
			continue
		}

		settlement.Payouts = append(settlement.Payouts, models.BetPayout{
			Bet:    bet,
			Won:    true,
			Payout: winningPayout(bet.Amount, settlement.WinnerPot, settlement.LoserPot, settlement.LoserCount),
		})
	}

	return settlement, nil
}

func winningPayout(amount, winnerPot, loserPot int64, loserCount int) int64 {
	if loserCount == 0 {
		return amount * 2
	}

	share := proportionalShare(loserPot, amount, winnerPot)
	if share < 1 {
		return amount + 1
	}
	return amount + share
}

// proportionalShare returns floor(loserPot * amount / winnerPot) without
// overflowing. amount <= winnerPot, so the quotient fits in 64 bits.
func proportionalShare(loserPot, amount, winnerPot int64) int64 {
	hi, lo := bits.Mul64(uint64(loserPot), uint64(amount))
	quotient, _ := bits.Div64(hi, lo, uint64(winnerPot))
	return int64(quotient)
}
