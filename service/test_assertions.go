package service

import (
	"testing"

	"marbles/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// AssertionHelper provides domain-specific assertions
type AssertionHelper struct {
	t *testing.T
}

// NewAssertionHelper creates a new assertion helper
func NewAssertionHelper(t *testing.T) *AssertionHelper {
	return &AssertionHelper{t: t}
}

// AssertLedgerError verifies err is a ledger error of the expected kind
func (a *AssertionHelper) AssertLedgerError(err error, kind models.ErrorKind) {
	require.Error(a.t, err)
	assert.Equal(a.t, kind, models.KindOf(err), "unexpected error: %v", err)
}

// AssertPayouts verifies the payout of every bettor in the settlement
func (a *AssertionHelper) AssertPayouts(settlement *models.Settlement, expectedPayouts map[int64]int64) {
	require.NotNil(a.t, settlement)

	for bettorID, expected := range expectedPayouts {
		payout, exists := settlement.PayoutFor(bettorID)
		require.True(a.t, exists, "Expected payout for bettor %d", bettorID)
		assert.Equal(a.t, expected, payout.Payout, "Incorrect payout for bettor %d", bettorID)
	}

	// Verify no unexpected payouts
	assert.Len(a.t, settlement.Payouts, len(expectedPayouts))
}

// AssertWithinRounding verifies winners received the loser pool, give or take
// one marble per winning bet
func (a *AssertionHelper) AssertWithinRounding(settlement *models.Settlement) {
	if settlement.LoserCount == 0 {
		assert.Equal(a.t, settlement.WinnerPot*2, settlement.TotalPaid())
		return
	}
	if settlement.WinnerCount == 0 {
		assert.Zero(a.t, settlement.TotalPaid())
		return
	}

	delta := settlement.HouseDelta()
	if delta < 0 {
		delta = -delta
	}
	assert.Less(a.t, delta, int64(settlement.WinnerCount),
		"winners should receive the loser pool within rounding, got delta %d", settlement.HouseDelta())
}
