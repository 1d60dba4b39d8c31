package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExpectedScores(t *testing.T) {
	a, b := ExpectedScores(1200, 1200)
	assert.InDelta(t, 0.5, a, 1e-9)
	assert.InDelta(t, 0.5, b, 1e-9)

	// 400 points apart is 10:1 odds
	strong, weak := ExpectedScores(1600, 1200)
	assert.InDelta(t, 10.0/11.0, strong, 1e-9)
	assert.InDelta(t, 1.0/11.0, weak, 1e-9)
	assert.InDelta(t, 1.0, strong+weak, 1e-9)
}

func TestUpdatedRatings(t *testing.T) {
	tests := []struct {
		name           string
		winner, loser  float64
		expectedWinner float64
		expectedLoser  float64
	}{
		{"equal ratings", 1200, 1200, 1216, 1184},
		{"favourite wins", 1600, 1200, 1600 + 32.0/11.0, 1200 - 32.0/11.0},
		{"upset", 1200, 1600, 1200 + 320.0/11.0, 1600 - 320.0/11.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			winner, loser := UpdatedRatings(tt.winner, tt.loser, 32)
			assert.InDelta(t, tt.expectedWinner, winner, 1e-9)
			assert.InDelta(t, tt.expectedLoser, loser, 1e-9)
			// rating points are conserved between the two players
			assert.InDelta(t, tt.winner+tt.loser, winner+loser, 1e-9)
		})
	}
}
