package service

import "math"

// ExpectedScores returns each player's expected score given their ratings
func ExpectedScores(ratingA, ratingB float64) (float64, float64) {
	transformedA := math.Pow(10, ratingA/400)
	transformedB := math.Pow(10, ratingB/400)
	total := transformedA + transformedB
	return transformedA / total, transformedB / total
}

// UpdatedRatings returns the new ratings after winner beat loser
func UpdatedRatings(winnerRating, loserRating, kFactor float64) (float64, float64) {
	expectedWinner, expectedLoser := ExpectedScores(winnerRating, loserRating)
	return winnerRating + kFactor*(1-expectedWinner), loserRating + kFactor*(0-expectedLoser)
}
