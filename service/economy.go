package service

// EconomyConfig holds the tunable rules of the marble economy
type EconomyConfig struct {
	StartingBalance   int64
	InitialElo        float64
	EloKFactor        float64
	FriendlyReward    int64
	FriendlyResetHour int // hour in UTC when the friendly window resets
	DefaultGame       string
	DefaultFormat     string
}

// DefaultEconomyConfig returns the standard economy rules
func DefaultEconomyConfig() EconomyConfig {
	return EconomyConfig{
		StartingBalance:   10,
		InitialElo:        1200,
		EloKFactor:        32,
		FriendlyReward:    1,
		FriendlyResetHour: 4,
		DefaultGame:       "melee",
		DefaultFormat:     "Bo3",
	}
}
