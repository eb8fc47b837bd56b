package models

// Tier classifies a submitted guess against the round's target song.
type Tier string

const (
	TierExact         Tier = "exact"
	TierSameGame      Tier = "same_game"
	TierSameFranchise Tier = "same_franchise"
	TierWrong         Tier = "wrong"
	TierSkipped       Tier = "skipped"
)

// Guess is an immutable record of one attempt by one player in one round.
type Guess struct {
	Text          string `json:"text"`
	AttemptNumber int    `json:"attemptNumber"`
	Tier          Tier   `json:"tier"`
	AwardedWin    bool   `json:"awardedWin"`
}
