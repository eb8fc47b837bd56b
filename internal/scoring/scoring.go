// Package scoring converts winning attempts into points and ranks players.
package scoring

import (
	"sort"

	"github.com/jason-s-yu/vgmguess/internal/models"
)

// PointsFor returns the points for a correct answer on the given 1-based
// attempt: 6 for the first attempt down to 1 for the sixth, 0 otherwise.
func PointsFor(attempt int) int {
	if attempt < 1 {
		return 0
	}
	return max(0, models.MaxAttempts-attempt+1)
}

// Standing is one player's place in the final (or running) ranking.
type Standing struct {
	Player string `json:"player"`
	Score  int    `json:"score"`
	Rank   int    `json:"rank"`
}

// Standings ranks players by score, highest first. Players with equal scores
// share a rank and keep join order among themselves.
func Standings(players []string, scores map[string]int) []Standing {
	out := make([]Standing, 0, len(players))
	for _, p := range players {
		out = append(out, Standing{Player: p, Score: scores[p]})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	for i := range out {
		if i > 0 && out[i].Score == out[i-1].Score {
			out[i].Rank = out[i-1].Rank
		} else {
			out[i].Rank = i + 1
		}
	}
	return out
}

// Winners returns every player tied for the top score. Tie-break rounds are
// not played; all tied players are co-winners.
func Winners(standings []Standing) []string {
	var winners []string
	for _, s := range standings {
		if s.Rank != 1 {
			break
		}
		winners = append(winners, s.Player)
	}
	return winners
}
