package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPointsFor(t *testing.T) {
	want := map[int]int{0: 0, 1: 6, 2: 5, 3: 4, 4: 3, 5: 2, 6: 1, 7: 0, -1: 0}
	for attempt, pts := range want {
		assert.Equal(t, pts, PointsFor(attempt), "attempt %d", attempt)
	}
}

func TestStandingsTiesShareRank(t *testing.T) {
	players := []string{"Ana", "Bo", "Cy", "Di"}
	scores := map[string]int{"Ana": 4, "Bo": 9, "Cy": 9, "Di": 1}

	got := Standings(players, scores)
	assert.Equal(t, []Standing{
		{Player: "Bo", Score: 9, Rank: 1},
		{Player: "Cy", Score: 9, Rank: 1},
		{Player: "Ana", Score: 4, Rank: 3},
		{Player: "Di", Score: 1, Rank: 4},
	}, got)
	assert.Equal(t, []string{"Bo", "Cy"}, Winners(got))
}

func TestStandingsMissingScoreIsZero(t *testing.T) {
	got := Standings([]string{"Ana", "Bo"}, map[string]int{"Bo": 2})
	assert.Equal(t, "Bo", got[0].Player)
	assert.Equal(t, 0, got[1].Score)
	assert.Equal(t, []string{"Bo"}, Winners(got))
}

func TestWinnersEmpty(t *testing.T) {
	assert.Nil(t, Winners(nil))
}
