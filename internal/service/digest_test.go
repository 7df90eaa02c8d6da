package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tlowery/cutline/internal/models"
)

func TestFormatRankingDigest(t *testing.T) {
	ranking := &models.Ranking{
		LeagueName:       "Backyard Guillotine",
		Week:             9,
		EliminationCount: 1,
		Entries: []models.RankingEntry{
			{Rank: 1, TeamName: "Turf Burners", Score: 142.11, Status: models.StatusChampion, PointsFromSafety: 60.2},
			{Rank: 2, TeamName: "Mud Dogs", Score: 101.55, Status: models.StatusSafe, PointsFromSafety: 19.64},
			{Rank: 3, TeamName: "Fourth and Long", Score: 81.91, Status: models.StatusCritical, PointsFromSafety: -7.3},
		},
		Graveyard: []models.RankingEntry{
			{Rank: 4, TeamName: "Empty Chairs", Status: models.StatusEliminated},
		},
		AverageScore: 108.52,
		HighScore:    142.11,
		LowScore:     81.91,
	}

	digest := FormatRankingDigest(ranking)

	assert.Contains(t, digest, "🪓 *Week 9 Cut Line: Backyard Guillotine*")
	assert.Contains(t, digest, "1. 👑 *Turf Burners*: 142.11\n", "teams above the line carry no deficit note")
	assert.Contains(t, digest, "2. ✅ *Mud Dogs*: 101.55\n")
	assert.Contains(t, digest, "3. 🔴 *Fourth and Long*: 81.91 (7.30 below the line)")
	assert.Contains(t, digest, "Bottom 1 at the end of the week get the axe.")
	assert.Contains(t, digest, "*Graveyard:*")
	assert.Contains(t, digest, "💀 Empty Chairs")
	assert.Contains(t, digest, "Avg: 108.52 | High: 142.11 | Low: 81.91")
}

func TestFormatRankingDigestStandardLeague(t *testing.T) {
	ranking := &models.Ranking{
		LeagueName: "Office League",
		Week:       4,
		Entries: []models.RankingEntry{
			{Rank: 1, TeamName: "Griddy City", Score: 120.4, Status: models.StatusChampion},
		},
		AverageScore: 120.4,
		HighScore:    120.4,
		LowScore:     120.4,
	}

	digest := FormatRankingDigest(ranking)

	assert.NotContains(t, digest, "get the axe", "no cut note without an elimination zone")
	assert.NotContains(t, digest, "Graveyard")
}
