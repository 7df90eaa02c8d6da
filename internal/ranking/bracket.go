package ranking

import (
	"sort"

	"github.com/tlowery/cutline/internal/models"
)

// SeedBracket pairs seeded teams into a single-elimination round: best
// remaining seed against worst remaining seed. With an odd count the middle
// seed draws a bye and is left out of the round. Teams without a platform
// seed are ignored.
func SeedBracket(league models.LeagueRef, teams []models.Team) *models.Bracket {
	seeded := make([]models.Team, 0, len(teams))
	for _, t := range teams {
		if t.Seed > 0 {
			seeded = append(seeded, t)
		}
	}
	sort.Slice(seeded, func(i, j int) bool { return seeded[i].Seed < seeded[j].Seed })

	bracket := &models.Bracket{League: league}
	for i, j := 0, len(seeded)-1; i < j; i, j = i+1, j-1 {
		bracket.Pairings = append(bracket.Pairings, models.BracketPairing{
			HomeSeed:   seeded[i].Seed,
			AwaySeed:   seeded[j].Seed,
			HomeTeamID: seeded[i].ID,
			AwayTeamID: seeded[j].ID,
			HomeTeam:   seeded[i].Name,
			AwayTeam:   seeded[j].Name,
		})
	}
	return bracket
}
