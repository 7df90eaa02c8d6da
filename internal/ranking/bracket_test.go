package ranking

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tlowery/cutline/internal/models"
)

func seededTeam(id string, seed int) models.Team {
	return models.Team{ID: id, Name: "Team " + id, Seed: seed}
}

var bracketRef = models.LeagueRef{Source: models.SourceSleeper, LeagueID: "77"}

func TestSeedBracketPairsBestAgainstWorst(t *testing.T) {
	teams := []models.Team{
		seededTeam("d", 4),
		seededTeam("a", 1),
		seededTeam("f", 6),
		seededTeam("b", 2),
		seededTeam("e", 5),
		seededTeam("c", 3),
	}

	bracket := SeedBracket(bracketRef, teams)

	require.Len(t, bracket.Pairings, 3)
	assert.Equal(t, "a", bracket.Pairings[0].HomeTeamID)
	assert.Equal(t, "f", bracket.Pairings[0].AwayTeamID)
	assert.Equal(t, 1, bracket.Pairings[0].HomeSeed)
	assert.Equal(t, 6, bracket.Pairings[0].AwaySeed)
	assert.Equal(t, "b", bracket.Pairings[1].HomeTeamID)
	assert.Equal(t, "e", bracket.Pairings[1].AwayTeamID)
	assert.Equal(t, "c", bracket.Pairings[2].HomeTeamID)
	assert.Equal(t, "d", bracket.Pairings[2].AwayTeamID)
}

func TestSeedBracketIgnoresUnseededTeams(t *testing.T) {
	teams := []models.Team{
		seededTeam("a", 1),
		seededTeam("b", 2),
		{ID: "x", Name: "Team x"},
	}

	bracket := SeedBracket(bracketRef, teams)

	require.Len(t, bracket.Pairings, 1)
	assert.Equal(t, "a", bracket.Pairings[0].HomeTeamID)
	assert.Equal(t, "b", bracket.Pairings[0].AwayTeamID)
}

func TestSeedBracketOddFieldGivesMiddleSeedABye(t *testing.T) {
	teams := []models.Team{
		seededTeam("a", 1),
		seededTeam("b", 2),
		seededTeam("c", 3),
		seededTeam("d", 4),
		seededTeam("e", 5),
	}

	bracket := SeedBracket(bracketRef, teams)

	require.Len(t, bracket.Pairings, 2)
	for _, p := range bracket.Pairings {
		assert.NotEqual(t, "c", p.HomeTeamID)
		assert.NotEqual(t, "c", p.AwayTeamID)
	}
}
