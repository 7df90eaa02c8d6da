// Package ranking derives weekly standings for guillotine leagues: who is
// safe, who is on the chopping block, and who already fell.
package ranking

import (
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/tlowery/cutline/internal/models"
	"github.com/tlowery/cutline/internal/scoring"
)

// ReasonAttrition marks teams eliminated by running out of rostered players.
const ReasonAttrition = "eliminated-by-attrition"

type Engine struct {
	logger *slog.Logger
}

func NewEngine(logger *slog.Logger) *Engine {
	return &Engine{logger: logger}
}

// Build derives the week's ranking from a scored snapshot, plus any new
// elimination events. alreadyEliminated holds team IDs with a recorded exit
// so each team's event is appended exactly once across cycles.
func (e *Engine) Build(snapshot *models.LeagueSnapshot, alreadyEliminated map[string]bool, now time.Time) (*models.Ranking, []models.EliminationEvent) {
	league := snapshot.League
	active, graveyard := e.partition(snapshot)

	// Stable sort: exact ties keep collection order.
	sort.SliceStable(active, func(i, j int) bool { return active[i].Score > active[j].Score })

	n := len(active)
	elimCount := eliminationCount(n, league.Elimination)
	safetyScore := safetyLine(active, elimCount)

	entries := make([]models.RankingEntry, n)
	for i, team := range active {
		rank := i + 1
		entries[i] = models.RankingEntry{
			Rank:             rank,
			TeamID:           team.ID,
			TeamName:         team.Name,
			ManagerName:      team.Manager.DisplayName,
			Score:            team.Score,
			Projected:        team.Projected,
			Status:           statusFor(rank, n, elimCount),
			PointsFromSafety: scoring.Round(team.Score - safetyScore),
			IsOperator:       team.IsOperator,
		}
	}
	applyTiers(entries)

	ranking := &models.Ranking{
		League:           league.Ref,
		LeagueName:       league.Name,
		Week:             snapshot.Week,
		EliminationCount: elimCount,
		Entries:          entries,
		GeneratedAt:      now,
	}

	if n > 0 {
		var total float64
		high, low := active[0].Score, active[0].Score
		for _, team := range active {
			total += team.Score
			if team.Score > high {
				high = team.Score
			}
			if team.Score < low {
				low = team.Score
			}
		}
		ranking.AverageScore = scoring.Round(total / float64(n))
		ranking.HighScore = high
		ranking.LowScore = low
	}

	var events []models.EliminationEvent
	for i, team := range graveyard {
		ranking.Graveyard = append(ranking.Graveyard, models.RankingEntry{
			Rank:        n + i + 1,
			TeamID:      team.ID,
			TeamName:    team.Name,
			ManagerName: team.Manager.DisplayName,
			Score:       team.Score,
			Status:      models.StatusEliminated,
			IsOperator:  team.IsOperator,
		})

		if alreadyEliminated[team.ID] {
			continue
		}
		// The week a team shows up empty is the week after it was cut.
		events = append(events, models.EliminationEvent{
			ID:         uuid.NewString(),
			League:     league.Ref,
			Week:       snapshot.Week - 1,
			TeamID:     team.ID,
			TeamName:   team.Name,
			FinalScore: team.Score,
			Reason:     ReasonAttrition,
			Narrative:  fmt.Sprintf("%s ran out of players and left the league after week %d.", team.Name, snapshot.Week-1),
			CreatedAt:  now,
		})
	}

	return ranking, events
}

// partition splits teams into the active pool and the graveyard. Teams with
// no rostered players have exited an elimination league. If the split
// empties a non-empty league the filter is wrong, so it relaxes and the
// recovery is logged rather than leaving the caller with nothing.
func (e *Engine) partition(snapshot *models.LeagueSnapshot) (active, graveyard []models.Team) {
	if !snapshot.League.Elimination {
		active = append(active, snapshot.Teams...)
		return active, nil
	}

	for _, team := range snapshot.Teams {
		if team.ActivePlayers() > 0 {
			active = append(active, team)
		} else {
			graveyard = append(graveyard, team)
		}
	}

	if len(active) == 0 && len(snapshot.Teams) > 0 {
		e.logger.Warn("active-team filter produced an empty list, relaxing it",
			"league", snapshot.League.Ref.Key(), "teams", len(snapshot.Teams))
		active = append([]models.Team(nil), snapshot.Teams...)
		graveyard = nil
	}
	return active, graveyard
}

// eliminationCount is how many teams fall this week. Big leagues cut two.
// Deliberately not clamped when the league has fewer teams than the count;
// that is observed behavior, not an accident to correct here.
func eliminationCount(activeTeams int, elimination bool) int {
	if !elimination {
		return 0
	}
	if activeTeams >= 18 {
		return 2
	}
	return 1
}

func statusFor(rank, n, elimCount int) models.EliminationStatus {
	switch {
	case rank == 1:
		return models.StatusChampion
	case elimCount > 0 && rank > n-elimCount:
		return models.StatusCritical
	case rank > (3*n)/4:
		return models.StatusDanger
	case rank > n/2:
		return models.StatusWarning
	default:
		return models.StatusSafe
	}
}

// safetyLine is the score of the lowest team outside the elimination zone.
func safetyLine(active []models.Team, elimCount int) float64 {
	if len(active) == 0 {
		return 0
	}
	idx := len(active) - elimCount - 1
	if idx < 0 {
		idx = 0
	}
	return active[idx].Score
}
