package service

import (
	"fmt"
	"strings"

	"github.com/tlowery/cutline/internal/models"
)

var statusMarker = map[models.EliminationStatus]string{
	models.StatusChampion:   "👑",
	models.StatusSafe:       "✅",
	models.StatusWarning:    "⚠️",
	models.StatusDanger:     "🔶",
	models.StatusCritical:   "🔴",
	models.StatusEliminated: "💀",
}

// FormatRankingDigest renders a ranking as a weekly text digest.
func FormatRankingDigest(ranking *models.Ranking) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("🪓 *Week %d Cut Line: %s*\n\n", ranking.Week, ranking.LeagueName))

	for _, entry := range ranking.Entries {
		sb.WriteString(fmt.Sprintf("%d. %s *%s*: %.2f",
			entry.Rank, statusMarker[entry.Status], entry.TeamName, entry.Score))
		if entry.PointsFromSafety < 0 {
			sb.WriteString(fmt.Sprintf(" (%.2f below the line)", -entry.PointsFromSafety))
		}
		sb.WriteString("\n")
	}

	if ranking.EliminationCount > 0 {
		sb.WriteString(fmt.Sprintf("\nBottom %d at the end of the week get the axe.\n", ranking.EliminationCount))
	}

	if len(ranking.Graveyard) > 0 {
		sb.WriteString("\n*Graveyard:*\n")
		for _, entry := range ranking.Graveyard {
			sb.WriteString(fmt.Sprintf("💀 %s\n", entry.TeamName))
		}
	}

	sb.WriteString(fmt.Sprintf("\nAvg: %.2f | High: %.2f | Low: %.2f\n",
		ranking.AverageScore, ranking.HighScore, ranking.LowScore))

	return sb.String()
}
