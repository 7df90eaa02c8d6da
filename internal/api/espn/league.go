package espn

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strconv"

	"github.com/tlowery/cutline/internal/models"
	"github.com/tlowery/cutline/internal/scoring"
)

const (
	statSourceActual    = 0
	statSourceProjected = 1
)

// Adapter normalizes ESPN fantasy leagues into the unified model.
type Adapter struct {
	client *Client
	logger *slog.Logger
}

func NewAdapter(client *Client, logger *slog.Logger) *Adapter {
	return &Adapter{client: client, logger: logger}
}

func (a *Adapter) Source() models.SourceType { return models.SourceESPN }

func (a *Adapter) leagueEndpoint(leagueID string) string {
	return fmt.Sprintf("/seasons/%s/segments/0/leagues/%s", a.client.Config.Year, leagueID)
}

func (a *Adapter) FetchLeague(ctx context.Context, leagueID string) (*models.League, error) {
	var raw models.ESPNLeague
	params := map[string]string{
		"view": "mSettings",
	}
	if err := a.client.Get(ctx, a.leagueEndpoint(leagueID), params, nil, &raw); err != nil {
		return nil, fmt.Errorf("fetching league settings: %w", err)
	}

	rules := rulesFromScoringItems(raw.Settings.ScoringSettings.ScoringItems)
	if len(rules) == 0 {
		a.logger.Info("league reports no scoring items, using PPR defaults", "league", leagueID)
		rules = defaultESPNRules()
	}
	if err := rules.Validate(); err != nil {
		return nil, fmt.Errorf("league %s: %w", leagueID, err)
	}

	return &models.League{
		Ref:         models.LeagueRef{Source: models.SourceESPN, LeagueID: leagueID},
		Name:        raw.Settings.Name,
		Season:      strconv.Itoa(raw.SeasonID),
		CurrentWeek: raw.Status.CurrentMatchupPeriod,
		FirstWeek:   raw.Status.FirstScoringPeriod,
		LastWeek:    raw.Status.FinalScoringPeriod,
		TeamCount:   raw.Settings.Size,
		RosterSlots: slotLabels(raw.Settings.RosterSettings.LineupSlotCounts),
		Scoring:     rules,
	}, nil
}

// FetchRosters materializes every roster for one week. Raw stat lines come
// from the roster view itself; ESPN inlines them per scoring period.
func (a *Adapter) FetchRosters(ctx context.Context, league *models.League, week int) ([]models.Team, error) {
	var raw models.ESPNLeague
	params := map[string]string{
		"view":            "mTeam,mRoster",
		"scoringPeriodId": strconv.Itoa(week),
	}
	if err := a.client.Get(ctx, a.leagueEndpoint(league.Ref.LeagueID), params, nil, &raw); err != nil {
		return nil, fmt.Errorf("fetching league rosters: %w", err)
	}

	byeWeeks, err := a.proByeWeeks(ctx)
	if err != nil {
		a.logger.Warn("pro schedule unavailable, bye flags skipped", "error", err)
		byeWeeks = map[int]int{}
	}

	teams := make([]models.Team, 0, len(raw.Teams))
	for _, team := range raw.Teams {
		slots := make([]models.RosterSlot, 0, len(team.Roster.Entries))
		for _, entry := range team.Roster.Entries {
			player := entry.PlayerPoolEntry.Player
			slots = append(slots, models.RosterSlot{
				Slot:    getLineupSlotString(entry.LineupSlotID),
				Starter: isStartingLineup(entry.LineupSlotID),
				Player: models.Player{
					ID:             strconv.Itoa(player.ID),
					Name:           player.FullName,
					Position:       getPositionString(player.DefaultPositionID),
					ProTeam:        getProTeamString(player.ProTeamID),
					Status:         player.InjuryStatus,
					OnBye:          byeWeeks[player.ProTeamID] == week,
					Stats:          weekStatLine(player, week, statSourceActual),
					ProjectedStats: weekStatLine(player, week, statSourceProjected),
				},
			})
		}

		teams = append(teams, models.Team{
			ID:      strconv.Itoa(team.ID),
			Name:    team.Name,
			Manager: models.Manager{ID: team.PrimaryOwner},
			Seed:    team.PlayoffSeed,
			Record: models.Record{
				Wins:      team.Record.Overall.Wins,
				Losses:    team.Record.Overall.Losses,
				Ties:      team.Record.Overall.Ties,
				PointsFor: team.Record.Overall.PointsFor,
			},
			Roster: slots,
		})
	}
	return teams, nil
}

func (a *Adapter) FetchUsers(ctx context.Context, leagueID string) ([]models.Manager, error) {
	var raw models.ESPNLeague
	params := map[string]string{
		"view": "mTeam",
	}
	if err := a.client.Get(ctx, a.leagueEndpoint(leagueID), params, nil, &raw); err != nil {
		return nil, fmt.Errorf("fetching league members: %w", err)
	}

	managers := make([]models.Manager, len(raw.Members))
	for i, m := range raw.Members {
		name := m.DisplayName
		if name == "" {
			name = m.FirstName + " " + m.LastName
		}
		managers[i] = models.Manager{ID: m.ID, DisplayName: name}
	}
	return managers, nil
}

func (a *Adapter) FetchMatchups(ctx context.Context, league *models.League, week int) ([]models.Matchup, error) {
	var scoreboard models.ESPNScoreboard
	params := map[string]string{
		"view": "mScoreboard",
	}

	filters := map[string]interface{}{
		"schedule": map[string]interface{}{
			"filterMatchupPeriodIds": map[string]interface{}{
				"value": []int{week},
			},
		},
	}
	filtersJSON, err := json.Marshal(filters)
	if err != nil {
		return nil, fmt.Errorf("error marshalling filters: %w", err)
	}
	headers := map[string]string{
		"x-fantasy-filter": string(filtersJSON),
	}

	if err := a.client.Get(ctx, a.leagueEndpoint(league.Ref.LeagueID), params, headers, &scoreboard); err != nil {
		return nil, fmt.Errorf("fetching scoreboard: %w", err)
	}

	var matchups []models.Matchup
	for _, match := range scoreboard.Schedule {
		homeScore, homeProjected := getScoreAndProjected(match.Home)
		awayScore, awayProjected := getScoreAndProjected(match.Away)

		matchups = append(matchups, models.Matchup{
			ID:            match.ID,
			Week:          week,
			HomeTeamID:    strconv.Itoa(match.Home.TeamID),
			AwayTeamID:    strconv.Itoa(match.Away.TeamID),
			HomeScore:     homeScore,
			AwayScore:     awayScore,
			HomeProjected: homeProjected,
			AwayProjected: awayProjected,
			Completed:     match.Winner != "UNDECIDED",
		})
	}
	return matchups, nil
}

func getScoreAndProjected(teamScore models.ESPNTeamScore) (float64, float64) {
	score := teamScore.TotalPointsLive
	if score == 0 {
		score = teamScore.TotalPoints
	}
	projected := teamScore.TotalProjectedPointsLive
	return scoring.Round(score), scoring.Round(projected)
}

// weekStatLine picks the raw stat map for one scoring period and source.
// AppliedStats is deliberately not a fallback: its values are already
// multiplied and would be scored twice.
func weekStatLine(player models.ESPNPlayer, week, source int) map[string]float64 {
	for _, stat := range player.Stats {
		if stat.ScoringPeriodID == week && stat.StatSourceID == source {
			return stat.Stats
		}
	}
	return nil
}

func rulesFromScoringItems(items []models.ESPNScoringItem) scoring.Rules {
	if len(items) == 0 {
		return nil
	}
	rules := make(scoring.Rules, len(items))
	for _, item := range items {
		rules[strconv.Itoa(item.StatID)] = item.Points
	}
	return rules
}

// defaultESPNRules is the PPR table keyed by ESPN's numeric stat IDs.
func defaultESPNRules() scoring.Rules {
	return scoring.Rules{
		"3":  0.04, // passing yards
		"4":  4,    // passing TD
		"19": 2,    // passing 2pt
		"20": -2,   // interception thrown
		"24": 0.1,  // rushing yards
		"25": 6,    // rushing TD
		"26": 2,    // rushing 2pt
		"42": 0.1,  // receiving yards
		"43": 6,    // receiving TD
		"44": 2,    // receiving 2pt
		"53": 1,    // reception
		"72": -2,   // fumble lost
		"74": 5,    // FG 50+
		"77": 4,    // FG 40-49
		"80": 3,    // FG 0-39
		"85": -1,   // FG missed
		"86": 1,    // XP made
		"88": -1,   // XP missed
		"95": 2,    // defensive interception
		"96": 2,    // fumble recovery
		"97": 2,    // blocked kick
		"98": 2,    // safety
		"99": 1,    // sack
	}
}

// slotLabels expands ESPN's lineupSlotCounts map into an ordered slot list.
func slotLabels(counts map[string]int) []string {
	ids := make([]int, 0, len(counts))
	for key := range counts {
		id, err := strconv.Atoi(key)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	sort.Ints(ids)

	var labels []string
	for _, id := range ids {
		label := getLineupSlotString(id)
		for i := 0; i < counts[strconv.Itoa(id)]; i++ {
			labels = append(labels, label)
		}
	}
	return labels
}

// proByeWeeks maps pro team ID to its bye week for the season.
func (a *Adapter) proByeWeeks(ctx context.Context) (map[int]int, error) {
	var scheduleResponse struct {
		Settings struct {
			ProTeams []ProTeamInfo `json:"proTeams"`
		} `json:"settings"`
	}

	endpoint := fmt.Sprintf("/seasons/%s", a.client.Config.Year)
	params := map[string]string{
		"view": "proTeamSchedules_wl",
	}

	if err := a.client.Get(ctx, endpoint, params, nil, &scheduleResponse); err != nil {
		return nil, fmt.Errorf("fetching pro schedule: %w", err)
	}

	byeWeeks := make(map[int]int)
	for _, team := range scheduleResponse.Settings.ProTeams {
		if team.ByeWeek > 0 {
			byeWeeks[team.ID] = team.ByeWeek
		}
	}

	return byeWeeks, nil
}

type ProTeamInfo struct {
	ID      int    `json:"id"`
	Abbrev  string `json:"abbrev"`
	ByeWeek int    `json:"byeWeek"`
	Name    string `json:"name"`
}

func isStartingLineup(slotID int) bool {
	startingSlots := map[int]bool{
		0:  true,  // QB
		2:  true,  // RB
		4:  true,  // WR
		6:  true,  // TE
		16: true,  // D/ST
		17: true,  // K
		20: false, // Bench
		21: false, // IR
		23: true,  // FLEX
	}
	return startingSlots[slotID]
}

func getLineupSlotString(slotID int) string {
	switch slotID {
	case 0:
		return "QB"
	case 2:
		return "RB"
	case 4:
		return "WR"
	case 6:
		return "TE"
	case 16:
		return "D/ST"
	case 17:
		return "K"
	case 20:
		return "BN"
	case 21:
		return "IR"
	case 23:
		return "FLEX"
	default:
		return "Unknown"
	}
}

func getPositionString(positionID int) string {
	positions := map[int]string{
		1: "QB", 2: "RB", 3: "WR", 4: "TE", 5: "K", 16: "D/ST",
	}
	if pos, ok := positions[positionID]; ok {
		return pos
	}
	return "Unknown"
}

func getProTeamString(proTeamID int) string {
	teams := map[int]string{
		1: "ATL", 2: "BUF", 3: "CHI", 4: "CIN", 5: "CLE", 6: "DAL", 7: "DEN", 8: "DET",
		9: "GB", 10: "TEN", 11: "IND", 12: "KC", 13: "LV", 14: "LAR", 15: "MIA", 16: "MIN",
		17: "NE", 18: "NO", 19: "NYG", 20: "NYJ", 21: "PHI", 22: "ARI", 23: "PIT", 24: "LAC",
		25: "SF", 26: "SEA", 27: "TB", 28: "WSH", 29: "CAR", 30: "JAX", 33: "BAL", 34: "HOU",
	}

	if team, ok := teams[proTeamID]; ok {
		return team
	}

	return "Unknown"
}
