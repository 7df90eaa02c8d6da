package models

// Wire types for the Sleeper API. Field sets are trimmed to what the
// aggregation layer reads.

type SleeperLeague struct {
	LeagueID        string                `json:"league_id"`
	Name            string                `json:"name"`
	Season          string                `json:"season"`
	Status          string                `json:"status"`
	Sport           string                `json:"sport"`
	TotalRosters    int                   `json:"total_rosters"`
	RosterPositions []string              `json:"roster_positions"`
	ScoringSettings map[string]float64    `json:"scoring_settings"`
	Settings        SleeperLeagueSettings `json:"settings"`
}

type SleeperLeagueSettings struct {
	Leg              int `json:"leg"`
	StartWeek        int `json:"start_week"`
	PlayoffWeekStart int `json:"playoff_week_start"`
}

type SleeperRoster struct {
	RosterID int                   `json:"roster_id"`
	OwnerID  string                `json:"owner_id"`
	Players  []string              `json:"players"`
	Starters []string              `json:"starters"`
	Settings SleeperRosterSettings `json:"settings"`
}

type SleeperRosterSettings struct {
	Wins         int `json:"wins"`
	Losses       int `json:"losses"`
	Ties         int `json:"ties"`
	Fpts         int `json:"fpts"`
	FptsDecimal  int `json:"fpts_decimal"`
	TotalMoves   int `json:"total_moves"`
	WaiverBudget int `json:"waiver_budget_used"`
}

type SleeperUser struct {
	UserID      string              `json:"user_id"`
	DisplayName string              `json:"display_name"`
	Metadata    SleeperUserMetadata `json:"metadata"`
}

type SleeperUserMetadata struct {
	TeamName string `json:"team_name"`
}

type SleeperMatchup struct {
	RosterID      int                `json:"roster_id"`
	MatchupID     int                `json:"matchup_id"`
	Points        float64            `json:"points"`
	Players       []string           `json:"players"`
	Starters      []string           `json:"starters"`
	PlayersPoints map[string]float64 `json:"players_points"`
}

// SleeperState is the /state/nfl payload: where the NFL season currently is.
type SleeperState struct {
	Week        int    `json:"week"`
	DisplayWeek int    `json:"display_week"`
	Season      string `json:"season"`
	SeasonType  string `json:"season_type"`
}

type SleeperPlayer struct {
	PlayerID     string `json:"player_id"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	FullName     string `json:"full_name"`
	Position     string `json:"position"`
	Team         string `json:"team"`
	Status       string `json:"status"`
	InjuryStatus string `json:"injury_status"`
	ESPNID       int    `json:"espn_id"`
}

// SleeperWeekStats is the weekly statistics feed: raw stat lines keyed by
// player ID. The same shape serves actuals and projections.
type SleeperWeekStats map[string]map[string]float64
