package models

import (
	"fmt"
	"time"

	"github.com/tlowery/cutline/internal/scoring"
)

type SourceType string

const (
	SourceSleeper SourceType = "sleeper"
	SourceESPN    SourceType = "espn"
)

// LeagueRef identifies a league at one of the upstream platforms. League IDs
// are only unique within a source, so the pair is the canonical key.
type LeagueRef struct {
	Source   SourceType `json:"source"`
	LeagueID string     `json:"leagueId"`
}

func (r LeagueRef) Key() string {
	return fmt.Sprintf("%s:%s", r.Source, r.LeagueID)
}

// League is the normalized league configuration for one refresh cycle. It is
// built fresh on every cycle and never mutated afterwards.
type League struct {
	Ref         LeagueRef     `json:"ref"`
	Name        string        `json:"name"`
	Season      string        `json:"season"`
	CurrentWeek int           `json:"currentWeek"`
	FirstWeek   int           `json:"firstWeek"`
	LastWeek    int           `json:"lastWeek"`
	TeamCount   int           `json:"teamCount"`
	RosterSlots []string      `json:"rosterSlots"`
	Scoring     scoring.Rules `json:"-"`
	Elimination bool          `json:"elimination"`
}

// Manager is a league member as reported by the platform.
type Manager struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	TeamName    string `json:"teamName"`
}

type Record struct {
	Wins      int     `json:"wins"`
	Losses    int     `json:"losses"`
	Ties      int     `json:"ties"`
	PointsFor float64 `json:"pointsFor"`
}

// RosterSlot is one lineup position on a team for a given week.
type RosterSlot struct {
	Slot    string `json:"slot"`
	Starter bool   `json:"starter"`
	Player  Player `json:"player"`
}

// Player carries the raw weekly stat line alongside the points applied to it
// under the league's scoring rules. Stats and ProjectedStats come straight
// from the source; Points and Projected are computed and set exactly once.
type Player struct {
	ID             string             `json:"id"`
	ExternalIDs    map[string]string  `json:"externalIds,omitempty"`
	Name           string             `json:"name"`
	Position       string             `json:"position"`
	ProTeam        string             `json:"proTeam"`
	Status         string             `json:"status"`
	OnBye          bool               `json:"onBye"`
	Stats          map[string]float64 `json:"-"`
	ProjectedStats map[string]float64 `json:"-"`
	Points         float64            `json:"points"`
	Projected      float64            `json:"projected"`
}

// Team is a fully materialized roster for one week of one league.
type Team struct {
	ID         string       `json:"id"`
	Name       string       `json:"name"`
	Manager    Manager      `json:"manager"`
	Seed       int          `json:"seed,omitempty"`
	Record     Record       `json:"record"`
	Roster     []RosterSlot `json:"roster"`
	Score      float64      `json:"score"`
	Projected  float64      `json:"projected"`
	IsOperator bool         `json:"isOperator"`
}

// ActivePlayers counts rostered players. Teams at zero have exited the
// league and belong in the graveyard, not the ranking.
func (t Team) ActivePlayers() int {
	return len(t.Roster)
}

type Matchup struct {
	ID            int       `json:"id"`
	Week          int       `json:"week"`
	HomeTeamID    string    `json:"homeTeamId"`
	AwayTeamID    string    `json:"awayTeamId"`
	HomeTeam      string    `json:"homeTeam"`
	AwayTeam      string    `json:"awayTeam"`
	HomeScore     float64   `json:"homeScore"`
	AwayScore     float64   `json:"awayScore"`
	HomeProjected float64   `json:"homeProjected"`
	AwayProjected float64   `json:"awayProjected"`
	Completed     bool      `json:"completed"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

type EliminationStatus string

const (
	StatusChampion   EliminationStatus = "champion"
	StatusSafe       EliminationStatus = "safe"
	StatusWarning    EliminationStatus = "warning"
	StatusDanger     EliminationStatus = "danger"
	StatusCritical   EliminationStatus = "critical"
	StatusEliminated EliminationStatus = "eliminated"
)

type Tier string

const (
	TierElite      Tier = "elite"
	TierGood       Tier = "good"
	TierAverage    Tier = "average"
	TierStruggling Tier = "struggling"
)

type RankingEntry struct {
	Rank             int               `json:"rank"`
	TeamID           string            `json:"teamId"`
	TeamName         string            `json:"teamName"`
	ManagerName      string            `json:"managerName"`
	Score            float64           `json:"score"`
	Projected        float64           `json:"projected"`
	Status           EliminationStatus `json:"status"`
	PointsFromSafety float64           `json:"pointsFromSafety"`
	Tier             Tier              `json:"tier"`
	ScorePercent     float64           `json:"scorePercent"`
	IsOperator       bool              `json:"isOperator"`
}

// Ranking is the weekly elimination standings for a league: every active
// team ordered by score, followed by the graveyard of teams that have
// already left the league.
type Ranking struct {
	League           LeagueRef      `json:"league"`
	LeagueName       string         `json:"leagueName"`
	Week             int            `json:"week"`
	EliminationCount int            `json:"eliminationCount"`
	Entries          []RankingEntry `json:"entries"`
	Graveyard        []RankingEntry `json:"graveyard,omitempty"`
	AverageScore     float64        `json:"averageScore"`
	HighScore        float64        `json:"highScore"`
	LowScore         float64        `json:"lowScore"`
	GeneratedAt      time.Time      `json:"generatedAt"`
}

// EliminationEvent records one team's exit from a guillotine league. Events
// are append-only for the life of a season.
type EliminationEvent struct {
	ID         string    `json:"id"`
	League     LeagueRef `json:"league"`
	Week       int       `json:"week"`
	TeamID     string    `json:"teamId"`
	TeamName   string    `json:"teamName"`
	FinalScore float64   `json:"finalScore"`
	Reason     string    `json:"reason"`
	Narrative  string    `json:"narrative"`
	CreatedAt  time.Time `json:"createdAt"`
}

// LeagueSnapshot is everything one refresh cycle produced for a league.
type LeagueSnapshot struct {
	League          *League   `json:"league"`
	Week            int       `json:"week"`
	Teams           []Team    `json:"teams"`
	Matchups        []Matchup `json:"matchups,omitempty"`
	OperatorTeamID  string    `json:"operatorTeamId"`
	OperatorGuessed bool      `json:"operatorGuessed"`
	FetchedAt       time.Time `json:"fetchedAt"`
}

// BracketPairing is one game of a seeded single-elimination round.
type BracketPairing struct {
	HomeSeed   int    `json:"homeSeed"`
	AwaySeed   int    `json:"awaySeed"`
	HomeTeamID string `json:"homeTeamId"`
	AwayTeamID string `json:"awayTeamId"`
	HomeTeam   string `json:"homeTeam"`
	AwayTeam   string `json:"awayTeam"`
}

type Bracket struct {
	League   LeagueRef        `json:"league"`
	Pairings []BracketPairing `json:"pairings"`
}
