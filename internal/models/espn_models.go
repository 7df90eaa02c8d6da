package models

// Wire types for the ESPN fantasy API views (mSettings, mTeam, mRoster,
// mScoreboard).

type ESPNLeague struct {
	ID              int          `json:"id"`
	ScoringPeriodID int          `json:"scoringPeriodId"`
	SeasonID        int          `json:"seasonId"`
	SegmentID       int          `json:"segmentId"`
	Status          ESPNStatus   `json:"status"`
	Teams           []ESPNTeam   `json:"teams"`
	Members         []ESPNMember `json:"members"`
	Settings        ESPNSettings `json:"settings"`
}

type ESPNSettings struct {
	Name            string              `json:"name"`
	Size            int                 `json:"size"`
	ScoringSettings ESPNScoringSettings `json:"scoringSettings"`
	RosterSettings  ESPNRosterSettings  `json:"rosterSettings"`
}

type ESPNScoringSettings struct {
	ScoringItems []ESPNScoringItem `json:"scoringItems"`
}

// ESPNScoringItem maps one ESPN stat ID to its point value.
type ESPNScoringItem struct {
	StatID int     `json:"statId"`
	Points float64 `json:"points"`
}

type ESPNRosterSettings struct {
	LineupSlotCounts map[string]int `json:"lineupSlotCounts"`
}

type ESPNMember struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
}

type ESPNStatus struct {
	CurrentMatchupPeriod int  `json:"currentMatchupPeriod"`
	FinalScoringPeriod   int  `json:"finalScoringPeriod"`
	FirstScoringPeriod   int  `json:"firstScoringPeriod"`
	IsActive             bool `json:"isActive"`
}

type ESPNTeam struct {
	ID           int        `json:"id"`
	Abbreviation string     `json:"abbrev"`
	Name         string     `json:"name"`
	PrimaryOwner string     `json:"primaryOwner"`
	PlayoffSeed  int        `json:"playoffSeed"`
	Points       float64    `json:"points"`
	Roster       ESPNRoster `json:"roster"`
	Record       ESPNRecord `json:"record"`
}

type ESPNRoster struct {
	Entries []ESPNRosterEntry `json:"entries"`
}

type ESPNRecord struct {
	Overall ESPNRecordDetails `json:"overall"`
}

type ESPNRecordDetails struct {
	Wins          int     `json:"wins"`
	Losses        int     `json:"losses"`
	Ties          int     `json:"ties"`
	Percentage    float64 `json:"percentage"`
	PointsFor     float64 `json:"pointsFor"`
	PointsAgainst float64 `json:"pointsAgainst"`
}

type ESPNScoreboard struct {
	Schedule []ESPNMatchupScore `json:"schedule"`
}

type ESPNMatchupScore struct {
	ID     int           `json:"id"`
	Away   ESPNTeamScore `json:"away"`
	Home   ESPNTeamScore `json:"home"`
	Winner string        `json:"winner"`
}

type ESPNTeamScore struct {
	TeamID                   int     `json:"teamId"`
	TotalPoints              float64 `json:"totalPoints"`
	TotalPointsLive          float64 `json:"totalPointsLive"`
	TotalProjectedPointsLive float64 `json:"totalProjectedPointsLive"`
}

type ESPNRosterEntry struct {
	PlayerPoolEntry ESPNPlayerPoolEntry `json:"playerPoolEntry"`
	LineupSlotID    int                 `json:"lineupSlotId"`
}

type ESPNPlayerPoolEntry struct {
	ID               int        `json:"id"`
	OnTeamID         int        `json:"onTeamId"`
	Player           ESPNPlayer `json:"player"`
	AppliedStatTotal float64    `json:"appliedStatTotal"`
}

type ESPNPlayer struct {
	ID                int        `json:"id"`
	FullName          string     `json:"fullName"`
	DefaultPositionID int        `json:"defaultPositionId"`
	ProTeamID         int        `json:"proTeamId"`
	Stats             []ESPNStat `json:"stats"`
	InjuryStatus      string     `json:"injuryStatus"`
}

type ESPNStat struct {
	StatSourceID    int                `json:"statSourceId"`
	ScoringPeriodID int                `json:"scoringPeriodId"`
	AppliedTotal    float64            `json:"appliedTotal"`
	AppliedStats    map[string]float64 `json:"appliedStats"`
	Stats           map[string]float64 `json:"stats"`
}
