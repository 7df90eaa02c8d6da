package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Server   Server
	Sleeper  SleeperAPI
	ESPN     ESPNAPI
	Operator Operator
	Refresh  Refresh
	Store    Store
}

type Server struct {
	Addr string `envconfig:"SERVER_ADDR" default:":8080"`
}

type SleeperAPI struct {
	UserID    string   `envconfig:"SLEEPER_USER_ID"`
	Season    string   `envconfig:"SLEEPER_SEASON"`
	LeagueIDs []string `envconfig:"SLEEPER_LEAGUE_IDS"`
}

type ESPNAPI struct {
	Year      string   `envconfig:"ESPN_YEAR"`
	LeagueIDs []string `envconfig:"ESPN_LEAGUE_IDS"`
	SWID      string   `envconfig:"SWID"`
	ESPNS2    string   `envconfig:"ESPN_S2"`
}

// Operator holds the identifier used to find the operator's own team inside
// each league. The sqlite settings table can supply it instead.
type Operator struct {
	DisplayName string `envconfig:"OPERATOR_NAME"`
}

type Refresh struct {
	Interval       time.Duration `envconfig:"REFRESH_INTERVAL" default:"5m"`
	SnapshotTTL    time.Duration `envconfig:"SNAPSHOT_TTL" default:"5m"`
	DiscoveryTTL   time.Duration `envconfig:"DISCOVERY_TTL" default:"1h"`
	DebounceWindow time.Duration `envconfig:"DEBOUNCE_WINDOW" default:"2s"`
	LiveInterval   time.Duration `envconfig:"LIVE_INTERVAL" default:"1m"`
	StatsWait      time.Duration `envconfig:"STATS_WAIT" default:"10s"`

	// League IDs run under guillotine rules instead of head-to-head.
	EliminationLeagues []string `envconfig:"ELIMINATION_LEAGUES"`
}

type Store struct {
	Path string `envconfig:"STORE_PATH" default:"cutline.db"`
}

func New() (*Config, error) {
	var c Config
	err := envconfig.Process("", &c)
	if err != nil {
		return nil, err
	}
	if c.Sleeper.UserID == "" && len(c.Sleeper.LeagueIDs) == 0 && len(c.ESPN.LeagueIDs) == 0 {
		return nil, fmt.Errorf("no leagues configured: set SLEEPER_USER_ID, SLEEPER_LEAGUE_IDS, or ESPN_LEAGUE_IDS")
	}
	if len(c.ESPN.LeagueIDs) > 0 && c.ESPN.Year == "" {
		return nil, fmt.Errorf("ESPN_YEAR is required when ESPN_LEAGUE_IDS is set")
	}
	return &c, nil
}
