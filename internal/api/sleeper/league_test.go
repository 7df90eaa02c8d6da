package sleeper

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tlowery/cutline/internal/api"
	"github.com/tlowery/cutline/internal/models"
)

func newTestAdapter(t *testing.T, mux *http.ServeMux) (*Adapter, clockwork.FakeClock) {
	t.Helper()

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	client := NewClient(testLogger())
	client.BaseURL = srv.URL

	clock := clockwork.NewFakeClock()
	return NewAdapter(client, clock, 3*time.Second, testLogger()), clock
}

func TestFetchLeagueBuildsLeague(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/league/99", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, models.SleeperLeague{
			LeagueID:        "99",
			Name:            "Backyard Guillotine",
			Season:          "2025",
			TotalRosters:    18,
			RosterPositions: []string{"QB", "RB", "WR", "BN"},
			ScoringSettings: map[string]float64{"rush_yd": 0.1, "rec": 0.5},
			Settings:        models.SleeperLeagueSettings{StartWeek: 1, PlayoffWeekStart: 15},
		})
	})
	mux.HandleFunc("/state/nfl", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, models.SleeperState{Week: 6, DisplayWeek: 7, Season: "2025"})
	})
	adapter, _ := newTestAdapter(t, mux)

	league, err := adapter.FetchLeague(context.Background(), "99")
	require.NoError(t, err)

	assert.Equal(t, models.LeagueRef{Source: models.SourceSleeper, LeagueID: "99"}, league.Ref)
	assert.Equal(t, "Backyard Guillotine", league.Name)
	assert.Equal(t, "2025", league.Season)
	assert.Equal(t, 7, league.CurrentWeek, "display week wins when both are present")
	assert.Equal(t, 1, league.FirstWeek)
	assert.Equal(t, 14, league.LastWeek, "regular season ends the week before playoffs")
	assert.Equal(t, 18, league.TeamCount)
	assert.InDelta(t, 0.5, league.Scoring["rec"], 1e-9)
}

func TestFetchLeagueFallsBackToDefaultScoring(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/league/99", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, models.SleeperLeague{LeagueID: "99", Name: "Quiet League", Season: "2025"})
	})
	mux.HandleFunc("/state/nfl", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, models.SleeperState{Week: 1, Season: "2025"})
	})
	adapter, _ := newTestAdapter(t, mux)

	league, err := adapter.FetchLeague(context.Background(), "99")
	require.NoError(t, err)

	assert.InDelta(t, 1.0, league.Scoring["rec"], 1e-9)
	assert.InDelta(t, 4.0, league.Scoring["pass_td"], 1e-9)
	assert.Equal(t, 1, league.CurrentWeek, "state week covers a missing display week")
	assert.Equal(t, finalNFLWeek, league.LastWeek)
}

func TestFetchRostersBuildsTeams(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/league/99/rosters", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, []models.SleeperRoster{{
			RosterID: 1,
			OwnerID:  "u1",
			Players:  []string{"p1", "p2", "p3"},
			Starters: []string{"p1", "p2"},
			Settings: models.SleeperRosterSettings{Wins: 3, Losses: 2, Fpts: 456, FptsDecimal: 78},
		}})
	})
	mux.HandleFunc("/league/99/matchups/3", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, []models.SleeperMatchup{})
	})
	mux.HandleFunc("/stats/nfl/regular/2025/3", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, models.SleeperWeekStats{
			"p1": {"pass_yd": 250},
			"p2": {"rush_yd": 80},
		})
	})
	mux.HandleFunc("/projections/nfl/regular/2025/3", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, models.SleeperWeekStats{"p1": {"pass_yd": 280}})
	})
	mux.HandleFunc("/players/nfl", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]models.SleeperPlayer{
			"p1": {FullName: "Dak Prescott", Position: "QB", Team: "DAL", InjuryStatus: "Questionable", ESPNID: 2577417},
			"p2": {FirstName: "Jahmyr", LastName: "Gibbs", Position: "RB", Team: "DET", Status: "Active"},
		})
	})
	adapter, _ := newTestAdapter(t, mux)

	league := &models.League{
		Ref:         models.LeagueRef{Source: models.SourceSleeper, LeagueID: "99"},
		Season:      "2025",
		CurrentWeek: 4,
		RosterSlots: []string{"QB", "RB", "BN"},
	}

	teams, err := adapter.FetchRosters(context.Background(), league, 3)
	require.NoError(t, err)
	require.Len(t, teams, 1)

	team := teams[0]
	assert.Equal(t, "1", team.ID)
	assert.Equal(t, "u1", team.Manager.ID)
	assert.Equal(t, 3, team.Record.Wins)
	assert.Equal(t, 2, team.Record.Losses)
	assert.InDelta(t, 456.78, team.Record.PointsFor, 1e-9)

	require.Len(t, team.Roster, 3)

	qb := team.Roster[0]
	assert.Equal(t, "QB", qb.Slot)
	assert.True(t, qb.Starter)
	assert.Equal(t, "Dak Prescott", qb.Player.Name)
	assert.Equal(t, "Questionable", qb.Player.Status)
	assert.Equal(t, "2577417", qb.Player.ExternalIDs["espn"])
	assert.InDelta(t, 250, qb.Player.Stats["pass_yd"], 1e-9)
	assert.InDelta(t, 280, qb.Player.ProjectedStats["pass_yd"], 1e-9)

	rb := team.Roster[1]
	assert.Equal(t, "RB", rb.Slot)
	assert.Equal(t, "Jahmyr Gibbs", rb.Player.Name, "name assembled from first and last")
	assert.Equal(t, "Active", rb.Player.Status)

	bench := team.Roster[2]
	assert.Equal(t, "BN", bench.Slot)
	assert.False(t, bench.Starter)
	assert.Equal(t, "p3", bench.Player.Name, "players missing from the catalog keep their id")
}

func TestFetchRostersPrefersMatchupLineup(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/league/99/rosters", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, []models.SleeperRoster{{
			RosterID: 1,
			OwnerID:  "u1",
			Players:  []string{"p1", "p2"},
			Starters: []string{"p1"},
		}})
	})
	mux.HandleFunc("/league/99/matchups/3", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, []models.SleeperMatchup{{
			RosterID: 1,
			Players:  []string{"p1", "p2"},
			Starters: []string{"p2"},
		}})
	})
	mux.HandleFunc("/stats/nfl/regular/2025/3", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, models.SleeperWeekStats{"p2": {"rush_yd": 50}})
	})
	mux.HandleFunc("/projections/nfl/regular/2025/3", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, models.SleeperWeekStats{})
	})
	mux.HandleFunc("/players/nfl", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]models.SleeperPlayer{})
	})
	adapter, _ := newTestAdapter(t, mux)

	league := &models.League{
		Ref:         models.LeagueRef{Source: models.SourceSleeper, LeagueID: "99"},
		Season:      "2025",
		CurrentWeek: 3,
		RosterSlots: []string{"RB", "BN"},
	}

	teams, err := adapter.FetchRosters(context.Background(), league, 3)
	require.NoError(t, err)
	require.Len(t, teams, 1)

	// The matchup lineup reflects the week being fetched, the roster only
	// the present.
	require.Len(t, teams[0].Roster, 2)
	assert.Equal(t, "p2", teams[0].Roster[0].Player.ID)
	assert.True(t, teams[0].Roster[0].Starter)
	assert.Equal(t, "p1", teams[0].Roster[1].Player.ID)
	assert.False(t, teams[0].Roster[1].Starter)
}

func TestFetchMatchupsPairsRosters(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/league/99/matchups/4", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, []models.SleeperMatchup{
			{RosterID: 2, MatchupID: 1, Points: 88.19},
			{RosterID: 1, MatchupID: 1, Points: 101.24},
			{RosterID: 3, MatchupID: 0, Points: 55}, // bye
			{RosterID: 4, MatchupID: 2, Points: 60}, // opponent missing
		})
	})
	adapter, _ := newTestAdapter(t, mux)

	league := &models.League{
		Ref:         models.LeagueRef{Source: models.SourceSleeper, LeagueID: "99"},
		CurrentWeek: 5,
	}

	matchups, err := adapter.FetchMatchups(context.Background(), league, 4)
	require.NoError(t, err)
	require.Len(t, matchups, 1)

	m := matchups[0]
	assert.Equal(t, 1, m.ID)
	assert.Equal(t, 4, m.Week)
	assert.Equal(t, "1", m.HomeTeamID, "lower roster id is home")
	assert.Equal(t, "2", m.AwayTeamID)
	assert.InDelta(t, 101.24, m.HomeScore, 1e-9)
	assert.InDelta(t, 88.19, m.AwayScore, 1e-9)
	assert.True(t, m.Completed, "weeks before the current one are final")
}

func TestLeaguesForUser(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/user/u77/leagues/nfl/2025", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, []models.SleeperLeague{{LeagueID: "99"}, {LeagueID: "500"}})
	})
	adapter, _ := newTestAdapter(t, mux)

	refs, err := adapter.LeaguesForUser(context.Background(), "u77", "2025")
	require.NoError(t, err)

	assert.Equal(t, []models.LeagueRef{
		{Source: models.SourceSleeper, LeagueID: "99"},
		{Source: models.SourceSleeper, LeagueID: "500"},
	}, refs)
}

func TestPlayerCatalogIsCachedForADay(t *testing.T) {
	var hits atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/players/nfl", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		writeJSON(w, map[string]models.SleeperPlayer{"p1": {FullName: "Dak Prescott"}})
	})
	adapter, clock := newTestAdapter(t, mux)

	_, err := adapter.playerCatalog(context.Background())
	require.NoError(t, err)
	_, err = adapter.playerCatalog(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), hits.Load())

	clock.Advance(catalogTTL + time.Minute)

	_, err = adapter.playerCatalog(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), hits.Load())
}

func TestPlayerCatalogServesStaleCopyWhenRefreshFails(t *testing.T) {
	var hits atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/players/nfl", func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) > 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		writeJSON(w, map[string]models.SleeperPlayer{"p1": {FullName: "Dak Prescott"}})
	})
	adapter, clock := newTestAdapter(t, mux)

	first, err := adapter.playerCatalog(context.Background())
	require.NoError(t, err)

	clock.Advance(catalogTTL + time.Minute)

	again, err := adapter.playerCatalog(context.Background())
	require.NoError(t, err, "a failed refresh falls back to the stale copy")
	assert.Equal(t, first["p1"].FullName, again["p1"].FullName)
	assert.Equal(t, int32(2), hits.Load())
}

func TestFetchWeekStatsTimesOut(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/stats/nfl/regular/2025/3", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, models.SleeperWeekStats{})
	})
	adapter, clock := newTestAdapter(t, mux)

	errCh := make(chan error, 1)
	go func() {
		_, err := adapter.fetchWeekStats(context.Background(), "2025", 3)
		errCh <- err
	}()

	// Three one-second retries exhaust the three-second wait budget.
	for i := 0; i < 3; i++ {
		clock.BlockUntil(1)
		clock.Advance(statsRetryInterval)
	}

	select {
	case err := <-errCh:
		require.ErrorIs(t, err, api.ErrStatsTimeout)
	case <-time.After(2 * time.Second):
		t.Fatal("stats fetch did not give up")
	}
}

func TestFetchWeekStatsReturnsOnceFeedPosts(t *testing.T) {
	var hits atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/stats/nfl/regular/2025/3", func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 2 {
			writeJSON(w, models.SleeperWeekStats{})
			return
		}
		writeJSON(w, models.SleeperWeekStats{"p1": {"pass_yd": 120}})
	})
	adapter, clock := newTestAdapter(t, mux)

	type result struct {
		stats models.SleeperWeekStats
		err   error
	}
	resCh := make(chan result, 1)
	go func() {
		stats, err := adapter.fetchWeekStats(context.Background(), "2025", 3)
		resCh <- result{stats, err}
	}()

	clock.BlockUntil(1)
	clock.Advance(statsRetryInterval)

	select {
	case res := <-resCh:
		require.NoError(t, res.err)
		assert.InDelta(t, 120, res.stats["p1"]["pass_yd"], 1e-9)
	case <-time.After(2 * time.Second):
		t.Fatal("stats fetch did not return")
	}
}
