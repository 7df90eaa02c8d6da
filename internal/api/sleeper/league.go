package sleeper

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"github.com/tlowery/cutline/internal/api"
	"github.com/tlowery/cutline/internal/models"
	"github.com/tlowery/cutline/internal/scoring"
)

const (
	catalogTTL         = 24 * time.Hour
	statsRetryInterval = time.Second

	// Sleeper marks an unfilled lineup slot with player id "0".
	emptySlotID = "0"

	finalNFLWeek = 18
)

// Adapter normalizes Sleeper leagues into the unified model.
type Adapter struct {
	client    *Client
	clock     clockwork.Clock
	logger    *slog.Logger
	statsWait time.Duration

	mu        sync.Mutex
	catalog   map[string]models.SleeperPlayer
	catalogAt time.Time
}

func NewAdapter(client *Client, clock clockwork.Clock, statsWait time.Duration, logger *slog.Logger) *Adapter {
	return &Adapter{
		client:    client,
		clock:     clock,
		logger:    logger,
		statsWait: statsWait,
	}
}

func (a *Adapter) Source() models.SourceType { return models.SourceSleeper }

func (a *Adapter) FetchLeague(ctx context.Context, leagueID string) (*models.League, error) {
	var raw models.SleeperLeague
	if err := a.client.Get(ctx, "/league/"+leagueID, &raw); err != nil {
		return nil, fmt.Errorf("fetching league %s: %w", leagueID, err)
	}

	rules := scoring.Rules(raw.ScoringSettings)
	if len(rules) == 0 {
		a.logger.Info("league reports no scoring settings, using PPR defaults", "league", leagueID)
		rules = scoring.DefaultRules()
	}
	if err := rules.Validate(); err != nil {
		return nil, fmt.Errorf("league %s: %w", leagueID, err)
	}

	state, err := a.CurrentState(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching season state: %w", err)
	}
	week := state.DisplayWeek
	if week == 0 {
		week = state.Week
	}

	firstWeek := raw.Settings.StartWeek
	if firstWeek == 0 {
		firstWeek = 1
	}
	lastWeek := finalNFLWeek
	if raw.Settings.PlayoffWeekStart > 0 {
		lastWeek = raw.Settings.PlayoffWeekStart - 1
	}

	return &models.League{
		Ref:         models.LeagueRef{Source: models.SourceSleeper, LeagueID: raw.LeagueID},
		Name:        raw.Name,
		Season:      raw.Season,
		CurrentWeek: week,
		FirstWeek:   firstWeek,
		LastWeek:    lastWeek,
		TeamCount:   raw.TotalRosters,
		RosterSlots: raw.RosterPositions,
		Scoring:     rules,
	}, nil
}

// FetchRosters materializes every roster in the league for one week: lineup
// slots, player identities from the catalog, and raw stat lines from the
// weekly feed.
func (a *Adapter) FetchRosters(ctx context.Context, league *models.League, week int) ([]models.Team, error) {
	var (
		rosters     []models.SleeperRoster
		matchups    []models.SleeperMatchup
		stats       models.SleeperWeekStats
		projections models.SleeperWeekStats
		catalog     map[string]models.SleeperPlayer
	)

	leagueID := league.Ref.LeagueID
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.client.Get(gctx, "/league/"+leagueID+"/rosters", &rosters)
	})
	g.Go(func() error {
		endpoint := fmt.Sprintf("/league/%s/matchups/%d", leagueID, week)
		return a.client.Get(gctx, endpoint, &matchups)
	})
	g.Go(func() error {
		var err error
		stats, err = a.fetchWeekStats(gctx, league.Season, week)
		return err
	})
	g.Go(func() error {
		endpoint := fmt.Sprintf("/projections/nfl/regular/%s/%d", league.Season, week)
		if err := a.client.Get(gctx, endpoint, &projections); err != nil {
			// Projections are best effort.
			a.logger.Debug("projections unavailable", "league", leagueID, "week", week, "error", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		catalog, err = a.playerCatalog(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	byRoster := make(map[int]*models.SleeperMatchup, len(matchups))
	for i := range matchups {
		byRoster[matchups[i].RosterID] = &matchups[i]
	}

	labels := startingSlots(league.RosterSlots)
	teams := make([]models.Team, 0, len(rosters))
	for _, roster := range rosters {
		teams = append(teams, a.buildTeam(roster, byRoster[roster.RosterID], labels, catalog, stats, projections))
	}
	return teams, nil
}

func (a *Adapter) FetchUsers(ctx context.Context, leagueID string) ([]models.Manager, error) {
	var users []models.SleeperUser
	if err := a.client.Get(ctx, "/league/"+leagueID+"/users", &users); err != nil {
		return nil, fmt.Errorf("fetching league users: %w", err)
	}

	managers := make([]models.Manager, len(users))
	for i, u := range users {
		managers[i] = models.Manager{
			ID:          u.UserID,
			DisplayName: u.DisplayName,
			TeamName:    u.Metadata.TeamName,
		}
	}
	return managers, nil
}

func (a *Adapter) FetchMatchups(ctx context.Context, league *models.League, week int) ([]models.Matchup, error) {
	var raw []models.SleeperMatchup
	endpoint := fmt.Sprintf("/league/%s/matchups/%d", league.Ref.LeagueID, week)
	if err := a.client.Get(ctx, endpoint, &raw); err != nil {
		return nil, fmt.Errorf("fetching matchups: %w", err)
	}

	paired := make(map[int][]models.SleeperMatchup)
	for _, m := range raw {
		if m.MatchupID == 0 {
			continue
		}
		paired[m.MatchupID] = append(paired[m.MatchupID], m)
	}

	ids := make([]int, 0, len(paired))
	for id := range paired {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	var matchups []models.Matchup
	for _, id := range ids {
		pair := paired[id]
		if len(pair) != 2 {
			continue
		}
		sort.Slice(pair, func(i, j int) bool { return pair[i].RosterID < pair[j].RosterID })

		matchups = append(matchups, models.Matchup{
			ID:         id,
			Week:       week,
			HomeTeamID: strconv.Itoa(pair[0].RosterID),
			AwayTeamID: strconv.Itoa(pair[1].RosterID),
			HomeScore:  scoring.Round(pair[0].Points),
			AwayScore:  scoring.Round(pair[1].Points),
			Completed:  week < league.CurrentWeek,
		})
	}
	return matchups, nil
}

// LeaguesForUser lists the operator's leagues for a season. Feeds discovery.
func (a *Adapter) LeaguesForUser(ctx context.Context, userID, season string) ([]models.LeagueRef, error) {
	var leagues []models.SleeperLeague
	endpoint := fmt.Sprintf("/user/%s/leagues/nfl/%s", userID, season)
	if err := a.client.Get(ctx, endpoint, &leagues); err != nil {
		return nil, fmt.Errorf("fetching leagues for user %s: %w", userID, err)
	}

	refs := make([]models.LeagueRef, len(leagues))
	for i, l := range leagues {
		refs[i] = models.LeagueRef{Source: models.SourceSleeper, LeagueID: l.LeagueID}
	}
	return refs, nil
}

func (a *Adapter) CurrentState(ctx context.Context) (*models.SleeperState, error) {
	var state models.SleeperState
	if err := a.client.Get(ctx, "/state/nfl", &state); err != nil {
		return nil, err
	}
	return &state, nil
}

// fetchWeekStats polls the weekly stats feed until it has data or the wait
// budget runs out. The feed lags roster data by a few seconds after games
// kick off.
func (a *Adapter) fetchWeekStats(ctx context.Context, season string, week int) (models.SleeperWeekStats, error) {
	endpoint := fmt.Sprintf("/stats/nfl/regular/%s/%d", season, week)
	deadline := a.clock.Now().Add(a.statsWait)

	for {
		var stats models.SleeperWeekStats
		err := a.client.Get(ctx, endpoint, &stats)
		if err == nil && len(stats) > 0 {
			return stats, nil
		}
		if err != nil {
			a.logger.Debug("stats feed not ready", "endpoint", endpoint, "error", err)
		}

		if a.clock.Now().Add(statsRetryInterval).After(deadline) {
			return nil, api.ErrStatsTimeout
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-a.clock.After(statsRetryInterval):
		}
	}
}

// playerCatalog returns the NFL player directory, cached for a day. The
// payload is several megabytes, so it is never fetched per refresh.
func (a *Adapter) playerCatalog(ctx context.Context) (map[string]models.SleeperPlayer, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.catalog != nil && a.clock.Since(a.catalogAt) <= catalogTTL {
		return a.catalog, nil
	}

	var catalog map[string]models.SleeperPlayer
	if err := a.client.Get(ctx, "/players/nfl", &catalog); err != nil {
		if a.catalog != nil {
			a.logger.Warn("player catalog refresh failed, serving stale copy", "error", err)
			return a.catalog, nil
		}
		return nil, fmt.Errorf("fetching player catalog: %w", err)
	}

	a.catalog = catalog
	a.catalogAt = a.clock.Now()
	return catalog, nil
}

func (a *Adapter) buildTeam(
	roster models.SleeperRoster,
	matchup *models.SleeperMatchup,
	labels []string,
	catalog map[string]models.SleeperPlayer,
	stats, projections models.SleeperWeekStats,
) models.Team {
	starters := roster.Starters
	rostered := roster.Players
	if matchup != nil {
		if len(matchup.Starters) > 0 {
			starters = matchup.Starters
		}
		if len(matchup.Players) > 0 {
			rostered = matchup.Players
		}
	}

	inLineup := make(map[string]bool, len(starters))
	var slots []models.RosterSlot
	for i, pid := range starters {
		if pid == "" || pid == emptySlotID {
			continue
		}
		label := ""
		if i < len(labels) {
			label = labels[i]
		}
		inLineup[pid] = true
		slots = append(slots, models.RosterSlot{
			Slot:    label,
			Starter: true,
			Player:  buildPlayer(pid, catalog, stats, projections),
		})
	}
	for _, pid := range rostered {
		if pid == "" || pid == emptySlotID || inLineup[pid] {
			continue
		}
		slots = append(slots, models.RosterSlot{
			Slot:    "BN",
			Starter: false,
			Player:  buildPlayer(pid, catalog, stats, projections),
		})
	}

	return models.Team{
		ID:      strconv.Itoa(roster.RosterID),
		Manager: models.Manager{ID: roster.OwnerID},
		Record: models.Record{
			Wins:      roster.Settings.Wins,
			Losses:    roster.Settings.Losses,
			Ties:      roster.Settings.Ties,
			PointsFor: float64(roster.Settings.Fpts) + float64(roster.Settings.FptsDecimal)/100,
		},
		Roster: slots,
	}
}

func buildPlayer(pid string, catalog map[string]models.SleeperPlayer, stats, projections models.SleeperWeekStats) models.Player {
	p := models.Player{
		ID:             pid,
		Stats:          stats[pid],
		ProjectedStats: projections[pid],
	}

	info, ok := catalog[pid]
	if !ok {
		p.Name = pid
		return p
	}

	p.Name = info.FullName
	if p.Name == "" {
		p.Name = strings.TrimSpace(info.FirstName + " " + info.LastName)
	}
	p.Position = info.Position
	p.ProTeam = info.Team
	p.Status = info.InjuryStatus
	if p.Status == "" {
		p.Status = info.Status
	}
	if info.ESPNID != 0 {
		p.ExternalIDs = map[string]string{"espn": strconv.Itoa(info.ESPNID)}
	}
	return p
}

// startingSlots strips bench designations from the lineup configuration,
// leaving the labels that align with a matchup's starters array.
func startingSlots(rosterPositions []string) []string {
	var slots []string
	for _, pos := range rosterPositions {
		switch pos {
		case "BN", "IR", "TAXI":
			continue
		default:
			slots = append(slots, pos)
		}
	}
	return slots
}
