// Package service assembles the unified league snapshot: platform data
// normalized by the adapters, scored under the league's own rules, with the
// operator's team identified.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"github.com/tlowery/cutline/internal/config"
	"github.com/tlowery/cutline/internal/identity"
	"github.com/tlowery/cutline/internal/models"
	"github.com/tlowery/cutline/internal/refresh"
	"github.com/tlowery/cutline/internal/scoring"
)

// ErrUnknownSource means a league reference names a platform no adapter was
// registered for.
var ErrUnknownSource = errors.New("no adapter for platform")

// Source is one fantasy platform. Adapters normalize their wire formats into
// the unified model before anything downstream sees them.
type Source interface {
	Source() models.SourceType
	FetchLeague(ctx context.Context, leagueID string) (*models.League, error)
	FetchRosters(ctx context.Context, league *models.League, week int) ([]models.Team, error)
	FetchUsers(ctx context.Context, leagueID string) ([]models.Manager, error)
	FetchMatchups(ctx context.Context, league *models.League, week int) ([]models.Matchup, error)
}

// LeagueDiscoverer is the optional half of a Source that can list every
// league an account belongs to.
type LeagueDiscoverer interface {
	LeaguesForUser(ctx context.Context, userID, season string) ([]models.LeagueRef, error)
	CurrentState(ctx context.Context) (*models.SleeperState, error)
}

type Aggregator struct {
	sources     map[models.SourceType]Source
	resolver    *identity.Resolver
	clock       clockwork.Clock
	logger      *slog.Logger
	elimination map[string]bool

	sleeperCfg config.SleeperAPI
	espnCfg    config.ESPNAPI
}

var _ refresh.SnapshotBuilder = (*Aggregator)(nil)

func NewAggregator(sources []Source, resolver *identity.Resolver, clock clockwork.Clock, cfg *config.Config, logger *slog.Logger) *Aggregator {
	byType := make(map[models.SourceType]Source, len(sources))
	for _, src := range sources {
		byType[src.Source()] = src
	}
	elimination := make(map[string]bool, len(cfg.Refresh.EliminationLeagues))
	for _, id := range cfg.Refresh.EliminationLeagues {
		elimination[id] = true
	}
	return &Aggregator{
		sources:     byType,
		resolver:    resolver,
		clock:       clock,
		logger:      logger,
		elimination: elimination,
		sleeperCfg:  cfg.Sleeper,
		espnCfg:     cfg.ESPN,
	}
}

// ConfiguredLeagues returns the league references named in configuration.
func (a *Aggregator) ConfiguredLeagues() []models.LeagueRef {
	refs := make([]models.LeagueRef, 0, len(a.sleeperCfg.LeagueIDs)+len(a.espnCfg.LeagueIDs))
	for _, id := range a.sleeperCfg.LeagueIDs {
		refs = append(refs, models.LeagueRef{Source: models.SourceSleeper, LeagueID: id})
	}
	for _, id := range a.espnCfg.LeagueIDs {
		refs = append(refs, models.LeagueRef{Source: models.SourceESPN, LeagueID: id})
	}
	return refs
}

// BuildSnapshot fetches, normalizes, and scores one league for one week.
// Week 0 means whatever week the platform says is current.
func (a *Aggregator) BuildSnapshot(ctx context.Context, ref models.LeagueRef, week int) (*models.LeagueSnapshot, error) {
	src, ok := a.sources[ref.Source]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSource, ref.Source)
	}

	league, err := src.FetchLeague(ctx, ref.LeagueID)
	if err != nil {
		return nil, fmt.Errorf("fetching league %s: %w", ref.Key(), err)
	}
	league.Elimination = a.elimination[ref.LeagueID]
	if week <= 0 {
		week = league.CurrentWeek
	}

	var (
		teams    []models.Team
		managers []models.Manager
		matchups []models.Matchup
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		teams, err = src.FetchRosters(gctx, league, week)
		if err != nil {
			return fmt.Errorf("fetching rosters: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		managers, err = src.FetchUsers(gctx, ref.LeagueID)
		if err != nil {
			return fmt.Errorf("fetching managers: %w", err)
		}
		return nil
	})
	if !league.Elimination {
		// Guillotine leagues race the cut line, not each other; the
		// head-to-head view only matters for standard leagues.
		g.Go(func() error {
			var err error
			matchups, err = src.FetchMatchups(gctx, league, week)
			if err != nil {
				return fmt.Errorf("fetching matchups: %w", err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	mergeManagers(teams, managers)
	scoreTeams(teams, league.Scoring)
	sort.Slice(teams, func(i, j int) bool { return teams[i].ID < teams[j].ID })

	operatorID, guessed := a.resolver.Resolve(ctx, ref, teams)
	for i := range teams {
		teams[i].IsOperator = teams[i].ID == operatorID
	}
	now := a.clock.Now()
	fillMatchupNames(matchups, teams)
	for i := range matchups {
		matchups[i].UpdatedAt = now
	}

	a.logger.Info("snapshot built",
		"league", ref.Key(), "week", week, "teams", len(teams), "guessed", guessed)

	return &models.LeagueSnapshot{
		League:          league,
		Week:            week,
		Teams:           teams,
		Matchups:        matchups,
		OperatorTeamID:  operatorID,
		OperatorGuessed: guessed,
		FetchedAt:       now,
	}, nil
}

// DiscoverLeagues lists every league reachable from the configuration:
// explicitly configured IDs plus, for Sleeper, whatever the account belongs
// to this season. Leagues that fail to load are logged and skipped so one
// bad ID cannot hide the rest.
func (a *Aggregator) DiscoverLeagues(ctx context.Context) ([]models.League, error) {
	refs := a.ConfiguredLeagues()
	refs = append(refs, a.sleeperAccountLeagues(ctx)...)

	seen := make(map[models.LeagueRef]bool, len(refs))
	var mu sync.Mutex
	leagues := make([]models.League, 0, len(refs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, ref := range refs {
		if seen[ref] {
			continue
		}
		seen[ref] = true

		ref := ref // per-iteration copy: the module builds with go < 1.22
		g.Go(func() error {
			src, ok := a.sources[ref.Source]
			if !ok {
				a.logger.Warn("skipping league on unknown platform", "league", ref.Key())
				return nil
			}
			league, err := src.FetchLeague(gctx, ref.LeagueID)
			if err != nil {
				a.logger.Warn("fetching league failed", "league", ref.Key(), "error", err)
				return nil
			}
			league.Elimination = a.elimination[ref.LeagueID]

			mu.Lock()
			leagues = append(leagues, *league)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(leagues, func(i, j int) bool { return leagues[i].Ref.Key() < leagues[j].Ref.Key() })
	return leagues, nil
}

func (a *Aggregator) sleeperAccountLeagues(ctx context.Context) []models.LeagueRef {
	if a.sleeperCfg.UserID == "" {
		return nil
	}
	src, ok := a.sources[models.SourceSleeper]
	if !ok {
		return nil
	}
	discoverer, ok := src.(LeagueDiscoverer)
	if !ok {
		return nil
	}

	season := a.sleeperCfg.Season
	if season == "" {
		state, err := discoverer.CurrentState(ctx)
		if err != nil {
			a.logger.Warn("reading platform state", "error", err)
			return nil
		}
		season = state.Season
	}

	refs, err := discoverer.LeaguesForUser(ctx, a.sleeperCfg.UserID, season)
	if err != nil {
		a.logger.Warn("discovering account leagues", "user", a.sleeperCfg.UserID, "error", err)
		return nil
	}
	return refs
}

func mergeManagers(teams []models.Team, managers []models.Manager) {
	byID := make(map[string]models.Manager, len(managers))
	for _, m := range managers {
		byID[m.ID] = m
	}
	for i := range teams {
		if m, ok := byID[teams[i].Manager.ID]; ok {
			teams[i].Manager = m
			if teams[i].Name == "" {
				if m.TeamName != "" {
					teams[i].Name = m.TeamName
				} else {
					teams[i].Name = m.DisplayName
				}
			}
		}
		if teams[i].Name == "" {
			teams[i].Name = "Team " + teams[i].ID
		}
	}
}

// scoreTeams prices every player under the league's own rules and totals the
// starting lineup. Platform-reported totals are ignored so both platforms
// come out on the same scale.
func scoreTeams(teams []models.Team, rules scoring.Rules) {
	for i := range teams {
		var total, projected float64
		for j := range teams[i].Roster {
			slot := &teams[i].Roster[j]
			slot.Player.Points = scoring.Round(scoring.Points(slot.Player.Stats, rules))
			slot.Player.Projected = scoring.Round(scoring.Points(slot.Player.ProjectedStats, rules))
			if slot.Starter {
				total += slot.Player.Points
				projected += slot.Player.Projected
			}
		}
		teams[i].Score = scoring.Round(total)
		teams[i].Projected = scoring.Round(projected)
	}
}

func fillMatchupNames(matchups []models.Matchup, teams []models.Team) {
	if len(matchups) == 0 {
		return
	}
	names := make(map[string]string, len(teams))
	for _, t := range teams {
		names[t.ID] = t.Name
	}
	for i := range matchups {
		if name, ok := names[matchups[i].HomeTeamID]; ok {
			matchups[i].HomeTeam = name
		}
		if name, ok := names[matchups[i].AwayTeamID]; ok {
			matchups[i].AwayTeam = name
		}
	}
}
