// Package refresh keeps league snapshots fresh without hammering the
// upstream platforms. It caches snapshots per league and week, collapses
// concurrent loads of the same key into one fetch, debounces refresh bursts,
// and runs an optional live-update loop per league.
package refresh

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/singleflight"

	"github.com/tlowery/cutline/internal/config"
	"github.com/tlowery/cutline/internal/models"
	"github.com/tlowery/cutline/internal/ranking"
)

const (
	requestTimeout = 30 * time.Second
	discoveryKey   = "leagues"
)

// SnapshotBuilder assembles a complete league snapshot from the upstream
// platform APIs. Week 0 means the league's current week.
type SnapshotBuilder interface {
	BuildSnapshot(ctx context.Context, ref models.LeagueRef, week int) (*models.LeagueSnapshot, error)
	DiscoverLeagues(ctx context.Context) ([]models.League, error)
}

// EventLedger records elimination events so they survive restarts and are
// never announced twice.
type EventLedger interface {
	AppendEvents(ctx context.Context, events []models.EliminationEvent) error
	EventsByLeague(ctx context.Context, ref models.LeagueRef) ([]models.EliminationEvent, error)
	EliminatedTeams(ctx context.Context, ref models.LeagueRef) (map[string]bool, error)
}

// ConcurrentLoadError marks a failure that arrived through a load shared
// with another caller. The error belongs to whichever request started the
// fetch; an immediate retry may well succeed.
type ConcurrentLoadError struct {
	Key string
	Err error
}

func (e *ConcurrentLoadError) Error() string {
	return fmt.Sprintf("shared load for %s failed: %v", e.Key, e.Err)
}

func (e *ConcurrentLoadError) Unwrap() error { return e.Err }

// leagueState tracks what a league's clients are currently looking at. The
// generation counter fences slow loads: a result started under an older
// generation is returned to its own caller but never committed.
type leagueState struct {
	mu           sync.Mutex
	generation   uint64
	selectedWeek int
	lastRanking  *models.Ranking
	liveCancel   context.CancelFunc
}

type Coordinator struct {
	builder  SnapshotBuilder
	ledger   EventLedger
	rankings *ranking.Engine
	clock    clockwork.Clock
	cfg      config.Refresh
	logger   *slog.Logger

	flight    singleflight.Group
	snapshots *Cache[*models.LeagueSnapshot]
	discovery *Cache[[]models.League]
	debounce  *Debouncer

	mu     sync.Mutex
	states map[models.LeagueRef]*leagueState

	wg sync.WaitGroup
}

func NewCoordinator(builder SnapshotBuilder, ledger EventLedger, engine *ranking.Engine, clock clockwork.Clock, cfg config.Refresh, logger *slog.Logger) *Coordinator {
	return &Coordinator{
		builder:   builder,
		ledger:    ledger,
		rankings:  engine,
		clock:     clock,
		cfg:       cfg,
		logger:    logger,
		snapshots: NewCache[*models.LeagueSnapshot](clock, cfg.SnapshotTTL),
		discovery: NewCache[[]models.League](clock, cfg.DiscoveryTTL),
		debounce:  NewDebouncer(clock, cfg.DebounceWindow),
		states:    make(map[models.LeagueRef]*leagueState),
	}
}

// Track registers a league so scheduled refreshes cover it before any client
// asks for it.
func (c *Coordinator) Track(ref models.LeagueRef) {
	c.state(ref)
}

// CurrentRanking returns the elimination ranking for the given week, serving
// from cache when the snapshot is still fresh. Week 0 follows the league's
// selected week.
func (c *Coordinator) CurrentRanking(ctx context.Context, ref models.LeagueRef, week int) (*models.Ranking, error) {
	if week == 0 {
		week = c.selectedWeek(ref)
	}
	return c.loadAndCommit(ctx, ref, week, false)
}

// SelectWeek switches the league to a different week. Any load still in
// flight for the old selection is superseded and its result dropped.
func (c *Coordinator) SelectWeek(ctx context.Context, ref models.LeagueRef, week int) (*models.Ranking, error) {
	st := c.state(ref)
	st.mu.Lock()
	st.generation++
	st.selectedWeek = week
	st.mu.Unlock()

	return c.loadAndCommit(ctx, ref, week, false)
}

// ForceRefresh throws away everything cached for the league and fetches the
// selected week fresh.
func (c *Coordinator) ForceRefresh(ctx context.Context, ref models.LeagueRef) (*models.Ranking, error) {
	st := c.state(ref)
	st.mu.Lock()
	st.generation++
	week := st.selectedWeek
	st.mu.Unlock()

	c.flight.Forget(snapshotKey(ref, week))
	c.snapshots.DeletePrefix(ref.Key() + ":")

	return c.loadAndCommit(ctx, ref, week, true)
}

// RequestRefresh asks for a reload without blocking. Bursts of requests for
// the same league collapse into one fetch after the quiet window.
func (c *Coordinator) RequestRefresh(ref models.LeagueRef) {
	c.debounce.Trigger(ref.Key(), func() {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		if _, err := c.loadAndCommit(ctx, ref, c.selectedWeek(ref), true); err != nil {
			c.logger.Warn("debounced refresh failed", "league", ref.Key(), "error", err)
		}
	})
}

// StartLiveUpdates begins periodic forced reloads for the league. Starting
// an already-live league is a no-op.
func (c *Coordinator) StartLiveUpdates(ref models.LeagueRef) {
	st := c.state(ref)
	st.mu.Lock()
	defer st.mu.Unlock()

	if st.liveCancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	st.liveCancel = cancel

	c.wg.Add(1)
	go c.liveLoop(ctx, ref)
	c.logger.Info("live updates started", "league", ref.Key())
}

func (c *Coordinator) StopLiveUpdates(ref models.LeagueRef) {
	st := c.state(ref)
	st.mu.Lock()
	defer st.mu.Unlock()

	if st.liveCancel == nil {
		return
	}
	st.liveCancel()
	st.liveCancel = nil
	c.logger.Info("live updates stopped", "league", ref.Key())
}

func (c *Coordinator) liveLoop(ctx context.Context, ref models.LeagueRef) {
	defer c.wg.Done()

	ticker := c.clock.NewTicker(c.cfg.LiveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			loadCtx, cancel := context.WithTimeout(ctx, requestTimeout)
			if _, err := c.loadAndCommit(loadCtx, ref, c.selectedWeek(ref), true); err != nil {
				c.logger.Warn("live refresh failed", "league", ref.Key(), "error", err)
			}
			cancel()
		}
	}
}

// RefreshAll force-loads every tracked league. Failures are logged per
// league so one dead platform cannot starve the others.
func (c *Coordinator) RefreshAll(ctx context.Context) {
	var wg sync.WaitGroup
	for _, ref := range c.Tracked() {
		ref := ref // per-iteration copy: the module builds with go < 1.22
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := c.loadAndCommit(ctx, ref, c.selectedWeek(ref), true); err != nil {
				c.logger.Warn("scheduled refresh failed", "league", ref.Key(), "error", err)
			}
		}()
	}
	wg.Wait()
}

// Leagues lists every league visible to the configured accounts. Discovery
// results are cached far longer than snapshots since league membership
// rarely changes mid-season.
func (c *Coordinator) Leagues(ctx context.Context) ([]models.League, error) {
	if leagues, ok := c.discovery.Get(discoveryKey); ok {
		return leagues, nil
	}

	v, err, shared := c.flight.Do(discoveryKey, func() (any, error) {
		leagues, err := c.builder.DiscoverLeagues(ctx)
		if err != nil {
			return nil, err
		}
		c.discovery.Set(discoveryKey, leagues)
		return leagues, nil
	})
	if err != nil {
		if shared {
			return nil, &ConcurrentLoadError{Key: discoveryKey, Err: err}
		}
		return nil, err
	}
	return v.([]models.League), nil
}

// History returns every elimination recorded for the league, oldest first.
func (c *Coordinator) History(ctx context.Context, ref models.LeagueRef) ([]models.EliminationEvent, error) {
	return c.ledger.EventsByLeague(ctx, ref)
}

// Matchups returns the head-to-head pairings for the given week. Week 0
// follows the league's selected week.
func (c *Coordinator) Matchups(ctx context.Context, ref models.LeagueRef, week int) ([]models.Matchup, error) {
	if week == 0 {
		week = c.selectedWeek(ref)
	}
	snap, err := c.loadSnapshot(ctx, ref, week, false)
	if err != nil {
		return nil, err
	}
	return snap.Matchups, nil
}

// Bracket derives the playoff bracket from the league's current seeds.
func (c *Coordinator) Bracket(ctx context.Context, ref models.LeagueRef) (*models.Bracket, error) {
	snap, err := c.loadSnapshot(ctx, ref, c.selectedWeek(ref), false)
	if err != nil {
		return nil, err
	}
	return ranking.SeedBracket(snap.League.Ref, snap.Teams), nil
}

// LastRanking returns the most recent ranking committed for the league.
func (c *Coordinator) LastRanking(ref models.LeagueRef) (*models.Ranking, bool) {
	st := c.state(ref)
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.lastRanking, st.lastRanking != nil
}

// Close stops live loops and pending debounced work. Loads already in
// flight finish on their own contexts.
func (c *Coordinator) Close() {
	c.debounce.Stop()

	c.mu.Lock()
	states := make([]*leagueState, 0, len(c.states))
	for _, st := range c.states {
		states = append(states, st)
	}
	c.mu.Unlock()

	for _, st := range states {
		st.mu.Lock()
		if st.liveCancel != nil {
			st.liveCancel()
			st.liveCancel = nil
		}
		st.mu.Unlock()
	}
	c.wg.Wait()
}

func (c *Coordinator) loadAndCommit(ctx context.Context, ref models.LeagueRef, week int, bypass bool) (*models.Ranking, error) {
	st := c.state(ref)
	st.mu.Lock()
	startGen := st.generation
	st.mu.Unlock()

	snap, err := c.loadSnapshot(ctx, ref, week, bypass)
	if err != nil {
		return nil, err
	}
	rk := c.rank(ctx, snap)

	st.mu.Lock()
	if st.generation == startGen {
		st.lastRanking = rk
	} else {
		c.logger.Debug("dropping superseded result", "league", ref.Key(), "week", week)
	}
	st.mu.Unlock()

	return rk, nil
}

func (c *Coordinator) loadSnapshot(ctx context.Context, ref models.LeagueRef, week int, bypass bool) (*models.LeagueSnapshot, error) {
	key := snapshotKey(ref, week)
	if !bypass {
		if snap, ok := c.snapshots.Get(key); ok {
			return snap, nil
		}
	}

	v, err, shared := c.flight.Do(key, func() (any, error) {
		snap, err := c.builder.BuildSnapshot(ctx, ref, week)
		if err != nil {
			return nil, err
		}
		c.snapshots.Set(key, snap)
		// A week-0 request resolves to a concrete week; cache it under
		// that key too so selecting it later is a hit.
		if week == 0 && snap.Week > 0 {
			c.snapshots.Set(snapshotKey(ref, snap.Week), snap)
		}
		return snap, nil
	})
	if err != nil {
		if shared {
			return nil, &ConcurrentLoadError{Key: key, Err: err}
		}
		return nil, err
	}
	return v.(*models.LeagueSnapshot), nil
}

// rank builds the ranking for a snapshot and records any new eliminations.
// Ledger failures degrade to logs; a broken disk should not take down
// scoreboards.
func (c *Coordinator) rank(ctx context.Context, snap *models.LeagueSnapshot) *models.Ranking {
	already := map[string]bool{}
	if snap.League.Elimination {
		recorded, err := c.ledger.EliminatedTeams(ctx, snap.League.Ref)
		if err != nil {
			c.logger.Warn("reading elimination history failed", "league", snap.League.Ref.Key(), "error", err)
		} else {
			already = recorded
		}
	}

	rk, events := c.rankings.Build(snap, already, c.clock.Now())
	if len(events) > 0 {
		if err := c.ledger.AppendEvents(ctx, events); err != nil {
			c.logger.Error("recording elimination events failed", "league", snap.League.Ref.Key(), "error", err)
		}
	}
	return rk
}

func (c *Coordinator) state(ref models.LeagueRef) *leagueState {
	c.mu.Lock()
	defer c.mu.Unlock()

	st, ok := c.states[ref]
	if !ok {
		st = &leagueState{}
		c.states[ref] = st
	}
	return st
}

func (c *Coordinator) selectedWeek(ref models.LeagueRef) int {
	st := c.state(ref)
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.selectedWeek
}

// Tracked lists every league the coordinator is watching, ordered by key.
func (c *Coordinator) Tracked() []models.LeagueRef {
	c.mu.Lock()
	defer c.mu.Unlock()

	refs := make([]models.LeagueRef, 0, len(c.states))
	for ref := range c.states {
		refs = append(refs, ref)
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].Key() < refs[j].Key() })
	return refs
}

func snapshotKey(ref models.LeagueRef, week int) string {
	return ref.Key() + ":w" + strconv.Itoa(week)
}
