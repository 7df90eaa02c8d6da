package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tlowery/cutline/internal/models"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func event(ref models.LeagueRef, id, teamID string, week int) models.EliminationEvent {
	return models.EliminationEvent{
		ID:         id,
		League:     ref,
		Week:       week,
		TeamID:     teamID,
		TeamName:   "Team " + teamID,
		FinalScore: 71.3,
		Reason:     "eliminated-by-attrition",
		Narrative:  "Team " + teamID + " ran out of players.",
		CreatedAt:  time.Date(2025, 10, 21, 8, 30, 0, 0, time.UTC),
	}
}

func TestOpenRejectsEmptyPath(t *testing.T) {
	_, err := Open("  ")
	assert.Error(t, err)
}

func TestAppendAndListEvents(t *testing.T) {
	store := openTestStore(t)
	ref := models.LeagueRef{Source: models.SourceSleeper, LeagueID: "99"}
	ctx := context.Background()

	err := store.AppendEvents(ctx, []models.EliminationEvent{
		event(ref, "e2", "t7", 5),
		event(ref, "e1", "t3", 2),
	})
	require.NoError(t, err)

	events, err := store.EventsByLeague(ctx, ref)
	require.NoError(t, err)
	require.Len(t, events, 2)

	assert.Equal(t, "t3", events[0].TeamID, "events come back oldest week first")
	assert.Equal(t, 2, events[0].Week)
	assert.Equal(t, "t7", events[1].TeamID)
	assert.Equal(t, time.Date(2025, 10, 21, 8, 30, 0, 0, time.UTC), events[0].CreatedAt)
	assert.Equal(t, ref, events[0].League)
}

func TestAppendEventsSkipsRecordedTeams(t *testing.T) {
	store := openTestStore(t)
	ref := models.LeagueRef{Source: models.SourceSleeper, LeagueID: "99"}
	ctx := context.Background()

	require.NoError(t, store.AppendEvents(ctx, []models.EliminationEvent{event(ref, "e1", "t3", 2)}))
	require.NoError(t, store.AppendEvents(ctx, []models.EliminationEvent{event(ref, "e9", "t3", 4)}))

	events, err := store.EventsByLeague(ctx, ref)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "e1", events[0].ID, "the first record wins")
}

func TestEventsAreScopedToLeague(t *testing.T) {
	store := openTestStore(t)
	sleeperRef := models.LeagueRef{Source: models.SourceSleeper, LeagueID: "99"}
	espnRef := models.LeagueRef{Source: models.SourceESPN, LeagueID: "99"}
	ctx := context.Background()

	require.NoError(t, store.AppendEvents(ctx, []models.EliminationEvent{event(sleeperRef, "e1", "t3", 2)}))

	events, err := store.EventsByLeague(ctx, espnRef)
	require.NoError(t, err)
	assert.Empty(t, events, "same league id on another platform is a different league")
}

func TestEliminatedTeams(t *testing.T) {
	store := openTestStore(t)
	ref := models.LeagueRef{Source: models.SourceESPN, LeagueID: "42"}
	ctx := context.Background()

	teams, err := store.EliminatedTeams(ctx, ref)
	require.NoError(t, err)
	assert.Empty(t, teams)

	require.NoError(t, store.AppendEvents(ctx, []models.EliminationEvent{
		event(ref, "e1", "t3", 2),
		event(ref, "e2", "t7", 5),
	}))

	teams, err = store.EliminatedTeams(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"t3": true, "t7": true}, teams)
}

func TestRosterHintRoundTrip(t *testing.T) {
	store := openTestStore(t)
	ref := models.LeagueRef{Source: models.SourceSleeper, LeagueID: "99"}
	ctx := context.Background()

	hint, err := store.RosterHint(ctx, ref)
	require.NoError(t, err)
	assert.Empty(t, hint, "missing hint reads as empty, not an error")

	require.NoError(t, store.SaveRosterHint(ctx, ref, "t4"))
	require.NoError(t, store.SaveRosterHint(ctx, ref, "t9"))

	hint, err = store.RosterHint(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, "t9", hint, "a newer hint replaces the old one")
}

func TestSettingRoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	value, err := store.Setting(ctx, "operator_name")
	require.NoError(t, err)
	assert.Empty(t, value)

	require.NoError(t, store.SetSetting(ctx, "operator_name", "tlowery"))
	require.NoError(t, store.SetSetting(ctx, "operator_name", "Tim L"))

	value, err = store.Setting(ctx, "operator_name")
	require.NoError(t, err)
	assert.Equal(t, "Tim L", value)
}
