// Package sqlite persists the pieces of state that must outlive a process:
// elimination history, roster hints, and operator settings.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/tlowery/cutline/internal/identity"
	"github.com/tlowery/cutline/internal/models"
	"github.com/tlowery/cutline/internal/refresh"
)

var (
	_ refresh.EventLedger = (*Store)(nil)
	_ identity.HintStore  = (*Store)(nil)
)

const schema = `
CREATE TABLE IF NOT EXISTS elimination_events (
	id          TEXT PRIMARY KEY,
	source      TEXT NOT NULL,
	league_id   TEXT NOT NULL,
	week        INTEGER NOT NULL,
	team_id     TEXT NOT NULL,
	team_name   TEXT NOT NULL,
	final_score REAL NOT NULL,
	reason      TEXT NOT NULL,
	narrative   TEXT NOT NULL,
	created_ms  INTEGER NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_elimination_events_team
	ON elimination_events (source, league_id, team_id);

CREATE TABLE IF NOT EXISTS roster_hints (
	source     TEXT NOT NULL,
	league_id  TEXT NOT NULL,
	team_id    TEXT NOT NULL,
	updated_ms INTEGER NOT NULL,
	PRIMARY KEY (source, league_id)
);

CREATE TABLE IF NOT EXISTS settings (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

// Store keeps everything in one SQLite file.
type Store struct {
	db *sql.DB
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens or creates the database at path and applies the schema.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("store path is required")
	}
	dsn := filepath.Clean(path) + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// AppendEvents records eliminations. A team already recorded for the league
// is skipped, so replaying a week is harmless.
func (s *Store) AppendEvents(ctx context.Context, events []models.EliminationEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(events) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin append events: %w", err)
	}
	defer tx.Rollback()

	for _, event := range events {
		_, err := tx.ExecContext(
			ctx,
			`INSERT INTO elimination_events (
			   id, source, league_id, week, team_id, team_name,
			   final_score, reason, narrative, created_ms
			 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT (source, league_id, team_id) DO NOTHING`,
			event.ID,
			string(event.League.Source),
			event.League.LeagueID,
			event.Week,
			event.TeamID,
			event.TeamName,
			event.FinalScore,
			event.Reason,
			event.Narrative,
			toMillis(event.CreatedAt),
		)
		if err != nil {
			return fmt.Errorf("append event for team %s: %w", event.TeamID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit append events: %w", err)
	}
	return nil
}

// EventsByLeague returns every elimination recorded for the league, oldest
// week first.
func (s *Store) EventsByLeague(ctx context.Context, ref models.LeagueRef) ([]models.EliminationEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, source, league_id, week, team_id, team_name,
		        final_score, reason, narrative, created_ms
		   FROM elimination_events
		  WHERE source = ? AND league_id = ?
		  ORDER BY week ASC, created_ms ASC`,
		string(ref.Source),
		ref.LeagueID,
	)
	if err != nil {
		return nil, fmt.Errorf("list elimination events: %w", err)
	}
	defer rows.Close()

	var events []models.EliminationEvent
	for rows.Next() {
		var event models.EliminationEvent
		var source string
		var createdMs int64
		if err := rows.Scan(
			&event.ID,
			&source,
			&event.League.LeagueID,
			&event.Week,
			&event.TeamID,
			&event.TeamName,
			&event.FinalScore,
			&event.Reason,
			&event.Narrative,
			&createdMs,
		); err != nil {
			return nil, fmt.Errorf("list elimination events: %w", err)
		}
		event.League.Source = models.SourceType(source)
		event.CreatedAt = fromMillis(createdMs)
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list elimination events: %w", err)
	}
	return events, nil
}

// EliminatedTeams returns the IDs of every team already recorded as
// eliminated from the league.
func (s *Store) EliminatedTeams(ctx context.Context, ref models.LeagueRef) (map[string]bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(
		ctx,
		`SELECT team_id FROM elimination_events WHERE source = ? AND league_id = ?`,
		string(ref.Source),
		ref.LeagueID,
	)
	if err != nil {
		return nil, fmt.Errorf("list eliminated teams: %w", err)
	}
	defer rows.Close()

	teams := make(map[string]bool)
	for rows.Next() {
		var teamID string
		if err := rows.Scan(&teamID); err != nil {
			return nil, fmt.Errorf("list eliminated teams: %w", err)
		}
		teams[teamID] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list eliminated teams: %w", err)
	}
	return teams, nil
}

// RosterHint returns the operator's remembered team for the league, or ""
// when no confident match has been stored yet.
func (s *Store) RosterHint(ctx context.Context, ref models.LeagueRef) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	row := s.db.QueryRowContext(
		ctx,
		`SELECT team_id FROM roster_hints WHERE source = ? AND league_id = ?`,
		string(ref.Source),
		ref.LeagueID,
	)
	var teamID string
	if err := row.Scan(&teamID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("get roster hint: %w", err)
	}
	return teamID, nil
}

// SaveRosterHint remembers the operator's team for the league, replacing any
// earlier hint.
func (s *Store) SaveRosterHint(ctx context.Context, ref models.LeagueRef, teamID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO roster_hints (source, league_id, team_id, updated_ms)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (source, league_id) DO UPDATE SET
		   team_id = excluded.team_id,
		   updated_ms = excluded.updated_ms`,
		string(ref.Source),
		ref.LeagueID,
		teamID,
		toMillis(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("save roster hint: %w", err)
	}
	return nil
}

// Setting returns the stored value for key, or "" when unset.
func (s *Store) Setting(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	row := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key)
	var value string
	if err := row.Scan(&value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("get setting %s: %w", key, err)
	}
	return value, nil
}

// SetSetting stores value under key, replacing any earlier value.
func (s *Store) SetSetting(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO settings (key, value) VALUES (?, ?)
		 ON CONFLICT (key) DO UPDATE SET value = excluded.value`,
		key,
		value,
	)
	if err != nil {
		return fmt.Errorf("set setting %s: %w", key, err)
	}
	return nil
}
