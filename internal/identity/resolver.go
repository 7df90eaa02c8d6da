// Package identity locates the operator's own team inside a league.
package identity

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/tlowery/cutline/internal/models"
)

// ErrNoIdentifiedTeam means no resolution step produced a confident match.
// Callers fall back to a flagged guess; it never aborts a refresh.
var ErrNoIdentifiedTeam = errors.New("no identified team")

const similarityThreshold = 0.7

// HintStore persists confident resolutions so later cycles skip the search.
type HintStore interface {
	RosterHint(ctx context.Context, ref models.LeagueRef) (string, error)
	SaveRosterHint(ctx context.Context, ref models.LeagueRef, teamID string) error
}

type Resolver struct {
	identifier string
	hints      HintStore
	logger     *slog.Logger
}

// NewResolver builds a resolver around the operator's personal identifier,
// usually their platform display name.
func NewResolver(identifier string, hints HintStore, logger *slog.Logger) *Resolver {
	return &Resolver{identifier: identifier, hints: hints, logger: logger}
}

// Resolve finds the operator's team among the league's teams. It never
// fails: when every step comes up empty it returns the first team in sorted
// order and reports the result as a guess.
func (r *Resolver) Resolve(ctx context.Context, ref models.LeagueRef, teams []models.Team) (teamID string, guessed bool) {
	id, err := r.resolve(ctx, ref, teams)
	if err == nil {
		if hintErr := r.hints.SaveRosterHint(ctx, ref, id); hintErr != nil {
			r.logger.Warn("saving roster hint", "league", ref.Key(), "error", hintErr)
		}
		return id, false
	}

	if len(teams) == 0 {
		return "", true
	}
	ids := make([]string, 0, len(teams))
	for _, t := range teams {
		ids = append(ids, t.ID)
	}
	sort.Strings(ids)
	r.logger.Info("operator team not identified, falling back to first team",
		"league", ref.Key(), "team", ids[0])
	return ids[0], true
}

func (r *Resolver) resolve(ctx context.Context, ref models.LeagueRef, teams []models.Team) (string, error) {
	// A hint from an earlier confident match wins outright, as long as the
	// team still exists.
	hint, err := r.hints.RosterHint(ctx, ref)
	if err != nil {
		r.logger.Warn("reading roster hint", "league", ref.Key(), "error", err)
	} else if hint != "" {
		for _, t := range teams {
			if t.ID == hint {
				return hint, nil
			}
		}
	}

	if r.identifier == "" {
		return "", ErrNoIdentifiedTeam
	}
	want := strings.ToLower(r.identifier)

	// Exact display-name match, case-insensitive.
	for _, t := range teams {
		if strings.ToLower(t.Manager.DisplayName) == want ||
			strings.ToLower(t.Manager.TeamName) == want ||
			strings.ToLower(t.Name) == want ||
			strings.ToLower(t.Manager.ID) == want {
			return t.ID, nil
		}
	}

	// Substring and fuzzy matching as a last resort.
	bestID := ""
	bestSimilarity := 0.0
	for _, t := range teams {
		for _, candidate := range []string{t.Manager.DisplayName, t.Manager.TeamName, t.Name} {
			if candidate == "" {
				continue
			}
			name := strings.ToLower(candidate)
			if strings.Contains(name, want) {
				return t.ID, nil
			}
			if s := similarity(want, name); s > similarityThreshold && s > bestSimilarity {
				bestSimilarity = s
				bestID = t.ID
			}
		}
	}
	if bestID != "" {
		return bestID, nil
	}

	return "", ErrNoIdentifiedTeam
}

func similarity(a, b string) float64 {
	distance := fuzzy.LevenshteinDistance(a, b)
	maxLen := float64(max(len(a), len(b)))
	if maxLen == 0 {
		return 0
	}
	return 1 - float64(distance)/maxLen
}
