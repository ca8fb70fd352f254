// Package resolve maps human-friendly display names to external keys.
// Data extensions and query activities are addressed by key on the wire,
// but people remember names; resolve bridges the two.
package resolve

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sahilm/fuzzy"
)

// Named is any asset addressable by external key with a display name.
type Named struct {
	Key  string
	Name string
}

// Match is one scored candidate from a fuzzy lookup.
type Match struct {
	Key   string
	Name  string
	Score int
}

var (
	ErrEmptyQuery = errors.New("empty search query")
	ErrEmptyItems = errors.New("no items to match against")
)

// AmbiguousError reports a lookup where several candidates scored equally
// well. Matches come best-first, capped at five.
type AmbiguousError struct {
	Query   string
	Matches []Match
}

func (e *AmbiguousError) Error() string {
	msg := fmt.Sprintf("ambiguous match for %q", e.Query)
	if len(e.Matches) == 0 {
		return msg
	}
	parts := make([]string, 0, len(e.Matches)+1)
	parts = append(parts, msg+", candidates:")
	for _, m := range e.Matches {
		parts = append(parts, fmt.Sprintf("  %s: %s", m.Key, m.Name))
	}
	return strings.Join(parts, "\n")
}

// lowerNames adapts Named slices to fuzzy.Source, folding case so the
// match is case-insensitive.
type lowerNames []Named

func (s lowerNames) String(i int) string { return strings.ToLower(s[i].Name) }
func (s lowerNames) Len() int            { return len(s) }

// FuzzyMatch resolves query to a single asset key. Resolution order:
// exact key (keys are unique per tenant), exact case-insensitive name,
// then fuzzy by name. A score tie between the top two fuzzy candidates
// is an *AmbiguousError rather than a guess.
func FuzzyMatch(query string, items []Named) (string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", ErrEmptyQuery
	}
	if len(items) == 0 {
		return "", ErrEmptyItems
	}

	for _, item := range items {
		if item.Key != "" && item.Key == query {
			return item.Key, nil
		}
	}
	for _, item := range items {
		if strings.EqualFold(item.Name, query) {
			return item.Key, nil
		}
	}

	results := fuzzy.FindFrom(strings.ToLower(query), lowerNames(items))
	switch {
	case len(results) == 0:
		return "", fmt.Errorf("no match found for %q", query)
	case len(results) > 1 && results[0].Score == results[1].Score:
		return "", &AmbiguousError{Query: query, Matches: toMatches(items, results, 5)}
	}
	return items[results[0].Index].Key, nil
}

// FuzzyMatchAll returns up to limit candidates ranked best-first.
func FuzzyMatchAll(query string, items []Named, limit int) []Match {
	query = strings.TrimSpace(query)
	if query == "" || len(items) == 0 || limit <= 0 {
		return nil
	}
	return toMatches(items, fuzzy.FindFrom(strings.ToLower(query), lowerNames(items)), limit)
}

func toMatches(items []Named, results fuzzy.Matches, limit int) []Match {
	if len(results) == 0 || limit <= 0 {
		return nil
	}
	if len(results) > limit {
		results = results[:limit]
	}
	matches := make([]Match, len(results))
	for i, r := range results {
		matches[i] = Match{
			Key:   items[r.Index].Key,
			Name:  items[r.Index].Name,
			Score: r.Score,
		}
	}
	return matches
}
