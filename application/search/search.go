// Package search provides fuzzy lookup over the thought collection.
package search

import (
	"strings"

	"github.com/sahilm/fuzzy"

	"thoughtgraph/domain/thought"
)

// Match is one search hit.
type Match struct {
	Thought thought.Thought
	Score   int
}

// source adapts the collection for fuzzy matching over title plus
// content.
type source []thought.Thought

func (s source) String(i int) string {
	return s[i].Title + " " + s[i].Content
}

func (s source) Len() int {
	return len(s)
}

// Find returns thoughts matching the query, best score first. An empty
// query matches nothing.
func Find(query string, thoughts []thought.Thought) []Match {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}
	results := fuzzy.FindFrom(query, source(thoughts))
	matches := make([]Match, 0, len(results))
	for _, r := range results {
		matches = append(matches, Match{Thought: thoughts[r.Index].Clone(), Score: r.Score})
	}
	return matches
}

// FindTitles matches against titles only, for mention completion.
func FindTitles(query string, thoughts []thought.Thought) []thought.Thought {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}
	titles := make([]string, len(thoughts))
	for i, t := range thoughts {
		titles[i] = t.Title
	}
	results := fuzzy.Find(query, titles)
	out := make([]thought.Thought, 0, len(results))
	for _, r := range results {
		out = append(out, thoughts[r.Index].Clone())
	}
	return out
}
