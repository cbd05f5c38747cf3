// Package identity matches fantasy player names against an MLB person
// directory. Exact normalized matches win; otherwise the closest name by
// levenshtein similarity does, if it clears the threshold.
package identity

import (
	"fmt"
	"os"
	"strings"

	"github.com/agnivade/levenshtein"
	json "github.com/goccy/go-json"
)

// DefaultThreshold is the minimum similarity for a fuzzy match.
const DefaultThreshold = 0.85

// Person is one entry in the MLB person directory.
type Person struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Match is a successful resolution. Score is 1 for exact matches.
type Match struct {
	Person Person
	Score  float64
}

// Resolver resolves names against a fixed directory.
type Resolver struct {
	Threshold float64

	people     []Person
	normalized []string
	exact      map[string]int
}

// NewResolver indexes the directory. Directory order breaks score ties.
func NewResolver(directory []Person) *Resolver {
	r := &Resolver{
		Threshold:  DefaultThreshold,
		people:     directory,
		normalized: make([]string, len(directory)),
		exact:      make(map[string]int, len(directory)),
	}
	for i, p := range directory {
		n := NormalizeName(p.Name)
		r.normalized[i] = n
		if _, ok := r.exact[n]; !ok {
			r.exact[n] = i
		}
	}
	return r
}

// Resolve finds the directory entry for a name.
func (r *Resolver) Resolve(name string) (Match, bool) {
	n := NormalizeName(name)
	if n == "" {
		return Match{}, false
	}
	if i, ok := r.exact[n]; ok {
		return Match{Person: r.people[i], Score: 1}, true
	}
	best, bestScore := -1, 0.0
	for i, cand := range r.normalized {
		if s := Similarity(n, cand); s > bestScore {
			best, bestScore = i, s
		}
	}
	if best < 0 || bestScore < r.Threshold {
		return Match{}, false
	}
	return Match{Person: r.people[best], Score: bestScore}, true
}

// Similarity is 1 minus the levenshtein distance over the longer length.
func Similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	maxlen := max(len(a), len(b))
	if maxlen == 0 {
		return 1
	}
	return 1 - float64(levenshtein.ComputeDistance(a, b))/float64(maxlen)
}

// Generational tags don't appear consistently across sources.
var nameSuffixes = map[string]bool{"jr": true, "sr": true, "ii": true, "iii": true, "iv": true}

// NormalizeName lowercases, strips punctuation, collapses whitespace and
// drops generational suffixes.
func NormalizeName(s string) string {
	s = strings.ToLower(s)
	s = strings.Map(func(r rune) rune {
		switch r {
		case '.', '\'', ',':
			return -1
		}
		return r
	}, s)
	fields := strings.Fields(s)
	kept := fields[:0]
	for _, f := range fields {
		if nameSuffixes[f] {
			continue
		}
		kept = append(kept, f)
	}
	return strings.Join(kept, " ")
}

// LoadDirectory reads a person directory from a JSON file: an array of
// {"id": ..., "name": ...} objects.
func LoadDirectory(path string) ([]Person, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read directory %s: %w", path, err)
	}
	var people []Person
	if err := json.Unmarshal(data, &people); err != nil {
		return nil, fmt.Errorf("decode directory %s: %w", path, err)
	}
	return people, nil
}
