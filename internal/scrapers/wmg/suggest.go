package wmg

import (
	"sort"

	"github.com/antzucaro/matchr"
)

const suggestMinScore = 0.75

// Suggest ranks names by Jaro-Winkler similarity to query, for "did you
// mean" hints when a search comes back empty.
func Suggest(names []string, query string, limit int) []string {
	type scored struct {
		name  string
		score float64
	}
	seen := map[string]bool{}
	var candidates []scored
	for _, name := range names {
		if seen[name] {
			continue
		}
		seen[name] = true
		score := matchr.JaroWinkler(name, query, false)
		if score >= suggestMinScore {
			candidates = append(candidates, scored{name: name, score: score})
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	var out []string
	for i := 0; i < len(candidates) && i < limit; i++ {
		out = append(out, candidates[i].name)
	}
	return out
}
