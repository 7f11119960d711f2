package local

import (
	"cmp"
	"slices"
	"strings"
)

// Match tiers, best first.
const (
	tierExact = iota
	tierPrefix
	tierWordPrefix
	tierContains
)

// rank orders items by how well their label matches query: exact, prefix,
// word prefix, then any other match. The input order breaks ties.
func rank[T any](items []T, query string, label func(T) string) []T {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" || len(items) < 2 {
		return items
	}
	tiers := make(map[int]int, len(items))
	idx := make([]int, len(items))
	for i, it := range items {
		idx[i] = i
		tiers[i] = tier(strings.ToLower(label(it)), q)
	}
	slices.SortStableFunc(idx, func(a, b int) int { return cmp.Compare(tiers[a], tiers[b]) })

	out := make([]T, len(items))
	for i, j := range idx {
		out[i] = items[j]
	}
	return out
}

func tier(label, q string) int {
	switch {
	case label == q:
		return tierExact
	case strings.HasPrefix(label, q):
		return tierPrefix
	}
	for _, w := range strings.FieldsFunc(label, isSeparator) {
		if strings.HasPrefix(w, q) {
			return tierWordPrefix
		}
	}
	return tierContains
}

func isSeparator(r rune) bool {
	return r == ' ' || r == '-' || r == '_' || r == '.' || r == '/'
}
