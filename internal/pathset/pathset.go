// Package pathset provides the ancestor/descendant primitives shared by the
// store's priority_updates() dedup and the merkle engine's work-list
// deduplication (spec §4.2, §4.4).
package pathset

import (
	"path/filepath"
	"sort"
	"strings"
)

// IsAncestorOrEqual reports whether a is an ancestor of b, or a == b.
func IsAncestorOrEqual(a, b string) bool {
	a = filepath.Clean(a)
	b = filepath.Clean(b)
	if a == b {
		return true
	}
	prefix := a
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return strings.HasPrefix(b, prefix)
}

// Depth counts path separators, used to order paths shallowest-first.
func Depth(p string) int {
	return strings.Count(filepath.Clean(p), "/")
}

// DeepestCommonAncestors keeps only the paths in order for which no other
// *distinct* path in the input is an ancestor-or-equal of it; duplicate
// occurrences of the same path collapse to the first. This is the
// "deduplicate to deepest common ancestors" rule named in spec §4.2 and
// §4.4 — despite the name, the surviving set is the set of *shallowest*
// entries on each ancestor chain (spec §8 Scenario 5: /a, /a/b, /a/b/c all
// drifted reduces to ["/a"]), since a shallower path's composition already
// subsumes its descendants.
func DeepestCommonAncestors(paths []string) []string {
	seen := make(map[string]bool, len(paths))
	var ordered []string
	for _, p := range paths {
		if seen[p] {
			continue
		}
		seen[p] = true
		ordered = append(ordered, p)
	}

	kept := make([]bool, len(ordered))
	for i := range kept {
		kept[i] = true
	}
	for i, p := range ordered {
		if !kept[i] {
			continue
		}
		for j, q := range ordered {
			if i == j || !kept[j] {
				continue
			}
			if p == q {
				continue
			}
			if IsAncestorOrEqual(q, p) && !IsAncestorOrEqual(p, q) {
				kept[i] = false
				break
			}
			// Equal-depth, distinct-path case never trips
			// IsAncestorOrEqual both ways, so no further tie-break needed.
		}
	}

	var result []string
	for i, p := range ordered {
		if kept[i] {
			result = append(result, p)
		}
	}
	return result
}

// SortByDepthThenLex orders paths per spec's priority_updates() ordering
// ("ascending depth then lexicographic").
func SortByDepthThenLex(paths []string) {
	sort.SliceStable(paths, func(i, j int) bool {
		di, dj := Depth(paths[i]), Depth(paths[j])
		if di != dj {
			return di < dj
		}
		return paths[i] < paths[j]
	})
}
