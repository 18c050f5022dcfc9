// Package merkle implements C4: the recursive directory fingerprinting
// engine, parent recomputation, and work-list deduplication, grounded on
// original_source/integrity_check/merkle_tree_service.py and
// original_source/integrity_check/file_hasher.py, generalized to Go and to
// a pluggable hash algorithm per SPEC_FULL.md §3.
package merkle

import (
	"fmt"
	"sort"

	"github.com/lucho00cuba/baseline-core/internal/fswalk"
	"github.com/lucho00cuba/baseline-core/internal/hashfn"
)

// category names the three classified child buckets in the fixed
// dirs-then-files-then-links order invariant 3 requires.
type category struct {
	name  string
	names []string
}

// ComposeDirectoryHash implements invariant 3: the concatenation, in
// (dirs, files, links) order and ascending lexicographic order by name
// within each category, of either each child's fingerprint (if the category
// is non-empty) or the literal placeholder "{path}/{category}: EMPTY " (if
// the category is empty).
//
// childHashes maps a child *name* (not full path) to its already-computed
// fingerprint; it must contain an entry for every name in listing's three
// slices or ComposeDirectoryHash returns an invariant-violation error.
func ComposeDirectoryHash(f hashfn.Function, path string, listing fswalk.Listing, childHashes map[string]string) (string, error) {
	s, err := directoryHashable(path, listing, childHashes)
	if err != nil {
		return "", err
	}
	return f.HashString(s), nil
}

func directoryHashable(path string, listing fswalk.Listing, childHashes map[string]string) (string, error) {
	categories := []category{
		{"dirs", sortedCopy(listing.Dirs)},
		{"files", sortedCopy(listing.Files)},
		{"links", sortedCopy(listing.Links)},
	}

	out := ""
	for _, cat := range categories {
		if len(cat.names) == 0 {
			out += EmptyPlaceholder(path, cat.name)
			continue
		}
		for _, name := range cat.names {
			h, ok := childHashes[name]
			if !ok {
				return "", fmt.Errorf("merkle: missing fingerprint for child %q of %q (category %s)", name, path, cat.name)
			}
			out += h
		}
	}
	return out, nil
}

func sortedCopy(names []string) []string {
	out := make([]string, len(names))
	copy(out, names)
	sort.Strings(out)
	return out
}

// EmptyPlaceholder is the literal string substituted for an empty category,
// per invariant 3 and spec §8's "Boundary behaviors" section.
func EmptyPlaceholder(path, category string) string {
	return fmt.Sprintf("%s/%s: EMPTY ", path, category)
}

// ComposeSymlinkHash implements invariant 4: H("{path} -> {target}").
func ComposeSymlinkHash(f hashfn.Function, path, target string) string {
	return f.HashString(fmt.Sprintf("%s -> %s", path, target))
}
