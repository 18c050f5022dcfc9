package merkle

import "github.com/lucho00cuba/baseline-core/internal/pathset"

// RemoveRedundantPathsWithPriority implements the work-list dedup algorithm
// of spec §4.4, grounded on
// original_source/integrity_check/merkle_tree_service.py's
// remove_redundant_paths_with_priority/_remove_redundant_paths.
//
// root is the deployment's configured root_path, used by step 1 to strip
// bare top-level-root entries when a list has more than one element (a
// schedule containing the whole root plus better-scoped work should not let
// the root swamp everything else).
func RemoveRedundantPathsWithPriority(root string, priority, routine []string) []string {
	priority = stripBareRoot(root, priority)
	routine = stripBareRoot(root, routine)

	if len(priority) == 0 && len(routine) == 0 {
		return nil
	}

	dedupedPriority := pathset.DeepestCommonAncestors(priority)

	combined := append(append([]string{}, dedupedPriority...), routine...)
	return pathset.DeepestCommonAncestors(combined)
}

// stripBareRoot removes every occurrence of the literal root path from
// paths, but only when paths has more than one element — a single-element
// list (even [root]) passes through unchanged, per spec's edge cases.
func stripBareRoot(root string, paths []string) []string {
	if len(paths) <= 1 {
		return paths
	}
	var out []string
	for _, p := range paths {
		if p == root {
			continue
		}
		out = append(out, p)
	}
	return out
}
