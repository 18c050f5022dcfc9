package pathset

import "testing"

func TestIsAncestorOrEqual(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"/a", "/a", true},
		{"/a", "/a/b", true},
		{"/a", "/ab", false},
		{"/a/b", "/a", false},
	}
	for _, tt := range tests {
		if got := IsAncestorOrEqual(tt.a, tt.b); got != tt.want {
			t.Errorf("IsAncestorOrEqual(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestDeepestCommonAncestorsScenario5(t *testing.T) {
	// spec.md §8 Scenario 5.
	got := DeepestCommonAncestors([]string{"/a", "/a/b", "/a/b/c"})
	want := []string{"/a"}
	assertPaths(t, got, want)
}

func TestDeepestCommonAncestorsDisjointBranches(t *testing.T) {
	got := DeepestCommonAncestors([]string{"/root/dir1", "/root/dir2/dir3/file.txt", "/root/dir2/dir3", "/root/dir2/dir4"})
	want := []string{"/root/dir1", "/root/dir2/dir3", "/root/dir2/dir4"}
	assertPaths(t, got, want)
}

func TestDeepestCommonAncestorsCollapsesDuplicates(t *testing.T) {
	got := DeepestCommonAncestors([]string{"/root/dir1", "/root/dir1"})
	want := []string{"/root/dir1"}
	assertPaths(t, got, want)
}

func assertPaths(t *testing.T, got, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}
