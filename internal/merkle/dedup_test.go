package merkle

import "testing"

func TestRemoveRedundantPathsWithPriorityScenario4(t *testing.T) {
	// spec.md §8 Scenario 4.
	priority := []string{"/root/dir1", "/root/dir2/dir3/file.txt", "/root/dir2/dir3", "/root/dir2/dir4"}
	routine := []string{"/root/dir1"}

	got := RemoveRedundantPathsWithPriority("/root", priority, routine)
	want := []string{"/root/dir1", "/root/dir2/dir3", "/root/dir2/dir4"}

	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestRemoveRedundantPathsWithPriorityNilInputsCoerceToEmpty(t *testing.T) {
	got := RemoveRedundantPathsWithPriority("/root", nil, nil)
	if len(got) != 0 {
		t.Errorf("got %v, want empty", got)
	}
}

func TestRemoveRedundantPathsWithPrioritySingleElementPassesThrough(t *testing.T) {
	got := RemoveRedundantPathsWithPriority("/root", []string{"/root"}, nil)
	want := []string{"/root"}
	if len(got) != 1 || got[0] != want[0] {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestRemoveRedundantPathsWithPriorityStripsBareRootWhenMultiple(t *testing.T) {
	got := RemoveRedundantPathsWithPriority("/root", []string{"/root", "/root/dir1"}, nil)
	want := []string{"/root/dir1"}
	if len(got) != 1 || got[0] != want[0] {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestRemoveRedundantPathsWithPriorityStabilityUnderPartialReduction(t *testing.T) {
	// spec.md §8's stability property:
	// remove_redundant_paths_with_priority(P, R) ==
	//   remove_redundant_paths_with_priority(remove_redundant_paths_with_priority(P, []), R)
	priority := []string{"/root/dir1", "/root/dir2/dir3/file.txt", "/root/dir2/dir3", "/root/dir2/dir4"}
	routine := []string{"/root/dir1"}

	direct := RemoveRedundantPathsWithPriority("/root", priority, routine)

	reducedPriority := RemoveRedundantPathsWithPriority("/root", priority, nil)
	staged := RemoveRedundantPathsWithPriority("/root", reducedPriority, routine)

	if len(direct) != len(staged) {
		t.Fatalf("direct=%v staged=%v", direct, staged)
	}
	for i := range direct {
		if direct[i] != staged[i] {
			t.Fatalf("direct=%v staged=%v", direct, staged)
		}
	}
}
