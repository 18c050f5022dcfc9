package merkle

import (
	"testing"

	"github.com/lucho00cuba/baseline-core/internal/fswalk"
	"github.com/lucho00cuba/baseline-core/internal/hashfn"
)

func TestComposeDirectoryHashAllEmpty(t *testing.T) {
	// spec.md §8 Scenario 1.
	f, err := hashfn.New(hashfn.SHA1)
	if err != nil {
		t.Fatalf("hashfn.New: %v", err)
	}
	got, err := ComposeDirectoryHash(f, "/b/empty", fswalk.Listing{}, nil)
	if err != nil {
		t.Fatalf("ComposeDirectoryHash: %v", err)
	}
	want := "b93bd91d6f80da4c57215471d70883823c462247"
	if got != want {
		t.Errorf("ComposeDirectoryHash() = %q, want %q", got, want)
	}
}

func TestComposeDirectoryHashOneFileInvariant3Order(t *testing.T) {
	// spec.md §8 Scenario 2 names H_file1 =
	// da39a3ee5e6b4b0d3255bfef95601890afd80709 for an empty-content file.
	// invariant 3's canonical order is dirs, then files, then links — the
	// literal worked string in §8 reflects the legacy inconsistent order
	// spec §9's Open Questions calls out, not invariant 3 itself; this test
	// asserts the canonical composition (see DESIGN.md).
	f, err := hashfn.New(hashfn.SHA1)
	if err != nil {
		t.Fatalf("hashfn.New: %v", err)
	}
	listing := fswalk.Listing{Files: []string{"file1"}}
	childHashes := map[string]string{"file1": "da39a3ee5e6b4b0d3255bfef95601890afd80709"}

	got, err := ComposeDirectoryHash(f, "/b/dir1", listing, childHashes)
	if err != nil {
		t.Fatalf("ComposeDirectoryHash: %v", err)
	}

	want := f.HashString(
		EmptyPlaceholder("/b/dir1", "dirs") +
			"da39a3ee5e6b4b0d3255bfef95601890afd80709" +
			EmptyPlaceholder("/b/dir1", "links"),
	)
	if got != want {
		t.Errorf("ComposeDirectoryHash() = %q, want %q", got, want)
	}
}

func TestComposeDirectoryHashMissingChildFingerprintIsError(t *testing.T) {
	f, err := hashfn.New(hashfn.SHA1)
	if err != nil {
		t.Fatalf("hashfn.New: %v", err)
	}
	listing := fswalk.Listing{Files: []string{"file1"}}
	if _, err := ComposeDirectoryHash(f, "/b/dir1", listing, nil); err == nil {
		t.Errorf("expected error for missing child fingerprint")
	}
}

func TestComposeSymlinkHash(t *testing.T) {
	// spec.md §8 Scenario 3.
	f, err := hashfn.New(hashfn.SHA1)
	if err != nil {
		t.Fatalf("hashfn.New: %v", err)
	}
	got := ComposeSymlinkHash(f, "/b/dir2/lnk1", "dir1/file1")
	want := "ab0c4fbdbef08641341580b09da4df151cff6bb3"
	if got != want {
		t.Errorf("ComposeSymlinkHash() = %q, want %q", got, want)
	}
}

func TestComposeDirectoryHashOrderIndependentOfInputOrder(t *testing.T) {
	// spec §8's permutation-testable property: hash(D) depends only on the
	// sorted child names per category.
	f, err := hashfn.New(hashfn.SHA256)
	if err != nil {
		t.Fatalf("hashfn.New: %v", err)
	}
	childHashes := map[string]string{"a": "ha", "b": "hb", "c": "hc"}

	h1, err := ComposeDirectoryHash(f, "/d", fswalk.Listing{Files: []string{"a", "b", "c"}}, childHashes)
	if err != nil {
		t.Fatalf("ComposeDirectoryHash: %v", err)
	}
	h2, err := ComposeDirectoryHash(f, "/d", fswalk.Listing{Files: []string{"c", "a", "b"}}, childHashes)
	if err != nil {
		t.Fatalf("ComposeDirectoryHash: %v", err)
	}
	if h1 != h2 {
		t.Errorf("expected permutation-invariant hash, got %q vs %q", h1, h2)
	}
}
