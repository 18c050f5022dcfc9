package hashfn

import "testing"

func TestNewKnownAlgorithms(t *testing.T) {
	tests := []struct {
		name string
		alg  Algorithm
	}{
		{"sha1", SHA1},
		{"sha256", SHA256},
		{"blake3", BLAKE3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := New(tt.alg)
			if err != nil {
				t.Fatalf("New(%q) returned error: %v", tt.alg, err)
			}
			if f.Algorithm() != tt.alg {
				t.Errorf("Algorithm() = %q, want %q", f.Algorithm(), tt.alg)
			}
		})
	}
}

func TestNewUnknownAlgorithm(t *testing.T) {
	if _, err := New("md5"); err == nil {
		t.Errorf("expected error for unknown algorithm")
	}
}

func TestSHA1HashStringMatchesWorkedScenario(t *testing.T) {
	// spec.md §8 Scenario 1: empty-directory placeholder composition.
	f, err := New(SHA1)
	if err != nil {
		t.Fatalf("New(SHA1): %v", err)
	}
	got := f.HashString("/b/empty/dirs: EMPTY /b/empty/files: EMPTY /b/empty/links: EMPTY ")
	want := "b93bd91d6f80da4c57215471d70883823c462247"
	if got != want {
		t.Errorf("HashString() = %q, want %q", got, want)
	}
}

func TestSHA1HashStringSymlinkScenario(t *testing.T) {
	// spec.md §8 Scenario 3.
	f, err := New(SHA1)
	if err != nil {
		t.Fatalf("New(SHA1): %v", err)
	}
	got := f.HashString("/b/dir2/lnk1 -> dir1/file1")
	want := "ab0c4fbdbef08641341580b09da4df151cff6bb3"
	if got != want {
		t.Errorf("HashString() = %q, want %q", got, want)
	}
}

func TestSumConsistentWithNewHasher(t *testing.T) {
	f, err := New(SHA256)
	if err != nil {
		t.Fatalf("New(SHA256): %v", err)
	}
	h := f.NewHasher()
	h.Write([]byte("hello"))
	viaHasher := h.Sum(nil)

	viaSum := Sum(f, []byte("hello"))
	if hexEncode(viaHasher) != viaSum {
		t.Errorf("Sum() = %q, want %q", viaSum, hexEncode(viaHasher))
	}
}

func hexEncode(b []byte) string {
	const hexDigits = "0123456789abcdef"
	out := make([]byte, len(b)*2)
	for i, c := range b {
		out[i*2] = hexDigits[c>>4]
		out[i*2+1] = hexDigits[c&0x0f]
	}
	return string(out)
}
