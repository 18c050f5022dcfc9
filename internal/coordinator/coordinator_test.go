package coordinator

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/lucho00cuba/baseline-core/internal/hashfn"
	"github.com/lucho00cuba/baseline-core/internal/merkle"
	"github.com/lucho00cuba/baseline-core/internal/model"
	memstore "github.com/lucho00cuba/baseline-core/internal/store/memory"
)

type alwaysHealthy struct{}

func (alwaysHealthy) Healthy(context.Context) bool { return true }

// fakeRemote is a RemoteReporter backed by a fixed set of core-side records,
// recording whatever body the coordinator posts to /api/remote_status.
type fakeRemote struct {
	records  map[string]*model.HashRecord
	posted   map[string]any
	postPath string
}

func (f *fakeRemote) GetRecord(_ context.Context, path string) (*model.HashRecord, error) {
	return f.records[path], nil
}

func (f *fakeRemote) Post(_ context.Context, path string, body, _ any) error {
	f.postPath = path
	f.posted = body.(map[string]any)
	return nil
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRunRemoteReportsMismatchAndMissing(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "a.txt"), []byte("hello"), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	f, err := hashfn.New(hashfn.SHA256)
	if err != nil {
		t.Fatalf("hashfn.New: %v", err)
	}
	hs := memstore.New(nil)
	engine := merkle.NewEngine(root, f, hs, alwaysHealthy{}, newTestLogger())

	// Precompute locally so we know the exact hash the core can disagree with.
	ctx := context.Background()
	localRootHash, err := engine.ComputeMerkleTree(ctx, root, model.NewSessionID())
	if err != nil {
		t.Fatalf("ComputeMerkleTree: %v", err)
	}

	remote := &fakeRemote{records: map[string]*model.HashRecord{
		root: {Path: root, CurrentHash: "core-has-a-different-hash"},
		// filepath.Join(root, "a.txt") intentionally absent: missing-core.
	}}

	c := New(hs, hs, engine, nil, remote, "remote-site-a", root, false, false, newTestLogger())
	if err := c.runRemote(ctx); err != nil {
		t.Fatalf("runRemote: %v", err)
	}

	if remote.postPath != "/api/remote_status" {
		t.Fatalf("posted to %q, want /api/remote_status", remote.postPath)
	}
	if remote.posted["site_name"] != "remote-site-a" {
		t.Errorf("site_name = %v, want remote-site-a", remote.posted["site_name"])
	}
	updates, ok := remote.posted["updates"].([]model.RemoteStatusUpdate)
	if !ok {
		t.Fatalf("updates has unexpected type %T", remote.posted["updates"])
	}

	var sawRootMismatch, sawChildMissingCore bool
	for _, u := range updates {
		switch u.Path {
		case root:
			sawRootMismatch = true
			if u.LocalHash == nil || *u.LocalHash != localRootHash {
				t.Errorf("root LocalHash = %v, want %q", u.LocalHash, localRootHash)
			}
			if u.CoreHash == nil || *u.CoreHash != "core-has-a-different-hash" {
				t.Errorf("root CoreHash = %v, want core-has-a-different-hash", u.CoreHash)
			}
		case filepath.Join(root, "a.txt"):
			sawChildMissingCore = true
			if u.CoreHash != nil {
				t.Errorf("child CoreHash = %v, want nil (missing on core)", u.CoreHash)
			}
		}
	}
	if !sawRootMismatch {
		t.Errorf("expected a mismatch update for the root path")
	}
	if !sawChildMissingCore {
		t.Errorf("expected a missing-core update for the child file, since root mismatch descends into it")
	}

	// The divergent root record's target_hash is updated to the core's
	// reported value, so a later runCore-side comparison can see the drift.
	got, err := hs.Get(ctx, root)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.TargetHash != "core-has-a-different-hash" {
		t.Errorf("TargetHash = %q, want core-has-a-different-hash", got.TargetHash)
	}
}

func TestRunRemoteShortCircuitsEqualSubtrees(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "a.txt"), []byte("hello"), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	f, err := hashfn.New(hashfn.SHA256)
	if err != nil {
		t.Fatalf("hashfn.New: %v", err)
	}
	hs := memstore.New(nil)
	engine := merkle.NewEngine(root, f, hs, alwaysHealthy{}, newTestLogger())

	ctx := context.Background()
	localRootHash, err := engine.ComputeMerkleTree(ctx, root, model.NewSessionID())
	if err != nil {
		t.Fatalf("ComputeMerkleTree: %v", err)
	}

	// Core agrees with the root hash but has nothing recorded for the
	// child; without short-circuiting, runRemote would still report it.
	remote := &fakeRemote{records: map[string]*model.HashRecord{
		root: {Path: root, CurrentHash: localRootHash},
	}}

	c := New(hs, hs, engine, nil, remote, "remote-site-a", root, false, true, newTestLogger())
	if err := c.runRemote(ctx); err != nil {
		t.Fatalf("runRemote: %v", err)
	}

	if remote.posted != nil {
		t.Errorf("expected no post when the root hashes match and short-circuiting is enabled, got %v", remote.posted)
	}
}
