package merkle

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/lucho00cuba/baseline-core/internal/fswalk"
	"github.com/lucho00cuba/baseline-core/internal/hashfn"
	"github.com/lucho00cuba/baseline-core/internal/model"
	"github.com/lucho00cuba/baseline-core/internal/store"
)

// LivenessChecker reports whether the REST boundary and hash store are
// reachable — step 4 of compute_merkle_tree (spec §4.4).
type LivenessChecker interface {
	Healthy(ctx context.Context) bool
}

// Engine computes directory fingerprints bottom-up, persists them through
// hs, and recomputes ancestor chains from stored child hashes. Grounded on
// original_source/integrity_check/merkle_tree_service.py.
type Engine struct {
	rootPath  string
	hashFn    hashfn.Function
	hashStore store.HashStore
	liveness  LivenessChecker
	logger    *slog.Logger

	livenessAttempts int
	livenessInterval time.Duration
}

// NewEngine constructs an Engine rooted at rootPath.
func NewEngine(rootPath string, hashFn hashfn.Function, hashStore store.HashStore, liveness LivenessChecker, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		rootPath:         filepath.Clean(rootPath),
		hashFn:           hashFn,
		hashStore:        hashStore,
		liveness:         liveness,
		logger:           logger,
		livenessAttempts: 5,
		livenessInterval: 30 * time.Second,
	}
}

// ComputeMerkleTree implements the 6-step algorithm in spec §4.4.
func (e *Engine) ComputeMerkleTree(ctx context.Context, dirPath, sessionID string) (string, error) {
	dirPath = filepath.Clean(dirPath)

	// Step 1: validate dirPath is a descendant of root_path.
	if !fswalk.IsUnderRoot(e.rootPath, dirPath) {
		return "", &TerminalError{State: StateInvalidPath, Err: fmt.Errorf("merkle: %q is not under root %q", dirPath, e.rootPath)}
	}

	// Step 2: find the deepest existing ancestor.
	existing, err := fswalk.FindDeepestExistingAncestor(e.rootPath, dirPath)
	if err != nil {
		return "", &TerminalError{State: StateWalkFailed, Err: err}
	}

	// Step 3: empty-root check.
	if existing == e.rootPath {
		empty, err := fswalk.IsDirEmpty(existing)
		if err != nil {
			return "", &TerminalError{State: StateWalkFailed, Err: err}
		}
		if empty {
			return "", &TerminalError{State: StateEmptyRoot, Err: fmt.Errorf("merkle: root %q is empty", e.rootPath)}
		}
	}

	// Step 4: liveness gate. Diverging deliberately from
	// original_source, which logs an error here but proceeds anyway —
	// spec's explicit "fail if unreachable" is authoritative (see
	// DESIGN.md).
	if e.liveness != nil && !e.checkLiveness(ctx) {
		return "", &TerminalError{State: StateUnreachable, Err: fmt.Errorf("merkle: REST+DB liveness check failed for %q", existing)}
	}

	// Step 5: recursive fingerprint + upsert.
	hash, err := e.computeRecursive(ctx, existing, sessionID)
	if err != nil {
		return "", &TerminalError{State: StateHashIOError, Err: err}
	}

	// Step 6: if below root_path, recompute ancestors from stored hashes.
	if existing != e.rootPath {
		if err := e.recomputeAncestors(ctx, existing, sessionID); err != nil {
			e.logger.Error("ancestor recomputation halted", "path", existing, "error", err)
			return "", &TerminalError{State: StateStoreFailed, Err: err}
		}
	}

	return hash, nil
}

// checkLiveness retries up to livenessAttempts times, livenessInterval
// apart, per spec §4.4's "≤5 attempts, 30s apart".
func (e *Engine) checkLiveness(ctx context.Context) bool {
	for attempt := 0; attempt < e.livenessAttempts; attempt++ {
		if e.liveness.Healthy(ctx) {
			return true
		}
		if attempt < e.livenessAttempts-1 {
			select {
			case <-ctx.Done():
				return false
			case <-time.After(e.livenessInterval):
			}
		}
	}
	return false
}

// computeRecursive implements the recursive fingerprint algorithm: for
// directory D, recurse into child dirs, hash child links/files, compose D's
// fingerprint per invariant 3, and upsert D plus every leaf child.
// current_content_hashes is recursion-local and never persisted, matching
// spec's explicit transient-state requirement.
func (e *Engine) computeRecursive(ctx context.Context, path, sessionID string) (string, error) {
	listing, skipped, err := fswalk.ListDir(path)
	if err != nil {
		return "", fmt.Errorf("merkle: list %q: %w", path, err)
	}
	if skipped > 0 {
		e.logger.Warn("skipped special files during walk", "path", path, "count", skipped)
	}

	childHashes := make(map[string]string, len(listing.Dirs)+len(listing.Files)+len(listing.Links))

	for _, name := range listing.Dirs {
		childPath := filepath.Join(path, name)
		h, err := e.computeRecursive(ctx, childPath, sessionID)
		if err != nil {
			return "", err
		}
		childHashes[name] = h
	}

	for _, name := range listing.Links {
		childPath := filepath.Join(path, name)
		target, err := fswalk.ReadLink(childPath)
		if err != nil {
			return "", fmt.Errorf("merkle: readlink %q: %w", childPath, err)
		}
		h := ComposeSymlinkHash(e.hashFn, childPath, target)
		childHashes[name] = h
		if err := e.upsertLeaf(ctx, childPath, h, sessionID); err != nil {
			return "", err
		}
	}

	for _, name := range listing.Files {
		childPath := filepath.Join(path, name)
		h, err := e.hashFile(childPath)
		if err != nil {
			return "", fmt.Errorf("merkle: hash file %q: %w", childPath, err)
		}
		childHashes[name] = h
		if err := e.upsertLeaf(ctx, childPath, h, sessionID); err != nil {
			return "", err
		}
	}

	dirHash, err := ComposeDirectoryHash(e.hashFn, path, listing, childHashes)
	if err != nil {
		return "", err
	}

	rec := &model.HashRecord{
		Path:        path,
		CurrentHash: dirHash,
		Dirs:        listing.Dirs,
		Files:       listing.Files,
		Links:       listing.Links,
		SessionID:   sessionID,
	}
	if _, err := e.hashStore.Upsert(ctx, rec); err != nil {
		return "", fmt.Errorf("merkle: upsert %q: %w", path, err)
	}

	return dirHash, nil
}

func (e *Engine) hashFile(path string) (string, error) {
	h := e.hashFn.NewHasher()
	if err := fswalk.ReadChunks(path, fswalk.DefaultChunkSize, func(chunk []byte) error {
		_, err := h.Write(chunk)
		return err
	}); err != nil {
		return "", err
	}
	sum := h.Sum(nil)
	return fmt.Sprintf("%x", sum), nil
}

func (e *Engine) upsertLeaf(ctx context.Context, path, hash, sessionID string) error {
	rec := &model.HashRecord{Path: path, CurrentHash: hash, SessionID: sessionID}
	_, err := e.hashStore.Upsert(ctx, rec)
	return err
}

// recomputeAncestors walks up from path to root, recomposing each ancestor's
// hash from stored child hashes only — never rewalking the filesystem, per
// spec §4.4's "Parent recomputation" section. A missing child hash is fatal
// for that ancestor and halts ascent (invariant_violation).
func (e *Engine) recomputeAncestors(ctx context.Context, path, sessionID string) error {
	cur := path
	for cur != e.rootPath {
		parent := filepath.Dir(cur)
		if !fswalk.IsUnderRoot(e.rootPath, parent) {
			return fmt.Errorf("merkle: ascent walked above root %q", e.rootPath)
		}

		parentRec, err := e.hashStore.Get(ctx, parent)
		if err != nil {
			return fmt.Errorf("merkle: get ancestor %q: %w", parent, err)
		}
		if parentRec == nil {
			return fmt.Errorf("merkle: ancestor %q has no stored record", parent)
		}

		childHashes := make(map[string]string, len(parentRec.Dirs)+len(parentRec.Files)+len(parentRec.Links))
		if err := e.collectChildHashes(ctx, parent, parentRec.Dirs, childHashes); err != nil {
			return err
		}
		if err := e.collectChildHashes(ctx, parent, parentRec.Files, childHashes); err != nil {
			return err
		}
		if err := e.collectChildHashes(ctx, parent, parentRec.Links, childHashes); err != nil {
			return err
		}

		listing := fswalk.Listing{Dirs: parentRec.Dirs, Files: parentRec.Files, Links: parentRec.Links}
		newHash, err := ComposeDirectoryHash(e.hashFn, parent, listing, childHashes)
		if err != nil {
			return fmt.Errorf("merkle: invariant_violation recomposing %q: %w", parent, err)
		}

		updated := *parentRec
		updated.CurrentHash = newHash
		updated.SessionID = sessionID
		if _, err := e.hashStore.Upsert(ctx, &updated); err != nil {
			return fmt.Errorf("merkle: upsert ancestor %q: %w", parent, err)
		}

		cur = parent
	}
	return nil
}

func (e *Engine) collectChildHashes(ctx context.Context, parent string, names []string, out map[string]string) error {
	for _, name := range names {
		name = strings.TrimSpace(name)
		childPath := filepath.Join(parent, name)
		v, err := e.hashStore.GetField(ctx, childPath, "current_hash")
		if err != nil {
			return fmt.Errorf("merkle: get_field current_hash %q: %w", childPath, err)
		}
		h, _ := v.(string)
		if h == "" {
			return fmt.Errorf("merkle: invariant_violation: missing stored current_hash for %q", childPath)
		}
		out[name] = h
	}
	return nil
}

// TerminalError carries the WorkItem terminal State a ComputeMerkleTree
// failure should record.
type TerminalError struct {
	State State
	Err   error
}

func (e *TerminalError) Error() string { return fmt.Sprintf("%s: %v", e.State, e.Err) }
func (e *TerminalError) Unwrap() error { return e.Err }
