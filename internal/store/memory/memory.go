// Package memory is an in-memory HashStore/LogStore, used by tests and by
// the teacher's retained debug CLI. It implements the exact same upsert,
// priority/oldest/orphan/untracked, and log semantics as the SQLite backend,
// validated against the same contract.
package memory

import (
	"context"
	"math"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/lucho00cuba/baseline-core/internal/apperr"
	"github.com/lucho00cuba/baseline-core/internal/model"
	"github.com/lucho00cuba/baseline-core/internal/pathset"
	"github.com/lucho00cuba/baseline-core/internal/store"
)

// Store is a sync.RWMutex-guarded in-memory backend.
type Store struct {
	mu      sync.RWMutex
	records map[string]*model.HashRecord
	logs    map[int64]*model.LogEntry
	nextLog int64
	locker  *store.PathLocker
	now     func() int64
}

// New constructs an empty Store. now defaults to the wall clock if nil.
func New(now func() int64) *Store {
	if now == nil {
		now = func() int64 { return time.Now().Unix() }
	}
	return &Store{
		records: make(map[string]*model.HashRecord),
		logs:    make(map[int64]*model.LogEntry),
		locker:  store.NewPathLocker(),
		now:     now,
	}
}

var _ store.HashStore = (*Store)(nil)
var _ store.LogStore = (*Store)(nil)

func (s *Store) Get(_ context.Context, path string) (*model.HashRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[path]
	if !ok {
		return nil, nil
	}
	cp := *r
	return &cp, nil
}

func (s *Store) GetField(ctx context.Context, path, field string) (any, error) {
	r, err := s.Get(ctx, path)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, nil
	}
	switch field {
	case "current_hash":
		return r.CurrentHash, nil
	case "current_dtg_latest":
		return r.CurrentDTGLatest, nil
	default:
		return nil, apperr.Validationf("unsupported field %q", field)
	}
}

// Upsert implements the 3-case semantics of spec §4.2 under the per-path
// stripe lock (invariant 7).
func (s *Store) Upsert(_ context.Context, record *model.HashRecord) (*store.UpsertResult, error) {
	if record.Path == "" || record.CurrentHash == "" {
		return nil, apperr.Validationf("path and current_hash are required")
	}

	unlock := s.locker.Lock(record.Path)
	defer unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	existing, had := s.records[record.Path]
	result := &store.UpsertResult{}

	next := *record
	if !had {
		next.CurrentDTGFirst = now
		next.CurrentDTGLatest = now
		next.PrevHash = ""
		next.PrevDTGLatest = 0
		result.Created = true
	} else if existing.CurrentHash == record.CurrentHash {
		next = *existing
		next.CurrentDTGLatest = now
		// Case 3: no other field changes, including children listings.
		s.records[record.Path] = &next
		return result, nil
	} else {
		next.PrevHash = existing.CurrentHash
		next.PrevDTGLatest = existing.CurrentDTGLatest
		next.CurrentDTGFirst = now
		next.CurrentDTGLatest = now
		result.Modified = true
	}

	var deletedChildren []string
	if had {
		deletedChildren = append(deletedChildren, diffChildren(record.Path, existing.Dirs, next.Dirs)...)
		deletedChildren = append(deletedChildren, diffChildren(record.Path, existing.Files, next.Files)...)
		deletedChildren = append(deletedChildren, diffChildren(record.Path, existing.Links, next.Links)...)
	}

	s.records[record.Path] = &next

	for _, childPath := range deletedChildren {
		s.deleteRecursiveLocked(childPath)
		result.Deleted = append(result.Deleted, childPath)
	}

	return result, nil
}

func diffChildren(parent string, oldNames, newNames []string) []string {
	newSet := make(map[string]bool, len(newNames))
	for _, n := range newNames {
		newSet[strings.TrimSpace(n)] = true
	}
	var removed []string
	for _, n := range oldNames {
		n = strings.TrimSpace(n)
		if !newSet[n] {
			removed = append(removed, filepath.Join(parent, n))
		}
	}
	return removed
}

// deleteRecursiveLocked removes path and, transitively, every child it
// still references — invariant 1's "recursively delete children at those
// paths". Caller must hold s.mu.
func (s *Store) deleteRecursiveLocked(path string) {
	r, ok := s.records[path]
	if !ok {
		return
	}
	delete(s.records, path)
	for _, category := range [][]string{r.Dirs, r.Files, r.Links} {
		for _, name := range category {
			s.deleteRecursiveLocked(filepath.Join(path, strings.TrimSpace(name)))
		}
	}
}

func (s *Store) Delete(_ context.Context, path string) (bool, error) {
	unlock := s.locker.Lock(path)
	defer unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.records[path]
	if !ok {
		return false, nil
	}
	s.deleteRecursiveLocked(path)
	return true, nil
}

func (s *Store) PriorityUpdates(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var drifted []string
	for p, r := range s.records {
		if r.Drifted() {
			drifted = append(drifted, p)
		}
	}
	pathset.SortByDepthThenLex(drifted)
	return pathset.DeepestCommonAncestors(drifted), nil
}

func (s *Store) OldestUpdates(_ context.Context, root string, percent int) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.records[root]
	if !ok {
		return []string{root}, nil
	}
	var children []string
	children = append(children, r.Dirs...)
	children = append(children, r.Files...)
	children = append(children, r.Links...)
	if len(children) == 0 {
		return []string{root}, nil
	}

	type childAge struct {
		path string
		age  int64
	}
	ages := make([]childAge, 0, len(children))
	for _, name := range children {
		childPath := filepath.Join(root, strings.TrimSpace(name))
		cr, ok := s.records[childPath]
		var age int64
		if ok {
			age = cr.CurrentDTGLatest
		}
		ages = append(ages, childAge{childPath, age})
	}
	sort.SliceStable(ages, func(i, j int) bool { return ages[i].age < ages[j].age })

	n := len(ages)
	count := int(math.Ceil(float64(n) * float64(percent) / 100.0))
	if count < 1 {
		count = 1
	}
	if count > n {
		count = n
	}

	out := make([]string, count)
	for i := 0; i < count; i++ {
		out[i] = ages[i].path
	}
	return out, nil
}

func (s *Store) FindOrphans(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	referenced := s.referencedChildPaths()
	var orphans []string
	for p := range s.records {
		if p == "" {
			continue
		}
		if !referenced[p] && !s.isRootPath(p) {
			orphans = append(orphans, p)
		}
	}
	sort.Strings(orphans)
	return orphans, nil
}

func (s *Store) FindUntracked(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var untracked []string
	for _, r := range s.records {
		for _, category := range [][]string{r.Dirs, r.Files, r.Links} {
			for _, name := range category {
				childPath := filepath.Join(r.Path, strings.TrimSpace(name))
				if _, ok := s.records[childPath]; !ok {
					untracked = append(untracked, childPath)
				}
			}
		}
	}
	sort.Strings(untracked)
	return untracked, nil
}

// referencedChildPaths returns every path referenced by some parent's child
// listing, used by both FindOrphans and isRootPath.
func (s *Store) referencedChildPaths() map[string]bool {
	referenced := make(map[string]bool)
	for _, r := range s.records {
		for _, category := range [][]string{r.Dirs, r.Files, r.Links} {
			for _, name := range category {
				referenced[filepath.Join(r.Path, strings.TrimSpace(name))] = true
			}
		}
	}
	return referenced
}

// isRootPath heuristically treats the shallowest tracked path as "the root"
// so it is never misclassified as orphaned (invariant 2: "every record
// except one root").
func (s *Store) isRootPath(path string) bool {
	shallowest := path
	for _, r := range s.records {
		if pathset.Depth(r.Path) < pathset.Depth(shallowest) {
			shallowest = r.Path
		}
	}
	return path == shallowest
}

func (s *Store) Health(_ context.Context) bool { return true }

func (s *Store) Counts(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.records)), nil
}

func (s *Store) PutLog(_ context.Context, entry *model.LogEntry) (int64, error) {
	if entry.SummaryMessage == "" {
		return 0, apperr.Validationf("summary_message is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextLog++
	cp := *entry
	cp.LogID = s.nextLog
	cp.LogLevel = model.NormalizeLogLevel(string(entry.LogLevel))
	if cp.Timestamp == 0 {
		cp.Timestamp = s.now()
	}
	s.logs[cp.LogID] = &cp
	return cp.LogID, nil
}

func (s *Store) GetLogs(_ context.Context, q store.LogQuery) ([]*model.LogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*model.LogEntry
	for _, e := range s.logs {
		if q.OnlyShippable && e.SessionID != "" {
			continue
		}
		if q.SessionIDFilter != "" && e.SessionID != q.SessionIDFilter {
			continue
		}
		if q.OlderThanDays > 0 {
			cutoff := s.now() - int64(q.OlderThanDays)*86400
			if e.Timestamp >= cutoff {
				continue
			}
		}
		cp := *e
		out = append(out, &cp)
	}

	orderBy := q.OrderBy
	if orderBy == "" {
		orderBy = "log_id"
	}
	asc := !strings.EqualFold(q.OrderDir, "DESC")
	sort.SliceStable(out, func(i, j int) bool {
		less := logLess(out[i], out[j], orderBy)
		if asc {
			return less
		}
		return !less && out[i].LogID != out[j].LogID
	})

	if q.Offset > 0 && q.Offset < len(out) {
		out = out[q.Offset:]
	} else if q.Offset >= len(out) {
		out = nil
	}
	if q.Limit > 0 && q.Limit < len(out) {
		out = out[:q.Limit]
	}
	return out, nil
}

func logLess(a, b *model.LogEntry, orderBy string) bool {
	switch orderBy {
	case "timestamp":
		return a.Timestamp < b.Timestamp
	case "log_level":
		return a.LogLevel < b.LogLevel
	case "site_id":
		return a.SiteID < b.SiteID
	default:
		return a.LogID < b.LogID
	}
}

func (s *Store) DeleteLogs(_ context.Context, ids []int64) ([]int64, []int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted, failed []int64
	for _, id := range ids {
		if _, ok := s.logs[id]; ok {
			delete(s.logs, id)
			deleted = append(deleted, id)
		} else {
			failed = append(failed, id)
		}
	}
	return deleted, failed, nil
}

// ConsolidateLogs coalesces repeated identical (site_id, log_level,
// summary_message) entries within the same session into one, keeping the
// latest timestamp — an implementation-defined, idempotent roll-up per
// spec §4.2.
func (s *Store) ConsolidateLogs(_ context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	type key struct {
		session, site, level, summary string
	}
	groups := make(map[key][]*model.LogEntry)
	for _, e := range s.logs {
		k := key{e.SessionID, e.SiteID, string(e.LogLevel), e.SummaryMessage}
		groups[k] = append(groups[k], e)
	}

	for _, entries := range groups {
		if len(entries) <= 1 {
			continue
		}
		latest := entries[0]
		for _, e := range entries[1:] {
			if e.Timestamp > latest.Timestamp {
				latest = e
			}
		}
		for _, e := range entries {
			if e.LogID != latest.LogID {
				delete(s.logs, e.LogID)
			}
		}
	}
	return true, nil
}

func (s *Store) LogCounts(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.logs)), nil
}
