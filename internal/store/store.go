// Package store defines the narrow C2 contract (spec §4.2): HashStore and
// LogStore interfaces, shared by an in-memory backend (internal/store/memory)
// and a SQLite-backed one (internal/store/sqlite).
package store

import (
	"context"

	"github.com/lucho00cuba/baseline-core/internal/model"
)

// HashRecord and LogEntry are re-exported so callers of this package need
// not also import internal/model for the common case.
type HashRecord = model.HashRecord
type LogEntry = model.LogEntry

// HashStore is the hash-record half of the C2 contract.
type HashStore interface {
	// Get returns the record at path, or (nil, nil) if absent — a backend
	// failure returns (nil, err) with err's Kind set per apperr, never a
	// bare panic or throw across this interface.
	Get(ctx context.Context, path string) (*HashRecord, error)

	// GetField returns one scalar field ("current_hash" or
	// "current_dtg_latest") for path, or (nil, nil) if absent.
	GetField(ctx context.Context, path, field string) (any, error)

	// Upsert applies the 3-case upsert semantics of spec §4.2 and returns
	// the set of changes it produced (created/modified/deleted).
	Upsert(ctx context.Context, record *HashRecord) (*UpsertResult, error)

	// Delete removes the record at path, reporting whether a row existed.
	Delete(ctx context.Context, path string) (bool, error)

	// PriorityUpdates returns every path whose target_hash diverges from
	// current_hash, deduplicated to deepest common ancestors.
	PriorityUpdates(ctx context.Context) ([]string, error)

	// OldestUpdates returns the oldest ceil(n*percent/100) immediate
	// children of root by current_dtg_latest (or [root] if root has no
	// children or does not exist).
	OldestUpdates(ctx context.Context, root string, percent int) ([]string, error)

	// FindOrphans returns records not referenced by any parent's child
	// listing.
	FindOrphans(ctx context.Context) ([]string, error)

	// FindUntracked returns child names referenced by some parent that
	// have no own record.
	FindUntracked(ctx context.Context) ([]string, error)

	// Health reports whether the hash store backend is reachable.
	Health(ctx context.Context) bool

	// Counts reports row counts for the health endpoint's supplemental
	// record_counts field (SPEC_FULL.md §5).
	Counts(ctx context.Context) (hashRecords int64, err error)
}

// LogStore is the log-entry half of the C2 contract.
type LogStore interface {
	PutLog(ctx context.Context, entry *LogEntry) (int64, error)
	GetLogs(ctx context.Context, q LogQuery) ([]*LogEntry, error)
	DeleteLogs(ctx context.Context, ids []int64) (deleted []int64, failed []int64, err error)
	ConsolidateLogs(ctx context.Context) (bool, error)
	Health(ctx context.Context) bool
	LogCounts(ctx context.Context) (int64, error)
}

// LogQuery parameters match the GET /api/logs surface in spec §6.1.
type LogQuery struct {
	Limit          int
	Offset         int
	OrderBy        string // one of log_id, timestamp, log_level, site_id
	OrderDir       string // ASC or DESC
	SessionIDFilter string
	OlderThanDays  int // 0 means "unset"
	OnlyShippable  bool // session_id IS NULL
}

// UpsertResult summarizes what one Upsert call changed, per spec §4.2's
// "emit a created/modified/deleted change" language.
type UpsertResult struct {
	Created bool
	Modified bool
	Deleted []string
}
