// Package sqlite is the relational C2 backend, built on modernc.org/sqlite
// (a pure-Go, cgo-free driver) through database/sql. Upsert semantics are
// grounded on original_source/squishy_REST_API/database_client/
// local_mysql.py's insert_or_update_hash.
package sqlite

import (
	"context"
	_ "embed"
	"database/sql"
	"fmt"
	"log/slog"
	"math"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/lucho00cuba/baseline-core/internal/apperr"
	"github.com/lucho00cuba/baseline-core/internal/model"
	"github.com/lucho00cuba/baseline-core/internal/pathset"
	"github.com/lucho00cuba/baseline-core/internal/store"
)

//go:embed schema.sql
var schemaSQL string

// Store is the SQLite-backed HashStore + LogStore.
type Store struct {
	db     *sql.DB
	locker *store.PathLocker
	logger *slog.Logger
	now    func() int64
}

// Open opens (creating if absent) the SQLite file at path and applies the
// schema.
func Open(path string, logger *slog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // modernc.org/sqlite serializes writers per file anyway

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: apply schema: %w", err)
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Store{
		db:     db,
		locker: store.NewPathLocker(),
		logger: logger,
		now:    func() int64 { return time.Now().Unix() },
	}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

// DB exposes the underlying *sql.DB so other components backed by the same
// database file (e.g. internal/pipeline/sqlitestub) can share one handle
// instead of opening a second connection pool.
func (s *Store) DB() *sql.DB { return s.db }

var _ store.HashStore = (*Store)(nil)
var _ store.LogStore = (*Store)(nil)

func joinNames(names []string) string {
	trimmed := make([]string, 0, len(names))
	for _, n := range names {
		trimmed = append(trimmed, strings.TrimSpace(n))
	}
	return strings.Join(trimmed, ",")
}

func splitNames(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func scanRecord(row interface{ Scan(...any) error }) (*model.HashRecord, error) {
	var r model.HashRecord
	var prevHash, targetHash, sessionID sql.NullString
	var prevDTG sql.NullInt64
	var dirs, files, links string

	if err := row.Scan(&r.Path, &r.CurrentHash, &r.CurrentDTGFirst, &r.CurrentDTGLatest,
		&prevHash, &prevDTG, &targetHash, &dirs, &files, &links, &sessionID); err != nil {
		return nil, err
	}
	r.PrevHash = prevHash.String
	r.PrevDTGLatest = prevDTG.Int64
	r.TargetHash = targetHash.String
	r.SessionID = sessionID.String
	r.Dirs = splitNames(dirs)
	r.Files = splitNames(files)
	r.Links = splitNames(links)
	return &r, nil
}

const recordColumns = `path, current_hash, current_dtg_first, current_dtg_latest, prev_hash, prev_dtg_latest, target_hash, dirs, files, links, session_id`

func (s *Store) Get(ctx context.Context, path string) (*model.HashRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM hash_records WHERE path = ?`, path)
	r, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		s.logger.Error("get hash record failed", "path", path, "error", err)
		return nil, apperr.Wrap(apperr.StoreUnavailable, "get hash record", err)
	}
	return r, nil
}

func (s *Store) GetField(ctx context.Context, path, field string) (any, error) {
	switch field {
	case "current_hash":
		var h string
		err := s.db.QueryRowContext(ctx, `SELECT current_hash FROM hash_records WHERE path = ?`, path).Scan(&h)
		if err == sql.ErrNoRows {
			return nil, nil
		}
		if err != nil {
			return nil, apperr.Wrap(apperr.StoreUnavailable, "get_field current_hash", err)
		}
		return h, nil
	case "current_dtg_latest":
		var ts int64
		err := s.db.QueryRowContext(ctx, `SELECT current_dtg_latest FROM hash_records WHERE path = ?`, path).Scan(&ts)
		if err == sql.ErrNoRows {
			return nil, nil
		}
		if err != nil {
			return nil, apperr.Wrap(apperr.StoreUnavailable, "get_field current_dtg_latest", err)
		}
		return ts, nil
	default:
		return nil, apperr.Validationf("unsupported field %q", field)
	}
}

// Upsert implements the 3-case semantics of spec §4.2 under the per-path
// stripe lock (invariant 7) plus a SQL transaction for atomicity against
// other processes sharing the same file.
func (s *Store) Upsert(ctx context.Context, record *model.HashRecord) (*store.UpsertResult, error) {
	if record.Path == "" || record.CurrentHash == "" {
		return nil, apperr.Validationf("path and current_hash are required")
	}

	unlock := s.locker.Lock(record.Path)
	defer unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, apperr.Wrap(apperr.StoreUnavailable, "begin upsert tx", err)
	}
	defer tx.Rollback()

	existing, err := s.getTx(ctx, tx, record.Path)
	if err != nil {
		return nil, apperr.Wrap(apperr.StoreUnavailable, "upsert: read existing", err)
	}

	now := s.now()
	result := &store.UpsertResult{}

	if existing == nil {
		if err := s.insertTx(ctx, tx, record, now); err != nil {
			return nil, apperr.Wrap(apperr.StoreUnavailable, "upsert: insert", err)
		}
		result.Created = true
	} else if existing.CurrentHash == record.CurrentHash {
		if _, err := tx.ExecContext(ctx, `UPDATE hash_records SET current_dtg_latest = ? WHERE path = ?`, now, record.Path); err != nil {
			return nil, apperr.Wrap(apperr.StoreUnavailable, "upsert: refresh timestamp", err)
		}
		if err := tx.Commit(); err != nil {
			return nil, apperr.Wrap(apperr.StoreUnavailable, "upsert: commit refresh", err)
		}
		return result, nil
	} else {
		if err := s.modifyTx(ctx, tx, record, existing, now); err != nil {
			return nil, apperr.Wrap(apperr.StoreUnavailable, "upsert: modify", err)
		}
		result.Modified = true
	}

	if existing != nil {
		var deletedChildren []string
		deletedChildren = append(deletedChildren, diffChildren(record.Path, existing.Dirs, record.Dirs)...)
		deletedChildren = append(deletedChildren, diffChildren(record.Path, existing.Files, record.Files)...)
		deletedChildren = append(deletedChildren, diffChildren(record.Path, existing.Links, record.Links)...)
		for _, childPath := range deletedChildren {
			if err := s.deleteRecursiveTx(ctx, tx, childPath); err != nil {
				return nil, apperr.Wrap(apperr.StoreUnavailable, "upsert: cascade delete", err)
			}
			result.Deleted = append(result.Deleted, childPath)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, apperr.Wrap(apperr.StoreUnavailable, "upsert: commit", err)
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

func (s *Store) getTx(ctx context.Context, tx *sql.Tx, path string) (*model.HashRecord, error) {
	row := tx.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM hash_records WHERE path = ?`, path)
	r, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return r, err
}

func (s *Store) insertTx(ctx context.Context, tx *sql.Tx, record *model.HashRecord, now int64) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO hash_records(path, current_hash, current_dtg_first, current_dtg_latest,
			prev_hash, prev_dtg_latest, target_hash, dirs, files, links, session_id)
		VALUES (?, ?, ?, ?, NULL, NULL, ?, ?, ?, ?, ?)`,
		record.Path, record.CurrentHash, now, now,
		nullIfEmpty(record.TargetHash), joinNames(record.Dirs), joinNames(record.Files), joinNames(record.Links),
		nullIfEmpty(record.SessionID))
	return err
}

func (s *Store) modifyTx(ctx context.Context, tx *sql.Tx, record *model.HashRecord, existing *model.HashRecord, now int64) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE hash_records SET
			current_hash = ?, current_dtg_first = ?, current_dtg_latest = ?,
			prev_hash = ?, prev_dtg_latest = ?, target_hash = ?,
			dirs = ?, files = ?, links = ?, session_id = ?
		WHERE path = ?`,
		record.CurrentHash, now, now,
		existing.CurrentHash, existing.CurrentDTGLatest, nullIfEmpty(record.TargetHash),
		joinNames(record.Dirs), joinNames(record.Files), joinNames(record.Links),
		nullIfEmpty(record.SessionID), record.Path)
	return err
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func (s *Store) deleteRecursiveTx(ctx context.Context, tx *sql.Tx, path string) error {
	r, err := s.getTx(ctx, tx, path)
	if err != nil || r == nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM hash_records WHERE path = ?`, path); err != nil {
		return err
	}
	for _, category := range [][]string{r.Dirs, r.Files, r.Links} {
		for _, name := range category {
			if err := s.deleteRecursiveTx(ctx, tx, filepath.Join(path, strings.TrimSpace(name))); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, path string) (bool, error) {
	unlock := s.locker.Lock(path)
	defer unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, apperr.Wrap(apperr.StoreUnavailable, "begin delete tx", err)
	}
	defer tx.Rollback()

	existing, err := s.getTx(ctx, tx, path)
	if err != nil {
		return false, apperr.Wrap(apperr.StoreUnavailable, "delete: read existing", err)
	}
	if existing == nil {
		return false, nil
	}
	if err := s.deleteRecursiveTx(ctx, tx, path); err != nil {
		return false, apperr.Wrap(apperr.StoreUnavailable, "delete: cascade", err)
	}
	if err := tx.Commit(); err != nil {
		return false, apperr.Wrap(apperr.StoreUnavailable, "delete: commit", err)
	}
	return true, nil
}

func (s *Store) PriorityUpdates(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT path FROM hash_records
		WHERE target_hash IS NOT NULL AND target_hash != current_hash`)
	if err != nil {
		return nil, apperr.Wrap(apperr.StoreUnavailable, "priority_updates", err)
	}
	defer rows.Close()

	var drifted []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, apperr.Wrap(apperr.StoreUnavailable, "priority_updates scan", err)
		}
		drifted = append(drifted, p)
	}
	pathset.SortByDepthThenLex(drifted)
	return pathset.DeepestCommonAncestors(drifted), nil
}

func (s *Store) OldestUpdates(ctx context.Context, root string, percent int) ([]string, error) {
	rec, err := s.Get(ctx, root)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return []string{root}, nil
	}

	var children []string
	children = append(children, rec.Dirs...)
	children = append(children, rec.Files...)
	children = append(children, rec.Links...)
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
		var age int64
		_ = s.db.QueryRowContext(ctx, `SELECT current_dtg_latest FROM hash_records WHERE path = ?`, childPath).Scan(&age)
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

func (s *Store) FindOrphans(ctx context.Context) ([]string, error) {
	referenced, err := s.referencedChildPaths(ctx)
	if err != nil {
		return nil, err
	}

	shallowest, err := s.shallowestPath(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT path FROM hash_records`)
	if err != nil {
		return nil, apperr.Wrap(apperr.StoreUnavailable, "find_orphans", err)
	}
	defer rows.Close()

	var orphans []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, apperr.Wrap(apperr.StoreUnavailable, "find_orphans scan", err)
		}
		if !referenced[p] && p != shallowest {
			orphans = append(orphans, p)
		}
	}
	sort.Strings(orphans)
	return orphans, nil
}

func (s *Store) FindUntracked(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT path, dirs, files, links FROM hash_records`)
	if err != nil {
		return nil, apperr.Wrap(apperr.StoreUnavailable, "find_untracked", err)
	}
	defer rows.Close()

	var untracked []string
	for rows.Next() {
		var path, dirs, files, links string
		if err := rows.Scan(&path, &dirs, &files, &links); err != nil {
			return nil, apperr.Wrap(apperr.StoreUnavailable, "find_untracked scan", err)
		}
		for _, category := range [][]string{splitNames(dirs), splitNames(files), splitNames(links)} {
			for _, name := range category {
				childPath := filepath.Join(path, name)
				var exists int
				err := s.db.QueryRowContext(ctx, `SELECT 1 FROM hash_records WHERE path = ?`, childPath).Scan(&exists)
				if err == sql.ErrNoRows {
					untracked = append(untracked, childPath)
				} else if err != nil {
					return nil, apperr.Wrap(apperr.StoreUnavailable, "find_untracked child check", err)
				}
			}
		}
	}
	sort.Strings(untracked)
	return untracked, nil
}

func (s *Store) referencedChildPaths(ctx context.Context) (map[string]bool, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT path, dirs, files, links FROM hash_records`)
	if err != nil {
		return nil, apperr.Wrap(apperr.StoreUnavailable, "referencedChildPaths", err)
	}
	defer rows.Close()

	referenced := make(map[string]bool)
	for rows.Next() {
		var path, dirs, files, links string
		if err := rows.Scan(&path, &dirs, &files, &links); err != nil {
			return nil, apperr.Wrap(apperr.StoreUnavailable, "referencedChildPaths scan", err)
		}
		for _, category := range [][]string{splitNames(dirs), splitNames(files), splitNames(links)} {
			for _, name := range category {
				referenced[filepath.Join(path, name)] = true
			}
		}
	}
	return referenced, nil
}

func (s *Store) shallowestPath(ctx context.Context) (string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT path FROM hash_records`)
	if err != nil {
		return "", apperr.Wrap(apperr.StoreUnavailable, "shallowestPath", err)
	}
	defer rows.Close()

	shallowest := ""
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return "", apperr.Wrap(apperr.StoreUnavailable, "shallowestPath scan", err)
		}
		if shallowest == "" || pathset.Depth(p) < pathset.Depth(shallowest) {
			shallowest = p
		}
	}
	return shallowest, nil
}

func (s *Store) Health(ctx context.Context) bool {
	return s.db.PingContext(ctx) == nil
}

func (s *Store) Counts(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM hash_records`).Scan(&n); err != nil {
		return 0, apperr.Wrap(apperr.StoreUnavailable, "counts", err)
	}
	return n, nil
}

func (s *Store) PutLog(ctx context.Context, entry *model.LogEntry) (int64, error) {
	if entry.SummaryMessage == "" {
		return 0, apperr.Validationf("summary_message is required")
	}
	level := model.NormalizeLogLevel(string(entry.LogLevel))
	ts := entry.Timestamp
	if ts == 0 {
		ts = s.now()
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO log_entries(site_id, timestamp, log_level, summary_message, detailed_message, session_id)
		VALUES (?, ?, ?, ?, ?, ?)`,
		entry.SiteID, ts, string(level), entry.SummaryMessage,
		nullIfEmpty(entry.DetailedMessage), nullIfEmpty(entry.SessionID))
	if err != nil {
		s.logger.Error("put_log failed", "error", err)
		return 0, apperr.Wrap(apperr.StoreUnavailable, "put_log", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, apperr.Wrap(apperr.StoreUnavailable, "put_log: last insert id", err)
	}
	return id, nil
}

var allowedOrderBy = map[string]bool{"log_id": true, "timestamp": true, "log_level": true, "site_id": true}

func (s *Store) GetLogs(ctx context.Context, q store.LogQuery) ([]*model.LogEntry, error) {
	orderBy := q.OrderBy
	if orderBy == "" {
		orderBy = "log_id"
	}
	if !allowedOrderBy[orderBy] {
		return nil, apperr.Validationf("unsupported order_by %q", orderBy)
	}
	dir := "ASC"
	if strings.EqualFold(q.OrderDir, "DESC") {
		dir = "DESC"
	}

	query := `SELECT log_id, site_id, timestamp, log_level, summary_message, detailed_message, session_id FROM log_entries WHERE 1=1`
	var args []any
	if q.OnlyShippable {
		query += ` AND session_id IS NULL`
	}
	if q.SessionIDFilter != "" {
		query += ` AND session_id = ?`
		args = append(args, q.SessionIDFilter)
	}
	if q.OlderThanDays > 0 {
		cutoff := s.now() - int64(q.OlderThanDays)*86400
		query += ` AND timestamp < ?`
		args = append(args, cutoff)
	}
	query += fmt.Sprintf(` ORDER BY %s %s`, orderBy, dir)
	if q.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, q.Limit)
		if q.Offset > 0 {
			query += ` OFFSET ?`
			args = append(args, q.Offset)
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperr.Wrap(apperr.StoreUnavailable, "get_logs", err)
	}
	defer rows.Close()

	var out []*model.LogEntry
	for rows.Next() {
		var e model.LogEntry
		var detailed, session sql.NullString
		var level string
		if err := rows.Scan(&e.LogID, &e.SiteID, &e.Timestamp, &level, &e.SummaryMessage, &detailed, &session); err != nil {
			return nil, apperr.Wrap(apperr.StoreUnavailable, "get_logs scan", err)
		}
		e.LogLevel = model.LogLevel(level)
		e.DetailedMessage = detailed.String
		e.SessionID = session.String
		out = append(out, &e)
	}
	return out, nil
}

func (s *Store) DeleteLogs(ctx context.Context, ids []int64) ([]int64, []int64, error) {
	var deleted, failed []int64
	for _, id := range ids {
		res, err := s.db.ExecContext(ctx, `DELETE FROM log_entries WHERE log_id = ?`, id)
		if err != nil {
			failed = append(failed, id)
			continue
		}
		n, _ := res.RowsAffected()
		if n == 0 {
			failed = append(failed, id)
		} else {
			deleted = append(deleted, id)
		}
	}
	return deleted, failed, nil
}

// ConsolidateLogs coalesces repeated identical (site_id, log_level,
// summary_message) entries within the same session into the one with the
// highest log_id — idempotent, implementation-defined per spec §4.2.
func (s *Store) ConsolidateLogs(ctx context.Context) (bool, error) {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM log_entries
		WHERE log_id NOT IN (
			SELECT MAX(log_id) FROM log_entries
			GROUP BY session_id, site_id, log_level, summary_message
		)`)
	if err != nil {
		return false, apperr.Wrap(apperr.StoreUnavailable, "consolidate_logs", err)
	}
	return true, nil
}

func (s *Store) LogCounts(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM log_entries`).Scan(&n); err != nil {
		return 0, apperr.Wrap(apperr.StoreUnavailable, "log_counts", err)
	}
	return n, nil
}

// PutRemoteStatus writes a remote site's local-vs-core BFS comparison batch
// into its status dashboard segment (remote_site_status), replacing the
// site's prior segment when dropPrevious is set — scoped to rootPath's
// subtree when given, matching the POST /api/remote_status contract
// (spec §6.1). It never touches hash_records.
func (s *Store) PutRemoteStatus(ctx context.Context, siteName string, updates []model.RemoteStatusUpdate, dropPrevious bool, rootPath string) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, apperr.Wrap(apperr.StoreUnavailable, "begin remote status tx", err)
	}
	defer tx.Rollback()

	if dropPrevious {
		if rootPath != "" {
			if _, err := tx.ExecContext(ctx, `
				DELETE FROM remote_site_status
				WHERE site_name = ? AND (path = ? OR path LIKE ?)`,
				siteName, rootPath, rootPath+string(filepath.Separator)+"%"); err != nil {
				return 0, apperr.Wrap(apperr.StoreUnavailable, "remote status drop_previous scoped", err)
			}
		} else if _, err := tx.ExecContext(ctx, `DELETE FROM remote_site_status WHERE site_name = ?`, siteName); err != nil {
			return 0, apperr.Wrap(apperr.StoreUnavailable, "remote status drop_previous", err)
		}
	}

	now := s.now()
	for _, u := range updates {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO remote_site_status(site_name, path, local_hash, core_hash, updated_at)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(site_name, path) DO UPDATE SET
				local_hash = excluded.local_hash,
				core_hash  = excluded.core_hash,
				updated_at = excluded.updated_at`,
			siteName, u.Path, nullableStr(u.LocalHash), nullableStr(u.CoreHash), now); err != nil {
			return 0, apperr.Wrap(apperr.StoreUnavailable, "remote status upsert", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, apperr.Wrap(apperr.StoreUnavailable, "remote status commit", err)
	}
	return len(updates), nil
}

func nullableStr(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
