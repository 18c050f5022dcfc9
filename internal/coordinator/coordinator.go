// Package coordinator implements the C5 periodic reconciliation loop: one
// pass verifies local database integrity, then dispatches to core-only or
// remote-only work, then forwards/consolidates/purges logs. Grounded on
// original_source/squishy_coordinator/coordinator/coordinator_service.py
// and core.py's run_core/run_remote/main functions.
package coordinator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/lucho00cuba/baseline-core/internal/merkle"
	"github.com/lucho00cuba/baseline-core/internal/model"
	"github.com/lucho00cuba/baseline-core/internal/pipeline"
	"github.com/lucho00cuba/baseline-core/internal/store"
)

func asTerminalError(err error, target **merkle.TerminalError) bool {
	return errors.As(err, target)
}

// RemoteReporter is the subset of restclient.Client the remote role needs:
// GetRecord to read the core's side of the BFS comparison, Post to ship the
// resulting batch to /api/remote_status.
type RemoteReporter interface {
	GetRecord(ctx context.Context, path string) (*model.HashRecord, error)
	Post(ctx context.Context, path string, body, out any) error
}

// Coordinator runs one reconciliation pass over a local HashStore/LogStore,
// optionally dispatching to the pipeline (core role) or a RemoteReporter
// (remote role).
type Coordinator struct {
	hashStore                 store.HashStore
	logStore                  store.LogStore
	engine                    *merkle.Engine
	pipeline                  pipeline.Source // nil on a remote site
	remote                    RemoteReporter  // nil on the core site
	siteName                  string
	rootPath                  string
	isCore                    bool
	shortCircuitEqualSubtrees bool
	logger                    *slog.Logger
}

// New builds a Coordinator. Exactly one of pipeline/remote should be
// non-nil, matching isCore. shortCircuitEqualSubtrees controls whether the
// remote role's BFS descends past a node whose local and core hashes
// already match (Config.ShortCircuitEqualSubtrees); the spec's base
// behavior is to keep descending, since an equal hash at one level does not
// guarantee every descendant is also equal to what the core last recorded.
func New(hashStore store.HashStore, logStore store.LogStore, engine *merkle.Engine, pipelineSource pipeline.Source, remote RemoteReporter, siteName, rootPath string, isCore, shortCircuitEqualSubtrees bool, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		hashStore:                 hashStore,
		logStore:                  logStore,
		engine:                    engine,
		pipeline:                  pipelineSource,
		remote:                    remote,
		siteName:                  siteName,
		rootPath:                  rootPath,
		isCore:                    isCore,
		shortCircuitEqualSubtrees: shortCircuitEqualSubtrees,
		logger:                    logger,
	}
}

// RunResult summarizes one reconciliation pass, matching core.py's main()
// exit-code convention but without the process-exit side effect.
type RunResult struct {
	PartialFailure bool
	Errors         []error
}

// Run executes one full pass: integrity verification, core/remote dispatch,
// then log forwarding — each stage independently timed and logged via
// START SESSION/FINISH SESSION markers, and each stage's failure recorded
// as a partial failure rather than aborting the whole pass, per core.py's
// main().
func (c *Coordinator) Run(ctx context.Context) RunResult {
	var result RunResult

	c.withSessionTimer(ctx, "Coordinator - Verification", func() error {
		if err := c.verifyDatabaseIntegrity(ctx); err != nil {
			return fmt.Errorf("verify database integrity: %w", err)
		}
		if c.isCore {
			return c.runCore(ctx)
		}
		return c.runRemote(ctx)
	}, &result)

	c.withSessionTimer(ctx, "Coordinator - Log forwarding", func() error {
		if _, err := c.logStore.ConsolidateLogs(ctx); err != nil {
			return fmt.Errorf("consolidate logs: %w", err)
		}
		if err := c.shipLogsToCore(ctx); err != nil {
			return fmt.Errorf("ship logs to core: %w", err)
		}
		return nil
	}, &result)

	return result
}

// withSessionTimer mirrors core.py's performance_monitor context manager:
// it logs a START SESSION entry, runs fn, then logs a FINISH SESSION entry
// with the elapsed duration, recording any error as a partial failure
// rather than propagating it.
func (c *Coordinator) withSessionTimer(ctx context.Context, operation string, fn func() error, result *RunResult) {
	role := "Remote"
	if c.isCore {
		role = "Core"
	}
	start := time.Now()
	defer Scope(c.logger, operation)()

	c.putLog(ctx, "START SESSION", fmt.Sprintf("Starting %s %s tasks", operation, role), model.LogLevelInfo)

	err := fn()

	elapsed := time.Since(start)
	detail := fmt.Sprintf("Completed %s %s tasks in %s", operation, role, elapsed.Round(time.Millisecond))
	if err != nil {
		c.logger.Error("fatal error in coordinator stage", "operation", operation, "err", err)
		result.PartialFailure = true
		result.Errors = append(result.Errors, err)
		detail = fmt.Sprintf("%s (failed: %v)", detail, err)
	}
	c.putLog(ctx, "FINISH SESSION", detail, model.LogLevelInfo)
}

// verifyDatabaseIntegrity reports orphaned records and untracked children,
// logging a warning for either, matching verify_database_integrity().
func (c *Coordinator) verifyDatabaseIntegrity(ctx context.Context) error {
	orphans, err := c.hashStore.FindOrphans(ctx)
	if err != nil {
		return fmt.Errorf("find orphans: %w", err)
	}
	if len(orphans) > 0 {
		c.logger.Warn("found orphaned entries", "orphans", orphans)
		c.putLogJSON(ctx, "Found orphaned entries", map[string]any{"orphans": orphans}, model.LogLevelWarning)
	} else {
		c.logger.Info("no orphaned entries found")
	}

	untracked, err := c.hashStore.FindUntracked(ctx)
	if err != nil {
		return fmt.Errorf("find untracked: %w", err)
	}
	if len(untracked) > 0 {
		c.logger.Warn("found untracked children", "untracked", untracked)
		c.putLogJSON(ctx, "Found untracked children", map[string]any{"untracked": untracked}, model.LogLevelWarning)
	} else {
		c.logger.Info("no untracked children found")
	}
	return nil
}

// runCore implements run_core(): cross-check priority updates against
// pipeline-authorized updates, warn on anything unauthorized, then
// recompute + persist hashes for every authorized update.
func (c *Coordinator) runCore(ctx context.Context) error {
	changeList, err := c.hashStore.PriorityUpdates(ctx)
	if err != nil {
		return fmt.Errorf("priority updates: %w", err)
	}

	pipelineUpdates, err := c.pipeline.Updates(ctx)
	if err != nil {
		return fmt.Errorf("pipeline updates: %w", err)
	}
	authList := make([]string, 0, len(pipelineUpdates))
	for _, u := range pipelineUpdates {
		authList = append(authList, u.UpdatePath)
	}

	var unauth []string
	for _, item := range changeList {
		authorized := false
		for _, auth := range authList {
			if strings.HasPrefix(item, auth) {
				authorized = true
				break
			}
		}
		if !authorized {
			unauth = append(unauth, item)
		}
	}
	if len(unauth) > 0 {
		c.logger.Warn("unauthorized changes detected", "paths", unauth)
		c.putLogJSON(ctx, "Unauthorized changes detected.", map[string]any{"unauthorized_updates": unauth}, model.LogLevelWarning)
	}

	sessionID := model.NewSessionID()
	var shipped []string
	for _, path := range authList {
		newHash, err := c.engine.ComputeMerkleTree(ctx, path, sessionID)
		if err != nil {
			var terr *merkle.TerminalError
			if ok := asTerminalError(err, &terr); ok {
				c.logger.Error("authorized recompute failed", "path", path, "state", terr.State, "err", terr.Err)
			} else {
				c.logger.Error("authorized recompute failed", "path", path, "err", err)
			}
			continue
		}
		rec, err := c.hashStore.Get(ctx, path)
		if err != nil || rec == nil {
			continue
		}
		rec.TargetHash = newHash
		if _, err := c.hashStore.Upsert(ctx, rec); err != nil {
			c.logger.Error("failed to persist authorized target hash", "path", path, "err", err)
			continue
		}
		if err := c.pipeline.MarkHashed(ctx, path, newHash); err != nil {
			c.logger.Warn("failed to mark pipeline update hashed", "path", path, "err", err)
		}
		shipped = append(shipped, path)
	}
	c.logger.Info("authorized hash updates complete", "paths", shipped)
	c.putLogJSON(ctx, "Authorized hash updates complete.", map[string]any{"authorized_updates": shipped}, model.LogLevelInfo)
	return nil
}

// runRemote implements verify_hash_status(): recompute this site's own
// tree, then walk it breadth-first from rootPath alongside the core's copy
// (fetched per-node via RemoteReporter.GetRecord), classifying every node
// as missing-local, missing-core, mismatch, or equal and reporting the
// divergent ones to the core via /api/remote_status. Grounded on
// original_source/squishy_coordinator/coordinator/coordinator_service.py's
// verify_hash_status/_add_children_to_queue.
func (c *Coordinator) runRemote(ctx context.Context) error {
	if _, err := c.engine.ComputeMerkleTree(ctx, c.rootPath, model.NewSessionID()); err != nil {
		return fmt.Errorf("compute merkle tree: %w", err)
	}

	var updates []model.RemoteStatusUpdate
	queue := []string{c.rootPath}
	visited := make(map[string]bool)

	for len(queue) > 0 {
		path := queue[0]
		queue = queue[1:]
		if visited[path] {
			continue
		}
		visited[path] = true

		localRec, err := c.hashStore.Get(ctx, path)
		if err != nil {
			c.logger.Error("local record lookup failed during BFS", "path", path, "err", err)
			continue
		}
		coreRec, err := c.remote.GetRecord(ctx, path)
		if err != nil {
			c.logger.Error("core record lookup failed during BFS", "path", path, "err", err)
			continue
		}

		switch {
		case localRec == nil && coreRec == nil:
			// Neither side knows this path; nothing to compare or descend into.

		case localRec == nil:
			c.logger.Info("path missing locally but present on core", "path", path)
			updates = append(updates, model.RemoteStatusUpdate{Path: path, CoreHash: strPtr(coreRec.CurrentHash)})
			enqueueChildren(&queue, path, coreRec)

		case coreRec == nil:
			c.logger.Info("path present locally but missing on core", "path", path)
			updates = append(updates, model.RemoteStatusUpdate{Path: path, LocalHash: strPtr(localRec.CurrentHash)})
			enqueueChildren(&queue, path, localRec)

		case localRec.CurrentHash != coreRec.CurrentHash:
			c.logger.Info("local hash diverges from core", "path", path)
			updates = append(updates, model.RemoteStatusUpdate{
				Path:      path,
				LocalHash: strPtr(localRec.CurrentHash),
				CoreHash:  strPtr(coreRec.CurrentHash),
			})
			localRec.TargetHash = coreRec.CurrentHash
			if _, err := c.hashStore.Upsert(ctx, localRec); err != nil {
				c.logger.Error("failed to persist target hash for divergent path", "path", path, "err", err)
			}
			enqueueChildren(&queue, path, localRec)
			enqueueChildren(&queue, path, coreRec)

		default:
			if !c.shortCircuitEqualSubtrees {
				enqueueChildren(&queue, path, localRec)
				enqueueChildren(&queue, path, coreRec)
			}
		}
	}

	if len(updates) == 0 {
		c.logger.Info("no drifted paths to report to core")
		return nil
	}

	body := map[string]any{
		"action":    "remote_updates",
		"site_name": c.siteName,
		"updates":   updates,
		"root_path": c.rootPath,
	}
	if err := c.remote.Post(ctx, "/api/remote_status", body, nil); err != nil {
		c.logger.Error("failed to update core with remote hash status", "err", err)
		return fmt.Errorf("send remote status: %w", err)
	}
	c.logger.Info("updated core with remote hash status", "paths", len(updates))
	return nil
}

// enqueueChildren adds rec's dirs, files, and links — its BFS children — to
// queue, joined onto parent. HashRecord stores base child names only
// (internal/merkle/engine.go), so the full path is reconstructed here.
func enqueueChildren(queue *[]string, parent string, rec *model.HashRecord) {
	if rec == nil {
		return
	}
	for _, names := range [][]string{rec.Dirs, rec.Files, rec.Links} {
		for _, name := range names {
			*queue = append(*queue, filepath.Join(parent, name))
		}
	}
}

func strPtr(s string) *string { return &s }

// shipLogsToCore implements ship_logs_to_core(): collect shippable logs
// (SessionID unset per spec's consolidation rule), POST each to the core's
// /api/logs through c.remote, then delete what shipped plus anything older
// than the retention window. On the core nothing is forwarded; only the
// retention purge runs.
func (c *Coordinator) shipLogsToCore(ctx context.Context) error {
	if c.isCore {
		// The core ships to itself; nothing to forward.
		return c.purgeOldLogs(ctx)
	}

	entries, err := c.logStore.GetLogs(ctx, store.LogQuery{OnlyShippable: true})
	if err != nil {
		return fmt.Errorf("collect shippable logs: %w", err)
	}

	var shippedIDs []int64
	for _, entry := range entries {
		if err := c.remote.Post(ctx, "/api/logs", entry, nil); err != nil {
			c.logger.Warn("failed to ship log entry to core", "log_id", entry.LogID, "err", err)
			continue
		}
		shippedIDs = append(shippedIDs, entry.LogID)
	}
	if len(shippedIDs) < len(entries) {
		c.logger.Warn("not all log entries were shipped to core", "failed_count", len(entries)-len(shippedIDs))
	}

	c.logger.Info("deleting shipped log entries from local storage", "count", len(shippedIDs))
	if _, failed, err := c.logStore.DeleteLogs(ctx, shippedIDs); err != nil {
		return fmt.Errorf("delete shipped logs: %w", err)
	} else if len(failed) > 0 {
		c.logger.Error("failed to delete shipped log entries from local storage", "failed", failed)
	}

	return c.purgeOldLogs(ctx)
}

func (c *Coordinator) purgeOldLogs(ctx context.Context) error {
	c.logger.Info("deleting log entries older than retention window")
	old, err := c.logStore.GetLogs(ctx, store.LogQuery{OlderThanDays: 90})
	if err != nil {
		return fmt.Errorf("collect old logs: %w", err)
	}
	ids := make([]int64, 0, len(old))
	for _, e := range old {
		ids = append(ids, e.LogID)
	}
	if len(ids) == 0 {
		return nil
	}
	if _, failed, err := c.logStore.DeleteLogs(ctx, ids); err != nil {
		return fmt.Errorf("delete old logs: %w", err)
	} else if len(failed) > 0 {
		c.logger.Error("failed to delete old log entries from local storage", "failed", failed)
	}
	return nil
}

func (c *Coordinator) putLog(ctx context.Context, summary, detail string, level model.LogLevel) {
	entry := &model.LogEntry{
		SiteID:         c.siteName,
		Timestamp:      time.Now().Unix(),
		LogLevel:       level,
		SummaryMessage: summary,
		DetailedMessage: detail,
	}
	if _, err := c.logStore.PutLog(ctx, entry); err != nil {
		c.logger.Error("failed to persist log entry", "summary", summary, "err", err)
	}
}

func (c *Coordinator) putLogJSON(ctx context.Context, summary string, detail map[string]any, level model.LogLevel) {
	b, err := json.Marshal(detail)
	if err != nil {
		c.logger.Error("failed to marshal log detail", "err", err)
		return
	}
	c.putLog(ctx, summary, string(b), level)
}
