// Package model defines the entities shared by the store, REST boundary,
// merkle engine, and coordinator: HashRecord, LogEntry, and the PipelineUpdate
// read by the core from the external CD pipeline.
package model

import "github.com/google/uuid"

// HashRecord is one tracked path's fingerprint record (spec.md §3).
type HashRecord struct {
	Path             string `json:"path"`
	CurrentHash      string `json:"current_hash"`
	CurrentDTGFirst  int64  `json:"current_dtg_first"`
	CurrentDTGLatest int64  `json:"current_dtg_latest"`
	PrevHash         string `json:"prev_hash,omitempty"`
	PrevDTGLatest    int64  `json:"prev_dtg_latest,omitempty"`
	TargetHash       string `json:"target_hash,omitempty"`
	Dirs             []string `json:"dirs"`
	Files            []string `json:"files"`
	Links            []string `json:"links"`
	SessionID        string `json:"session_id,omitempty"`
}

// HasTarget reports whether TargetHash carries an expectation (non-null, per
// spec's "NULL means no expectation").
func (r *HashRecord) HasTarget() bool { return r.TargetHash != "" }

// Drifted reports whether TargetHash diverges from CurrentHash — the
// definition of a "priority update" (Glossary).
func (r *HashRecord) Drifted() bool { return r.HasTarget() && r.TargetHash != r.CurrentHash }

// LogLevel enumerates the log severities in spec §3; unrecognized values
// coerce to LogLevelInfo per the spec's stated default.
type LogLevel string

const (
	LogLevelDebug    LogLevel = "DEBUG"
	LogLevelInfo     LogLevel = "INFO"
	LogLevelWarning  LogLevel = "WARNING"
	LogLevelError    LogLevel = "ERROR"
	LogLevelCritical LogLevel = "CRITICAL"
)

// NormalizeLogLevel coerces an arbitrary string to a known LogLevel,
// defaulting to INFO for anything unrecognized.
func NormalizeLogLevel(s string) LogLevel {
	switch LogLevel(s) {
	case LogLevelDebug, LogLevelInfo, LogLevelWarning, LogLevelError, LogLevelCritical:
		return LogLevel(s)
	default:
		return LogLevelInfo
	}
}

// LogEntry is one persisted log row (spec.md §3).
type LogEntry struct {
	LogID            int64    `json:"log_id,omitempty"`
	SiteID           string   `json:"site_id"`
	Timestamp        int64    `json:"timestamp"`
	LogLevel         LogLevel `json:"log_level"`
	SummaryMessage   string   `json:"summary_message"`
	DetailedMessage  string   `json:"detailed_message,omitempty"`
	SessionID        string   `json:"session_id,omitempty"`
}

// RemoteStatusUpdate is one (path, local_hash, core_hash) comparison tuple
// produced by a remote site's local-vs-core BFS (spec §4.5 step 3) and
// POSTed to the core's /api/remote_status, where it lands in that site's
// status dashboard segment rather than hash_records (spec §6.1). A nil hash
// means "no record at this site for this path" (missing-local/missing-core),
// distinct from an empty hash value, which a real record never has.
type RemoteStatusUpdate struct {
	Path      string  `json:"path"`
	LocalHash *string `json:"local_hash"`
	CoreHash  *string `json:"core_hash"`
}

// PipelineUpdate mirrors a row of the external CD pipeline's authorized
// updates table (original_source's authorized_updates), consumed read-only
// by the core per spec §1.
type PipelineUpdate struct {
	ID         int64  `json:"id"`
	TCID       int64  `json:"TC_id"`
	Timestamp  int64  `json:"timestamp"`
	UpdatePath string `json:"update_path"`
	UpdateSize int64  `json:"update_size"`
	HashValue  string `json:"hash_value,omitempty"`
}

// NewSessionID mints an opaque grouping id for one coordinator run
// (Glossary: "Session"), using github.com/google/uuid per SPEC_FULL.md §3.
func NewSessionID() string {
	return uuid.NewString()
}
