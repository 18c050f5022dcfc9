package restapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/lucho00cuba/baseline-core/internal/apperr"
	"github.com/lucho00cuba/baseline-core/internal/model"
	"github.com/lucho00cuba/baseline-core/internal/store"
)

// handleLogsGet implements GET /api/logs, per spec §6.1: list with
// filters/ordering, or action=consolidate to run log consolidation.
func (s *Server) handleLogsGet(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	if action := q.Get("action"); action == "consolidate" {
		ran, err := s.logStore.ConsolidateLogs(r.Context())
		if err != nil {
			respondError(s.logger, w, apperr.StoreUnavailable, err.Error())
			return
		}
		respondSuccess(w, http.StatusOK, map[string]bool{"consolidated": ran})
		return
	}

	query := store.LogQuery{
		OrderBy:         "log_id",
		OrderDir:        "ASC",
		SessionIDFilter: q.Get("session_id"),
	}
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			query.Limit = n
		}
	}
	if v := q.Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			query.Offset = n
		}
	}
	if v := q.Get("order_by"); v != "" {
		query.OrderBy = v
	}
	if v := q.Get("order_dir"); v != "" {
		query.OrderDir = strings.ToUpper(v)
	}
	if v := q.Get("older_than_days"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			query.OlderThanDays = n
		}
	}
	if q.Get("shippable") == "true" {
		query.OnlyShippable = true
	}

	entries, err := s.logStore.GetLogs(r.Context(), query)
	if err != nil {
		respondError(s.logger, w, apperr.StoreUnavailable, err.Error())
		return
	}
	respondSuccess(w, http.StatusOK, entries)
}

// handleLogsPost implements POST /api/logs — append one LogEntry.
func (s *Server) handleLogsPost(w http.ResponseWriter, r *http.Request) {
	var entry model.LogEntry
	if err := json.NewDecoder(r.Body).Decode(&entry); err != nil {
		respondError(s.logger, w, apperr.ValidationError, "invalid JSON body: "+err.Error())
		return
	}
	if entry.SummaryMessage == "" {
		respondError(s.logger, w, apperr.ValidationError, "summary_message is required")
		return
	}
	entry.LogLevel = model.NormalizeLogLevel(string(entry.LogLevel))
	if entry.SiteID == "" {
		entry.SiteID = s.siteName
	}

	id, err := s.logStore.PutLog(r.Context(), &entry)
	if err != nil {
		respondError(s.logger, w, apperr.StoreUnavailable, err.Error())
		return
	}
	respondSuccess(w, http.StatusCreated, map[string]int64{"log_id": id})
}

// handleLogsDelete implements DELETE /api/logs?ids=1,2,3 — bulk delete with
// 207 partial success when some ids fail, per spec §7.
func (s *Server) handleLogsDelete(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("ids")
	if raw == "" {
		respondError(s.logger, w, apperr.ValidationError, "ids query parameter is required")
		return
	}
	parts := strings.Split(raw, ",")
	ids := make([]int64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		n, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			respondError(s.logger, w, apperr.ValidationError, "invalid log id: "+p)
			return
		}
		ids = append(ids, n)
	}

	deleted, failed, err := s.logStore.DeleteLogs(r.Context(), ids)
	if err != nil {
		respondError(s.logger, w, apperr.StoreUnavailable, err.Error())
		return
	}
	result := map[string]any{"deleted": deleted, "failed": failed}
	if len(failed) > 0 {
		s.logger.Error("partial success deleting logs", "failed", failed)
		writeJSON(w, http.StatusMultiStatus, successEnvelope{Message: "Partial Success", Data: result})
		return
	}
	respondSuccess(w, http.StatusOK, result)
}
