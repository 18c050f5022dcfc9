package restapi

import (
	"net/http"
)

type componentHealth struct {
	HashStore bool `json:"hash_store"`
	LogStore  bool `json:"log_store"`
	Pipeline  *bool `json:"pipeline,omitempty"`
}

type recordCounts struct {
	HashRecords int64 `json:"hash_records"`
	LogEntries  int64 `json:"log_entries"`
}

type healthResponse struct {
	Site         string          `json:"site"`
	Core         bool            `json:"core"`
	Healthy      bool            `json:"healthy"`
	Components   componentHealth `json:"components"`
	RecordCounts *recordCounts   `json:"record_counts,omitempty"`
}

// handleHealth implements GET /api/health, /health, and /api/lifecheck: a
// liveness probe over every injected component plus the supplemental
// record_counts field from SPEC_FULL.md §5.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	hashOK := s.hashStore.Health(ctx)
	logOK := s.logStore.Health(ctx)
	healthy := hashOK && logOK

	resp := healthResponse{
		Site:    s.siteName,
		Core:    s.isCore,
		Healthy: healthy,
		Components: componentHealth{
			HashStore: hashOK,
			LogStore:  logOK,
		},
	}

	if s.pipeline != nil {
		pipelineOK := s.pipeline.Health(ctx)
		resp.Components.Pipeline = &pipelineOK
		resp.Healthy = resp.Healthy && pipelineOK
	}

	if s.recordCounter != nil {
		hashRecords, err1 := s.recordCounter.HashRecordCount()
		logEntries, err2 := s.recordCounter.LogEntryCount()
		if err1 == nil && err2 == nil {
			resp.RecordCounts = &recordCounts{HashRecords: hashRecords, LogEntries: logEntries}
		}
	}

	status := http.StatusOK
	if !resp.Healthy {
		status = http.StatusServiceUnavailable
	}
	respondSuccess(w, status, resp)
}
