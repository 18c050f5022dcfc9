package restapi

import (
	"encoding/json"
	"net/http"

	"github.com/lucho00cuba/baseline-core/internal/apperr"
)

// handlePipelineGet implements GET /api/pipeline?action=updates|sites,
// core-only per spec §6.1.
func (s *Server) handlePipelineGet(w http.ResponseWriter, r *http.Request) {
	action := r.URL.Query().Get("action")
	switch action {
	case "", "updates":
		updates, err := s.pipeline.Updates(r.Context())
		if err != nil {
			respondError(s.logger, w, apperr.UpstreamUnavailable, err.Error())
			return
		}
		respondSuccess(w, http.StatusOK, updates)

	case "sites":
		sites, err := s.pipeline.Sites(r.Context())
		if err != nil {
			respondError(s.logger, w, apperr.UpstreamUnavailable, err.Error())
			return
		}
		respondSuccess(w, http.StatusOK, sites)

	default:
		respondError(s.logger, w, apperr.ValidationError, "unsupported action: "+action)
	}
}

// pipelineHashRequest is the body for POST /api/pipeline?action=hash.
type pipelineHashRequest struct {
	UpdatePath string `json:"update_path"`
	HashValue  string `json:"hash_value"`
}

// handlePipelinePost implements POST /api/pipeline?action=hash, which
// records the hash the core computed for a pipeline-approved update, per
// spec §6.1.
func (s *Server) handlePipelinePost(w http.ResponseWriter, r *http.Request) {
	action := r.URL.Query().Get("action")
	if action != "" && action != "hash" {
		respondError(s.logger, w, apperr.ValidationError, "unsupported action: "+action)
		return
	}

	var body pipelineHashRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(s.logger, w, apperr.ValidationError, "invalid JSON body: "+err.Error())
		return
	}

	if err := s.pipeline.MarkHashed(r.Context(), body.UpdatePath, body.HashValue); err != nil {
		if ae, ok := err.(*apperr.Error); ok {
			respondError(s.logger, w, ae.Kind, ae.Message)
			return
		}
		respondError(s.logger, w, apperr.UpstreamUnavailable, err.Error())
		return
	}
	respondSuccess(w, http.StatusOK, map[string]string{"update_path": body.UpdatePath, "hash_value": body.HashValue})
}
