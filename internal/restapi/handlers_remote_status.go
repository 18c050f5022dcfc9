package restapi

import (
	"encoding/json"
	"net/http"

	"github.com/lucho00cuba/baseline-core/internal/apperr"
	"github.com/lucho00cuba/baseline-core/internal/model"
)

// remoteStatusRequest is POST /api/remote_status's body, core-only, per
// spec §6.1: {action: "remote_updates", site_name, updates: [{path,
// local_hash, core_hash}], drop_previous?, root_path?}, grounded on
// original_source/squishy_REST_API/routes/core_routes.py's
// handle_remote_status.
type remoteStatusRequest struct {
	Action       string                     `json:"action"`
	SiteName     string                     `json:"site_name"`
	Updates      []model.RemoteStatusUpdate `json:"updates"`
	DropPrevious *bool                      `json:"drop_previous,omitempty"`
	RootPath     string                     `json:"root_path,omitempty"`
}

// handleRemoteStatus implements POST /api/remote_status: a remote site
// reports the (path, local_hash, core_hash) batch from its own local-vs-core
// BFS, which the core writes into that site's status dashboard segment
// (remote_site_status) — never into hash_records, the single authoritative
// table spec §4.2 defines.
func (s *Server) handleRemoteStatus(w http.ResponseWriter, r *http.Request) {
	var body remoteStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(s.logger, w, apperr.ValidationError, "invalid JSON body: "+err.Error())
		return
	}
	if body.Action != "" && body.Action != "remote_updates" {
		respondError(s.logger, w, apperr.ValidationError, "unsupported action: "+body.Action)
		return
	}
	if body.SiteName == "" {
		respondError(s.logger, w, apperr.ValidationError, "site_name is required")
		return
	}
	if len(body.Updates) == 0 {
		respondError(s.logger, w, apperr.ValidationError, "updates must be non-empty")
		return
	}

	dropPrevious := true
	if body.DropPrevious != nil {
		dropPrevious = *body.DropPrevious
	}

	n, err := s.siteStatus.PutRemoteStatus(r.Context(), body.SiteName, body.Updates, dropPrevious, body.RootPath)
	if err != nil {
		if ae, ok := err.(*apperr.Error); ok {
			respondError(s.logger, w, ae.Kind, ae.Message)
			return
		}
		respondError(s.logger, w, apperr.StoreUnavailable, err.Error())
		return
	}
	respondSuccess(w, http.StatusOK, map[string]any{"site_name": body.SiteName, "updates_applied": n})
}
