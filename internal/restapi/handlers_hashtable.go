package restapi

import (
	"encoding/json"
	"net/http"

	"github.com/lucho00cuba/baseline-core/internal/apperr"
	"github.com/lucho00cuba/baseline-core/internal/model"
)

// handleHashtableGet implements GET /api/hashtable?path=<P>[&field=<F>],
// per spec §6.1. F defaults to "record".
func (s *Server) handleHashtableGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	field := r.URL.Query().Get("field")
	if field == "" {
		field = "record"
	}
	path := r.URL.Query().Get("path")

	switch field {
	case "record":
		rec, err := s.hashStore.Get(ctx, path)
		if err != nil {
			respondError(s.logger, w, apperr.StoreUnavailable, err.Error())
			return
		}
		if rec == nil {
			respondError(s.logger, w, apperr.NotFound, "no record at path: "+path)
			return
		}
		respondSuccess(w, http.StatusOK, rec)

	case "hash":
		v, err := s.hashStore.GetField(ctx, path, "current_hash")
		if err != nil {
			respondError(s.logger, w, apperr.StoreUnavailable, err.Error())
			return
		}
		if v == nil {
			respondError(s.logger, w, apperr.NotFound, "no record at path: "+path)
			return
		}
		respondSuccess(w, http.StatusOK, v)

	case "timestamp":
		v, err := s.hashStore.GetField(ctx, path, "current_dtg_latest")
		if err != nil {
			respondError(s.logger, w, apperr.StoreUnavailable, err.Error())
			return
		}
		if v == nil {
			respondError(s.logger, w, apperr.NotFound, "no record at path: "+path)
			return
		}
		respondSuccess(w, http.StatusOK, v)

	case "priority":
		paths, err := s.hashStore.PriorityUpdates(ctx)
		if err != nil {
			respondError(s.logger, w, apperr.StoreUnavailable, err.Error())
			return
		}
		respondSuccess(w, http.StatusOK, paths)

	case "untracked":
		paths, err := s.hashStore.FindUntracked(ctx)
		if err != nil {
			respondError(s.logger, w, apperr.StoreUnavailable, err.Error())
			return
		}
		respondSuccess(w, http.StatusOK, paths)

	case "orphaned":
		paths, err := s.hashStore.FindOrphans(ctx)
		if err != nil {
			respondError(s.logger, w, apperr.StoreUnavailable, err.Error())
			return
		}
		respondSuccess(w, http.StatusOK, paths)

	default:
		respondError(s.logger, w, apperr.ValidationError, "unsupported field: "+field)
	}
}

// handleHashtablePost implements POST /api/hashtable — upsert a HashRecord.
func (s *Server) handleHashtablePost(w http.ResponseWriter, r *http.Request) {
	var rec model.HashRecord
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		respondError(s.logger, w, apperr.ValidationError, "invalid JSON body: "+err.Error())
		return
	}
	if rec.Path == "" || rec.CurrentHash == "" {
		respondError(s.logger, w, apperr.ValidationError, "path and current_hash are required")
		return
	}

	result, err := s.hashStore.Upsert(r.Context(), &rec)
	if err != nil {
		if ae, ok := err.(*apperr.Error); ok && ae.Kind == apperr.ValidationError {
			respondError(s.logger, w, apperr.ValidationError, ae.Message)
			return
		}
		respondError(s.logger, w, apperr.StoreUnavailable, err.Error())
		return
	}
	respondSuccess(w, http.StatusOK, result)
}
