package restapi

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/lucho00cuba/baseline-core/internal/model"
	"github.com/lucho00cuba/baseline-core/internal/pipeline"
	"github.com/lucho00cuba/baseline-core/internal/store"
)

// Server is the C3 REST boundary: a gorilla/mux-routed http.Handler over
// the HashStore/LogStore/pipeline.Source interfaces injected at
// construction, per SPEC_FULL.md §9's composition-root wiring.
type Server struct {
	hashStore     store.HashStore
	logStore      store.LogStore
	pipeline      pipeline.Source // nil on a remote site
	siteName      string
	isCore        bool
	logger        *slog.Logger
	router        *mux.Router
	recordCounter RecordCounter
	siteStatus    SiteStatusWriter
}

// RecordCounter supplies the supplemental record-count stats on
// GET /api/health (SPEC_FULL.md §5).
type RecordCounter interface {
	HashRecordCount() (int64, error)
	LogEntryCount() (int64, error)
}

// SiteStatusWriter persists a remote site's local-vs-core BFS comparison
// batch into the core's per-site status dashboard segment — distinct from
// the authoritative HashStore (spec §6.1 POST /api/remote_status).
type SiteStatusWriter interface {
	PutRemoteStatus(ctx context.Context, siteName string, updates []model.RemoteStatusUpdate, dropPrevious bool, rootPath string) (int, error)
}

// NewServer builds the router. /api/pipeline and /api/remote_status are
// mounted only when isCore is true; pipelineSource may be nil on a remote site.
func NewServer(hashStore store.HashStore, logStore store.LogStore, pipelineSource pipeline.Source, recordCounter RecordCounter, siteStatus SiteStatusWriter, siteName string, isCore bool, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		hashStore:     hashStore,
		logStore:      logStore,
		pipeline:      pipelineSource,
		siteName:      siteName,
		isCore:        isCore,
		logger:        logger,
		recordCounter: recordCounter,
		siteStatus:    siteStatus,
	}
	s.router = s.buildRouter()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) buildRouter() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.recoverMiddleware)

	r.HandleFunc("/api/hashtable", s.handleHashtableGet).Methods(http.MethodGet)
	r.HandleFunc("/api/hashtable", s.handleHashtablePost).Methods(http.MethodPost)

	r.HandleFunc("/api/logs", s.handleLogsGet).Methods(http.MethodGet)
	r.HandleFunc("/api/logs", s.handleLogsPost).Methods(http.MethodPost)
	r.HandleFunc("/api/logs", s.handleLogsDelete).Methods(http.MethodDelete)

	r.HandleFunc("/api/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/api/lifecheck", s.handleHealth).Methods(http.MethodGet)

	r.HandleFunc("/api/docs", s.handleDocs).Methods(http.MethodGet)

	if s.isCore {
		r.HandleFunc("/api/pipeline", s.handlePipelineGet).Methods(http.MethodGet)
		r.HandleFunc("/api/pipeline", s.handlePipelinePost).Methods(http.MethodPost)
		r.HandleFunc("/api/remote_status", s.handleRemoteStatus).Methods(http.MethodPost)
	}

	r.NotFoundHandler = http.HandlerFunc(s.handleNotFound)
	r.MethodNotAllowedHandler = http.HandlerFunc(s.handleMethodNotAllowed)

	return r
}

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("panic recovered in request handler", "panic", rec, "path", r.URL.Path)
				writeJSON(w, http.StatusInternalServerError, errorEnvelope{
					Error:   "internal_error",
					Message: "an unexpected error occurred",
					Status:  http.StatusInternalServerError,
				})
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, errorEnvelope{Error: "not_found", Message: "resource not found", Status: http.StatusNotFound})
}

func (s *Server) handleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusMethodNotAllowed, errorEnvelope{Error: "method_not_allowed", Message: "method not allowed", Status: http.StatusMethodNotAllowed})
}

func (s *Server) handleDocs(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, http.StatusOK, map[string]any{
		"resources": []map[string]string{
			{"path": "/api/hashtable", "description": "point/range read and upsert of HashRecords"},
			{"path": "/api/logs", "description": "append, consolidate, list, and delete LogEntries"},
			{"path": "/api/health", "description": "liveness and per-component health"},
			{"path": "/api/pipeline", "description": "core only: authorized updates and site sync"},
			{"path": "/api/remote_status", "description": "core only: batch remote-site hash status"},
		},
	})
}
