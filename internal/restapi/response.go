// Package restapi implements C3's HTTP façade: the five resources named in
// spec §4.3/§6.1, routed with gorilla/mux (grounded on
// kubernetes-sigs-kind/pkg/server/server.go), with the JSON envelope
// conventions grounded on
// original_source/squishy_REST_API/routes/utils.py.
package restapi

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/lucho00cuba/baseline-core/internal/apperr"
)

type successEnvelope struct {
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

type errorEnvelope struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Status  int    `json:"status"`
}

// respondSuccess writes {"message": "Success", "data": <payload>} at the
// given status code.
func respondSuccess(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, successEnvelope{Message: "Success", Data: data})
}

// respondError writes {"error": <kind>, "message": <text>, "status": <code>}
// and logs at ERROR, matching create_error_response's logging side effect.
func respondError(logger *slog.Logger, w http.ResponseWriter, kind apperr.Kind, message string) {
	status := kind.StatusCode()
	logger.Error("request failed", "kind", kind, "message", message, "status", status)
	writeJSON(w, status, errorEnvelope{Error: string(kind), Message: message, Status: status})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
