package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/artemiysm/TG-Video/internal/domain"
)

// ActiveLister reports the download requests currently in flight.
type ActiveLister interface {
	Active() []domain.ActiveRequest
}

// RequestHandler exposes in-flight download requests.
type RequestHandler struct {
	requests ActiveLister
	logger   *slog.Logger
}

// NewRequestHandler creates a new RequestHandler.
func NewRequestHandler(requests ActiveLister, logger *slog.Logger) *RequestHandler {
	return &RequestHandler{
		requests: requests,
		logger:   logger,
	}
}

// ListRequests handles GET /requests.
func (h *RequestHandler) ListRequests(w http.ResponseWriter, r *http.Request) {
	active := h.requests.Active()

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"count":    len(active),
		"requests": active,
	})
}

// GetRequest handles GET /requests/{requestID}.
func (h *RequestHandler) GetRequest(w http.ResponseWriter, r *http.Request) {
	requestID, err := uuid.Parse(chi.URLParam(r, "requestID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request ID")
		return
	}

	for _, req := range h.requests.Active() {
		if req.ID == requestID {
			writeJSON(w, http.StatusOK, req)
			return
		}
	}

	h.logger.Debug("request not in flight", "request_id", requestID)
	writeError(w, http.StatusNotFound, "request not found")
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{
		"error": message,
	})
}
