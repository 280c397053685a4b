package server

import (
	"log/slog"
	"net/http"

	"designforge/internal/logging"
)

func NewMux(h *Handler, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/designs", h.handleCreateDesign)
	mux.HandleFunc("GET /api/designs", h.handleListDesigns)
	mux.HandleFunc("GET /api/designs/{id}", h.handleGetDesign)
	mux.HandleFunc("GET /api/designs/{id}/export", h.handleExport)
	mux.HandleFunc("GET /api/designs/{id}/assets/{path...}", h.handleAsset)

	mux.HandleFunc("GET /api/runs/{runID}", h.handleRun)
	mux.HandleFunc("GET /api/runs/{runID}/ws", h.handleRunStream)

	mux.HandleFunc("GET /healthz", h.handleHealth)

	return CORS(AccessLog(logging.OrDefault(logger), mux))
}
