package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"path"
	"strconv"
	"strings"

	"designforge/internal/artifact"
	"designforge/internal/export"
	"designforge/internal/logging"
	"designforge/internal/pipeline"
	"designforge/internal/service/design"
	"designforge/internal/store"
	"designforge/internal/types"
)

// Designs is the part of the design service the API needs.
type Designs interface {
	Start(ctx context.Context, description string, productType types.ProductType) (string, error)
	Snapshot(runID string) (design.Snapshot, error)
	Subscribe(runID string) (<-chan design.Event, func(), error)
	Recent(ctx context.Context, limit int) ([]store.Record, error)
	Record(ctx context.Context, id string) (store.Record, error)
	Asset(ctx context.Context, recordID, path string) (string, []byte, error)
}

type Handler struct {
	designs Designs
	log     *slog.Logger
}

func NewHandler(designs Designs, logger *slog.Logger) *Handler {
	return &Handler{designs: designs, log: logging.OrDefault(logger)}
}

// maxRequestBody bounds POST bodies; descriptions are prose, not files.
const maxRequestBody = 1 << 20

type createDesignRequest struct {
	Description string `json:"description"`
	ProductType string `json:"productType"`
}

type createDesignResponse struct {
	RunID string `json:"runId"`
}

// recordSummary is a list entry without the packet body.
type recordSummary struct {
	ID          string            `json:"id"`
	Date        string            `json:"date"`
	ProductName string            `json:"productName"`
	ProductType types.ProductType `json:"productType"`
}

func (h *Handler) handleCreateDesign(w http.ResponseWriter, r *http.Request) {
	var req createDesignRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body: "+err.Error())
		return
	}
	productType, err := types.ParseProductType(req.ProductType)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	runID, err := h.designs.Start(r.Context(), req.Description, productType)
	if err != nil {
		if errors.Is(err, pipeline.ErrInvalidInput) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.log.Error("start design run failed", slog.Any("error", err))
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	w.Header().Set("Location", "/api/runs/"+runID)
	writeJSON(w, http.StatusAccepted, createDesignResponse{RunID: runID})
}

func (h *Handler) handleRun(w http.ResponseWriter, r *http.Request) {
	snap, err := h.designs.Snapshot(r.PathValue("runID"))
	if err != nil {
		h.writeLookupError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (h *Handler) handleListDesigns(w http.ResponseWriter, r *http.Request) {
	limit := store.DefaultRecentLimit
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 100 {
			writeError(w, http.StatusBadRequest, "limit must be between 1 and 100")
			return
		}
		limit = n
	}
	recs, err := h.designs.Recent(r.Context(), limit)
	if err != nil {
		h.log.Error("list designs failed", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "list designs failed")
		return
	}
	out := make([]recordSummary, 0, len(recs))
	for _, rec := range recs {
		out = append(out, recordSummary{ID: rec.ID, Date: rec.Date, ProductName: rec.ProductName, ProductType: rec.ProductType})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) handleGetDesign(w http.ResponseWriter, r *http.Request) {
	rec, err := h.designs.Record(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeLookupError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	rec, err := h.designs.Record(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeLookupError(w, err)
		return
	}
	page, err := export.HTML(rec.Packet)
	if err != nil {
		h.log.Error("export failed", slog.String("record_id", rec.ID), slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "export failed")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": export.Filename(rec.Packet)}))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(page)
}

func (h *Handler) handleAsset(w http.ResponseWriter, r *http.Request) {
	id, p := r.PathValue("id"), r.PathValue("path")
	url, data, err := h.designs.Asset(r.Context(), id, p)
	if err != nil {
		h.writeLookupError(w, err)
		return
	}
	if url != "" {
		http.Redirect(w, r, url, http.StatusFound)
		return
	}
	ct := mime.TypeByExtension(path.Ext(p))
	if ct == "" {
		ct = http.DetectContentType(data)
	}
	w.Header().Set("Content-Type", ct)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) writeLookupError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, design.ErrRunNotFound), errors.Is(err, store.ErrNotFound), errors.Is(err, artifact.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		h.log.Error("lookup failed", slog.Any("error", err))
		writeError(w, http.StatusBadRequest, err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		fmt.Fprintf(w, `{"error":%q}`, err.Error())
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
