package http

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"bilancio/internal/core"
	"bilancio/internal/flow"
	applog "bilancio/internal/log"
	"bilancio/internal/metrics"
	"bilancio/internal/render"
	"bilancio/internal/storage"
)

// renderRequest is the body of POST /api/render. A zero width or height
// uses the server's canvas size.
type renderRequest struct {
	Income  []core.RawEntry `json:"income"`
	Expense []core.RawEntry `json:"expense"`
	Width   float64         `json:"width"`
	Height  float64         `json:"height"`
}

func (s *Server) canvas(width, height float64) (float64, float64, error) {
	if width == 0 {
		width = float64(s.canvasWidth)
	}
	if height == 0 {
		height = float64(s.canvasHeight)
	}
	w, err := checkCanvas("width", width)
	if err != nil {
		return 0, 0, err
	}
	h, err := checkCanvas("height", height)
	if err != nil {
		return 0, 0, err
	}
	return w, h, nil
}

// scene builds the scene for a set of entries, falling back to the empty
// placeholder when nothing can be drawn.
func (s *Server) scene(source string, income, expense []core.RawEntry, width, height float64) (flow.Scene, error) {
	start := time.Now()
	d, err := flow.Render(income, expense, width, height, s.params)
	switch {
	case errors.Is(err, flow.ErrEmpty):
		metrics.ObserveRender(source, metrics.ResultEmpty, start)
		return flow.EmptyScene(width, height, s.params), nil
	case err != nil:
		metrics.ObserveRender(source, metrics.ResultError, start)
		return flow.Scene{}, err
	}
	metrics.ObserveRender(source, metrics.ResultOK, start)
	return d.Scene(), nil
}

// handleAPIRender draws entries posted as JSON without storing them.
func (s *Server) handleAPIRender(w http.ResponseWriter, r *http.Request) {
	var req renderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(req.Income) > core.MaxEntriesPerSide || len(req.Expense) > core.MaxEntriesPerSide {
		writeJSONError(w, http.StatusUnprocessableEntity, core.ErrTooManyItems.Error())
		return
	}
	width, height, err := s.canvas(req.Width, req.Height)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	sc, err := s.scene(metrics.SourceHTTP, cleanEntries(req.Income), cleanEntries(req.Expense), width, height)
	if err != nil {
		s.structLog.LogError(r.Context(), "Render failed", err, applog.ComponentRender, applog.OpRender, nil)
		writeJSONError(w, http.StatusInternalServerError, "render failed")
		return
	}
	s.structLog.LogDiagramRendered(r.Context(), "", len(sc.Nodes), len(sc.Links), width, height)

	if wantsSVG(r) {
		s.writeSVG(w, r, sc)
		return
	}
	writeJSON(w, http.StatusOK, sc)
}

func (s *Server) writeSVG(w http.ResponseWriter, r *http.Request, sc flow.Scene) {
	b, err := render.Bytes(sc)
	if err != nil {
		s.structLog.LogError(r.Context(), "SVG encoding failed", err, applog.ComponentRender, applog.OpRender, nil)
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", render.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(b)))
	_, _ = w.Write(b)
}

// handleDiagramSVG draws the stored budget at the requested size.
func (s *Server) handleDiagramSVG(w http.ResponseWriter, r *http.Request) {
	width, height, err := ParseCanvasSize(r.URL.Query(), s.canvasWidth, s.canvasHeight)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	b, err := s.store.GetBudget(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		code, msg := storeStatus(err)
		http.Error(w, msg, code)
		return
	}

	etag := fmt.Sprintf(`"%s-v%d-%gx%g"`, b.ID, b.Version, width, height)
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "no-cache")
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	sc, err := s.scene(metrics.SourceHTTP, b.Income, b.Expense, width, height)
	if err != nil {
		s.structLog.LogError(r.Context(), "Render failed", err, applog.ComponentRender, applog.OpRender,
			applog.LogFields{applog.FieldBudgetID: b.ID})
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	s.structLog.LogDiagramRendered(r.Context(), b.ID, len(sc.Nodes), len(sc.Links), width, height)
	s.writeSVG(w, r, sc)
}

// handleSnapshotSVG serves the latest snapshot rendered by the worker.
func (s *Server) handleSnapshotSVG(w http.ResponseWriter, r *http.Request) {
	snap, err := s.store.GetSnapshot(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			http.Error(w, "snapshot not rendered yet", http.StatusNotFound)
			return
		}
		s.structLog.LogError(r.Context(), "Failed to load snapshot", err, applog.ComponentStorage, applog.OpRead, nil)
		http.Error(w, "snapshot unavailable", http.StatusInternalServerError)
		return
	}

	etag := fmt.Sprintf(`"%s-v%d"`, snap.BudgetID, snap.Version)
	w.Header().Set("ETag", etag)
	w.Header().Set("Last-Modified", snap.RenderedAt.UTC().Format(http.TimeFormat))
	w.Header().Set("Cache-Control", "no-cache")
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Type", render.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(snap.SVG)))
	_, _ = w.Write(snap.SVG)
}
