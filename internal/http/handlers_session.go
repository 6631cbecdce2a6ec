package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"bilancio/internal/core"
	"bilancio/internal/flow"
	applog "bilancio/internal/log"
	"bilancio/internal/metrics"
	"bilancio/internal/render"
)

// createSessionRequest starts a session either from a stored budget or from
// entries sent inline, never both.
type createSessionRequest struct {
	BudgetID string          `json:"budget_id,omitempty"`
	Income   []core.RawEntry `json:"income,omitempty"`
	Expense  []core.RawEntry `json:"expense,omitempty"`
	Width    float64         `json:"width,omitempty"`
	Height   float64         `json:"height,omitempty"`
}

type sessionResponse struct {
	ID       string     `json:"id"`
	BudgetID string     `json:"budget_id,omitempty"`
	Scene    flow.Scene `json:"scene"`
}

// writeScene answers a session request with the scene as JSON, or as SVG for
// clients that accept it. X-Animating tells the client whether to keep ticking.
func (s *Server) writeScene(w http.ResponseWriter, r *http.Request, status int, sess *session, sc flow.Scene) {
	w.Header().Set("X-Diagram-Session", sess.id)
	w.Header().Set("X-Animating", strconv.FormatBool(sc.Animating))
	if wantsSVG(r) {
		b, err := render.Bytes(sc)
		if err != nil {
			s.structLog.LogError(r.Context(), "SVG encoding failed", err, applog.ComponentRender, applog.OpRender, nil)
			http.Error(w, "render failed", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", render.ContentType)
		w.WriteHeader(status)
		_, _ = w.Write(b)
		return
	}
	writeJSON(w, status, sessionResponse{ID: sess.id, BudgetID: sess.budgetID, Scene: sc})
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.BudgetID != "" && (len(req.Income) > 0 || len(req.Expense) > 0) {
		writeJSONError(w, http.StatusBadRequest, "send either budget_id or entries, not both")
		return
	}
	width, height, err := s.canvas(req.Width, req.Height)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	income, expense := cleanEntries(req.Income), cleanEntries(req.Expense)
	if req.BudgetID != "" {
		b, err := s.store.GetBudget(r.Context(), req.BudgetID)
		if err != nil {
			code, msg := storeStatus(err)
			writeJSONError(w, code, msg)
			return
		}
		income, expense = b.Income, b.Expense
	}
	if len(income) > core.MaxEntriesPerSide || len(expense) > core.MaxEntriesPerSide {
		writeJSONError(w, http.StatusUnprocessableEntity, core.ErrTooManyItems.Error())
		return
	}

	start := time.Now()
	sess, err := s.sessions.create(req.BudgetID, income, expense, width, height)
	switch {
	case err != nil:
		metrics.ObserveRender(metrics.SourceSession, metrics.ResultError, start)
	case sess.diagram == nil:
		metrics.ObserveRender(metrics.SourceSession, metrics.ResultEmpty, start)
	default:
		metrics.ObserveRender(metrics.SourceSession, metrics.ResultOK, start)
	}
	if err != nil {
		s.structLog.LogError(r.Context(), "Failed to start diagram session", err, applog.ComponentSession, applog.OpCreate,
			applog.LogFields{applog.FieldBudgetID: req.BudgetID})
		writeJSONError(w, http.StatusInternalServerError, "render failed")
		return
	}
	metrics.SessionEvents.WithLabelValues("create").Inc()

	applog.FromContext(r.Context()).DebugContext(r.Context(), "Diagram session started",
		applog.FieldSessionID, sess.id,
		applog.FieldBudgetID, req.BudgetID)

	w.Header().Set("Location", "/api/diagrams/"+sess.id)
	s.writeScene(w, r, http.StatusCreated, sess, sess.scene())
}

// lookupSession writes a 404 when the session is unknown or expired.
func (s *Server) lookupSession(w http.ResponseWriter, r *http.Request) (*session, bool) {
	sess, ok := s.sessions.get(chi.URLParam(r, "sid"))
	if !ok {
		writeJSONError(w, http.StatusNotFound, "diagram session not found or expired")
		return nil, false
	}
	return sess, true
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookupSession(w, r)
	if !ok {
		return
	}
	s.writeScene(w, r, http.StatusOK, sess, sess.scene())
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if !s.sessions.delete(chi.URLParam(r, "sid")) {
		writeJSONError(w, http.StatusNotFound, "diagram session not found or expired")
		return
	}
	metrics.SessionEvents.WithLabelValues("delete").Inc()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSessionPointer(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookupSession(w, r)
	if !ok {
		return
	}
	var ev pointerEvent
	if err := decodeJSON(w, r, &ev); err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	sc, err := sess.pointer(ev, s.now())
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	metrics.SessionEvents.WithLabelValues("pointer_" + ev.Type).Inc()
	s.writeScene(w, r, http.StatusOK, sess, sc)
}

func (s *Server) handleSessionTick(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookupSession(w, r)
	if !ok {
		return
	}
	metrics.SessionEvents.WithLabelValues("tick").Inc()
	s.writeScene(w, r, http.StatusOK, sess, sess.tick(s.now()))
}

func (s *Server) handleSessionClick(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookupSession(w, r)
	if !ok {
		return
	}
	var ev clickEvent
	if err := decodeJSON(w, r, &ev); err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	sc, err := sess.click(ev)
	if err != nil {
		code := http.StatusBadRequest
		if errors.Is(err, flow.ErrUnknownNode) {
			code = http.StatusNotFound
		}
		writeJSONError(w, code, err.Error())
		return
	}
	metrics.SessionEvents.WithLabelValues("click").Inc()
	s.writeScene(w, r, http.StatusOK, sess, sc)
}

func (s *Server) handleSessionView(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookupSession(w, r)
	if !ok {
		return
	}
	var ev viewEvent
	if err := decodeJSON(w, r, &ev); err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if ev.Zoom < 0 {
		writeJSONError(w, http.StatusBadRequest, "zoom factor must be positive")
		return
	}
	metrics.SessionEvents.WithLabelValues("view").Inc()
	s.writeScene(w, r, http.StatusOK, sess, sess.view(ev))
}
