package http

import (
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"bilancio/internal/core"
	applog "bilancio/internal/log"
	"bilancio/internal/metrics"
	"bilancio/internal/render"
)

type indexPage struct {
	Budgets []core.Budget
}

type budgetPage struct {
	Budget  core.Budget
	Totals  core.Totals
	Diagram diagramPartial
	Import  bool
}

// diagramPartial is the data of the "diagram" template: a static rendering
// shown until the interactive session takes over.
type diagramPartial struct {
	BudgetID string
	Version  int64
	Width    int
	Height   int
	SVG      template.HTML
}

// budgetResponse is the JSON shape of a saved budget.
type budgetResponse struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Version   int64           `json:"version"`
	Income    []core.RawEntry `json:"income"`
	Expense   []core.RawEntry `json:"expense"`
	UpdatedAt time.Time       `json:"updated_at"`
	Totals    totalsResponse  `json:"totals"`
}

type totalsResponse struct {
	Income  float64 `json:"income"`
	Expense float64 `json:"expense"`
	Debt    float64 `json:"debt"`
	Savings float64 `json:"savings"`
}

func newBudgetResponse(b core.Budget) budgetResponse {
	t := b.Totals()
	return budgetResponse{
		ID:        b.ID,
		Name:      b.Name,
		Version:   b.Version,
		Income:    nonNil(b.Income),
		Expense:   nonNil(b.Expense),
		UpdatedAt: b.UpdatedAt,
		Totals:    totalsResponse{Income: t.Income, Expense: t.Expense, Debt: t.Debt, Savings: t.Savings},
	}
}

func nonNil(rows []core.RawEntry) []core.RawEntry {
	if rows == nil {
		return []core.RawEntry{}
	}
	return rows
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	budgets, err := s.store.ListBudgets(r.Context())
	if err != nil {
		s.structLog.LogError(r.Context(), "Failed to list budgets", err, applog.ComponentStorage, applog.OpList, nil)
		InternalServerError("Error loading budgets").Write(w)
		return
	}
	s.renderTemplate(w, r, "index.html", indexPage{Budgets: budgets})
}

func (s *Server) handleCreateBudget(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		BadRequestError("Invalid request format").Write(w)
		return
	}
	name := truncate(sanitizeInput(r.Form.Get("name")), 100)
	b, err := s.budgets.Create(r.Context(), name)
	if err != nil {
		code, msg := storeStatus(err)
		if code >= http.StatusInternalServerError {
			s.structLog.LogError(r.Context(), "Failed to create budget", err, applog.ComponentStorage, applog.OpCreate, nil)
		}
		ErrorResponse(code, msg).Write(w)
		return
	}

	s.redirect(w, r, "/budgets/"+b.ID)
}

// redirect sends htmx clients an HX-Redirect and everyone else a 303.
func (s *Server) redirect(w http.ResponseWriter, r *http.Request, target string) {
	if isHTMX(r) {
		NewHTMXResponse().Redirect(target).Write(w)
		return
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func (s *Server) handleBudgetPage(w http.ResponseWriter, r *http.Request) {
	b, err := s.store.GetBudget(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		code, msg := storeStatus(err)
		ErrorResponse(code, msg).Write(w)
		return
	}
	dp, err := s.diagramData(b)
	if err != nil {
		s.structLog.LogError(r.Context(), "Failed to render diagram", err, applog.ComponentRender, applog.OpRender,
			applog.LogFields{applog.FieldBudgetID: b.ID})
		InternalServerError("Error rendering diagram").Write(w)
		return
	}
	s.renderTemplate(w, r, "budget.html", budgetPage{
		Budget:  b,
		Totals:  b.Totals(),
		Diagram: dp,
		Import:  s.importer != nil,
	})
}

func (s *Server) diagramData(b core.Budget) (diagramPartial, error) {
	start := time.Now()
	svg, err := render.Budget(b.Income, b.Expense, float64(s.canvasWidth), float64(s.canvasHeight), s.params)
	if err != nil {
		metrics.ObserveRender(metrics.SourceHTTP, metrics.ResultError, start)
		return diagramPartial{}, err
	}
	metrics.ObserveRender(metrics.SourceHTTP, metrics.ResultOK, start)
	return diagramPartial{
		BudgetID: b.ID,
		Version:  b.Version,
		Width:    s.canvasWidth,
		Height:   s.canvasHeight,
		SVG:      template.HTML(svg),
	}, nil
}

// handleSaveEntries replaces both entry lists. Forms get the refreshed
// diagram partial back; JSON clients get the stored budget.
func (s *Server) handleSaveEntries(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	asJSON := strings.HasPrefix(r.Header.Get("Content-Type"), "application/json")

	var income, expense []core.RawEntry
	if asJSON {
		var body entriesPayload
		if err := decodeJSON(w, r, &body); err != nil {
			writeJSONError(w, http.StatusBadRequest, err.Error())
			return
		}
		income, expense = cleanEntries(body.Income), cleanEntries(body.Expense)
	} else {
		if err := r.ParseForm(); err != nil {
			BadRequestError("Invalid request format").Write(w)
			return
		}
		income = ParseEntriesForm(r.Form, core.SideIncome)
		expense = ParseEntriesForm(r.Form, core.SideExpense)
	}

	b, err := s.budgets.SaveEntries(r.Context(), id, income, expense)
	if err != nil {
		code, msg := storeStatus(err)
		if code >= http.StatusInternalServerError {
			s.structLog.LogError(r.Context(), "Failed to save entries", err, applog.ComponentStorage, applog.OpUpdate,
				applog.LogFields{applog.FieldBudgetID: id})
		}
		if asJSON {
			writeJSONError(w, code, msg)
		} else {
			ErrorResponse(code, msg).TriggerErrorNotification(msg).Write(w)
		}
		return
	}

	if asJSON {
		writeJSON(w, http.StatusOK, newBudgetResponse(b))
		return
	}

	dp, err := s.diagramData(b)
	if err != nil {
		s.structLog.LogError(r.Context(), "Failed to render diagram", err, applog.ComponentRender, applog.OpRender,
			applog.LogFields{applog.FieldBudgetID: b.ID})
		InternalServerError("Saved, but the diagram could not be drawn").Write(w)
		return
	}
	html, err := s.executePartial("diagram", dp)
	if err != nil {
		s.structLog.LogError(r.Context(), "Template execution failed", err, applog.ComponentTemplate, applog.OpRender,
			applog.LogFields{"template": "diagram"})
		InternalServerError("Error rendering diagram").Write(w)
		return
	}

	NewHTMXResponse().
		TriggerBudgetSaved(b.ID, b.Version).
		TriggerDiagramReload().
		TriggerSuccessNotification("Budget saved").
		BodyHTML(string(html)).
		Write(w)
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.budgets.Delete(r.Context(), id); err != nil {
		code, msg := storeStatus(err)
		if code >= http.StatusInternalServerError {
			s.structLog.LogError(r.Context(), "Failed to delete budget", err, applog.ComponentStorage, applog.OpDelete,
				applog.LogFields{applog.FieldBudgetID: id})
		}
		ErrorResponse(code, msg).Write(w)
		return
	}
	s.redirect(w, r, "/")
}

// handleImport replaces the budget's entries with the configured spreadsheet.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	if s.importer == nil {
		NotFoundError("Spreadsheet import is not configured").Write(w)
		return
	}
	id := chi.URLParam(r, "id")
	if _, err := s.store.GetBudget(r.Context(), id); err != nil {
		code, msg := storeStatus(err)
		ErrorResponse(code, msg).Write(w)
		return
	}

	income, expense, err := s.importer.ReadEntries(r.Context())
	if err != nil {
		s.structLog.LogError(r.Context(), "Spreadsheet import failed", err, applog.ComponentSheets, applog.OpImport,
			applog.LogFields{applog.FieldBudgetID: id})
		ErrorResponse(http.StatusBadGateway, "Could not read the spreadsheet").
			TriggerErrorNotification("Could not read the spreadsheet").
			Write(w)
		return
	}

	b, err := s.budgets.SaveEntries(r.Context(), id, cleanEntries(income), cleanEntries(expense))
	if err != nil {
		code, msg := storeStatus(err)
		if code >= http.StatusInternalServerError {
			s.structLog.LogError(r.Context(), "Failed to save imported entries", err, applog.ComponentStorage, applog.OpImport,
				applog.LogFields{applog.FieldBudgetID: id})
		}
		ErrorResponse(code, msg).TriggerErrorNotification(msg).Write(w)
		return
	}

	if isHTMX(r) {
		NewHTMXResponse().
			TriggerBudgetSaved(b.ID, b.Version).
			TriggerSuccessNotification("Entries imported").
			Redirect("/budgets/" + b.ID).
			Write(w)
		return
	}
	http.Redirect(w, r, "/budgets/"+b.ID, http.StatusSeeOther)
}
