package api

import (
	"net/http"
)

// StandingsHandler serves category and overall standings.
type StandingsHandler struct {
	deps Dependencies
}

// NewStandingsHandler creates a new standings handler.
func NewStandingsHandler(deps Dependencies) *StandingsHandler {
	return &StandingsHandler{deps: deps}
}

// HandleCategory handles GET /standings/category?division=&category=.
func (h *StandingsHandler) HandleCategory(w http.ResponseWriter, r *http.Request) {
	const op = "api.standings"

	divisionID := r.URL.Query().Get("division")
	categoryID := r.URL.Query().Get("category")
	if divisionID == "" || categoryID == "" {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}

	rows, err := h.deps.CategoryStandings(r.Context(), divisionID, categoryID)
	if err != nil {
		writeDomainError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

// HandleOverall handles GET /standings/overall?division=.
func (h *StandingsHandler) HandleOverall(w http.ResponseWriter, r *http.Request) {
	const op = "api.standings"

	divisionID := r.URL.Query().Get("division")
	if divisionID == "" {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}

	rows, err := h.deps.OverallStandings(r.Context(), divisionID)
	if err != nil {
		writeDomainError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}
