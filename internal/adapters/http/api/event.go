package api

import (
	"net/http"
)

// EventHandler serves the seeded event roster: divisions, categories
// and contestants.
type EventHandler struct {
	deps Dependencies
}

// NewEventHandler creates a new event handler.
func NewEventHandler(deps Dependencies) *EventHandler {
	return &EventHandler{deps: deps}
}

// HandleDivisions handles GET /divisions.
func (h *EventHandler) HandleDivisions(w http.ResponseWriter, r *http.Request) {
	const op = "api.event"

	divisions, err := h.deps.Divisions(r.Context())
	if err != nil {
		writeDomainError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, divisions)
}

// HandleCategories handles GET /categories.
func (h *EventHandler) HandleCategories(w http.ResponseWriter, r *http.Request) {
	const op = "api.event"

	categories, err := h.deps.Categories(r.Context())
	if err != nil {
		writeDomainError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, categories)
}

// HandleContestants handles GET /contestants?division=.
func (h *EventHandler) HandleContestants(w http.ResponseWriter, r *http.Request) {
	const op = "api.event"

	divisionID := r.URL.Query().Get("division")
	if divisionID == "" {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}

	contestants, err := h.deps.Contestants(r.Context(), divisionID)
	if err != nil {
		writeDomainError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, contestants)
}
