package api

import (
	"net/http"
)

// InsightsHandler serves per-contestant analytics.
type InsightsHandler struct {
	deps Dependencies
}

// NewInsightsHandler creates a new insights handler.
func NewInsightsHandler(deps Dependencies) *InsightsHandler {
	return &InsightsHandler{deps: deps}
}

// HandleReport handles GET /insights/{contestantID}?division=.
func (h *InsightsHandler) HandleReport(w http.ResponseWriter, r *http.Request) {
	const op = "api.insights"

	contestantID := r.PathValue("contestantID")
	divisionID := r.URL.Query().Get("division")
	if contestantID == "" || divisionID == "" {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}

	report, err := h.deps.Insights(r.Context(), divisionID, contestantID)
	if err != nil {
		writeDomainError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// HandleHeadToHead handles GET /headtohead?division=&a=&b=.
func (h *InsightsHandler) HandleHeadToHead(w http.ResponseWriter, r *http.Request) {
	const op = "api.insights"

	divisionID := r.URL.Query().Get("division")
	a := r.URL.Query().Get("a")
	b := r.URL.Query().Get("b")
	if divisionID == "" || a == "" || b == "" {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}

	cmp, err := h.deps.HeadToHead(r.Context(), divisionID, a, b)
	if err != nil {
		writeDomainError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, cmp)
}
