package api

import (
	"encoding/json"
	"net/http"

	"github.com/tiaraboard/tiara/internal/app"
)

// SubmissionsHandler handles score submission requests.
type SubmissionsHandler struct {
	deps Dependencies
}

// NewSubmissionsHandler creates a new submissions handler.
func NewSubmissionsHandler(deps Dependencies) *SubmissionsHandler {
	return &SubmissionsHandler{deps: deps}
}

type submitRequest struct {
	CategoryID   string               `json:"category_id"`
	ContestantID string               `json:"contestant_id"`
	Scores       []app.CriterionScore `json:"scores"`
}

// HandleSubmit handles POST /submissions. The judge identity comes from
// the bearer token, never from the request body.
func (h *SubmissionsHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	const op = "api.submissions"

	claims := ClaimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", NewKind(op, ErrUnauthorized))
		return
	}

	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if req.CategoryID == "" || req.ContestantID == "" || len(req.Scores) == 0 {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}

	result, err := h.deps.SubmitScores(r.Context(), app.Submission{
		JudgeID:      claims.Sub,
		CategoryID:   req.CategoryID,
		ContestantID: req.ContestantID,
		Scores:       req.Scores,
	})
	if err != nil {
		writeDomainError(w, op, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}
