package api

import (
	"encoding/json"
	"net/http"
)

// LocksHandler handles submission lock requests.
type LocksHandler struct {
	deps Dependencies
}

// NewLocksHandler creates a new locks handler.
func NewLocksHandler(deps Dependencies) *LocksHandler {
	return &LocksHandler{deps: deps}
}

type lockRequest struct {
	CategoryID   string `json:"category_id"`
	ContestantID string `json:"contestant_id"`
}

type lockResponse struct {
	Locked bool `json:"locked"`
}

// HandleCreate handles POST /locks. Judges retry this after a submission
// that stored scores but failed to lock. The operation is idempotent.
func (h *LocksHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	const op = "api.locks"

	claims := ClaimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", NewKind(op, ErrUnauthorized))
		return
	}

	var req lockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if req.CategoryID == "" || req.ContestantID == "" {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}

	if err := h.deps.Lock(r.Context(), claims.Sub, req.CategoryID, req.ContestantID); err != nil {
		writeDomainError(w, op, err)
		return
	}
	writeJSON(w, http.StatusCreated, lockResponse{Locked: true})
}

// HandleRemove handles DELETE /locks/{judgeID}/{categoryID}/{contestantID}.
// Administrators release a lock so the judge can resubmit.
func (h *LocksHandler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	const op = "api.locks"

	judgeID := r.PathValue("judgeID")
	categoryID := r.PathValue("categoryID")
	contestantID := r.PathValue("contestantID")
	if judgeID == "" || categoryID == "" || contestantID == "" {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}

	if err := h.deps.Unlock(r.Context(), judgeID, categoryID, contestantID); err != nil {
		writeDomainError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, lockResponse{Locked: false})
}
