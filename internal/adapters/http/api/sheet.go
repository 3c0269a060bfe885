package api

import (
	"net/http"
)

// SheetHandler serves a judge's saved score sheet.
type SheetHandler struct {
	deps Dependencies
}

// NewSheetHandler creates a new sheet handler.
func NewSheetHandler(deps Dependencies) *SheetHandler {
	return &SheetHandler{deps: deps}
}

// HandleSheet handles GET /judges/{judgeID}/sheet?category=. A judge can
// read only their own sheet; administrators can read any.
func (h *SheetHandler) HandleSheet(w http.ResponseWriter, r *http.Request) {
	const op = "api.sheet"

	claims := ClaimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", NewKind(op, ErrUnauthorized))
		return
	}

	judgeID := r.PathValue("judgeID")
	categoryID := r.URL.Query().Get("category")
	if judgeID == "" || categoryID == "" {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	if claims.Role != RoleAdmin && claims.Sub != judgeID {
		writeError(w, http.StatusForbidden, "forbidden", NewKind(op, ErrForbidden))
		return
	}

	entries, err := h.deps.JudgeSheet(r.Context(), judgeID, categoryID)
	if err != nil {
		writeDomainError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}
