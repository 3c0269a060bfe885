package api

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"sort"
	"strconv"
)

// ExportHandler serves standings as CSV for printing and archival.
type ExportHandler struct {
	deps Dependencies
}

// NewExportHandler creates a new export handler.
func NewExportHandler(deps Dependencies) *ExportHandler {
	return &ExportHandler{deps: deps}
}

// HandleCategoryCSV handles GET /export/category.csv?division=&category=.
func (h *ExportHandler) HandleCategoryCSV(w http.ResponseWriter, r *http.Request) {
	const op = "api.export"

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

	// Column order for judge ranks must be stable across exports.
	judgeIDs := make([]string, 0)
	seen := make(map[string]struct{})
	for _, row := range rows {
		for id := range row.JudgeRanks {
			if _, ok := seen[id]; !ok {
				seen[id] = struct{}{}
				judgeIDs = append(judgeIDs, id)
			}
		}
	}
	sort.Strings(judgeIDs)

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", "category-"+categoryID+".csv"))

	cw := csv.NewWriter(w)
	header := []string{"placement", "number", "name", "rank_sum"}
	for _, id := range judgeIDs {
		header = append(header, "judge_"+id)
	}
	_ = cw.Write(header)
	for _, row := range rows {
		rec := []string{
			formatRank(row.Placement),
			strconv.Itoa(row.Number),
			row.Name,
			formatRank(row.RankSum),
		}
		for _, id := range judgeIDs {
			if rank, ok := row.JudgeRanks[id]; ok {
				rec = append(rec, formatRank(rank))
			} else {
				rec = append(rec, "")
			}
		}
		_ = cw.Write(rec)
	}
	cw.Flush()
}

// HandleOverallCSV handles GET /export/overall.csv?division=.
func (h *ExportHandler) HandleOverallCSV(w http.ResponseWriter, r *http.Request) {
	const op = "api.export"

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

	categoryIDs := make([]string, 0)
	seen := make(map[string]struct{})
	for _, row := range rows {
		for id := range row.CategoryPlacements {
			if _, ok := seen[id]; !ok {
				seen[id] = struct{}{}
				categoryIDs = append(categoryIDs, id)
			}
		}
	}
	sort.Strings(categoryIDs)

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", "overall-"+divisionID+".csv"))

	cw := csv.NewWriter(w)
	header := []string{"placement", "number", "name", "total_points", "title"}
	for _, id := range categoryIDs {
		header = append(header, "category_"+id)
	}
	_ = cw.Write(header)
	for _, row := range rows {
		rec := []string{
			formatRank(row.Placement),
			strconv.Itoa(row.Number),
			row.Name,
			formatRank(row.TotalPoints),
			row.Title,
		}
		for _, id := range categoryIDs {
			if placement, ok := row.CategoryPlacements[id]; ok {
				rec = append(rec, formatRank(placement))
			} else {
				rec = append(rec, "")
			}
		}
		_ = cw.Write(rec)
	}
	cw.Flush()
}

// formatRank renders whole ranks without a decimal point and tied ranks
// with one decimal, so "2" and "2.5" both read naturally on a printout.
func formatRank(v float64) string {
	if v == float64(int64(v)) {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'f', 1, 64)
}
