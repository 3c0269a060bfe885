// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/tiaraboard/tiara/internal/adapters/repository"
	"github.com/tiaraboard/tiara/internal/app"
	"github.com/tiaraboard/tiara/internal/domain/insight"
	"github.com/tiaraboard/tiara/internal/domain/model"
	"github.com/tiaraboard/tiara/internal/domain/scoring"
	"github.com/tiaraboard/tiara/internal/domain/types"
)

// Dependencies required by the HTTP handlers. The interface bundle keeps
// the handler layer loosely coupled to the service implementation.
type Dependencies interface {
	SubmitScores(ctx context.Context, sub app.Submission) (app.SubmissionResult, error)
	Lock(ctx context.Context, judgeID, categoryID, contestantID string) error
	Unlock(ctx context.Context, judgeID, categoryID, contestantID string) error

	CategoryStandings(ctx context.Context, divisionID, categoryID string) ([]types.CategoryRow, error)
	OverallStandings(ctx context.Context, divisionID string) ([]types.OverallRow, error)
	Insights(ctx context.Context, divisionID, contestantID string) (insight.Report, error)
	HeadToHead(ctx context.Context, divisionID, a, b string) (insight.HeadToHead, error)
	JudgeSheet(ctx context.Context, judgeID, categoryID string) ([]types.SheetEntry, error)

	JudgeByAccessCode(ctx context.Context, code string) (model.Judge, error)
	Divisions(ctx context.Context) ([]model.Division, error)
	Categories(ctx context.Context) ([]model.Category, error)
	Contestants(ctx context.Context, divisionID string) ([]model.Contestant, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	auth        *AuthService
	health      *HealthHandler
	stats       *StatsHandler
	submissions *SubmissionsHandler
	locks       *LocksHandler
	standings   *StandingsHandler
	insights    *InsightsHandler
	export      *ExportHandler
	sheet       *SheetHandler
	event       *EventHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, auth *AuthService) *Server {
	return &Server{
		auth:        auth,
		health:      NewHealthHandler(),
		stats:       NewStatsHandler(statsProvider),
		submissions: NewSubmissionsHandler(deps),
		locks:       NewLocksHandler(deps),
		standings:   NewStandingsHandler(deps),
		insights:    NewInsightsHandler(deps),
		export:      NewExportHandler(deps),
		sheet:       NewSheetHandler(deps),
		event:       NewEventHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.health.HandleHealth, "healthz"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.stats.HandleStats, "stats"))

	mux.HandleFunc("POST /login", MetricsMiddleware(s.auth.HandleLogin, "login"))

	mux.HandleFunc("POST /submissions",
		MetricsMiddleware(s.auth.RequireRole(RoleJudge, s.submissions.HandleSubmit), "submissions"))
	mux.HandleFunc("POST /locks",
		MetricsMiddleware(s.auth.RequireRole(RoleJudge, s.locks.HandleCreate), "locks"))
	mux.HandleFunc("DELETE /locks/{judgeID}/{categoryID}/{contestantID}",
		MetricsMiddleware(s.auth.RequireRole(RoleAdmin, s.locks.HandleRemove), "locks"))

	mux.HandleFunc("GET /standings/category", MetricsMiddleware(s.standings.HandleCategory, "standings_category"))
	mux.HandleFunc("GET /standings/overall", MetricsMiddleware(s.standings.HandleOverall, "standings_overall"))
	mux.HandleFunc("GET /insights/{contestantID}", MetricsMiddleware(s.insights.HandleReport, "insights"))
	mux.HandleFunc("GET /headtohead", MetricsMiddleware(s.insights.HandleHeadToHead, "headtohead"))
	mux.HandleFunc("GET /export/category.csv", MetricsMiddleware(s.export.HandleCategoryCSV, "export_category"))
	mux.HandleFunc("GET /export/overall.csv", MetricsMiddleware(s.export.HandleOverallCSV, "export_overall"))

	mux.HandleFunc("GET /judges/{judgeID}/sheet",
		MetricsMiddleware(s.auth.RequireAuth(s.sheet.HandleSheet), "judge_sheet"))

	mux.HandleFunc("GET /divisions", MetricsMiddleware(s.event.HandleDivisions, "divisions"))
	mux.HandleFunc("GET /categories", MetricsMiddleware(s.event.HandleCategories, "categories"))
	mux.HandleFunc("GET /contestants", MetricsMiddleware(s.event.HandleContestants, "contestants"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeDomainError translates engine errors into the API's error taxonomy.
func writeDomainError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, scoring.ErrOutOfRange):
		writeError(w, http.StatusBadRequest, "validation_error", Wrap(op, err))
	case errors.Is(err, repository.ErrLocked):
		writeError(w, http.StatusConflict, "already_submitted", Wrap(op, err))
	case errors.Is(err, repository.ErrUnknownCriterion),
		errors.Is(err, app.ErrDivisionMismatch):
		writeError(w, http.StatusBadRequest, "bad_request", Wrap(op, err))
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", Wrap(op, err))
	case errors.Is(err, app.ErrLockPending):
		// Scores are durable but unlocked; the caller retries POST /locks.
		writeError(w, http.StatusAccepted, "lock_pending", Wrap(op, err))
	default:
		// Unreachable stores and the like: retryable for the caller.
		writeError(w, http.StatusServiceUnavailable, "store_unavailable", Wrap(op, err))
	}
}
