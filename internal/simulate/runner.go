package simulate

import (
	"context"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tiaraboard/tiara/internal/config"
	"github.com/tiaraboard/tiara/internal/domain/model"
	"github.com/tiaraboard/tiara/internal/domain/ranking"
	"github.com/tiaraboard/tiara/internal/domain/types"
	"github.com/tiaraboard/tiara/pkg/logger"
)

// placementTolerance absorbs float formatting differences between the
// oracle and the decoded JSON rows.
const placementTolerance = 1e-9

// Run executes the complete simulation: submit every judge's sheet for the
// whole event, then check the served standings against the local oracle.
func Run(ctx context.Context, cfg *Config) error {
	stats := &Stats{StartTime: time.Now()}

	log := logger.Get()
	log.Info(ctx, "starting tabulation simulation",
		logger.String("baseURL", cfg.BaseURL),
		logger.String("eventFile", cfg.EventFile),
		logger.Int("workers", cfg.Workers),
		logger.Duration("timeout", cfg.Timeout))

	event, err := config.LoadEvent(ctx, cfg.EventFile)
	if err != nil {
		return fmt.Errorf("failed to load event definition: %w", err)
	}

	client := newHTTPClient(cfg.Timeout)

	if err := checkServiceHealth(ctx, client, cfg.BaseURL); err != nil {
		return fmt.Errorf("service health check failed: %w", err)
	}

	tokens, err := loginJudges(ctx, client, cfg.BaseURL, event)
	if err != nil {
		return fmt.Errorf("judge login failed: %w", err)
	}

	subs := generateSubmissions(event)
	stats.SubmissionsGenerated = len(subs)
	log.Info(ctx, "generated submissions", logger.Int("count", len(subs)))

	if err := submitAll(ctx, cfg, client, tokens, subs, stats); err != nil {
		return fmt.Errorf("submission phase failed: %w", err)
	}

	if err := verifyStandings(ctx, cfg, client, event, subs, stats); err != nil {
		return fmt.Errorf("standings verification failed: %w", err)
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, stats)

	if stats.Mismatches > 0 {
		return fmt.Errorf("%d standings mismatches detected", stats.Mismatches)
	}
	log.Info(ctx, "simulation completed successfully")
	return nil
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, client *HTTPClient, baseURL string) error {
	resp, err := client.Get(ctx, baseURL+"/healthz")
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	_, _ = readResponseBody(resp)
	if resp.StatusCode != statusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}
	return nil
}

// loginJudges exchanges every judge's access code for a token.
func loginJudges(ctx context.Context, client *HTTPClient, baseURL string, event model.Event) (map[string]string, error) {
	tokens := make(map[string]string, len(event.Judges))
	for _, judge := range event.Judges {
		token, err := login(ctx, client, baseURL, judge.AccessCode)
		if err != nil {
			return nil, fmt.Errorf("judge %s: %w", judge.ID, err)
		}
		tokens[judge.ID] = token
	}
	return tokens, nil
}

type submitRequest struct {
	CategoryID   string         `json:"category_id"`
	ContestantID string         `json:"contestant_id"`
	Scores       []criterionRow `json:"scores"`
}

type criterionRow struct {
	CriterionID string  `json:"criterion_id"`
	RawScore    float64 `json:"raw_score"`
}

type lockRequest struct {
	CategoryID   string `json:"category_id"`
	ContestantID string `json:"contestant_id"`
}

// submitAll pushes every generated submission through a worker pool.
func submitAll(ctx context.Context, cfg *Config, client *HTTPClient, tokens map[string]string, subs []Submission, stats *Stats) error {
	log := logger.Get()
	log.Info(ctx, "submitting scores",
		logger.Int("submissions", len(subs)), logger.Int("workers", cfg.Workers))

	var (
		sent       int64
		locked     int64
		retries    int64
		conflicted int64
		failed     int64
	)

	subChan := make(chan Submission, cfg.Workers*2)
	var wg sync.WaitGroup

	for i := 0; i < cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for sub := range subChan {
				select {
				case <-ctx.Done():
					return
				default:
				}
				judgeClient := client.withToken(tokens[sub.JudgeID])
				result := submitSingle(ctx, cfg, judgeClient, sub)
				atomic.AddInt64(&sent, 1)
				switch result {
				case "locked":
					atomic.AddInt64(&locked, 1)
				case "lock_retried":
					atomic.AddInt64(&locked, 1)
					atomic.AddInt64(&retries, 1)
				case "conflict":
					atomic.AddInt64(&conflicted, 1)
				default:
					atomic.AddInt64(&failed, 1)
				}
			}
		}()
	}

	go func() {
		defer close(subChan)
		for _, sub := range subs {
			select {
			case <-ctx.Done():
				return
			case subChan <- sub:
			}
		}
	}()

	wg.Wait()

	stats.SubmissionsSent = int(atomic.LoadInt64(&sent))
	stats.SubmissionsLocked = int(atomic.LoadInt64(&locked))
	stats.LockRetries = int(atomic.LoadInt64(&retries))
	stats.Conflicts = int(atomic.LoadInt64(&conflicted))
	stats.Failed = int(atomic.LoadInt64(&failed))

	log.Info(ctx, "submission phase completed",
		logger.Int("locked", stats.SubmissionsLocked),
		logger.Int("lockRetries", stats.LockRetries),
		logger.Int("conflicts", stats.Conflicts),
		logger.Int("failed", stats.Failed))

	if stats.Failed > 0 {
		return fmt.Errorf("%d submissions failed outright", stats.Failed)
	}
	return nil
}

// submitSingle posts one submission and resolves its lock, retrying the
// lock once when the server reports it pending.
func submitSingle(ctx context.Context, cfg *Config, client *HTTPClient, sub Submission) string {
	rows := make([]criterionRow, 0, len(sub.Raw))
	for criterionID, raw := range sub.Raw {
		rows = append(rows, criterionRow{CriterionID: criterionID, RawScore: raw})
	}

	resp, err := client.Post(ctx, cfg.BaseURL+"/submissions", submitRequest{
		CategoryID:   sub.CategoryID,
		ContestantID: sub.ContestantID,
		Scores:       rows,
	})
	if err != nil {
		return "failed"
	}
	_, _ = readResponseBody(resp)

	switch resp.StatusCode {
	case statusCreated:
		return "locked"
	case statusAccepted:
		// Scores stored, lock pending. Retry the lock explicitly.
		lockResp, err := client.Post(ctx, cfg.BaseURL+"/locks", lockRequest{
			CategoryID:   sub.CategoryID,
			ContestantID: sub.ContestantID,
		})
		if err != nil {
			return "failed"
		}
		_, _ = readResponseBody(lockResp)
		if lockResp.StatusCode == statusCreated {
			return "lock_retried"
		}
		return "failed"
	case statusConflict:
		return "conflict"
	default:
		return "failed"
	}
}

// verifyStandings fetches every category and overall table and compares
// placements against the local oracle.
func verifyStandings(ctx context.Context, cfg *Config, client *HTTPClient, event model.Event, subs []Submission, stats *Stats) error {
	log := logger.Get()
	orc := newOracle(event, subs)

	for _, division := range event.Divisions {
		for _, category := range event.Categories {
			expected, err := orc.categoryStandings(division.ID, category.ID)
			if err != nil {
				return err
			}
			if len(expected) == 0 {
				continue
			}

			url := fmt.Sprintf("%s/standings/category?division=%s&category=%s",
				cfg.BaseURL, division.ID, category.ID)
			resp, err := client.Get(ctx, url)
			if err != nil {
				return fmt.Errorf("failed to fetch category standings: %w", err)
			}
			var rows []types.CategoryRow
			if err := decodeResponse(resp, &rows); err != nil {
				return err
			}
			stats.StandingsChecked++

			got := make(map[string]float64, len(rows))
			for _, row := range rows {
				got[row.ContestantID] = row.Placement
			}
			for _, exp := range expected {
				if math.Abs(got[exp.ContestantID]-exp.Placement) > placementTolerance {
					stats.Mismatches++
					log.Warn(ctx, "category placement mismatch",
						logger.String("division", division.ID),
						logger.String("category", category.ID),
						logger.String("contestant", exp.ContestantID),
						logger.Float64("expected", exp.Placement),
						logger.Float64("got", got[exp.ContestantID]))
				}
			}
		}

		expectedOverall, err := orc.overallStandings(division.ID)
		if err != nil {
			return err
		}
		if len(expectedOverall) == 0 {
			continue
		}

		resp, err := client.Get(ctx, cfg.BaseURL+"/standings/overall?division="+division.ID)
		if err != nil {
			return fmt.Errorf("failed to fetch overall standings: %w", err)
		}
		var rows []types.OverallRow
		if err := decodeResponse(resp, &rows); err != nil {
			return err
		}
		stats.StandingsChecked++

		got := make(map[string]float64, len(rows))
		for _, row := range rows {
			got[row.ContestantID] = row.Placement
		}
		for _, exp := range expectedOverall {
			if math.Abs(got[exp.ContestantID]-exp.Placement) > placementTolerance {
				stats.Mismatches++
				log.Warn(ctx, "overall placement mismatch",
					logger.String("division", division.ID),
					logger.String("contestant", exp.ContestantID),
					logger.Float64("expected", exp.Placement),
					logger.Float64("got", got[exp.ContestantID]))
			}
		}

		if cfg.Verbose {
			displayLeaders(ctx, division.ID, expectedOverall)
		}
	}

	log.Info(ctx, "standings verification completed",
		logger.Int("tablesChecked", stats.StandingsChecked),
		logger.Int("mismatches", stats.Mismatches))
	return nil
}

// displayLeaders logs the expected podium for a division.
func displayLeaders(ctx context.Context, divisionID string, overall []ranking.OverallStanding) {
	log := logger.Get()
	top := 3
	if len(overall) < top {
		top = len(overall)
	}
	for i := 0; i < top; i++ {
		log.Info(ctx, "expected podium entry",
			logger.String("division", divisionID),
			logger.Int("number", overall[i].Number),
			logger.Float64("placement", overall[i].Placement),
			logger.Float64("points", overall[i].TotalPoints))
	}
}

// displayFinalStats logs the final run statistics.
func displayFinalStats(ctx context.Context, stats *Stats) {
	var perSecond float64
	if stats.Duration > 0 {
		perSecond = float64(stats.SubmissionsSent) / stats.Duration.Seconds()
	}
	logger.Get().Info(ctx, "final statistics",
		logger.Int("generated", stats.SubmissionsGenerated),
		logger.Int("sent", stats.SubmissionsSent),
		logger.Int("locked", stats.SubmissionsLocked),
		logger.Int("lockRetries", stats.LockRetries),
		logger.Int("conflicts", stats.Conflicts),
		logger.Int("failed", stats.Failed),
		logger.Int("standingsChecked", stats.StandingsChecked),
		logger.Int("mismatches", stats.Mismatches),
		logger.Duration("duration", stats.Duration),
		logger.Float64("submissionsPerSecond", perSecond))
}
