package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ksred/restock-api/internal/approval"
	"github.com/ksred/restock-api/internal/forecast"
	"github.com/ksred/restock-api/internal/registry"
	"github.com/ksred/restock-api/internal/suggestion"
	"github.com/ksred/restock-api/internal/types"
	"github.com/ksred/restock-api/internal/vendor"
)

// Runner drives replenishment analysis: a ticker loop claims schedules whose
// next run has passed, pulls candidates from the forecasting oracle,
// classifies each one, and records the execution (which advances the
// schedule's next run through the registry's critical section).
type Runner struct {
	schedules *registry.Service
	triage    *suggestion.Service
	oracle    forecast.Oracle
	interval  time.Duration
}

func NewRunner(schedules *registry.Service, triage *suggestion.Service, oracle forecast.Oracle, interval time.Duration) *Runner {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Runner{
		schedules: schedules,
		triage:    triage,
		oracle:    oracle,
		interval:  interval,
	}
}

// Start begins the scheduling loop and blocks until the context is
// cancelled.
func (r *Runner) Start(ctx context.Context) {
	logger := log.With().Str("component", "schedule_runner").Logger()
	logger.Info().Dur("interval", r.interval).Msg("starting schedule runner")

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("shutting down schedule runner")
			return
		case <-ticker.C:
			if err := r.tick(ctx); err != nil {
				logger.Error().Err(err).Msg("schedule tick failed")
			}
		}
	}
}

func (r *Runner) tick(ctx context.Context) error {
	logger := log.With().Str("component", "schedule_runner").Logger()

	if purged, err := r.triage.PurgeExpired(); err != nil {
		logger.Error().Err(err).Msg("failed to purge expired suggestions")
	} else if purged > 0 {
		logger.Info().Int64("purged", purged).Msg("expired suggestions purged")
	}

	due, err := r.schedules.Due(time.Now())
	if err != nil {
		return err
	}
	if len(due) == 0 {
		return nil
	}

	logger.Info().Int("due_count", len(due)).Msg("processing due schedules")
	for i := range due {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := r.RunSchedule(ctx, due[i].ScheduleID); err != nil {
			logger.Error().
				Err(err).
				Str("schedule_id", due[i].ScheduleID).
				Msg("schedule run failed")
		}
	}
	return nil
}

// RunSchedule executes one analysis pass for a schedule, on demand or from
// the ticker. It always logs the execution, so next_run_at advances even on
// partial failure and the schedule cannot re-fire on a half-recorded run.
func (r *Runner) RunSchedule(ctx context.Context, scheduleID string) (*types.ScheduleExecutionLog, error) {
	cfg, err := r.schedules.Get(scheduleID)
	if err != nil {
		return nil, err
	}
	if !cfg.Enabled {
		return nil, types.Validationf("schedule %s is disabled", scheduleID)
	}

	logger := log.With().
		Str("schedule_id", scheduleID).
		Str("component", "schedule_runner").
		Logger()
	logger.Info().Msg("starting replenishment analysis")

	start := time.Now()
	execLog := &types.ScheduleExecutionLog{
		ScheduleID: scheduleID,
		ExecutedAt: start,
	}

	candidates, err := r.oracle.Forecast(ctx, cfg, start)
	if err != nil {
		execLog.Status = types.ExecutionFailed
		execLog.Errors = []string{fmt.Sprintf("forecast: %v", err)}
		execLog.Metrics.DurationMS = time.Since(start).Milliseconds()
		if logErr := r.schedules.LogExecution(execLog); logErr != nil {
			logger.Error().Err(logErr).Msg("failed to record failed execution")
		}
		return execLog, fmt.Errorf("forecast failed: %w", err)
	}

	for _, cand := range candidates {
		if err := r.processCandidate(cfg, cand, start, execLog); err != nil {
			execLog.Errors = append(execLog.Errors, err.Error())
		}
	}

	execLog.Metrics = types.ExecutionMetrics{
		DurationMS:        time.Since(start).Milliseconds(),
		ProductsEvaluated: len(candidates),
	}
	switch {
	case len(execLog.Errors) == 0:
		execLog.Status = types.ExecutionSuccess
	case execLog.AutoApproved+execLog.PendingReview > 0:
		execLog.Status = types.ExecutionPartialSuccess
	default:
		execLog.Status = types.ExecutionFailed
	}

	if err := r.schedules.LogExecution(execLog); err != nil {
		return nil, err
	}

	logger.Info().
		Str("status", string(execLog.Status)).
		Int("suggestions_generated", execLog.SuggestionsGenerated).
		Int("auto_approved", execLog.AutoApproved).
		Int("pending_review", execLog.PendingReview).
		Int64("duration_ms", execLog.Metrics.DurationMS).
		Msg("replenishment analysis complete")
	return execLog, nil
}

// processCandidate turns one oracle candidate into a suggestion and routes
// it: auto-approvals become orders immediately, everything else lands in the
// pending set for human review.
func (r *Runner) processCandidate(cfg *types.ScheduleConfig, cand forecast.Candidate, now time.Time, execLog *types.ScheduleExecutionLog) error {
	chosen, err := vendor.Select(cand.Vendors, cfg.VendorPrefs)
	if err != nil {
		return fmt.Errorf("product %s: %w", cand.ProductID, err)
	}

	sg := &types.ReplenishmentSuggestion{
		SuggestionID:      suggestion.NewSuggestionID(),
		ScheduleID:        cfg.ScheduleID,
		ProductID:         cand.ProductID,
		StoreID:           cand.StoreID,
		VendorID:          chosen.VendorID,
		SuggestedQuantity: cand.Quantity,
		UnitCost:          chosen.CostPerItem,
		Reason:            cand.Reason,
		Priority:          cand.Priority,
		Confidence:        cand.Confidence,
		CostImpact:        float64(cand.Quantity) * chosen.CostPerItem,
		CreatedAt:         now,
		ExpiresAt:         now.Add(cand.TTL),
	}
	execLog.SuggestionsGenerated++

	decision := approval.Classify(sg, cfg, now)
	switch decision.Route {
	case approval.RouteAutoApprove:
		if _, err := r.triage.AutoApprove(sg, cfg); err != nil {
			return fmt.Errorf("auto-approve %s: %w", sg.SuggestionID, err)
		}
		execLog.AutoApproved++
	case approval.RouteExpired:
		return fmt.Errorf("suggestion %s expired before triage", sg.SuggestionID)
	default:
		if err := r.triage.Ingest(sg); err != nil {
			return fmt.Errorf("ingest %s: %w", sg.SuggestionID, err)
		}
		execLog.PendingReview++
	}
	return nil
}
