package registry

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/ksred/restock-api/internal/scheduler"
	"github.com/ksred/restock-api/internal/types"
)

// Service owns schedule configurations, their execution history, and
// confidence reporting. LogExecution holds a per-schedule mutex across the
// append and the next-run recompute so a trigger can never observe a
// schedule whose previous run is half-recorded.
type Service struct {
	db *Database

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewService(gormDB *gorm.DB) *Service {
	return &Service{
		db:    NewDatabase(gormDB),
		locks: make(map[string]*sync.Mutex),
	}
}

// NewServiceWithSeed constructs the service and creates any seed schedules
// that do not already exist. Seeding is explicit dependency injection; there
// is no process-wide default schedule list.
func NewServiceWithSeed(gormDB *gorm.DB, seed []types.ScheduleConfig) (*Service, error) {
	s := NewService(gormDB)
	for i := range seed {
		cfg := seed[i]
		existing, err := s.db.GetSchedule(cfg.ScheduleID)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			continue
		}
		if err := s.Create(&cfg); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Service) scheduleLock(scheduleID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[scheduleID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[scheduleID] = l
	}
	return l
}

// Create validates and stores a new schedule, computing its initial next run.
func (s *Service) Create(cfg *types.ScheduleConfig) error {
	if cfg.ScheduleID == "" {
		cfg.ScheduleID = "SCH_" + uuid.New().String()
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	existing, err := s.db.GetSchedule(cfg.ScheduleID)
	if err != nil {
		return err
	}
	if existing != nil {
		return types.AlreadyExistsf("schedule %s", cfg.ScheduleID)
	}

	now := time.Now()
	next, err := scheduler.NextVisibleRun(cfg, now)
	if err != nil {
		return err
	}
	cfg.NextRunAt = next
	cfg.CreatedAt = now
	cfg.UpdatedAt = now

	if err := s.db.CreateSchedule(cfg); err != nil {
		return err
	}

	log.Info().
		Str("schedule_id", cfg.ScheduleID).
		Str("frequency", string(cfg.Frequency)).
		Bool("enabled", cfg.Enabled).
		Msg("schedule created")
	return nil
}

func (s *Service) Get(scheduleID string) (*types.ScheduleConfig, error) {
	cfg, err := s.db.GetSchedule(scheduleID)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, types.NotFoundf("schedule %s", scheduleID)
	}
	return cfg, nil
}

func (s *Service) List() ([]types.ScheduleConfig, error) {
	return s.db.ListSchedules()
}

// Due returns enabled schedules whose next run time has passed.
func (s *Service) Due(now time.Time) ([]types.ScheduleConfig, error) {
	return s.db.DueSchedules(now)
}

// UpdatePatch is a partial schedule update; nil fields are left unchanged.
type UpdatePatch struct {
	Name        *string                     `json:"name,omitempty"`
	Enabled     *bool                       `json:"enabled,omitempty"`
	Frequency   *types.Frequency            `json:"frequency,omitempty"`
	TimeOfDay   *string                     `json:"time_of_day,omitempty"`
	DaysOfWeek  *[]int                      `json:"days_of_week,omitempty"`
	DayOfMonth  *int                        `json:"day_of_month,omitempty"`
	Thresholds  *types.ConfidenceThresholds `json:"confidence_thresholds,omitempty"`
	Approval    *types.ApprovalWorkflow     `json:"approval_workflow,omitempty"`
	Scope       *types.ScheduleScope        `json:"scope,omitempty"`
	ML          *types.MLConfig             `json:"ml_config,omitempty"`
	VendorPrefs *types.VendorPreferences    `json:"vendor_preferences,omitempty"`
}

// Update merges a partial patch into an existing schedule. The merged config
// is revalidated (including threshold monotonicity) before anything is
// stored, and the next run is recomputed when recurrence or enablement
// changed. UpdatedAt is always stamped.
func (s *Service) Update(scheduleID string, patch UpdatePatch) (*types.ScheduleConfig, error) {
	lock := s.scheduleLock(scheduleID)
	lock.Lock()
	defer lock.Unlock()

	cfg, err := s.Get(scheduleID)
	if err != nil {
		return nil, err
	}

	recurrenceChanged := false
	if patch.Name != nil {
		cfg.Name = *patch.Name
	}
	if patch.Enabled != nil && cfg.Enabled != *patch.Enabled {
		cfg.Enabled = *patch.Enabled
		recurrenceChanged = true
	}
	if patch.Frequency != nil {
		cfg.Frequency = *patch.Frequency
		recurrenceChanged = true
	}
	if patch.TimeOfDay != nil {
		cfg.TimeOfDay = *patch.TimeOfDay
		recurrenceChanged = true
	}
	if patch.DaysOfWeek != nil {
		cfg.DaysOfWeek = *patch.DaysOfWeek
		recurrenceChanged = true
	}
	if patch.DayOfMonth != nil {
		cfg.DayOfMonth = *patch.DayOfMonth
		recurrenceChanged = true
	}
	if patch.Thresholds != nil {
		cfg.Thresholds = *patch.Thresholds
	}
	if patch.Approval != nil {
		cfg.Approval = *patch.Approval
	}
	if patch.Scope != nil {
		cfg.Scope = *patch.Scope
	}
	if patch.ML != nil {
		cfg.ML = *patch.ML
	}
	if patch.VendorPrefs != nil {
		cfg.VendorPrefs = *patch.VendorPrefs
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	now := time.Now()
	if recurrenceChanged {
		next, err := scheduler.NextVisibleRun(cfg, now)
		if err != nil {
			return nil, err
		}
		cfg.NextRunAt = next
	}
	cfg.UpdatedAt = now

	if err := s.db.SaveSchedule(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (s *Service) Delete(scheduleID string) error {
	if _, err := s.Get(scheduleID); err != nil {
		return err
	}
	return s.db.DeleteSchedule(scheduleID)
}

// SetEnabled toggles a schedule. Enabling computes a fresh next run;
// disabling clears it so the trigger never sees one. Idempotent.
func (s *Service) SetEnabled(scheduleID string, enabled bool) (*types.ScheduleConfig, error) {
	lock := s.scheduleLock(scheduleID)
	lock.Lock()
	defer lock.Unlock()

	cfg, err := s.Get(scheduleID)
	if err != nil {
		return nil, err
	}
	if cfg.Enabled == enabled {
		return cfg, nil
	}

	cfg.Enabled = enabled
	now := time.Now()
	next, err := scheduler.NextVisibleRun(cfg, now)
	if err != nil {
		return nil, err
	}
	cfg.NextRunAt = next
	cfg.UpdatedAt = now

	if err := s.db.SaveSchedule(cfg); err != nil {
		return nil, err
	}

	log.Info().
		Str("schedule_id", scheduleID).
		Bool("enabled", enabled).
		Msg("schedule toggled")
	return cfg, nil
}

// LogExecution records one run and advances the schedule's run markers in a
// single critical section per schedule. next_run_at is computed from the
// execution time, so it is always strictly after last_run_at.
func (s *Service) LogExecution(execLog *types.ScheduleExecutionLog) error {
	lock := s.scheduleLock(execLog.ScheduleID)
	lock.Lock()
	defer lock.Unlock()

	cfg, err := s.Get(execLog.ScheduleID)
	if err != nil {
		return err
	}

	if execLog.ExecutionID == "" {
		execLog.ExecutionID = "EXE_" + uuid.New().String()
	}
	if execLog.ExecutedAt.IsZero() {
		execLog.ExecutedAt = time.Now()
	}

	next, err := scheduler.NextVisibleRun(cfg, execLog.ExecutedAt)
	if err != nil {
		return err
	}
	executedAt := execLog.ExecutedAt
	cfg.LastRunAt = &executedAt
	cfg.NextRunAt = next
	cfg.UpdatedAt = time.Now()

	if err := s.db.AppendExecutionLog(execLog, cfg); err != nil {
		return err
	}

	log.Info().
		Str("schedule_id", cfg.ScheduleID).
		Str("execution_id", execLog.ExecutionID).
		Str("status", string(execLog.Status)).
		Int("suggestions_generated", execLog.SuggestionsGenerated).
		Int("auto_approved", execLog.AutoApproved).
		Int("pending_review", execLog.PendingReview).
		Msg("schedule execution logged")
	return nil
}

// GetExecutionHistory returns run records newest-first, capped at limit
// (or the retention bound when limit <= 0).
func (s *Service) GetExecutionHistory(scheduleID string, limit int) ([]types.ScheduleExecutionLog, error) {
	if _, err := s.Get(scheduleID); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > maxExecutionLogs {
		limit = maxExecutionLogs
	}
	return s.db.GetExecutionHistory(scheduleID, limit)
}
