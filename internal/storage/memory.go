package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wolfauto/marketer/internal/models"
)

// MemoryStore is a mutex-guarded in-memory Store. It backs tests and local
// development; production uses the Postgres implementation. It starts
// empty — seeding is an explicit call, never a construction side effect.
type MemoryStore struct {
	mu sync.Mutex

	platforms   map[string]models.Platform
	workflows   map[string]models.Workflow
	tasks       map[string]models.Task
	activities  []models.Activity
	earnings    []models.PlatformEarning
	withdrawals []models.Withdrawal
	inferences  []models.InferenceLog
	balance     models.Cents

	// now is swappable so tests can pin time.
	now func() time.Time
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		platforms: make(map[string]models.Platform),
		workflows: make(map[string]models.Workflow),
		tasks:     make(map[string]models.Task),
		now:       time.Now,
	}
}

// SetClock overrides the store's notion of "now". Test use only.
func (s *MemoryStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// --- platforms ---

func (s *MemoryStore) ListPlatforms(ctx context.Context) ([]models.Platform, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.Platform, 0, len(s.platforms))
	for _, p := range s.platforms {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) GetPlatform(ctx context.Context, id string) (*models.Platform, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.platforms[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (s *MemoryStore) GetPlatformByName(ctx context.Context, name string) (*models.Platform, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.platforms {
		if p.NameEquals(name) {
			found := p
			return &found, nil
		}
	}
	return nil, nil
}

func (s *MemoryStore) CreatePlatform(ctx context.Context, p models.Platform) (*models.Platform, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.platforms {
		if existing.NameEquals(p.Name) {
			return nil, ErrDuplicateName
		}
	}

	now := s.now()
	p.ID = uuid.New().String()
	p.CreatedAt = now
	p.UpdatedAt = now
	if p.Status == "" {
		p.Status = models.PlatformStatusDisconnected
	}
	if p.HealthStatus == "" {
		p.HealthStatus = models.HealthStatusHealthy
	}
	s.platforms[p.ID] = p
	return &p, nil
}

func (s *MemoryStore) UpdatePlatform(ctx context.Context, id string, upd models.PlatformUpdate) (*models.Platform, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.platforms[id]
	if !ok {
		return nil, nil
	}

	if upd.Name != nil {
		for otherID, other := range s.platforms {
			if otherID != id && other.NameEquals(*upd.Name) {
				return nil, ErrDuplicateName
			}
		}
		p.Name = *upd.Name
	}
	if upd.Type != nil {
		p.Type = *upd.Type
	}
	if upd.APIKey != nil {
		p.APIKey = *upd.APIKey
	}
	if upd.APISecret != nil {
		p.APISecret = *upd.APISecret
	}
	if upd.Status != nil {
		p.Status = *upd.Status
	}
	if upd.HealthStatus != nil {
		p.HealthStatus = *upd.HealthStatus
	}
	if upd.LastSynced != nil {
		t := *upd.LastSynced
		p.LastSynced = &t
	}
	if upd.Settings != nil {
		p.Settings = upd.Settings
	}
	p.UpdatedAt = s.now()

	s.platforms[id] = p
	return &p, nil
}

func (s *MemoryStore) DeletePlatform(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.platforms[id]; !ok {
		return false, nil
	}
	delete(s.platforms, id)
	return true, nil
}

// --- workflows ---

func (s *MemoryStore) ListWorkflows(ctx context.Context) ([]models.Workflow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.workflowsLocked(""), nil
}

func (s *MemoryStore) ListWorkflowsByPlatform(ctx context.Context, platformID string) ([]models.Workflow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.workflowsLocked(platformID), nil
}

func (s *MemoryStore) workflowsLocked(platformID string) []models.Workflow {
	out := make([]models.Workflow, 0, len(s.workflows))
	for _, w := range s.workflows {
		if platformID != "" && w.PlatformID != platformID {
			continue
		}
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (s *MemoryStore) GetWorkflow(ctx context.Context, id string) (*models.Workflow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.workflows[id]
	if !ok {
		return nil, nil
	}
	return &w, nil
}

func (s *MemoryStore) CreateWorkflow(ctx context.Context, w models.Workflow) (*models.Workflow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.platforms[w.PlatformID]; !ok {
		return nil, ErrPlatformMissing
	}

	now := s.now()
	w.ID = uuid.New().String()
	w.CreatedAt = now
	w.UpdatedAt = now
	if w.Status == "" {
		w.Status = models.WorkflowStatusActive
	}
	if w.NextRun == nil {
		next := now.Add(models.InitialRunDelay)
		w.NextRun = &next
	}
	w.LastRun = nil
	w.Revenue = 0
	w.Stats = models.WorkflowStats{}

	s.workflows[w.ID] = w
	return &w, nil
}

func (s *MemoryStore) UpdateWorkflow(ctx context.Context, id string, upd models.WorkflowUpdate) (*models.Workflow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.workflows[id]
	if !ok {
		return nil, nil
	}

	if upd.Name != nil {
		w.Name = *upd.Name
	}
	if upd.Description != nil {
		w.Description = *upd.Description
	}
	if upd.Status != nil {
		w.Status = *upd.Status
	}
	if upd.Steps != nil {
		w.Steps = upd.Steps
	}
	if upd.NextRun != nil {
		t := *upd.NextRun
		w.NextRun = &t
	}
	w.UpdatedAt = s.now()

	s.workflows[id] = w
	return &w, nil
}

func (s *MemoryStore) DeleteWorkflow(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.workflows[id]; !ok {
		return false, nil
	}
	delete(s.workflows, id)
	return true, nil
}

func (s *MemoryStore) ApplyRunResult(ctx context.Context, id string, success bool, revenue models.Cents, lastRun time.Time, nextRun *time.Time) (*models.Workflow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.workflows[id]
	if !ok {
		return nil, nil
	}

	w.Stats.Runs++
	if success {
		w.Stats.Successes++
	} else {
		w.Stats.Failures++
	}
	w.Revenue += revenue
	run := lastRun
	w.LastRun = &run
	if nextRun != nil {
		next := *nextRun
		w.NextRun = &next
	}
	w.UpdatedAt = s.now()

	s.workflows[id] = w
	return &w, nil
}

func (s *MemoryStore) ClaimDueWorkflows(ctx context.Context, now time.Time, reschedule time.Duration) ([]models.Workflow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var claimed []models.Workflow
	for id, w := range s.workflows {
		if w.Status != models.WorkflowStatusActive {
			continue
		}
		if w.NextRun == nil || w.NextRun.After(now) {
			continue
		}
		next := now.Add(reschedule)
		w.NextRun = &next
		w.UpdatedAt = s.now()
		s.workflows[id] = w
		claimed = append(claimed, w)
	}
	sort.Slice(claimed, func(i, j int) bool { return claimed[i].CreatedAt.Before(claimed[j].CreatedAt) })
	return claimed, nil
}

// --- tasks ---

func (s *MemoryStore) ListTasks(ctx context.Context, filter models.TaskFilter) ([]models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.Task
	for _, t := range s.tasks {
		if filter.Matches(&t) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) GetTask(ctx context.Context, id string) (*models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (s *MemoryStore) CreateTask(ctx context.Context, t models.Task) (*models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	t.ID = uuid.New().String()
	t.Status = models.TaskStatusPending
	t.CreatedAt = now
	t.UpdatedAt = now

	s.tasks[t.ID] = t
	return &t, nil
}

func (s *MemoryStore) UpdateTaskStatus(ctx context.Context, id string, status models.TaskStatus, detail string) (*models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok {
		return nil, nil
	}
	if !t.Status.CanTransitionTo(status) {
		return nil, ErrTerminalTask
	}

	t.Status = status
	if detail != "" {
		t.Detail = detail
	}
	t.UpdatedAt = s.now()

	s.tasks[id] = t
	return &t, nil
}

func (s *MemoryStore) DeleteTask(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tasks[id]; !ok {
		return false, nil
	}
	delete(s.tasks, id)
	return true, nil
}

// --- activities ---

func (s *MemoryStore) LogActivity(ctx context.Context, a models.Activity) (*models.Activity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a.ID = uuid.New().String()
	a.Timestamp = s.now()

	s.activities = append(s.activities, a)
	return &a, nil
}

func (s *MemoryStore) ListActivities(ctx context.Context, limit int, activityType models.ActivityType, platformID string) ([]models.Activity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 {
		limit = 100
	}
	if limit > 1000 {
		limit = 1000
	}

	var out []models.Activity
	for _, a := range s.activities {
		if activityType != "" && a.Type != activityType {
			continue
		}
		if platformID != "" && a.PlatformID != platformID {
			continue
		}
		out = append(out, a)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) DeleteActivitiesOlderThan(ctx context.Context, age time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-age)
	kept := s.activities[:0]
	var removed int64
	for _, a := range s.activities {
		if a.Timestamp.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, a)
	}
	s.activities = kept
	return removed, nil
}

// --- earnings ---

func (s *MemoryStore) AddEarning(ctx context.Context, e models.PlatformEarning) (*models.PlatformEarning, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e.ID = uuid.New().String()
	e.CreatedAt = s.now()
	if e.Date.IsZero() {
		e.Date = e.CreatedAt
	}

	s.earnings = append(s.earnings, e)
	return &e, nil
}

func (s *MemoryStore) ListEarnings(ctx context.Context, platformID string, from, to time.Time) ([]models.PlatformEarning, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.PlatformEarning
	for _, e := range s.earnings {
		if platformID != "" && e.PlatformID != platformID {
			continue
		}
		if e.Date.Before(from) || e.Date.After(to) {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

// --- wallet ---

func (s *MemoryStore) Balance(ctx context.Context) (models.Cents, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.balance, nil
}

func (s *MemoryStore) AdjustBalance(ctx context.Context, delta models.Cents) (models.Cents, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.balance += delta
	return s.balance, nil
}

func (s *MemoryStore) AddWithdrawal(ctx context.Context, w models.Withdrawal) (*models.Withdrawal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w.ID = uuid.New().String()
	if w.RequestedAt.IsZero() {
		w.RequestedAt = s.now()
	}

	s.withdrawals = append(s.withdrawals, w)
	return &w, nil
}

func (s *MemoryStore) ListWithdrawalsSince(ctx context.Context, since time.Time) ([]models.Withdrawal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.Withdrawal
	for _, w := range s.withdrawals {
		if w.RequestedAt.Before(since) {
			continue
		}
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RequestedAt.Before(out[j].RequestedAt) })
	return out, nil
}

// --- inference logs ---

func (s *MemoryStore) CreateInferenceLog(ctx context.Context, log models.InferenceLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if log.ID == "" {
		log.ID = uuid.New().String()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = s.now()
	}
	s.inferences = append(s.inferences, log)
	return nil
}

func (s *MemoryStore) ListInferenceLogs(ctx context.Context, limit int) ([]models.InferenceLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 {
		limit = 100
	}
	out := make([]models.InferenceLog, len(s.inferences))
	copy(out, s.inferences)
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

var _ Store = (*MemoryStore)(nil)
