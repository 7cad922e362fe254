package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/seanschneidewent/Maestro-Super-sub001/internal/analysis"
	"github.com/seanschneidewent/Maestro-Super-sub001/internal/store"
)

const (
	// DefaultConcurrency bounds how many page analyses a single job has
	// in flight at once.
	DefaultConcurrency = 3

	// subscriberBuffer is the progress channel depth per subscriber.
	// Slow subscribers drop events rather than stalling the job.
	subscriberBuffer = 32
)

// run is the in-memory record for one job. Subscribers are held by id in a
// plain map rather than as an object graph between job and consumers.
type run struct {
	mu          sync.Mutex
	job         Job
	pages       []store.Page    // enumeration order, fixed at start
	done        map[string]bool // page ids persisted successfully
	pauseReq    bool
	cancelled   bool
	subscribers map[string]chan Progress
}

// ManagerConfig configures a Manager.
type ManagerConfig struct {
	Store       store.Store
	Analyzer    *analysis.Analyzer
	Concurrency int // max in-flight analyses per job (default 3)
	Logger      *slog.Logger

	// BaseContext is the parent for all job processing. Cancelling it
	// stops in-flight analyses, same as Close. Nil means Background.
	BaseContext context.Context
}

// Manager owns the registry of live jobs and enforces the one-active-job-
// per-project invariant.
type Manager struct {
	mu     sync.Mutex
	runs   map[string]*run   // job id -> record
	active map[string]string // project id -> non-terminal job id

	store       store.Store
	analyzer    *analysis.Analyzer
	concurrency int
	logger      *slog.Logger

	baseCtx    context.Context
	baseCancel context.CancelFunc
	wg         sync.WaitGroup
}

// NewManager creates a Manager.
func NewManager(cfg ManagerConfig) *Manager {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	base := cfg.BaseContext
	if base == nil {
		base = context.Background()
	}
	ctx, cancel := context.WithCancel(base)
	return &Manager{
		runs:        make(map[string]*run),
		active:      make(map[string]string),
		store:       cfg.Store,
		analyzer:    cfg.Analyzer,
		concurrency: concurrency,
		logger:      logger.With("component", "jobs"),
		baseCtx:     ctx,
		baseCancel:  cancel,
	}
}

// Close stops all background work and waits for in-flight analyses.
func (m *Manager) Close() {
	m.baseCancel()
	m.wg.Wait()
}

// Start creates a job for the project and begins processing its pages that
// have no analysis yet. It returns ErrJobConflict while the project has a
// non-terminal job; the check-and-set is atomic with respect to concurrent
// Start calls.
func (m *Manager) Start(ctx context.Context, projectID string) (string, error) {
	jobID := uuid.NewString()

	m.mu.Lock()
	if existing, ok := m.active[projectID]; ok {
		m.mu.Unlock()
		return "", fmt.Errorf("%w: project %s (job %s)", ErrJobConflict, projectID, existing)
	}
	r := &run{
		job: Job{
			ID:        jobID,
			ProjectID: projectID,
			JobType:   JobTypePageAnalysis,
			Status:    StatusPending,
			StartedAt: time.Now().UTC(),
		},
		done:        make(map[string]bool),
		subscribers: make(map[string]chan Progress),
	}
	m.runs[jobID] = r
	m.active[projectID] = jobID
	m.mu.Unlock()

	if err := m.enumerate(ctx, r); err != nil {
		m.finalize(r, StatusFailed, err.Error())
		return jobID, err
	}

	r.mu.Lock()
	r.job.Status = StatusProcessing
	r.mu.Unlock()

	m.logger.Info("job started",
		"job_id", jobID, "project_id", projectID, "total_pages", r.job.TotalPages)

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.process(m.baseCtx, r)
	}()
	return jobID, nil
}

// enumerate loads the project's pages that still need analysis.
func (m *Manager) enumerate(ctx context.Context, r *run) error {
	if _, err := m.store.Project(ctx, r.job.ProjectID); err != nil {
		return fmt.Errorf("enumerate pages: %w", err)
	}
	pages, err := m.store.ListPages(ctx, r.job.ProjectID)
	if err != nil {
		return fmt.Errorf("enumerate pages: %w", err)
	}
	analyzed, err := m.store.AnalyzedPages(ctx, r.job.ProjectID)
	if err != nil {
		return fmt.Errorf("enumerate pages: %w", err)
	}

	var todo []store.Page
	for _, p := range pages {
		if !analyzed[p.ID] {
			todo = append(todo, p)
		}
	}

	r.mu.Lock()
	r.pages = todo
	r.job.TotalPages = len(todo)
	r.mu.Unlock()
	return nil
}

// Pause signals a processing job to stop claiming pages. In-flight analyses
// drain; the job settles into paused once they finish. No partial page
// result is stored.
func (m *Manager) Pause(jobID string) error {
	r, err := m.run(jobID)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.job.Status != StatusProcessing {
		return fmt.Errorf("%w: pause from %s", ErrInvalidTransition, r.job.Status)
	}
	r.pauseReq = true
	m.logger.Info("job pause requested", "job_id", jobID)
	return nil
}

// Resume re-enters processing from paused, continuing with the first still-
// unprocessed page. Already-completed pages are skipped, not re-run.
func (m *Manager) Resume(jobID string) error {
	r, err := m.run(jobID)
	if err != nil {
		return err
	}

	r.mu.Lock()
	if r.job.Status != StatusPaused {
		defer r.mu.Unlock()
		return fmt.Errorf("%w: resume from %s", ErrInvalidTransition, r.job.Status)
	}
	r.pauseReq = false
	r.job.Status = StatusProcessing
	r.mu.Unlock()

	m.logger.Info("job resumed", "job_id", jobID)

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.process(m.baseCtx, r)
	}()
	return nil
}

// Cancel discards the job's registry entry. In-flight page analyses finish
// but no further pages are claimed; already-written results stay written.
func (m *Manager) Cancel(jobID string) error {
	m.mu.Lock()
	r, ok := m.runs[jobID]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}
	delete(m.runs, jobID)
	if m.active[r.job.ProjectID] == jobID {
		delete(m.active, r.job.ProjectID)
	}
	m.mu.Unlock()

	r.mu.Lock()
	r.cancelled = true
	for id, ch := range r.subscribers {
		close(ch)
		delete(r.subscribers, id)
	}
	r.mu.Unlock()

	m.logger.Info("job cancelled", "job_id", jobID)
	return nil
}

// Snapshot returns a copy of the job's current state.
func (m *Manager) Snapshot(jobID string) (Job, error) {
	r, err := m.run(jobID)
	if err != nil {
		return Job{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.job, nil
}

// Subscribe attaches a progress consumer to a job. The returned cancel
// function detaches it. A late subscriber receives only future events.
func (m *Manager) Subscribe(jobID string) (<-chan Progress, func(), error) {
	r, err := m.run(jobID)
	if err != nil {
		return nil, nil, err
	}

	id := uuid.NewString()
	ch := make(chan Progress, subscriberBuffer)

	r.mu.Lock()
	if r.job.Status.Terminal() {
		// Stream already ended; deliver the terminal event and close.
		ch <- Progress{
			Processed: r.job.ProcessedPages,
			Total:     r.job.TotalPages,
			Complete:  true,
		}
		close(ch)
		r.mu.Unlock()
		return ch, func() {}, nil
	}
	r.subscribers[id] = ch
	r.mu.Unlock()

	unsubscribe := func() {
		r.mu.Lock()
		if c, ok := r.subscribers[id]; ok {
			delete(r.subscribers, id)
			close(c)
		}
		r.mu.Unlock()
	}
	return ch, unsubscribe, nil
}

func (m *Manager) run(jobID string) (*run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.runs[jobID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}
	return r, nil
}
