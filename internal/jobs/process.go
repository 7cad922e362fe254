package jobs

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/seanschneidewent/Maestro-Super-sub001/internal/analysis"
	"github.com/seanschneidewent/Maestro-Super-sub001/internal/store"
)

// process drives the page loop for one job until it drains, pauses or is
// cancelled. Pages are claimed in enumeration order; completion order under
// the concurrency gate is unspecified.
func (m *Manager) process(ctx context.Context, r *run) {
	g := new(errgroup.Group)
	g.SetLimit(m.concurrency)

	for _, page := range r.pages {
		if ctx.Err() != nil || r.stopRequested() {
			break
		}
		if r.isDone(page.ID) {
			continue
		}
		page := page
		// Page failures are isolated; the group never aborts.
		g.Go(func() error {
			// The claim loop blocks in Go while the limit is
			// saturated, so a pause, cancel or shutdown that
			// lands during that wait is only visible here.
			if ctx.Err() != nil || r.stopRequested() {
				return nil
			}
			m.analyzePage(ctx, r, page)
			return nil
		})
	}
	_ = g.Wait()

	r.mu.Lock()
	cancelled, paused := r.cancelled, r.pauseReq
	if paused && !cancelled {
		r.job.Status = StatusPaused
		r.job.CurrentPageID = ""
		r.job.CurrentPageName = ""
	}
	jobID := r.job.ID
	r.mu.Unlock()

	switch {
	case cancelled:
		return
	case paused:
		m.logger.Info("job paused", "job_id", jobID)
		return
	case ctx.Err() != nil:
		// Manager shutting down; leave the job as-is for a later resume.
		return
	}

	// A vanished project is an orchestration-level fault, unlike
	// individual page failures.
	if _, err := m.store.Project(ctx, r.job.ProjectID); err != nil {
		m.finalize(r, StatusFailed, fmt.Sprintf("project lost mid-run: %v", err))
		return
	}
	m.finalize(r, StatusCompleted, "")
}

// analyzePage runs one page through the analyzer and records the outcome.
// A failure is counted against the job but does not stop it.
func (m *Manager) analyzePage(ctx context.Context, r *run, page store.Page) {
	r.mu.Lock()
	r.job.CurrentPageID = page.ID
	r.job.CurrentPageName = page.Name
	r.mu.Unlock()

	img, err := m.store.PageImage(ctx, page.ID)
	var res *analysis.Result
	if err == nil {
		res, err = m.analyzer.Analyze(ctx, img, analysis.PageMeta{
			ID:         page.ID,
			Name:       page.Name,
			Discipline: page.Discipline,
		})
	}
	if err == nil {
		err = m.store.SaveAnalysis(ctx, page.ID, res)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		r.job.FailedPages++
		r.job.ErrorMessage = fmt.Sprintf("page %s: %v", page.Name, err)
		m.logger.Warn("page analysis failed",
			"job_id", r.job.ID, "page", page.Name, "error", err)
	} else {
		r.done[page.ID] = true
		r.job.ProcessedPages++
	}
	m.publishLocked(r, Progress{
		Processed:       r.job.ProcessedPages,
		Total:           r.job.TotalPages,
		CurrentPageName: page.Name,
	})
}

// finalize moves a job into a terminal state, emits the closing progress
// event and releases the project's active-job slot. It is a no-op for jobs
// already terminal or cancelled.
func (m *Manager) finalize(r *run, status Status, errMsg string) {
	r.mu.Lock()
	if r.job.Status.Terminal() || r.cancelled {
		r.mu.Unlock()
		return
	}
	r.job.Status = status
	now := time.Now().UTC()
	r.job.CompletedAt = &now
	if errMsg != "" {
		r.job.ErrorMessage = errMsg
	}
	r.job.CurrentPageID = ""
	r.job.CurrentPageName = ""

	final := Progress{
		Processed: r.job.ProcessedPages,
		Total:     r.job.TotalPages,
		Complete:  true,
	}
	for id, ch := range r.subscribers {
		select {
		case ch <- final:
		default:
		}
		close(ch)
		delete(r.subscribers, id)
	}
	jobID, projectID := r.job.ID, r.job.ProjectID
	processed, failed := r.job.ProcessedPages, r.job.FailedPages
	r.mu.Unlock()

	m.mu.Lock()
	if m.active[projectID] == jobID {
		delete(m.active, projectID)
	}
	m.mu.Unlock()

	m.logger.Info("job finished",
		"job_id", jobID, "status", status,
		"processed", processed, "failed", failed)
}

// publishLocked fans an event out to all subscribers. Must be called with
// r.mu held. Full subscriber buffers drop the event rather than block the
// page loop.
func (m *Manager) publishLocked(r *run, ev Progress) {
	for _, ch := range r.subscribers {
		select {
		case ch <- ev:
		default:
		}
	}
}

func (r *run) stopRequested() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pauseReq || r.cancelled
}

func (r *run) isDone(pageID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.done[pageID]
}
