package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/seanschneidewent/Maestro-Super-sub001/internal/analysis"
	"github.com/seanschneidewent/Maestro-Super-sub001/internal/jobs"
	"github.com/seanschneidewent/Maestro-Super-sub001/internal/providers"
)

var processCmd = &cobra.Command{
	Use:   "process <project-id>",
	Short: "Analyze all unanalyzed pages in a project",
	Long: `Analyze all unanalyzed pages in a project.

Starts a page-analysis job for the project and streams progress until it
reaches a terminal state. Pages that already have an analysis record are
skipped, so re-running the command only covers new or failed pages.

Examples:
  maestro process 4f8a1c2e-...          # analyze a project's pages
  maestro --log-level debug process ... # with verbose logging`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		projectID := args[0]

		d, err := buildDeps(ctx)
		if err != nil {
			return err
		}
		defer d.close()

		analyzer := analysis.New(analysis.Config{
			Vision:  d.openai,
			Limiter: providers.NewRateLimiter(d.cfg.OpenAI.RPM),
			Retry:   d.retryConfig(),
		})

		mgr := jobs.NewManager(jobs.ManagerConfig{
			Store:       d.db,
			Analyzer:    analyzer,
			Concurrency: d.cfg.Pipeline.Concurrency,
			BaseContext: ctx,
		})
		defer mgr.Close()

		jobID, err := mgr.Start(ctx, projectID)
		if err != nil {
			return err
		}
		slog.Info("job started", "job_id", jobID, "project_id", projectID)

		events, unsubscribe, err := mgr.Subscribe(jobID)
		if err != nil {
			return err
		}
		defer unsubscribe()

		for ev := range events {
			if ev.CurrentPageName != "" {
				fmt.Printf("  [%d/%d] %s\n", ev.Processed, ev.Total, ev.CurrentPageName)
			}
			if ev.Complete {
				break
			}
		}

		job, err := mgr.Snapshot(jobID)
		if err != nil {
			return err
		}
		fmt.Printf("Job %s: %s (%d processed, %d failed of %d)\n",
			job.ID, job.Status, job.ProcessedPages, job.FailedPages, job.TotalPages)
		if job.ErrorMessage != "" {
			fmt.Printf("  error: %s\n", job.ErrorMessage)
		}
		if job.Status != jobs.StatusCompleted {
			return fmt.Errorf("job finished with status %s", job.Status)
		}
		return nil
	},
}
