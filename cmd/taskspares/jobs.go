package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	cfgpkg "github.com/local/taskspares/internal/config"
	"github.com/local/taskspares/internal/extract"
	"github.com/local/taskspares/internal/queue"
	"github.com/local/taskspares/internal/store"
)

func newEnqueueCmd() *cobra.Command {
	var jobID string
	cmd := &cobra.Command{
		Use:   "enqueue",
		Short: "Queue an extraction job for the workers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			job, err := jobFromFlags(cmd, jobID)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			cfg := cfgpkg.FromEnv()
			rc, err := queue.Connect(ctx, cfg.Queue.RedisURL)
			if err != nil {
				return err
			}
			defer rc.Close()
			rq, err := queue.NewRedisQueue(ctx, rc, cfg.Queue.Stream, cfg.Queue.Group)
			if err != nil {
				return err
			}

			if _, err := rq.Enqueue(ctx, job); err != nil {
				return fmt.Errorf("enqueue: %w", err)
			}
			now := time.Now()
			if err := store.NewRedisStatus(rc, statusTTL).Set(ctx, job.JobID, store.Status{Status: store.StatusQueued, Start: &now}); err != nil {
				return fmt.Errorf("record status: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), job.JobID)
			return nil
		},
	}
	cmd.Flags().StringVar(&jobID, "job-id", "", "job id (default: random UUID)")
	return cmd
}

// jobFromFlags builds a job from --pdf/--out/--pages/--mode, falling back to
// the environment like a local run does.
func jobFromFlags(cmd *cobra.Command, jobID string) (queue.Job, error) {
	cfg, err := extractConfig(cmd)
	if err != nil {
		return queue.Job{}, err
	}
	if strings.TrimSpace(cfg.PDFPath) == "" {
		return queue.Job{}, &extract.PreconditionError{Kind: extract.KindMissingPDFPath, Message: "PDF_PATH is not set (use --pdf or the PDF_PATH environment variable)"}
	}
	if jobID == "" {
		jobID = uuid.NewString()
	}
	job := queue.Job{JobID: jobID, PDF: cfg.PDFPath, Out: cfg.OutPath}
	if cfg.PagesSet {
		pages := cfg.Pages
		job.Pages = &pages
	}
	if cmd.Flags().Changed("mode") {
		job.Mode = cfg.Mode
	}
	return job, job.Validate()
}

func newCancelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <job-id>",
		Short: "Cancel a queued job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := cfgpkg.FromEnv()
			rc, err := queue.Connect(ctx, cfg.Queue.RedisURL)
			if err != nil {
				return err
			}
			defer rc.Close()
			rq, err := queue.NewRedisQueue(ctx, rc, cfg.Queue.Stream, cfg.Queue.Group)
			if err != nil {
				return err
			}
			st, err := cancelJob(ctx, rq, store.NewRedisStatus(rc, statusTTL), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", args[0], st.Status)
			return nil
		},
	}
}

type jobCanceller interface {
	CancelJob(ctx context.Context, jobID string) error
}

type jobStatuses interface {
	Get(ctx context.Context, jobID string) (store.Status, bool, error)
	Set(ctx context.Context, jobID string, st store.Status) error
}

// cancelJob marks the job for the workers and records it as cancelled unless
// a worker has already picked it up.
func cancelJob(ctx context.Context, q jobCanceller, statuses jobStatuses, jobID string) (store.Status, error) {
	if err := q.CancelJob(ctx, jobID); err != nil {
		return store.Status{}, fmt.Errorf("cancel job: %w", err)
	}
	cur, ok, err := statuses.Get(ctx, jobID)
	if err != nil {
		return store.Status{}, fmt.Errorf("read status: %w", err)
	}
	if ok && cur.Status != store.StatusQueued {
		return cur, nil
	}
	now := time.Now()
	cur.Status, cur.Message, cur.End = store.StatusCancelled, "cancelled", &now
	if err := statuses.Set(ctx, jobID, cur); err != nil {
		return store.Status{}, fmt.Errorf("record status: %w", err)
	}
	return cur, nil
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <job-id>",
		Short: "Print the status of a job as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rc, err := queue.Connect(ctx, cfgpkg.FromEnv().Queue.RedisURL)
			if err != nil {
				return err
			}
			defer rc.Close()

			st, ok, err := store.NewRedisStatus(rc, statusTTL).Get(ctx, args[0])
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("job %s not found", args[0])
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(st)
		},
	}
}
