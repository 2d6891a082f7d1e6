// Package worker consumes extraction jobs from the queue.
package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/local/taskspares/internal/config"
	"github.com/local/taskspares/internal/extract"
	"github.com/local/taskspares/internal/metrics"
	"github.com/local/taskspares/internal/queue"
	"github.com/local/taskspares/internal/store"
)

type Queue interface {
	Dequeue(ctx context.Context, consumer string, timeout time.Duration) (string, []byte, error)
	Ack(ctx context.Context, msgID string) error
	AddDLQ(ctx context.Context, payload []byte, reason string) error
	IsCancelled(ctx context.Context, jobID string) (bool, error)
	ClearCancelled(ctx context.Context, jobID string) error
}

type StatusStore interface {
	Set(ctx context.Context, jobID string, st store.Status) error
}

// RunFunc performs one extraction.
type RunFunc func(ctx context.Context, cfg config.ExtractConfig) (*extract.Result, error)

type Config struct {
	Concurrency int
	Consumer    string
	BlockFor    time.Duration
	// JobTimeout bounds a single extraction.
	JobTimeout time.Duration
}

type Worker struct {
	cfg    Config
	base   config.ExtractConfig
	q      Queue
	status StatusStore
	run    RunFunc

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a worker. base supplies every run option a job does not set.
func New(cfg Config, base config.ExtractConfig, q Queue, status StatusStore, run RunFunc) *Worker {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 2
	}
	if cfg.BlockFor <= 0 {
		cfg.BlockFor = 2 * time.Second
	}
	return &Worker{cfg: cfg, base: base, q: q, status: status, run: run}
}

// Start launches the consumer goroutines.
func (w *Worker) Start(ctx context.Context) {
	ctx, w.cancel = context.WithCancel(ctx)
	for i := 0; i < w.cfg.Concurrency; i++ {
		w.wg.Add(1)
		go w.loop(ctx, i)
	}
}

// Stop cancels the loops and waits for in-flight jobs, up to ctx's deadline.
func (w *Worker) Stop(ctx context.Context) error {
	if w.cancel != nil {
		w.cancel()
	}
	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Worker) loop(ctx context.Context, id int) {
	defer w.wg.Done()
	log.Info().Int("worker", id).Msg("worker started")
	for {
		if ctx.Err() != nil {
			log.Info().Int("worker", id).Msg("worker stopped")
			return
		}

		msgID, data, err := w.q.Dequeue(ctx, w.cfg.Consumer, w.cfg.BlockFor)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			log.Error().Err(err).Msg("queue dequeue error")
			sleep(ctx, 500*time.Millisecond)
			continue
		}
		if msgID == "" {
			continue
		}

		// Jobs started before shutdown run to completion.
		w.handle(context.WithoutCancel(ctx), id, msgID, data)
	}
}

func (w *Worker) handle(ctx context.Context, workerID int, msgID string, data []byte) {
	defer func() {
		if err := w.q.Ack(ctx, msgID); err != nil {
			log.Error().Err(err).Str("msg_id", msgID).Msg("ack failed")
		}
	}()

	job, err := queue.DecodeJob(data)
	if err == nil {
		err = job.Validate()
	}
	if err != nil {
		log.Error().Err(err).Str("msg_id", msgID).Msg("invalid job payload")
		w.deadLetter(ctx, data, err.Error())
		return
	}

	logger := log.With().Int("worker", workerID).Str("job_id", job.JobID).Logger()
	if cancelled, _ := w.q.IsCancelled(ctx, job.JobID); cancelled {
		logger.Warn().Msg("job cancelled before processing; skipping")
		w.setStatus(ctx, job.JobID, store.Status{Status: store.StatusCancelled, Message: "cancelled"})
		if err := w.q.ClearCancelled(ctx, job.JobID); err != nil {
			logger.Warn().Err(err).Msg("failed to clear cancel mark")
		}
		return
	}

	start := time.Now()
	w.setStatus(ctx, job.JobID, store.Status{Status: store.StatusProcessing, Start: &start})

	runCtx := ctx
	if w.cfg.JobTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, w.cfg.JobTimeout)
		defer cancel()
	}
	res, err := w.run(runCtx, JobConfig(w.base, job))
	end := time.Now()

	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			logger.Error().Dur("timeout", w.cfg.JobTimeout).Msg("job timed out")
		}
		logger.Error().Err(err).Str("pdf", job.PDF).Msg("job failed")
		w.setStatus(ctx, job.JobID, store.Status{
			Status:   store.StatusFailed,
			Message:  err.Error(),
			ExitCode: extract.ExitCode(err),
			Start:    &start,
			End:      &end,
		})
		w.deadLetter(ctx, data, err.Error())
		return
	}

	metrics.IncJob("success")
	logger.Info().Str("output", res.Output).Int("tasks", len(res.Tasks)).Int("spares", len(res.Spares)).Dur("took", end.Sub(start)).Msg("job done")
	w.setStatus(ctx, job.JobID, store.Status{
		Status:  store.StatusSuccess,
		Message: "saved " + res.Output,
		Start:   &start,
		End:     &end,
		Result: map[string]any{
			"output": res.Output,
			"mode":   res.Mode,
			"pages":  res.Pages,
			"tasks":  len(res.Tasks),
			"spares": len(res.Spares),
		},
	})
}

func (w *Worker) deadLetter(ctx context.Context, data []byte, reason string) {
	metrics.IncJob("dlq")
	if err := w.q.AddDLQ(ctx, data, reason); err != nil {
		log.Error().Err(err).Msg("dlq push failed")
	}
}

func (w *Worker) setStatus(ctx context.Context, jobID string, st store.Status) {
	if w.status == nil {
		return
	}
	if err := w.status.Set(ctx, jobID, st); err != nil {
		log.Warn().Err(err).Str("job_id", jobID).Msg("status update failed")
	}
}

// JobConfig overlays the job's fields onto base.
func JobConfig(base config.ExtractConfig, j queue.Job) config.ExtractConfig {
	cfg := base
	cfg.PDFPath = j.PDF
	cfg.OutPath = j.Out
	if j.Pages != nil {
		cfg.Pages = *j.Pages
		cfg.PagesSet = true
	}
	if j.Mode != "" {
		cfg.Mode = j.Mode
	}
	return cfg
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
