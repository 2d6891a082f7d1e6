package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	cfgpkg "github.com/local/taskspares/internal/config"
	"github.com/local/taskspares/internal/extract"
	"github.com/local/taskspares/internal/metrics"
	"github.com/local/taskspares/internal/queue"
	"github.com/local/taskspares/internal/source"
	"github.com/local/taskspares/internal/storage"
	"github.com/local/taskspares/internal/store"
	"github.com/local/taskspares/internal/worker"
)

const statusTTL = 7 * 24 * time.Hour

func newWorkerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Consume extraction jobs from Redis until interrupted",
		Args:  cobra.NoArgs,
		RunE:  runWorker,
	}
}

func runWorker(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cfg := cfgpkg.FromEnv()
	base, err := extractConfig(cmd)
	if err != nil {
		return err
	}
	if err := base.Validate(); err != nil {
		return &extract.PreconditionError{Kind: extract.KindInvalidConfig, Message: "invalid configuration", Err: err}
	}

	rc, err := queue.Connect(ctx, cfg.Queue.RedisURL)
	if err != nil {
		return err
	}
	defer rc.Close()

	rq, err := queue.NewRedisQueue(ctx, rc, cfg.Queue.Stream, cfg.Queue.Group)
	if err != nil {
		return err
	}
	rs := store.NewRedisStatus(rc, statusTTL)

	s3c, err := storage.NewS3Client(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	run := func(ctx context.Context, jc cfgpkg.ExtractConfig) (*extract.Result, error) {
		return extract.Run(ctx, jc, extract.Deps{
			Resolver: &source.Resolver{DataDir: jc.DataDir, S3: s3c},
			Uploader: s3c,
		})
	}

	w := worker.New(worker.Config{
		Concurrency: cfg.Queue.Concurrency,
		Consumer:    cfg.Queue.Consumer,
		BlockFor:    cfg.Queue.BlockFor,
		JobTimeout:  base.Timeout,
	}, base, rq, rs, run)
	w.Start(ctx)

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/healthz", func(wr http.ResponseWriter, r *http.Request) {
		if err := rc.Ping(r.Context()).Err(); err != nil {
			http.Error(wr, "redis: "+err.Error(), http.StatusServiceUnavailable)
			return
		}
		wr.Write([]byte("ok"))
	})
	srv := &http.Server{Addr: cfg.Metrics.Addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		log.Info().Str("addr", cfg.Metrics.Addr).Msg("metrics server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("metrics server error")
		}
	}()
	go pollDepths(ctx, rq)

	log.Info().
		Str("stream", rq.Stream).
		Str("group", rq.Group).
		Str("consumer", cfg.Queue.Consumer).
		Int("concurrency", cfg.Queue.Concurrency).
		Msg("worker running")
	<-ctx.Done()

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), base.Timeout+10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	if err := w.Stop(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("worker did not stop cleanly")
	}
	log.Info().Msg("shutdown complete")
	return nil
}

func pollDepths(ctx context.Context, rq *queue.RedisQueue) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pending, dlq, err := rq.Depths(ctx)
			if err != nil {
				log.Debug().Err(err).Msg("queue depth poll failed")
				continue
			}
			metrics.SetQueueDepth("stream", pending)
			metrics.SetQueueDepth("dlq", dlq)
		}
	}
}
