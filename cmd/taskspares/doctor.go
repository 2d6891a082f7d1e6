package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	cfgpkg "github.com/local/taskspares/internal/config"
	"github.com/local/taskspares/internal/statuscheck"
	"github.com/local/taskspares/internal/storage"
)

type redisPinger struct{ c *redis.Client }

func (p redisPinger) Ping(ctx context.Context) error { return p.c.Ping(ctx).Err() }

func newDoctorCmd() *cobra.Command {
	var (
		withRedis bool
		bucket    string
		asJSON    bool
	)
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check that OCR tools, poppler, Redis and S3 are reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := extractConfig(cmd)
			if err != nil {
				return err
			}
			env := cfgpkg.FromEnv()
			opts := statuscheck.Options{
				TesseractCmd: cfg.TesseractCmd,
				PopplerPath:  cfg.PopplerPath,
				NeedPoppler:  cfg.TextBackend == cfgpkg.BackendPoppler || cfg.RenderBackend == cfgpkg.BackendPoppler,
				S3Bucket:     bucket,
			}
			if withRedis {
				ro, err := redis.ParseURL(env.Queue.RedisURL)
				if err != nil {
					return fmt.Errorf("parse redis url: %w", err)
				}
				rc := redis.NewClient(ro)
				defer rc.Close()
				opts.Redis = redisPinger{rc}
			}
			if bucket != "" {
				s3c, err := storage.NewS3Client(cmd.Context(), env.Storage)
				if err != nil {
					return err
				}
				opts.S3 = s3c
			}

			sts := statuscheck.New(opts).Summary(cmd.Context())
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if err := enc.Encode(sts); err != nil {
					return err
				}
			} else {
				statuscheck.Render(cmd.OutOrStdout(), sts)
			}
			if n := statuscheck.Failed(sts); n > 0 {
				return fmt.Errorf("%d required check(s) failed", n)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&withRedis, "redis", false, "also ping REDIS_URL")
	cmd.Flags().StringVar(&bucket, "bucket", "", "also check this S3 bucket")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the checks as JSON")
	return cmd
}
