// Command taskspares extracts maintenance tasks and spare parts from PDF
// reports into an XLSX workbook.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	cfgpkg "github.com/local/taskspares/internal/config"
	"github.com/local/taskspares/internal/extract"
	logpkg "github.com/local/taskspares/internal/logger"
	"github.com/local/taskspares/internal/metrics"
)

func main() {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// execute runs the CLI and returns the process exit code.
func execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if args == nil {
		// cobra falls back to os.Args on nil
		args = []string{}
	}
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	defer logpkg.Close()

	err := root.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
	}
	return extract.ExitCode(err)
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "taskspares",
		Short: "Extract maintenance tasks and spare parts from a PDF report into Excel",
		Long: `taskspares reads a planned-maintenance report (PDF, text layer or scanned)
and writes a workbook with a Tasks sheet and a SpareParts sheet.

Every flag has an environment variable counterpart (PDF_PATH, PAGES,
TESSERACT_CMD, POPPLER_PATH, ...); flags win over the environment.`,
		Args:              cobra.NoArgs,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: initLogging,
		RunE:              runExtract,
	}
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &extract.PreconditionError{Kind: extract.KindInvalidConfig, Message: "invalid flags", Err: err}
	})
	addExtractFlags(root)

	root.AddCommand(newPreviewCmd(), newWorkerCmd(), newEnqueueCmd(), newCancelCmd(), newStatusCmd(), newDoctorCmd())
	return root
}

func initLogging(cmd *cobra.Command, _ []string) error {
	cfg := cfgpkg.FromEnv()
	err := logpkg.Init(logpkg.Options{
		Level:        cfg.Logging.Level,
		Pretty:       cfg.Logging.Pretty,
		File:         cfg.Logging.File,
		MaxSizeMB:    cfg.Logging.MaxSizeMB,
		MaxBackups:   cfg.Logging.MaxBackups,
		MaxAgeDays:   cfg.Logging.MaxAgeDays,
		Compress:     cfg.Logging.Compress,
		Console:      cmd.ErrOrStderr(),
		SendToAxiom:  cfg.Axiom.Send && cfg.Axiom.APIKey != "",
		AxiomAPIKey:  cfg.Axiom.APIKey,
		AxiomOrgID:   cfg.Axiom.OrgID,
		AxiomDataset: cfg.Axiom.Dataset,
		AxiomFlush:   cfg.Axiom.FlushInterval,
		AxiomBatch:   cfg.Axiom.BatchSize,
	})
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	metrics.Init()
	return nil
}

func runExtract(cmd *cobra.Command, _ []string) error {
	cfg, err := extractConfig(cmd)
	if err != nil {
		return err
	}
	ctx, cancel := withTimeout(cmd.Context(), cfg)
	defer cancel()

	deps, err := newDeps(ctx, cfg, cfgpkg.FromEnv().Storage)
	if err != nil {
		return err
	}
	deps.Progress = cmd.OutOrStdout()

	_, err = extract.Run(ctx, cfg, deps)
	writeTextfile()
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("extraction timed out after %s: %w", cfg.Timeout, err)
	}
	return err
}
