package main

import (
	"github.com/spf13/cobra"

	cfgpkg "github.com/local/taskspares/internal/config"
	"github.com/local/taskspares/internal/extract"
	"github.com/local/taskspares/internal/report"
)

func newPreviewCmd() *cobra.Command {
	var o report.Options
	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Parse a PDF and print the rows without writing a workbook",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
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
			deps.Progress = cmd.ErrOrStderr()

			res, err := extract.Parse(ctx, cfg, deps)
			if err != nil {
				return err
			}
			report.Render(cmd.OutOrStdout(), res.Tasks, res.Spares, o)
			return nil
		},
	}
	cmd.Flags().IntVar(&o.Limit, "limit", 20, "rows per table, 0 for all")
	cmd.Flags().IntVar(&o.DescWidth, "width", 48, "wrap description columns at this width")
	cmd.Flags().BoolVar(&o.Markdown, "markdown", false, "print Markdown tables")
	return cmd
}
