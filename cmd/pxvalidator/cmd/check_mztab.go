package cmd

import (
	"context"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ChrisMcGann/pxvalidator/pkg/validator"
)

type checkMzTabOptions struct {
	MzTab  string
	Output outputOptions
}

func newCheckMzTabCommand() *cobra.Command {
	opts := checkMzTabOptions{}
	cmd := &cobra.Command{
		Use:   "check-mztab",
		Short: "Check the layout of an mzTab file and count its contents",
		Long: `Parse an mzTab file, report its protein, peptide and PSM counts and every
problem the parser found. Parser messages are also written next to the
input as <file>-mztab-errors.out.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCheckMzTab(cmd.Context(), cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.MzTab, "mztab", "", "mzTab file (required)")
	cmd.Flags().StringVar(&opts.Output.Report, "report", "", "Write the report as YAML to this file")
	cmd.Flags().StringVar(&opts.Output.DB, "db", "", "Store the report in this SQLite database")
	return cmd
}

func runCheckMzTab(ctx context.Context, cmd *cobra.Command, opts checkMzTabOptions) error {
	v, err := validator.NewMzTabValidator(opts.MzTab)
	if err != nil {
		return err
	}
	r, err := v.Validate(ctx)
	if err != nil {
		return err
	}
	return emit(cmd.OutOrStdout(), filepath.Base(opts.MzTab), r, outputOptions{
		Report: resolveString(cmd, opts.Output.Report, "report", "report"),
		DB:     resolveString(cmd, opts.Output.DB, "db", "db"),
	})
}
