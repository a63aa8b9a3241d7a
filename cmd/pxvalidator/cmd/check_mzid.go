package cmd

import (
	"context"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ChrisMcGann/pxvalidator/pkg/validator"
)

type checkMzIDOptions struct {
	MzID        string
	Peaks       []string
	MzTolerance float64
	Output      outputOptions
}

func newCheckMzIDCommand() *cobra.Command {
	opts := checkMzIDOptions{}
	cmd := &cobra.Command{
		Use:   "check-mzid",
		Short: "Check the spectrum references of an mzIdentML file",
		Long: `Check that every spectrum referenced by an mzIdentML file can be found in
the peak-list files it declares. Peak files are matched to SpectraData
elements by file name.

Examples:
  pxvalidator check-mzid --mzid result.mzid --peak run1.mgf --peak run2.mzML
  pxvalidator check-mzid --mzid result.mzid --peak run1.mgf --report report.yaml --db report.db`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCheckMzID(cmd.Context(), cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.MzID, "mzid", "", "mzIdentML file (required)")
	cmd.Flags().StringSliceVar(&opts.Peaks, "peak", nil, "Peak-list files referenced by the mzIdentML file")
	cmd.Flags().Float64Var(&opts.MzTolerance, "mz-tolerance", validator.DefaultMzTolerance, "Accepted difference between declared and recomputed peptide m/z")
	cmd.Flags().StringVar(&opts.Output.Report, "report", "", "Write the report as YAML to this file")
	cmd.Flags().StringVar(&opts.Output.DB, "db", "", "Store the report in this SQLite database")
	_ = viper.BindPFlag("mz_tolerance", cmd.Flags().Lookup("mz-tolerance"))
	return cmd
}

func runCheckMzID(ctx context.Context, cmd *cobra.Command, opts checkMzIDOptions) error {
	v, err := validator.NewMzIdentMLValidator(
		opts.MzID,
		resolveStrings(cmd, opts.Peaks, "peaks", "peak"),
		resolveFloat(cmd, opts.MzTolerance, "mz_tolerance", "mz-tolerance"),
	)
	if err != nil {
		return err
	}
	r, err := v.Validate(ctx)
	if err != nil {
		return err
	}
	return emit(cmd.OutOrStdout(), filepath.Base(opts.MzID), r, outputOptions{
		Report: resolveString(cmd, opts.Output.Report, "report", "report"),
		DB:     resolveString(cmd, opts.Output.DB, "db", "db"),
	})
}
