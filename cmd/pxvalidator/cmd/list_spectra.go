package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/spf13/cobra"

	"github.com/ChrisMcGann/pxvalidator/pkg/core"
	"github.com/ChrisMcGann/pxvalidator/pkg/filter"
	"github.com/ChrisMcGann/pxvalidator/pkg/reader"
	"github.com/ChrisMcGann/pxvalidator/pkg/spectra"
)

type listSpectraOptions struct {
	Peak   string
	Format string
	Match  string
	Filter filter.Config
}

func newListSpectraCommand() *cobra.Command {
	opts := listSpectraOptions{}
	cmd := &cobra.Command{
		Use:   "list-spectra",
		Short: "List the spectrum ids of a peak-list file or resolve one reference",
		Long: `Without --match, print the spectrum ids of a peak-list file in file order.
With --match, resolve a spectrum reference the way check-mzid does and
print the spectrum it refers to. "index=N" references select the N-th
spectrum (0-based).

Examples:
  pxvalidator list-spectra --peak run1.mzML
  pxvalidator list-spectra --peak run1.mzML --match scan=1234 --top-n 20`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runListSpectra(cmd.OutOrStdout(), opts)
		},
	}
	cmd.Flags().StringVar(&opts.Peak, "peak", "", "Peak-list file (required)")
	cmd.Flags().StringVar(&opts.Format, "format", "", "Peak-list format: mgf, mzml, mzxml, pkl, ms2, pride (auto-detect if not specified)")
	cmd.Flags().StringVar(&opts.Match, "match", "", "Spectrum reference to resolve")
	cmd.Flags().IntVar(&opts.Filter.TopN, "top-n", 0, "Print only the N most intense peaks (0 = no limit)")
	cmd.Flags().Float64Var(&opts.Filter.IntensityCutoff, "cutoff", 0, "Print only peaks above this % of base peak (0 = no cutoff)")
	cmd.Flags().BoolVar(&opts.Filter.DropZero, "drop-zero", false, "Skip peaks with zero intensity")
	_ = cmd.MarkFlagRequired("peak")
	return cmd
}

func peakFormat(path, tag string) (reader.FileType, error) {
	format := reader.DetectFileType(path)
	if tag != "" {
		format = reader.ParseFileType(tag)
	}
	if !spectra.Supported(format) {
		return reader.Unknown, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("cannot read %s as a peak list, please specify --format", path))
	}
	return format, nil
}

func runListSpectra(out io.Writer, opts listSpectraOptions) error {
	if err := opts.Filter.Validate(); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(err.Error())
	}
	format, err := peakFormat(opts.Peak, opts.Format)
	if err != nil {
		return err
	}

	pool, err := spectra.Build([]spectra.Entry{{Path: opts.Peak, Format: format}})
	if err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("failed to open peak-list file").
			WithCause(err)
	}
	defer pool.Close()

	if opts.Match == "" {
		ids, err := pool.IDs(opts.Peak)
		if err != nil {
			return lookupError(err)
		}
		for _, id := range ids {
			fmt.Fprintln(out, id)
		}
		return nil
	}

	strategy := "index"
	if !pool.IndexRef(opts.Peak, opts.Match) {
		_, s, err := pool.Match(opts.Peak, opts.Match)
		if err != nil {
			return lookupError(err)
		}
		strategy = s.String()
	}
	spec, err := pool.Lookup(opts.Peak, opts.Match)
	if err != nil {
		return lookupError(err)
	}
	printSpectrum(out, opts.Filter.Apply(spec), strategy)
	return nil
}

func lookupError(err error) error {
	code := errbuilder.CodeNotFound
	if errors.Is(err, spectra.ErrInvalidIdentifier) || errors.Is(err, spectra.ErrOutOfRange) {
		code = errbuilder.CodeInvalidArgument
	}
	return errbuilder.New().
		WithCode(code).
		WithMsg("spectrum lookup failed").
		WithCause(err)
}

func printSpectrum(out io.Writer, spec *core.Spectrum, strategy string) {
	fmt.Fprintf(out, "ID: %s\n", spec.ID)
	fmt.Fprintf(out, "Index: %d\n", spec.Index)
	fmt.Fprintf(out, "Matched by: %s\n", strategy)
	fmt.Fprintf(out, "MS level: %d\n", spec.MSLevel)
	if spec.Title != "" {
		fmt.Fprintf(out, "Title: %s\n", spec.Title)
	}
	fmt.Fprintf(out, "Precursor m/z: %.4f\n", spec.PrecursorMZ)
	fmt.Fprintf(out, "Charge: %d\n", spec.Charge)
	if spec.RetentionTime != nil {
		fmt.Fprintf(out, "Retention time: %.2f s\n", *spec.RetentionTime)
	}
	fmt.Fprintf(out, "Peaks: %d\n", len(spec.Peaks))
	for _, p := range spec.Peaks {
		fmt.Fprintf(out, "%.4f\t%.1f\n", p.MZ, p.Intensity)
	}
}
