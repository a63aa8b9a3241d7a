package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"github.com/ChrisMcGann/pxvalidator/pkg/report"
	"github.com/ChrisMcGann/pxvalidator/pkg/writer/sqlite"
)

type outputOptions struct {
	Report string
	DB     string
}

// emit prints the summary and writes the optional YAML and SQLite outputs.
// A report with errors yields errReportHasErrors.
func emit(out io.Writer, name string, r *report.Report, opts outputOptions) error {
	fmt.Fprint(out, r.Summary())

	if opts.Report != "" {
		if err := writeYAMLReport(opts.Report, r); err != nil {
			return err
		}
		log.Info().Str("path", opts.Report).Msg("wrote report")
	}

	if opts.DB != "" {
		if err := writeDBReport(opts.DB, name, r); err != nil {
			return err
		}
		log.Info().Str("path", opts.DB).Msg("stored report")
	}

	if r.HasErrors() {
		return errReportHasErrors
	}
	return nil
}

func writeYAMLReport(path string, r *report.Report) error {
	f, err := os.Create(path)
	if err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to create report file").
			WithCause(err)
	}
	if err := r.WriteYAML(f); err != nil {
		f.Close()
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to write report file").
			WithCause(err)
	}
	return f.Close()
}

func writeDBReport(path, name string, r *report.Report) error {
	w, err := sqlite.NewWriter(path)
	if err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to create output database").
			WithCause(err)
	}
	if _, err := w.WriteReport(name, r); err != nil {
		w.Abort()
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to store report").
			WithCause(err)
	}
	if err := w.Finalize(); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to finalize output database").
			WithCause(err)
	}
	return nil
}
