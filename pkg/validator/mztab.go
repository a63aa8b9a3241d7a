package validator

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/ChrisMcGann/pxvalidator/pkg/mztab"
	"github.com/ChrisMcGann/pxvalidator/pkg/report"
)

const errorLogSuffix = "-mztab-errors.out"

// MzTabValidator parses an mzTab file, copies the parser messages into
// the report and reports the protein, peptide and PSM counts.
type MzTabValidator struct {
	path     string
	Parser   mztab.Parser
	Compiler mztab.Compiler
	// ErrorLog receives one line per parser message
	ErrorLog string
}

var _ Validator = (*MzTabValidator)(nil)

func NewMzTabValidator(path string) (*MzTabValidator, error) {
	if err := requireFile(path, "mzTab"); err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return &MzTabValidator{
		path:     path,
		Parser:   mztab.LineParser{},
		Compiler: mztab.Counter{},
		ErrorLog: abs + errorLogSuffix,
	}, nil
}

func severityType(s mztab.Severity) report.Type {
	switch s {
	case mztab.Error:
		return report.Error
	case mztab.Warn:
		return report.Warning
	}
	return report.Info
}

func (v *MzTabValidator) Validate(ctx context.Context) (*report.Report, error) {
	r := report.New()

	msgs, err := v.parse()
	if err != nil {
		r.Add(err, report.Error)
		return r, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := v.writeErrorLog(msgs); err != nil {
		log.Warn().Err(err).Str("path", v.ErrorLog).Msg("failed to write mzTab error log")
	}

	counts, err := v.compile()
	if err != nil {
		r.Add(err, report.Error)
	} else {
		r.NumProteins = counts.Proteins
		r.NumPeptides = counts.Peptides
		r.NumPSMs = counts.PSMs
	}

	for _, m := range msgs {
		r.Addf(severityType(m.Severity), "%s", m)
	}

	log.Info().
		Str("file", v.path).
		Int("messages", len(msgs)).
		Int("proteins", r.NumProteins).
		Int("psms", r.NumPSMs).
		Msg("parsed mzTab file")
	return r, nil
}

func (v *MzTabValidator) parse() ([]mztab.Message, error) {
	f, err := os.Open(v.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open mzTab file: %w", err)
	}
	defer f.Close()

	msgs, err := v.Parser.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read mzTab file %s: %w", v.path, err)
	}
	return msgs, nil
}

func (v *MzTabValidator) compile() (mztab.Counts, error) {
	f, err := os.Open(v.path)
	if err != nil {
		return mztab.Counts{}, fmt.Errorf("failed to open mzTab file: %w", err)
	}
	defer f.Close()

	counts, err := v.Compiler.Compile(f)
	if err != nil {
		return mztab.Counts{}, fmt.Errorf("failed to compile mzTab file %s: %w", v.path, err)
	}
	return counts, nil
}

func (v *MzTabValidator) writeErrorLog(msgs []mztab.Message) error {
	if v.ErrorLog == "" {
		return nil
	}
	f, err := os.Create(v.ErrorLog)
	if err != nil {
		return err
	}
	if err := writeMessages(f, msgs); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func writeMessages(w io.Writer, msgs []mztab.Message) error {
	for _, m := range msgs {
		if _, err := fmt.Fprintln(w, m.String()); err != nil {
			return err
		}
	}
	return nil
}
