package validator

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	assert "github.com/ZanzyTHEbar/assert-lib"
	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"github.com/ChrisMcGann/pxvalidator/pkg/core"
	"github.com/ChrisMcGann/pxvalidator/pkg/mzidentml"
	"github.com/ChrisMcGann/pxvalidator/pkg/reader"
	"github.com/ChrisMcGann/pxvalidator/pkg/report"
	"github.com/ChrisMcGann/pxvalidator/pkg/spectra"
)

const indexStrategy = "index"

// MzIdentMLValidator checks that every spectrum referenced by an mzIdentML
// file can be found in the peak-list files supplied with it.
type MzIdentMLValidator struct {
	path        string
	peakFiles   []string
	mzTolerance float64
}

var _ Validator = (*MzIdentMLValidator)(nil)

// NewMzIdentMLValidator checks that the mzIdentML file and every peak file
// exist. A tolerance of 0 or less selects DefaultMzTolerance.
func NewMzIdentMLValidator(path string, peakFiles []string, mzTolerance float64) (*MzIdentMLValidator, error) {
	if err := requireFile(path, "mzIdentML"); err != nil {
		return nil, err
	}
	if len(peakFiles) == 0 {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("at least one peak file is required to validate an mzIdentML file")
	}
	for _, p := range peakFiles {
		if err := requireFile(p, "peak file"); err != nil {
			return nil, err
		}
	}
	if mzTolerance <= 0 {
		mzTolerance = DefaultMzTolerance
	}
	return &MzIdentMLValidator{path: path, peakFiles: peakFiles, mzTolerance: mzTolerance}, nil
}

// spectraDataFile strips the URI scheme of a SpectraData location and
// returns its file name.
func spectraDataFile(location string) string {
	location = strings.TrimPrefix(location, "file:")
	location = strings.ReplaceAll(location, `\`, "/")
	return filepath.Base(location)
}

func (v *MzIdentMLValidator) Validate(ctx context.Context) (*report.Report, error) {
	assert.NotEmpty(ctx, v.path, "mzIdentML path must be set")
	r := report.New()

	m, err := v.read()
	if err != nil {
		r.Add(err, report.Error)
		return r, nil
	}
	r.NumPeptides = len(m.Peptides())
	r.NumPSMs = m.NumIdents()
	r.NumSpectra = m.NumResults()

	entries := v.matchSpectraData(m.SpectraData(), r)
	refs := make(map[string]string, len(entries))
	for _, e := range entries {
		refs[e.SpectraDataRef] = e.Path
	}

	pool, err := spectra.Build(entries)
	if err != nil {
		r.Add(err, report.Error)
		return r, nil
	}
	defer func() {
		if cerr := pool.Close(); cerr != nil {
			log.Warn().Err(cerr).Msg("failed to close peak-list files")
		}
	}()

	results, err := m.Results()
	if err != nil {
		r.Add(err, report.Error)
		return r, nil
	}
	for _, res := range results {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		v.checkResult(pool, refs, res, r)
	}

	log.Info().
		Str("file", v.path).
		Int("spectra", r.NumSpectra).
		Int("found", r.NumFound).
		Int("missing", r.NumMissing).
		Msg("checked spectrum references")
	return r, nil
}

func (v *MzIdentMLValidator) read() (*mzidentml.MzIdentML, error) {
	f, err := os.Open(v.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open mzIdentML file: %w", err)
	}
	defer f.Close()

	m, err := mzidentml.Read(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read mzIdentML file %s: %w", v.path, err)
	}
	return m, nil
}

// matchSpectraData pairs every SpectraData element with the supplied peak
// file of the same name
func (v *MzIdentMLValidator) matchSpectraData(declared []mzidentml.SpectraData, r *report.Report) []spectra.Entry {
	byName := make(map[string]string, len(v.peakFiles))
	for _, p := range v.peakFiles {
		byName[filepath.Base(p)] = p
	}

	var entries []spectra.Entry
	for _, sd := range declared {
		name := spectraDataFile(sd.Location)
		path, ok := byName[name]
		if !ok {
			r.Addf(report.Error, "no peak file provided for SpectraData %s (%s)", sd.ID, sd.Location)
			continue
		}

		format := reader.FileTypeFromCV(sd.FileFormat.Accession)
		if format == reader.Unknown {
			format = reader.DetectFileType(path)
		}
		if !spectra.Supported(format) {
			r.Addf(report.Error, "peak file %s has unsupported format %q", path, sd.FileFormat.Name)
			continue
		}
		log.Debug().
			Str("spectra_data", sd.ID).
			Str("path", path).
			Stringer("format", format).
			Msg("matched peak file")
		entries = append(entries, spectra.Entry{Path: path, Format: format, SpectraDataRef: sd.ID})
	}
	return entries
}

func (v *MzIdentMLValidator) checkResult(pool *spectra.Pool, refs map[string]string, res mzidentml.Result, r *report.Report) {
	check := report.SpectrumCheck{DeclaredID: res.SpectrumID}

	path, ok := refs[res.SpectraDataRef]
	if !ok {
		check.Problem = "spectra data " + res.SpectraDataRef + " has no readable peak file"
		r.AddCheck(check)
		return
	}
	check.File = path

	if pool.IndexRef(path, res.SpectrumID) {
		check.Strategy = indexStrategy
	} else if id, strategy, err := pool.Match(path, res.SpectrumID); err == nil {
		check.ResolvedID = id
		check.Strategy = strategy.String()
	}

	spec, err := pool.Lookup(path, res.SpectrumID)
	if err != nil {
		check.Problem = lookupProblem(err)
		r.Addf(report.Error, "spectrum %s of %s: %s", res.SpectrumID, filepath.Base(path), err)
		r.AddCheck(check)
		return
	}

	check.Found = true
	check.ResolvedID = spec.ID
	check.MSLevel = spec.MSLevel
	check.PrecursorMZ = spec.PrecursorMZ
	check.Peaks = spec.Peaks
	r.AddCheck(check)

	if err := spec.Validate(); err != nil {
		r.Add(err, report.Warning)
	}
	v.checkMassToCharge(res, r)
}

func lookupProblem(err error) string {
	switch {
	case errors.Is(err, spectra.ErrOutOfRange):
		return "index out of range"
	case errors.Is(err, spectra.ErrInvalidIdentifier):
		return "invalid identifier"
	case errors.Is(err, spectra.ErrNotFound):
		return "not found"
	}
	return err.Error()
}

// checkMassToCharge recomputes the m/z of the rank 1 peptide
func (v *MzIdentMLValidator) checkMassToCharge(res mzidentml.Result, r *report.Report) {
	for _, item := range res.Items {
		if item.Rank != 1 {
			continue
		}
		if item.PepSeq == "" || item.Charge < 1 || item.CalculatedMassToCharge <= 0 {
			return
		}
		mods := make([]core.Modification, len(item.Modifications))
		for i, mod := range item.Modifications {
			mods[i] = core.Modification{Mass: mod.MassDelta, Position: mod.Location, Name: mod.Name}
		}
		mz := core.CalculatePeptideMass(item.PepSeq, item.Charge, mods)
		if diff := math.Abs(mz - item.CalculatedMassToCharge); diff > v.mzTolerance {
			r.Addf(report.Info, "%s: calculated m/z %.4f of %s differs from recomputed %.4f by %.4f",
				item.ID, item.CalculatedMassToCharge, item.PepSeq, mz, diff)
		}
		return
	}
}
