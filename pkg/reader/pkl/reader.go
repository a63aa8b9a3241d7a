// Package pkl provides random access to Micromass PKL peak lists.
//
// A PKL file is a sequence of blocks separated by blank lines. The first
// line of a block is "precursorMZ intensity charge", the remaining lines are
// peaks.
package pkl

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/ChrisMcGann/pxvalidator/pkg/core"
	"github.com/ChrisMcGann/pxvalidator/pkg/reader"
	"github.com/ChrisMcGann/pxvalidator/pkg/reader/internal/textfile"
)

// File provides indexed access to a PKL file. Spectrum ids are 1-based
// ordinals.
type File struct {
	f       *os.File
	path    string
	records []textfile.Record
	ids     []string
}

var _ reader.Reader = (*File)(nil)

// Open indexes the spectra of a PKL file. The file stays open until Close.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PKL file: %w", err)
	}

	p := &File{f: f, path: path}
	if err := p.index(); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to index PKL file %s: %w", path, err)
	}
	return p, nil
}

func (p *File) index() error {
	start := int64(-1)
	var end int64
	err := textfile.Walk(p.f, func(line string, offset int64, _ int) error {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			if start >= 0 {
				p.records = append(p.records, textfile.Record{Offset: start, Length: end - start})
				start = -1
			}
			return nil
		}
		if start < 0 {
			if len(strings.Fields(trimmed)) != 3 {
				return fmt.Errorf("precursor line must have 3 fields, got '%s'", trimmed)
			}
			start = offset
		}
		end = offset + int64(len(line))
		return nil
	})
	if err != nil {
		return err
	}
	if start >= 0 {
		p.records = append(p.records, textfile.Record{Offset: start, Length: end - start})
	}

	p.ids = make([]string, len(p.records))
	for i := range p.records {
		p.ids[i] = strconv.Itoa(i + 1)
	}
	return nil
}

func (p *File) IDs() []string {
	return p.ids
}

func (p *File) SpectrumByID(id string) (*core.Spectrum, error) {
	n, err := strconv.Atoi(strings.TrimSpace(id))
	if err != nil {
		return nil, fmt.Errorf("%w: %q", reader.ErrInvalidIdentifier, id)
	}
	if n < 1 || n > len(p.records) {
		return nil, fmt.Errorf("%w: %s", reader.ErrSpectrumNotFound, id)
	}
	return p.SpectrumByIndex(n - 1)
}

func (p *File) SpectrumByIndex(index int) (*core.Spectrum, error) {
	if index < 0 || index >= len(p.records) {
		return nil, fmt.Errorf("%w: %d", reader.ErrIndexOutOfRange, index)
	}

	spec := &core.Spectrum{
		ID:           p.ids[index],
		Index:        index,
		MSLevel:      2,
		SourceFile:   p.path,
		SourceFormat: "pkl",
		Peaks:        []core.Peak{},
	}

	scanner := textfile.Scanner(p.f, p.records[index])
	first := true
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if first {
			first = false
			if err := parsePrecursor(spec, line); err != nil {
				return nil, fmt.Errorf("spectrum %s: %w", spec.ID, err)
			}
			continue
		}
		peak, err := textfile.ParsePeak(line)
		if err != nil {
			return nil, fmt.Errorf("spectrum %s: %w", spec.ID, err)
		}
		spec.Peaks = append(spec.Peaks, peak)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return spec, nil
}

func (p *File) Close() error {
	return p.f.Close()
}

func parsePrecursor(spec *core.Spectrum, line string) error {
	fields := strings.Fields(line)
	if len(fields) != 3 {
		return fmt.Errorf("invalid precursor line '%s'", line)
	}
	mz, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return fmt.Errorf("invalid precursor m/z: %w", err)
	}
	spec.PrecursorMZ = mz

	// Charge is written as a float by some exporters ("2.0")
	charge, err := strconv.ParseFloat(fields[2], 64)
	if err != nil {
		return fmt.Errorf("invalid precursor charge: %w", err)
	}
	spec.Charge = int(charge)
	return nil
}
