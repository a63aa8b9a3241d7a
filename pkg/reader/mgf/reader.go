// Package mgf provides random access to Mascot Generic Format peak lists
package mgf

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/ChrisMcGann/pxvalidator/pkg/core"
	"github.com/ChrisMcGann/pxvalidator/pkg/reader"
	"github.com/ChrisMcGann/pxvalidator/pkg/reader/internal/textfile"
)

const (
	beginIons = "BEGIN IONS"
	endIons   = "END IONS"

	// MGF carries no MS level; every entry is a fragmentation spectrum
	defaultMSLevel = 2
)

// File provides indexed access to an MGF file. Spectrum ids are the 1-based
// ordinal of each BEGIN IONS block.
type File struct {
	f       *os.File
	path    string
	records []textfile.Record
	ids     []string
}

var _ reader.Reader = (*File)(nil)

// Open indexes the spectra of an MGF file. The file stays open until Close.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open MGF file: %w", err)
	}

	m := &File{f: f, path: path}
	if err := m.index(); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to index MGF file %s: %w", path, err)
	}
	return m, nil
}

// index records the byte range of every BEGIN IONS ... END IONS block
func (m *File) index() error {
	start := int64(-1)
	err := textfile.Walk(m.f, func(line string, offset int64, _ int) error {
		switch strings.ToUpper(strings.TrimSpace(line)) {
		case beginIons:
			if start >= 0 {
				return fmt.Errorf("%s inside an open spectrum", beginIons)
			}
			start = offset
		case endIons:
			if start < 0 {
				return fmt.Errorf("%s without %s", endIons, beginIons)
			}
			m.records = append(m.records, textfile.Record{
				Offset: start,
				Length: offset + int64(len(line)) - start,
			})
			start = -1
		}
		return nil
	})
	if err != nil {
		return err
	}
	if start >= 0 {
		return fmt.Errorf("unterminated spectrum at offset %d", start)
	}

	m.ids = make([]string, len(m.records))
	for i := range m.records {
		m.ids[i] = strconv.Itoa(i + 1)
	}
	return nil
}

// IDs returns "1".."n"
func (m *File) IDs() []string {
	return m.ids
}

// SpectrumByID returns the spectrum with the given 1-based ordinal
func (m *File) SpectrumByID(id string) (*core.Spectrum, error) {
	n, err := strconv.Atoi(strings.TrimSpace(id))
	if err != nil {
		return nil, fmt.Errorf("%w: %q", reader.ErrInvalidIdentifier, id)
	}
	if n < 1 || n > len(m.records) {
		return nil, fmt.Errorf("%w: %s", reader.ErrSpectrumNotFound, id)
	}
	return m.SpectrumByIndex(n - 1)
}

// SpectrumByIndex returns the spectrum at the 0-based position index
func (m *File) SpectrumByIndex(index int) (*core.Spectrum, error) {
	if index < 0 || index >= len(m.records) {
		return nil, fmt.Errorf("%w: %d", reader.ErrIndexOutOfRange, index)
	}

	spec, err := m.readSpectrum(m.records[index])
	if err != nil {
		return nil, fmt.Errorf("spectrum %d: %w", index+1, err)
	}
	spec.ID = m.ids[index]
	spec.Index = index
	return spec, nil
}

// Close releases the underlying file
func (m *File) Close() error {
	return m.f.Close()
}

// readSpectrum parses a single BEGIN IONS block
func (m *File) readSpectrum(rec textfile.Record) (*core.Spectrum, error) {
	spec := &core.Spectrum{
		MSLevel:      defaultMSLevel,
		SourceFile:   m.path,
		SourceFormat: "mgf",
		Peaks:        []core.Peak{},
	}

	scanner := textfile.Scanner(m.f, rec)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines, comments and block delimiters
		if line == "" || strings.ContainsRune("#;!/", rune(line[0])) {
			continue
		}
		upper := strings.ToUpper(line)
		if upper == beginIons || upper == endIons {
			continue
		}

		if textfile.IsPeakLine(line) {
			peak, err := textfile.ParsePeak(line)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNum, err)
			}
			spec.Peaks = append(spec.Peaks, peak)
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return nil, fmt.Errorf("line %d: unexpected content '%s'", lineNum, line)
		}
		if err := parseHeader(spec, strings.ToUpper(key), value); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNum, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return spec, nil
}

// parseHeader applies a KEY=value line. Unknown keys are ignored.
func parseHeader(spec *core.Spectrum, key, value string) error {
	switch key {
	case "TITLE":
		spec.Title = value

	case "PEPMASS":
		// Format: "mz [intensity]"
		fields := strings.Fields(value)
		if len(fields) == 0 {
			return fmt.Errorf("empty PEPMASS")
		}
		mz, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return fmt.Errorf("invalid PEPMASS '%s': %w", value, err)
		}
		spec.PrecursorMZ = mz

	case "CHARGE":
		charge, err := textfile.ParseCharge(value)
		if err != nil {
			return err
		}
		spec.Charge = charge

	case "RTINSECONDS":
		// Ranges ("12.1-13.4") keep the first value
		first, _, _ := strings.Cut(value, "-")
		rt, err := strconv.ParseFloat(strings.TrimSpace(first), 64)
		if err == nil {
			spec.RetentionTime = &rt
		}
	}
	return nil
}
