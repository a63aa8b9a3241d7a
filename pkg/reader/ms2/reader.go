// Package ms2 provides random access to MS2 (McDonald et al.) peak lists
package ms2

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/ChrisMcGann/pxvalidator/pkg/core"
	"github.com/ChrisMcGann/pxvalidator/pkg/reader"
	"github.com/ChrisMcGann/pxvalidator/pkg/reader/internal/textfile"
)

// File provides indexed access to an MS2 file. Spectrum ids are the first
// scan number of each S line.
type File struct {
	f       *os.File
	path    string
	records []textfile.Record
	ids     []string
	byScan  map[int]int // scan number -> index
}

var _ reader.Reader = (*File)(nil)

// Open indexes the spectra of an MS2 file. The file stays open until Close.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open MS2 file: %w", err)
	}

	m := &File{f: f, path: path, byScan: make(map[int]int)}
	if err := m.index(); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to index MS2 file %s: %w", path, err)
	}
	return m, nil
}

// index splits the file at every S line; H lines before the first S line
// are file headers and are not part of any record
func (m *File) index() error {
	start := int64(-1)
	var end int64
	closeRecord := func() {
		if start >= 0 {
			m.records = append(m.records, textfile.Record{Offset: start, Length: end - start})
		}
	}

	err := textfile.Walk(m.f, func(line string, offset int64, _ int) error {
		if strings.HasPrefix(line, "S") {
			closeRecord()
			fields := strings.Fields(line)
			if len(fields) < 2 {
				return fmt.Errorf("S line without scan number")
			}
			scan, err := strconv.Atoi(fields[1])
			if err != nil {
				return fmt.Errorf("invalid scan number '%s': %w", fields[1], err)
			}
			if _, dup := m.byScan[scan]; !dup {
				m.byScan[scan] = len(m.records)
			}
			m.ids = append(m.ids, strconv.Itoa(scan))
			start = offset
		}
		end = offset + int64(len(line))
		return nil
	})
	if err != nil {
		return err
	}
	closeRecord()
	return nil
}

func (m *File) IDs() []string {
	return m.ids
}

// SpectrumByID returns the spectrum whose first scan number equals id
func (m *File) SpectrumByID(id string) (*core.Spectrum, error) {
	scan, err := strconv.Atoi(strings.TrimSpace(id))
	if err != nil {
		return nil, fmt.Errorf("%w: %q", reader.ErrInvalidIdentifier, id)
	}
	index, ok := m.byScan[scan]
	if !ok {
		return nil, fmt.Errorf("%w: %s", reader.ErrSpectrumNotFound, id)
	}
	return m.SpectrumByIndex(index)
}

func (m *File) SpectrumByIndex(index int) (*core.Spectrum, error) {
	if index < 0 || index >= len(m.records) {
		return nil, fmt.Errorf("%w: %d", reader.ErrIndexOutOfRange, index)
	}

	spec, err := m.readSpectrum(m.records[index])
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", m.ids[index], err)
	}
	spec.ID = m.ids[index]
	spec.Index = index
	return spec, nil
}

func (m *File) Close() error {
	return m.f.Close()
}

// readSpectrum parses one S record. Line types: S scan, I info, Z charge,
// D charge dependent analysis; anything numeric is a peak.
func (m *File) readSpectrum(rec textfile.Record) (*core.Spectrum, error) {
	spec := &core.Spectrum{
		MSLevel:      2,
		SourceFile:   m.path,
		SourceFormat: "ms2",
		Peaks:        []core.Peak{},
	}

	scanner := textfile.Scanner(m.f, rec)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)

		switch fields[0] {
		case "S":
			if len(fields) >= 4 {
				if mz, err := strconv.ParseFloat(fields[3], 64); err == nil {
					spec.PrecursorMZ = mz
				}
			}
		case "Z":
			// Only the first charge state is kept
			if spec.Charge == 0 && len(fields) >= 2 {
				charge, err := textfile.ParseCharge(fields[1])
				if err != nil {
					return nil, err
				}
				spec.Charge = charge
			}
		case "I":
			if len(fields) >= 3 && fields[1] == "RetTime" {
				// MS2 stores minutes
				if rt, err := strconv.ParseFloat(fields[2], 64); err == nil {
					rt *= 60
					spec.RetentionTime = &rt
				}
			}
		case "D":
		default:
			peak, err := textfile.ParsePeak(line)
			if err != nil {
				return nil, err
			}
			spec.Peaks = append(spec.Peaks, peak)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return spec, nil
}
