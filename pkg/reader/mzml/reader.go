// Package mzml reads the spectrum list of mzML files
package mzml

import (
	"encoding/binary"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strconv"

	"golang.org/x/net/html/charset"

	"github.com/ChrisMcGann/pxvalidator/pkg/core"
	"github.com/ChrisMcGann/pxvalidator/pkg/reader"
	"github.com/ChrisMcGann/pxvalidator/pkg/reader/internal/binarray"
)

// Read reads mzML file from an io.Reader
func Read(r io.Reader) (*MzML, error) {
	mzML := &MzML{}

	d := xml.NewDecoder(r)
	d.CharsetReader = charset.NewReaderLabel

	// We are only interested in mzML content, so skip over indexedmzML
	// and everything else
	found := false
	for {
		t, tokenErr := d.Token()
		if tokenErr != nil {
			if tokenErr == io.EOF {
				break
			}
			return nil, tokenErr
		}
		if t, ok := t.(xml.StartElement); ok && t.Name.Local == "mzML" {
			if err := d.DecodeElement(&mzML.content, &t); err != nil {
				return nil, err
			}
			found = true
		}
	}
	if !found {
		return nil, fmt.Errorf("no mzML element found")
	}

	if err := mzML.traverseScan(); err != nil {
		return nil, err
	}
	return mzML, nil
}

// NumSpecs returns the number of spectra
func (f *MzML) NumSpecs() int {
	return len(f.content.Run.SpectrumList.Spectrum)
}

// traverseScan fills index2id and id2Index to make scans accessible
func (f *MzML) traverseScan() error {
	f.index2id = make([]string, f.NumSpecs())
	f.id2Index = make(map[string]int, f.NumSpecs())

	for i, spec := range f.content.Run.SpectrumList.Spectrum {
		if i != spec.Index {
			return fmt.Errorf("%w: spectrum %q has index %d at position %d",
				ErrInvalidScanIndex, spec.ID, spec.Index, i)
		}
		f.index2id[i] = spec.ID
		if _, dup := f.id2Index[spec.ID]; !dup {
			f.id2Index[spec.ID] = i
		}
	}
	return nil
}

// ScanIndex converts a scan identifier (the string used in the mzML file)
// into an index that is used to access the scans
func (f *MzML) ScanIndex(scanID string) (int, error) {
	if index, ok := f.id2Index[scanID]; ok {
		return index, nil
	}
	return 0, ErrInvalidScanID
}

// ScanID converts a scan index (used to access the scan data) into a scan id
// (used in the mzML file)
func (f *MzML) ScanID(scanIndex int) (string, error) {
	if scanIndex >= 0 && scanIndex < f.NumSpecs() {
		return f.index2id[scanIndex], nil
	}
	return "", ErrInvalidScanIndex
}

// MSLevel returns the MS level of a scan, or 0 when the file does not say
func (f *MzML) MSLevel(scanIndex int) (int, error) {
	if scanIndex < 0 || scanIndex >= f.NumSpecs() {
		return 0, ErrInvalidScanIndex
	}

	level := 0
	for _, cvParam := range f.content.Run.SpectrumList.Spectrum[scanIndex].CvPar {
		switch cvParam.Accession {
		case "MS:1000511": // ms level
			msLevel, err := strconv.Atoi(cvParam.Value)
			return msLevel, err
		case "MS:1000579": // MS1 spectrum
			level = 1
		case "MS:1000580": // MSn spectrum
			if level == 0 {
				level = 2
			}
		}
	}
	return level, nil
}

// RetentionTime returns the scan start time in seconds, or -1 if absent
func (f *MzML) RetentionTime(scanIndex int) (float64, error) {
	if scanIndex < 0 || scanIndex >= f.NumSpecs() {
		return 0.0, ErrInvalidScanIndex
	}
	for _, scan := range f.content.Run.SpectrumList.Spectrum[scanIndex].ScanList.Scan {
		for _, cvParam := range scan.CvPar {
			if cvParam.Accession == "MS:1000016" {
				retentionTime, err := strconv.ParseFloat(cvParam.Value, 64)
				// Check if the retention time is in minutes, otherwise assume it's seconds
				if cvParam.UnitAccession == "UO:0000031" ||
					cvParam.UnitAccession == "MS:1000038" {
					retentionTime *= 60
				}
				return retentionTime, err
			}
		}
	}
	return -1.0, nil
}

// GetPrecursors returns the mzML precursor structs for a given scanIndex
func (f *MzML) GetPrecursors(scanIndex int) ([]XMLprecursor, error) {
	if scanIndex >= 0 && scanIndex < f.NumSpecs() {
		var p []XMLprecursor
		if f.content.Run.SpectrumList.Spectrum[scanIndex].PrecursorList != nil {
			p = f.content.Run.SpectrumList.Spectrum[scanIndex].PrecursorList[0].Precursor
		}
		return p, nil
	}
	return nil, ErrInvalidScanIndex
}

// binaryDataPars decodes the CV terms in a mzML binarydata section
//
// MS:1000574 zlib compression
// MS:1000514 m/z array, MS:1000515 intensity array
// MS:1000521 32-bit float, MS:1000523 64-bit float
// MS:1002312..MS:1002314, MS:1002746..MS:1002748 MS-Numpress variants
func binaryDataPars(b *binaryDataArray) (enc binarray.Encoding, mzArray, intensityArray bool, err error) {
	enc = binarray.Encoding{Bits: 32, Order: binary.LittleEndian}
	for _, cvParam := range b.CvPar {
		switch cvParam.Accession {
		case `MS:1000574`:
			enc.Zlib = true
		case `MS:1000514`:
			mzArray = true
		case `MS:1000515`:
			intensityArray = true
		case `MS:1000523`:
			enc.Bits = 64
		case `MS:1002312`, `MS:1002313`, `MS:1002314`,
			`MS:1002746`, `MS:1002747`, `MS:1002748`:
			return enc, false, false, fmt.Errorf("%w: %s", ErrUnsupportedCompression, cvParam.Accession)
		}
	}
	return enc, mzArray, intensityArray, nil
}

// ReadScan reads the peaks of a single scan. scanIndex is the sequence
// number of the scan in the file, not the scan number in its id.
func (f *MzML) ReadScan(scanIndex int) ([]core.Peak, error) {
	if scanIndex < 0 || scanIndex >= f.NumSpecs() {
		return nil, ErrInvalidScanIndex
	}

	var mz, intensity []float64
	for _, b := range f.content.Run.SpectrumList.Spectrum[scanIndex].BinaryDataArrayList.BinaryDataArray {
		enc, isMz, isIntensity, err := binaryDataPars(&b)
		if err != nil {
			return nil, err
		}
		// We are only interested in mz and intensity
		if !isMz && !isIntensity {
			continue
		}
		values, err := binarray.Decode(b.Binary, enc)
		if err != nil {
			return nil, err
		}
		if isMz {
			mz = values
		} else {
			intensity = values
		}
	}
	return binarray.Zip(mz, intensity), nil
}

// File adapts an mzML file to the reader.Reader capability set. Ids are
// the native spectrum ids.
type File struct {
	path string
	mzML *MzML
}

var _ reader.Reader = (*File)(nil)

// Open decodes an mzML file into memory
func Open(path string) (*File, error) {
	x, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open mzML file: %w", err)
	}
	defer x.Close()

	m, err := Read(x)
	if err != nil {
		return nil, fmt.Errorf("failed to read mzML file %s: %w", path, err)
	}
	return &File{path: path, mzML: m}, nil
}

func (f *File) IDs() []string {
	return f.mzML.index2id
}

func (f *File) SpectrumByID(id string) (*core.Spectrum, error) {
	index, err := f.mzML.ScanIndex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", reader.ErrSpectrumNotFound, id)
	}
	return f.SpectrumByIndex(index)
}

func (f *File) SpectrumByIndex(index int) (*core.Spectrum, error) {
	if index < 0 || index >= f.mzML.NumSpecs() {
		return nil, fmt.Errorf("%w: %d", reader.ErrIndexOutOfRange, index)
	}

	msLevel, err := f.mzML.MSLevel(index)
	if err != nil {
		return nil, fmt.Errorf("spectrum %d: invalid ms level: %w", index, err)
	}
	peaks, err := f.mzML.ReadScan(index)
	if err != nil {
		return nil, fmt.Errorf("spectrum %d: %w", index, err)
	}

	spec := &core.Spectrum{
		ID:           f.mzML.index2id[index],
		Index:        index,
		MSLevel:      msLevel,
		Peaks:        peaks,
		SourceFile:   f.path,
		SourceFormat: "mzml",
	}
	if rt, err := f.mzML.RetentionTime(index); err == nil && rt >= 0 {
		spec.RetentionTime = &rt
	}

	precursors, _ := f.mzML.GetPrecursors(index)
	for _, p := range precursors {
		for _, ion := range p.SelectedIonList.SelectedIon {
			for _, cv := range ion.CvPar {
				switch cv.Accession {
				case "MS:1000744": // selected ion m/z
					if mz, err := strconv.ParseFloat(cv.Value, 64); err == nil && spec.PrecursorMZ == 0 {
						spec.PrecursorMZ = mz
					}
				case "MS:1000041": // charge state
					if z, err := strconv.Atoi(cv.Value); err == nil && spec.Charge == 0 {
						spec.Charge = z
					}
				}
			}
		}
	}
	return spec, nil
}

// Close is a no-op; the file is fully decoded by Open
func (f *File) Close() error {
	return nil
}
