// Package pridexml reads the mzData spectrum list embedded in PRIDE XML files
package pridexml

import (
	"encoding/binary"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/net/html/charset"

	"github.com/ChrisMcGann/pxvalidator/pkg/core"
	"github.com/ChrisMcGann/pxvalidator/pkg/reader"
	"github.com/ChrisMcGann/pxvalidator/pkg/reader/internal/binarray"
)

type spectrum struct {
	ID           string `xml:"id,attr"`
	SpectrumDesc struct {
		SpectrumSettings struct {
			SpectrumInstrument struct {
				MsLevel int `xml:"msLevel,attr"`
			} `xml:"spectrumInstrument"`
		} `xml:"spectrumSettings"`
		Precursors []struct {
			IonSelection []cvParam `xml:"ionSelection>cvParam"`
		} `xml:"precursorList>precursor"`
	} `xml:"spectrumDesc"`
	MzArray        binaryData `xml:"mzArrayBinary>data"`
	IntensityArray binaryData `xml:"intenArrayBinary>data"`
}

type binaryData struct {
	Precision int    `xml:"precision,attr"`
	Endian    string `xml:"endian,attr"`
	Length    int    `xml:"length,attr"`
	Value     string `xml:",chardata"`
}

type cvParam struct {
	Accession string `xml:"accession,attr"`
	Name      string `xml:"name,attr"`
	Value     string `xml:"value,attr"`
}

// File holds the spectra of a PRIDE XML file. Ids are the spectrum id
// attributes.
type File struct {
	path    string
	spectra []spectrum
	ids     []string
	byID    map[string]int
}

var _ reader.Reader = (*File)(nil)

// Read decodes PRIDE XML content from an io.Reader. Only the spectrum list
// is kept; identifications and experiment metadata are skipped.
func Read(r io.Reader) (*File, error) {
	f := &File{byID: make(map[string]int)}

	d := xml.NewDecoder(r)
	d.CharsetReader = charset.NewReaderLabel
	root := false
	for {
		t, err := d.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		start, ok := t.(xml.StartElement)
		if !ok {
			continue
		}
		switch start.Name.Local {
		case "ExperimentCollection", "Experiment":
			root = true
		case "spectrum":
			var s spectrum
			if err := d.DecodeElement(&s, &start); err != nil {
				return nil, err
			}
			s.ID = strings.TrimSpace(s.ID)
			if _, dup := f.byID[s.ID]; !dup {
				f.byID[s.ID] = len(f.spectra)
			}
			f.spectra = append(f.spectra, s)
			f.ids = append(f.ids, s.ID)
		}
	}
	if !root {
		return nil, fmt.Errorf("not a PRIDE XML file: no ExperimentCollection element")
	}
	return f, nil
}

// Open decodes a PRIDE XML file into memory
func Open(path string) (*File, error) {
	x, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PRIDE XML file: %w", err)
	}
	defer x.Close()

	f, err := Read(x)
	if err != nil {
		return nil, fmt.Errorf("failed to read PRIDE XML file %s: %w", path, err)
	}
	f.path = path
	return f, nil
}

func (f *File) IDs() []string {
	return f.ids
}

func (f *File) SpectrumByID(id string) (*core.Spectrum, error) {
	index, ok := f.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", reader.ErrSpectrumNotFound, id)
	}
	return f.SpectrumByIndex(index)
}

func (f *File) SpectrumByIndex(index int) (*core.Spectrum, error) {
	if index < 0 || index >= len(f.spectra) {
		return nil, fmt.Errorf("%w: %d", reader.ErrIndexOutOfRange, index)
	}
	s := f.spectra[index]

	spec := &core.Spectrum{
		ID:           s.ID,
		Index:        index,
		MSLevel:      s.SpectrumDesc.SpectrumSettings.SpectrumInstrument.MsLevel,
		SourceFile:   f.path,
		SourceFormat: "pride",
	}

	for _, p := range s.SpectrumDesc.Precursors {
		for _, cv := range p.IonSelection {
			switch {
			case cv.Accession == "PSI:1000040" || cv.Accession == "MS:1000744" || cv.Name == "MassToChargeRatio":
				if mz, err := strconv.ParseFloat(cv.Value, 64); err == nil && spec.PrecursorMZ == 0 {
					spec.PrecursorMZ = mz
				}
			case cv.Accession == "PSI:1000041" || cv.Accession == "MS:1000041" || cv.Name == "ChargeState":
				if z, err := strconv.Atoi(cv.Value); err == nil && spec.Charge == 0 {
					spec.Charge = z
				}
			}
		}
	}

	mz, err := decode(s.MzArray)
	if err != nil {
		return nil, fmt.Errorf("spectrum %s: m/z array: %w", s.ID, err)
	}
	intensity, err := decode(s.IntensityArray)
	if err != nil {
		return nil, fmt.Errorf("spectrum %s: intensity array: %w", s.ID, err)
	}
	spec.Peaks = binarray.Zip(mz, intensity)
	return spec, nil
}

// Close is a no-op; the file is fully decoded by Open
func (f *File) Close() error {
	return nil
}

func decode(b binaryData) ([]float64, error) {
	enc := binarray.Encoding{Bits: b.Precision, Order: binary.LittleEndian}
	if strings.EqualFold(b.Endian, "big") {
		enc.Order = binary.BigEndian
	}
	return binarray.Decode(b.Value, enc)
}
