// Package mzxml reads the scans of ISB mzXML files
package mzxml

import (
	"encoding/binary"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/html/charset"

	"github.com/ChrisMcGann/pxvalidator/pkg/core"
	"github.com/ChrisMcGann/pxvalidator/pkg/reader"
	"github.com/ChrisMcGann/pxvalidator/pkg/reader/internal/binarray"
)

type mzXMLContent struct {
	XMLName xml.Name `xml:"mzXML"`
	MsRun   struct {
		Scan []scan `xml:"scan"`
	} `xml:"msRun"`
}

// Older mzXML versions nest MS2 scans inside their MS1 survey scan
type scan struct {
	Num           string        `xml:"num,attr"`
	MsLevel       int           `xml:"msLevel,attr"`
	PeaksCount    int           `xml:"peaksCount,attr"`
	RetentionTime string        `xml:"retentionTime,attr"`
	PrecursorMz   []precursorMz `xml:"precursorMz"`
	Peaks         []peaks       `xml:"peaks"`
	Scan          []scan        `xml:"scan"`
}

type precursorMz struct {
	PrecursorCharge int    `xml:"precursorCharge,attr"`
	Value           string `xml:",chardata"`
}

type peaks struct {
	Precision       int    `xml:"precision,attr"`
	ByteOrder       string `xml:"byteOrder,attr"`
	CompressionType string `xml:"compressionType,attr"`
	PairOrder       string `xml:"pairOrder,attr"`
	ContentType     string `xml:"contentType,attr"`
	Value           string `xml:",chardata"`
}

// File holds the flattened scan list of an mzXML file. Ids are the scan
// num attributes.
type File struct {
	path  string
	scans []scan
	ids   []string
	byNum map[int]int
}

var _ reader.Reader = (*File)(nil)

// Read decodes mzXML content from an io.Reader
func Read(r io.Reader) (*File, error) {
	var content mzXMLContent
	d := xml.NewDecoder(r)
	d.CharsetReader = charset.NewReaderLabel
	if err := d.Decode(&content); err != nil {
		return nil, err
	}

	f := &File{byNum: make(map[int]int)}
	var flatten func(scans []scan) error
	flatten = func(scans []scan) error {
		for _, s := range scans {
			num, err := strconv.Atoi(strings.TrimSpace(s.Num))
			if err != nil {
				return fmt.Errorf("invalid scan num %q: %w", s.Num, err)
			}
			if _, dup := f.byNum[num]; !dup {
				f.byNum[num] = len(f.scans)
			}
			children := s.Scan
			s.Scan = nil
			f.scans = append(f.scans, s)
			f.ids = append(f.ids, strconv.Itoa(num))
			if err := flatten(children); err != nil {
				return err
			}
		}
		return nil
	}
	if err := flatten(content.MsRun.Scan); err != nil {
		return nil, err
	}
	return f, nil
}

// Open decodes an mzXML file into memory
func Open(path string) (*File, error) {
	x, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open mzXML file: %w", err)
	}
	defer x.Close()

	f, err := Read(x)
	if err != nil {
		return nil, fmt.Errorf("failed to read mzXML file %s: %w", path, err)
	}
	f.path = path
	return f, nil
}

func (f *File) IDs() []string {
	return f.ids
}

// SpectrumByID requires id to be an integer scan number
func (f *File) SpectrumByID(id string) (*core.Spectrum, error) {
	num, err := strconv.Atoi(strings.TrimSpace(id))
	if err != nil {
		return nil, fmt.Errorf("%w: %q", reader.ErrInvalidIdentifier, id)
	}
	index, ok := f.byNum[num]
	if !ok {
		return nil, fmt.Errorf("%w: %s", reader.ErrSpectrumNotFound, id)
	}
	return f.SpectrumByIndex(index)
}

func (f *File) SpectrumByIndex(index int) (*core.Spectrum, error) {
	if index < 0 || index >= len(f.scans) {
		return nil, fmt.Errorf("%w: %d", reader.ErrIndexOutOfRange, index)
	}
	s := f.scans[index]

	spec := &core.Spectrum{
		ID:           f.ids[index],
		Index:        index,
		MSLevel:      s.MsLevel,
		SourceFile:   f.path,
		SourceFormat: "mzxml",
		Peaks:        []core.Peak{},
	}
	if len(s.PrecursorMz) > 0 {
		p := s.PrecursorMz[0]
		if mz, err := strconv.ParseFloat(strings.TrimSpace(p.Value), 64); err == nil {
			spec.PrecursorMZ = mz
		}
		spec.Charge = p.PrecursorCharge
	}
	if rt, ok := parseDuration(s.RetentionTime); ok {
		spec.RetentionTime = &rt
	}

	if len(s.Peaks) > 0 {
		p := s.Peaks[0]
		enc := binarray.Encoding{
			Zlib:  p.CompressionType == "zlib",
			Bits:  p.Precision,
			Order: binary.BigEndian,
		}
		if strings.EqualFold(p.ByteOrder, "little") {
			enc.Order = binary.LittleEndian
		}
		values, err := binarray.Decode(p.Value, enc)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", spec.ID, err)
		}
		spec.Peaks = binarray.Interleaved(values)
	}
	return spec, nil
}

// Close is a no-op; the file is fully decoded by Open
func (f *File) Close() error {
	return nil
}

// parseDuration converts an xs:duration such as "PT12.5S" or "PT1M2S" to
// seconds
func parseDuration(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "PT") {
		return 0, false
	}
	d, err := time.ParseDuration(strings.ToLower(strings.TrimPrefix(s, "PT")))
	if err != nil {
		return 0, false
	}
	return d.Seconds(), true
}
