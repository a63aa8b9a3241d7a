package mzml

import (
	"encoding/xml"
	"errors"
)

// MzML wraps the spectrum list of an mzML file
type MzML struct {
	content  mzMLContent
	index2id []string
	id2Index map[string]int
}

// The mzML content that we read. Only what is needed to look up spectra
// is parsed.
type mzMLContent struct {
	XMLName xml.Name `xml:"mzML"`
	Run     run      `xml:"run"`
}

type run struct {
	ID           string       `xml:"id,attr,omitempty"`
	SpectrumList spectrumList `xml:"spectrumList"`
}

type spectrumList struct {
	Count    int        `xml:"count,attr,omitempty"`
	Spectrum []spectrum `xml:"spectrum"`
}

type spectrum struct {
	Index               int                 `xml:"index,attr"`
	ID                  string              `xml:"id,attr"`
	DefaultArrayLength  int64               `xml:"defaultArrayLength,attr"`
	CvPar               []CVParam           `xml:"cvParam"`
	ScanList            scanList            `xml:"scanList"`
	PrecursorList       []precursorList     `xml:"precursorList"`
	BinaryDataArrayList binaryDataArrayList `xml:"binaryDataArrayList"`
}

type binaryDataArrayList struct {
	Count           int               `xml:"count,attr,omitempty"`
	BinaryDataArray []binaryDataArray `xml:"binaryDataArray"`
}

type binaryDataArray struct {
	EncodedLength int       `xml:"encodedLength,attr,omitempty"`
	ArrayLength   int       `xml:"arrayLength,attr,omitempty"`
	CvPar         []CVParam `xml:"cvParam"`
	Binary        string    `xml:"binary"`
}

type scanList struct {
	Count int    `xml:"count,attr,omitempty"`
	Scan  []scan `xml:"scan"`
}

type scan struct {
	CvPar []CVParam `xml:"cvParam"`
}

type precursorList struct {
	Count     int            `xml:"count,attr,omitempty"`
	Precursor []XMLprecursor `xml:"precursor"`
}

// XMLprecursor contains info for the correspondingly named tag in the mzML file
type XMLprecursor struct {
	SpectrumRef     string          `xml:"spectrumRef,attr,omitempty"`
	SelectedIonList selectedIonList `xml:"selectedIonList"`
}

type selectedIonList struct {
	Count       int           `xml:"count,attr,omitempty"`
	SelectedIon []selectedIon `xml:"selectedIon"`
}

type selectedIon struct {
	CvPar []CVParam `xml:"cvParam"`
}

// CVParam contains values and attributes of a mzML Controlled Vocabulary term
// (http://www.peptideatlas.org/tmp/mzML1.1.0.html)
type CVParam struct {
	Accession     string `xml:"accession,attr,omitempty"`
	Name          string `xml:"name,attr,omitempty"`
	Value         string `xml:"value,attr,omitempty"`
	UnitAccession string `xml:"unitAccession,attr,omitempty"`
}

var (
	// ErrInvalidScanID means an invalid scan id is supplied
	ErrInvalidScanID = errors.New("MzML: invalid scan id")
	// ErrInvalidScanIndex means an invalid scan index is supplied
	ErrInvalidScanIndex = errors.New("MzML: invalid scan index")
	// ErrUnsupportedCompression means the binary data uses MS-Numpress
	ErrUnsupportedCompression = errors.New("MzML: unsupported binary compression")
)
