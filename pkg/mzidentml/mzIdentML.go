package mzidentml

import (
	"encoding/xml"
	"errors"
)

// MzIdentML holds the parts of an mzIdentML file needed to check its
// spectrum references
type MzIdentML struct {
	pepIdx    map[string]int
	identList []identRef
	content   mzIdentMLContent
}

type identRef struct {
	resultIdx int // index into SpectrumIdentificationResult
	itemIdx   int // index into SpectrumIdentificationItem
}

// SpectraData is an input peak-list file declared by the mzIdentML file
type SpectraData struct {
	ID               string
	Location         string
	FileFormat       CVParam
	SpectrumIDFormat CVParam
}

// Modification of a peptide. Location 0 is the N-terminus.
type Modification struct {
	Location  int
	MassDelta float64
	Name      string
}

// Item is one peptide-spectrum match of a result
type Item struct {
	ID                       string
	PepSeq                   string
	PepID                    string
	Modifications            []Modification
	Charge                   int
	ExperimentalMassToCharge float64
	CalculatedMassToCharge   float64
	Rank                     int
	PassThreshold            bool
	Cv                       []CVParam
}

// Result groups the identifications of one spectrum
type Result struct {
	ID             string
	SpectrumID     string
	SpectraDataRef string
	Items          []Item
}

// Identification is a flattened view of one item together with the
// spectrum it was made on
type Identification struct {
	Item
	SpecID         string
	SpectraDataRef string
	ModMass        float64
	RetentionTime  float64
}

type mzIdentMLContent struct {
	XMLName                      xml.Name                       `xml:"MzIdentML"`
	Peptide                      []peptide                      `xml:"SequenceCollection>Peptide"`
	SpectraData                  []spectraData                  `xml:"DataCollection>Inputs>SpectraData"`
	SpectrumIdentificationResult []spectrumIdentificationResult `xml:"DataCollection>AnalysisData>SpectrumIdentificationList>SpectrumIdentificationResult"`
}

type spectraData struct {
	ID               string    `xml:"id,attr"`
	Location         string    `xml:"location,attr"`
	FileFormat       []CVParam `xml:"FileFormat>cvParam"`
	SpectrumIDFormat []CVParam `xml:"SpectrumIDFormat>cvParam"`
}

type peptide struct {
	ID              string `xml:"id,attr"`
	PeptideSequence string
	Modification    []modification
}

type modification struct {
	Location int `xml:"location,attr"`

	// monoisotopicMassDelta is optional in the schema, but no other
	// attribute or cvParam carries the mass shift
	MonoisotopicMassDelta float64   `xml:"monoisotopicMassDelta,attr"`
	CvPar                 []CVParam `xml:"cvParam"`
}

type spectrumIdentificationResult struct {
	ID                         string `xml:"id,attr"`
	SpectrumID                 string `xml:"spectrumID,attr"`
	SpectraDataRef             string `xml:"spectraData_ref,attr"`
	SpectrumIdentificationItem []spectrumIdentificationItem
	CvPar                      []CVParam `xml:"cvParam"`
}

type spectrumIdentificationItem struct {
	ID                       string    `xml:"id,attr"`
	ChargeState              int       `xml:"chargeState,attr"`
	ExperimentalMassToCharge float64   `xml:"experimentalMassToCharge,attr"`
	CalculatedMassToCharge   float64   `xml:"calculatedMassToCharge,attr"`
	Rank                     int       `xml:"rank,attr"`
	PassThreshold            bool      `xml:"passThreshold,attr"`
	PeptideRef               string    `xml:"peptide_ref,attr"`
	CvPar                    []CVParam `xml:"cvParam"`
}

// CVParam is a controlled vocabulary term
type CVParam struct {
	Accession     string `xml:"accession,attr"`
	Name          string `xml:"name,attr"`
	Value         string `xml:"value,attr"`
	UnitAccession string `xml:"unitAccession,attr"`
}

var (
	ErrInvalidIdentIndex = errors.New("mzIdentML: invalid identification index")
	ErrUnknownPeptide    = errors.New("mzIdentML: unknown peptide reference")
)
