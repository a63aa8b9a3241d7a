// Package mzidentml decodes the spectrum identifications of mzIdentML files
package mzidentml

import (
	"encoding/xml"
	"fmt"
	"io"
	"math"
	"strconv"

	"golang.org/x/net/html/charset"
)

// Read reads mzIdentML content from io.Reader
func Read(r io.Reader) (*MzIdentML, error) {
	m := &MzIdentML{}
	d := xml.NewDecoder(r)
	d.CharsetReader = charset.NewReaderLabel
	if err := d.Decode(&m.content); err != nil {
		return nil, err
	}
	m.buildPepIdx()
	m.buildIdentList()
	return m, nil
}

func (m *MzIdentML) buildPepIdx() {
	m.pepIdx = make(map[string]int, len(m.content.Peptide))
	for i, p := range m.content.Peptide {
		m.pepIdx[p.ID] = i
	}
}

func (m *MzIdentML) buildIdentList() {
	for i := range m.content.SpectrumIdentificationResult {
		for j := range m.content.SpectrumIdentificationResult[i].SpectrumIdentificationItem {
			m.identList = append(m.identList, identRef{resultIdx: i, itemIdx: j})
		}
	}
}

// SpectraData returns the peak-list inputs in file order
func (m *MzIdentML) SpectraData() []SpectraData {
	out := make([]SpectraData, len(m.content.SpectraData))
	for i, sd := range m.content.SpectraData {
		out[i] = SpectraData{ID: sd.ID, Location: sd.Location}
		if len(sd.FileFormat) > 0 {
			out[i].FileFormat = sd.FileFormat[0]
		}
		if len(sd.SpectrumIDFormat) > 0 {
			out[i].SpectrumIDFormat = sd.SpectrumIDFormat[0]
		}
	}
	return out
}

// NumResults returns the number of identified spectra
func (m *MzIdentML) NumResults() int {
	return len(m.content.SpectrumIdentificationResult)
}

// Results returns every SpectrumIdentificationResult with its items. Items
// referencing an unknown peptide are an error.
func (m *MzIdentML) Results() ([]Result, error) {
	out := make([]Result, len(m.content.SpectrumIdentificationResult))
	for i, r := range m.content.SpectrumIdentificationResult {
		out[i] = Result{ID: r.ID, SpectrumID: r.SpectrumID, SpectraDataRef: r.SpectraDataRef}
		for j := range r.SpectrumIdentificationItem {
			item, err := m.item(i, j)
			if err != nil {
				return nil, err
			}
			out[i].Items = append(out[i].Items, item)
		}
	}
	return out, nil
}

// Peptides returns the distinct peptide sequences of the sequence collection
func (m *MzIdentML) Peptides() []string {
	seen := make(map[string]struct{}, len(m.content.Peptide))
	var seqs []string
	for _, p := range m.content.Peptide {
		if _, ok := seen[p.PeptideSequence]; ok {
			continue
		}
		seen[p.PeptideSequence] = struct{}{}
		seqs = append(seqs, p.PeptideSequence)
	}
	return seqs
}

func (m *MzIdentML) item(resultIdx, itemIdx int) (Item, error) {
	sii := m.content.SpectrumIdentificationResult[resultIdx].SpectrumIdentificationItem[itemIdx]
	pepIdx, ok := m.pepIdx[sii.PeptideRef]
	if !ok {
		return Item{}, fmt.Errorf("%w: %q in %s", ErrUnknownPeptide, sii.PeptideRef, sii.ID)
	}
	pep := m.content.Peptide[pepIdx]

	item := Item{
		ID:                       sii.ID,
		PepSeq:                   pep.PeptideSequence,
		PepID:                    pep.ID,
		Charge:                   sii.ChargeState,
		ExperimentalMassToCharge: sii.ExperimentalMassToCharge,
		CalculatedMassToCharge:   sii.CalculatedMassToCharge,
		Rank:                     sii.Rank,
		PassThreshold:            sii.PassThreshold,
		Cv:                       sii.CvPar,
	}
	for _, mod := range pep.Modification {
		name := ""
		if len(mod.CvPar) > 0 {
			name = mod.CvPar[0].Name
		}
		item.Modifications = append(item.Modifications, Modification{
			Location:  mod.Location,
			MassDelta: mod.MonoisotopicMassDelta,
			Name:      name,
		})
	}
	return item, nil
}

// NumIdents returns the total number of identifications in the mzIdentML file
// Note that for some spectra, multiple identifications may be present
// The identifications can be accessed using the Ident() method, which takes
// an index as argument. The index runs from 0 to NumIdents()-1
func (m *MzIdentML) NumIdents() int {
	return len(m.identList)
}

// Ident returns a spectrum identification from the mzIdentML file.
// Parameter i is the index of the identification to return. The index runs
// from 0 to NumIdents()-1
func (m *MzIdentML) Ident(i int) (Identification, error) {
	var ident Identification

	if i < 0 || i >= len(m.identList) {
		return ident, ErrInvalidIdentIndex
	}
	ref := m.identList[i]
	result := m.content.SpectrumIdentificationResult[ref.resultIdx]

	item, err := m.item(ref.resultIdx, ref.itemIdx)
	if err != nil {
		return ident, err
	}
	ident.Item = item
	ident.SpecID = result.SpectrumID
	ident.SpectraDataRef = result.SpectraDataRef
	for _, mod := range item.Modifications {
		ident.ModMass += mod.MassDelta
	}

	ident.RetentionTime = float64(-1)
	prio := math.MaxInt32
	for _, cv := range result.CvPar {
		// There are multiple CV terms that can be used to report the
		// retention time. In order of decreasing preference we use:
		// 1. MS:1000016 - scan start time
		// 2. MS:1000894 - retention time
		// 3. MS:1000826 - elution time
		// 4. MS:1001114 - retention time (deprecated)
		p, ok := retentionTimePrio[cv.Accession]
		if !ok || p >= prio {
			continue
		}
		prio = p
		retentionTime, err := strconv.ParseFloat(cv.Value, 64)
		if err != nil {
			return ident, err
		}
		// Check if the retention time is in minutes, otherwise assume it's seconds
		if cv.UnitAccession == "UO:0000031" || cv.UnitAccession == "MS:1000038" {
			retentionTime *= 60
		}
		ident.RetentionTime = retentionTime
	}
	return ident, nil
}

var retentionTimePrio = map[string]int{
	"MS:1000016": 1,
	"MS:1000894": 2,
	"MS:1000826": 3,
	"MS:1001114": 4,
}
