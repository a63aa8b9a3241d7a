package validator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChrisMcGann/pxvalidator/pkg/mzidentml"
	"github.com/ChrisMcGann/pxvalidator/pkg/report"
)

const mzidTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<MzIdentML id="test" version="1.1.0" xmlns="http://psidev.info/psi/pi/mzIdentML/1.1">
  <SequenceCollection>
    <Peptide id="PEP_1"><PeptideSequence>PEPTIDEK</PeptideSequence></Peptide>
    <Peptide id="PEP_2"><PeptideSequence>MAGIC</PeptideSequence></Peptide>
  </SequenceCollection>
  <DataCollection>
    <Inputs>
      <SpectraData location="file:///instrument/data/run1.mgf" id="SD_1">
        <FileFormat><cvParam cvRef="PSI-MS" accession="MS:1001062" name="Mascot MGF format"/></FileFormat>
      </SpectraData>
      <SpectraData location="C:\data\run2.mgf" id="SD_2"/>
    </Inputs>
    <AnalysisData>
      <SpectrumIdentificationList id="SIL_1">%s
      </SpectrumIdentificationList>
    </AnalysisData>
  </DataCollection>
</MzIdentML>
`

func result(id, spectrumID, ref, pepRef string, calcMZ float64) string {
	return fmt.Sprintf(`
        <SpectrumIdentificationResult id="%s" spectrumID="%s" spectraData_ref="%s">
          <SpectrumIdentificationItem id="%s_1" rank="1" chargeState="2" peptide_ref="%s" experimentalMassToCharge="464.73" calculatedMassToCharge="%.4f" passThreshold="true"/>
        </SpectrumIdentificationResult>`, id, spectrumID, ref, id, pepRef, calcMZ)
}

func writePeakFile(t *testing.T, dir string, n int) string {
	t.Helper()
	var b strings.Builder
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "BEGIN IONS\nTITLE=spectrum %d\nPEPMASS=464.73\nCHARGE=2+\n100.0 10.0\n200.0 20.0\nEND IONS\n", i+1)
	}
	path := filepath.Join(dir, "run1.mgf")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
	return path
}

func writeMzID(t *testing.T, dir string, results ...string) string {
	t.Helper()
	path := filepath.Join(dir, "result.mzid")
	content := fmt.Sprintf(mzidTemplate, strings.Join(results, ""))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func hasMessage(r *report.Report, t report.Type, substr string) bool {
	for _, m := range messages(r, t) {
		if strings.Contains(m, substr) {
			return true
		}
	}
	return false
}

func messages(r *report.Report, t report.Type) []string {
	var out []string
	for _, m := range r.Messages {
		if m.Type == t {
			out = append(out, m.Message)
		}
	}
	return out
}

func TestMzIdentMLValidator(t *testing.T) {
	dir := t.TempDir()
	peak := writePeakFile(t, dir, 3)
	mzid := writeMzID(t, dir,
		result("SIR_1", "index=0", "SD_1", "PEP_1", 464.7347),
		result("SIR_2", "index=1", "SD_1", "PEP_1", 500.0),
		result("SIR_3", "index=7", "SD_1", "PEP_2", 0),
		result("SIR_4", "3", "SD_1", "PEP_2", 0),
		result("SIR_5", "index=0", "SD_2", "PEP_2", 0),
	)

	v, err := NewMzIdentMLValidator(mzid, []string{peak}, 0)
	require.NoError(t, err)
	r, err := v.Validate(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 5, r.NumSpectra)
	assert.Equal(t, 3, r.NumFound)
	assert.Equal(t, 2, r.NumMissing)
	assert.Equal(t, 2, r.NumPeptides)
	assert.Equal(t, 5, r.NumPSMs)

	errs := messages(r, report.Error)
	require.Len(t, errs, 2)
	assert.Contains(t, errs[0], "SpectraData SD_2")
	assert.Contains(t, errs[1], "spectrum index=7 of run1.mgf")

	infos := messages(r, report.Info)
	require.Len(t, infos, 1)
	assert.Contains(t, infos[0], "SIR_2_1")
	assert.Empty(t, messages(r, report.Warning))

	require.Len(t, r.Checks, 5)
	assert.Equal(t, "index", r.Checks[0].Strategy)
	assert.Equal(t, "1", r.Checks[0].ResolvedID)
	assert.Equal(t, "index out of range", r.Checks[2].Problem)
	assert.Equal(t, "exact", r.Checks[3].Strategy)
	assert.True(t, r.Checks[3].Found)
	assert.False(t, r.Checks[4].Found)
}

func TestMzIdentMLValidatorInvalidPeaks(t *testing.T) {
	dir := t.TempDir()
	peak := filepath.Join(dir, "run1.mgf")
	require.NoError(t, os.WriteFile(peak, []byte("BEGIN IONS\nTITLE=x\nPEPMASS=400\nEND IONS\n"), 0o644))
	mzid := writeMzID(t, dir, result("SIR_1", "1", "SD_1", "PEP_2", 0))

	v, err := NewMzIdentMLValidator(mzid, []string{peak}, 0)
	require.NoError(t, err)
	r, err := v.Validate(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, r.NumFound)
	warnings := messages(r, report.Warning)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "at least one peak is required")
}

func TestMzIdentMLValidatorBrokenFiles(t *testing.T) {
	dir := t.TempDir()
	peak := filepath.Join(dir, "run1.mgf")
	require.NoError(t, os.WriteFile(peak, []byte("BEGIN IONS\n"), 0o644))
	mzid := writeMzID(t, dir, result("SIR_1", "1", "SD_1", "PEP_2", 0))

	v, err := NewMzIdentMLValidator(mzid, []string{peak}, 0)
	require.NoError(t, err)
	r, err := v.Validate(context.Background())
	require.NoError(t, err)
	assert.True(t, r.HasErrors())
	assert.True(t, hasMessage(r, report.Error, "cannot open peak-list file"),
		"errors: %v", messages(r, report.Error))

	bad := filepath.Join(dir, "bad.mzid")
	require.NoError(t, os.WriteFile(bad, []byte("<mzML/>"), 0o644))
	v, err = NewMzIdentMLValidator(bad, []string{writePeakFile(t, dir, 1)}, 0)
	require.NoError(t, err)
	r, err = v.Validate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, r.Count(report.Error))
}

func TestMzIdentMLValidatorCancelled(t *testing.T) {
	dir := t.TempDir()
	peak := writePeakFile(t, dir, 1)
	mzid := writeMzID(t, dir, result("SIR_1", "1", "SD_1", "PEP_2", 0))

	v, err := NewMzIdentMLValidator(mzid, []string{peak}, 0)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = v.Validate(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewMzIdentMLValidatorArguments(t *testing.T) {
	dir := t.TempDir()
	peak := writePeakFile(t, dir, 1)
	mzid := writeMzID(t, dir)

	_, err := NewMzIdentMLValidator(filepath.Join(dir, "missing.mzid"), []string{peak}, 0)
	assert.Equal(t, errbuilder.CodeNotFound, errbuilder.CodeOf(err))

	_, err = NewMzIdentMLValidator(mzid, nil, 0)
	assert.Equal(t, errbuilder.CodeInvalidArgument, errbuilder.CodeOf(err))

	_, err = NewMzIdentMLValidator(mzid, []string{filepath.Join(dir, "missing.mgf")}, 0)
	assert.Equal(t, errbuilder.CodeNotFound, errbuilder.CodeOf(err))

	_, err = NewMzIdentMLValidator("", []string{peak}, 0)
	assert.Equal(t, errbuilder.CodeInvalidArgument, errbuilder.CodeOf(err))

	_, err = NewMzIdentMLValidator(mzid, []string{dir}, 0)
	assert.Equal(t, errbuilder.CodeInvalidArgument, errbuilder.CodeOf(err))

	v, err := NewMzIdentMLValidator(mzid, []string{peak}, 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultMzTolerance, v.mzTolerance)
}

func TestSpectraDataFile(t *testing.T) {
	assert.Equal(t, "run1.mgf", spectraDataFile("file:///data/run1.mgf"))
	assert.Equal(t, "run1.mgf", spectraDataFile("file:run1.mgf"))
	assert.Equal(t, "run2.mzML", spectraDataFile(`C:\data\run2.mzML`))
	assert.Equal(t, "run3.pkl", spectraDataFile("run3.pkl"))
}

func TestCheckMassToCharge(t *testing.T) {
	oxidised := []mzidentml.Modification{{Location: 1, MassDelta: 15.994915, Name: "Oxidation"}}
	tests := []struct {
		name  string
		items []mzidentml.Item
		infos int
	}{
		{
			name:  "matching rank 1",
			items: []mzidentml.Item{{ID: "SII_1", PepSeq: "PEPTIDEK", Charge: 2, CalculatedMassToCharge: 464.7347, Rank: 1}},
		},
		{
			name: "modified rank 1 within tolerance",
			items: []mzidentml.Item{{
				ID: "SII_1", PepSeq: "MPEPTIDEK", Charge: 2, CalculatedMassToCharge: 538.2524,
				Rank: 1, Modifications: oxidised,
			}},
		},
		{
			name:  "missing modification shifts m/z",
			items: []mzidentml.Item{{ID: "SII_1", PepSeq: "MPEPTIDEK", Charge: 2, CalculatedMassToCharge: 538.2524, Rank: 1}},
			infos: 1,
		},
		{
			name: "only rank 1 is checked",
			items: []mzidentml.Item{
				{ID: "SII_2", PepSeq: "PEPTIDEK", Charge: 2, CalculatedMassToCharge: 999, Rank: 2},
				{ID: "SII_1", PepSeq: "PEPTIDEK", Charge: 2, CalculatedMassToCharge: 464.7347, Rank: 1},
			},
		},
		{
			name:  "no charge is skipped",
			items: []mzidentml.Item{{ID: "SII_1", PepSeq: "PEPTIDEK", CalculatedMassToCharge: 1, Rank: 1}},
		},
	}
	v := &MzIdentMLValidator{mzTolerance: 0.01}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := report.New()
			v.checkMassToCharge(mzidentml.Result{ID: "SIR_1", Items: tt.items}, r)
			assert.Equal(t, tt.infos, r.Count(report.Info), "%v", r.Messages)
			if tt.infos > 0 {
				assert.Contains(t, messages(r, report.Info)[0], "SII_1: calculated m/z 538.2524")
			}
		})
	}
}
