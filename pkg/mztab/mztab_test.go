package mztab

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tsv(lines ...string) string {
	for i, l := range lines {
		lines[i] = strings.ReplaceAll(l, "|", "\t")
	}
	return strings.Join(lines, "\n") + "\n"
}

var sampleMzTab = tsv(
	"COM|exported for testing",
	"MTD|mzTab-version|1.0.0",
	"MTD|mzTab-mode|Summary",
	"MTD|mzTab-type|Identification",
	"MTD|description|test file",
	"",
	"PRH|accession|description|best_search_engine_score[1]",
	"PRT|P12345|Protein A|0.9",
	"PRT|P67890|Protein B|0.8",
	"PRT|P12345|Protein A again|0.7",
	"",
	"PEH|sequence|accession|charge",
	"PEP|PEPTIDEK|P12345|2",
	"PEP|MAGIC|P67890|2",
	"",
	"PSH|sequence|PSM_ID|accession|spectra_ref",
	"PSM|PEPTIDEK|1|P12345|ms_run[1]:index=0",
	"PSM|PEPTIDEK|1|P67890|ms_run[1]:index=0",
	"PSM|OTHERK|2|P67890|ms_run[1]:index=5",
	"PSM|null|3|P67890|ms_run[1]:index=6",
)

func TestCounterCompile(t *testing.T) {
	counts, err := Counter{}.Compile(strings.NewReader(sampleMzTab))
	require.NoError(t, err)
	assert.Equal(t, Counts{Proteins: 2, Peptides: 3, PSMs: 3}, counts)
}

func TestCounterRowBeforeHeader(t *testing.T) {
	_, err := Counter{}.Compile(strings.NewReader(tsv("PSM|PEPTIDEK|1")))
	assert.Error(t, err)
}

func TestLineParserCleanFile(t *testing.T) {
	msgs, err := LineParser{}.Parse(strings.NewReader(sampleMzTab))
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestLineParserProblems(t *testing.T) {
	content := tsv(
		"MTD|mzTab-version|2.0.0-M",
		"MTD|mzTab-mode|Partial",
		"MTD|mzTab-mode|Summary",
		"MTD|missing-value",
		"XYZ|what",
		"PEP|PEPTIDEK",
		"PSH|sequence|PSM_ID",
		"PSM|PEPTIDEK",
		"PSH|sequence|PSM_ID",
		"PRH|accession",
	)
	msgs, err := LineParser{}.Parse(strings.NewReader(content))
	require.NoError(t, err)

	bySeverity := map[Severity][]string{}
	for _, m := range msgs {
		bySeverity[m.Severity] = append(bySeverity[m.Severity], m.String())
	}

	want := map[Severity][]string{
		Error: {
			`[Error] line 3: duplicate metadata key "mzTab-mode"`,
			`[Error] line 4: metadata line needs a key and a value`,
			`[Error] line 5: unknown line prefix "XYZ"`,
			`[Error] line 6: PEP line before its section header`,
			`[Error] line 8: PSM line has 2 columns, header has 3`,
			`[Error] line 9: duplicate PSH header`,
			`[Error] mandatory metadata "mzTab-type" is missing`,
			`[Error] mzTab-mode "Partial" must be Summary or Complete`,
		},
		Warn: {
			`[Warn] mandatory metadata "description" is missing`,
			`[Warn] mzTab-version "2.0.0-M" is not 1.0`,
		},
		Info: {
			`[Info] PRH section has a header but no rows`,
		},
	}
	assert.Equal(t, want, bySeverity)
}

func TestSeverityString(t *testing.T) {
	assert.Equal(t, "Error", Error.String())
	assert.Equal(t, "Warn", Warn.String())
	assert.Equal(t, "Info", Info.String())
}
