package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------- Command tree tests ----------

func TestRootCommandHasSubcommands(t *testing.T) {
	root := newRootCommand()
	names := make([]string, 0, len(root.Commands()))
	for _, cmd := range root.Commands() {
		names = append(names, cmd.Name())
	}
	for _, name := range []string{"check-mzid", "check-mztab", "list-spectra"} {
		assert.Contains(t, names, name, "missing subcommand: %s", name)
	}
}

func TestRootCommandFlags(t *testing.T) {
	root := newRootCommand()
	assert.Equal(t, "dev", root.Version)
	assert.NotNil(t, root.PersistentFlags().Lookup("config"))
	assert.NotNil(t, root.PersistentFlags().Lookup("log-level"))
}

func TestCheckMzIDCommandFlags(t *testing.T) {
	cmd := newCheckMzIDCommand()
	for _, name := range []string{"mzid", "peak", "mz-tolerance", "report", "db"} {
		assert.NotNil(t, cmd.Flags().Lookup(name), "missing flag: %s", name)
	}
}

func TestCheckMzTabCommandFlags(t *testing.T) {
	cmd := newCheckMzTabCommand()
	for _, name := range []string{"mztab", "report", "db"} {
		assert.NotNil(t, cmd.Flags().Lookup(name), "missing flag: %s", name)
	}
}

func TestListSpectraCommandFlags(t *testing.T) {
	cmd := newListSpectraCommand()
	for _, name := range []string{"peak", "format", "match", "top-n", "cutoff", "drop-zero"} {
		assert.NotNil(t, cmd.Flags().Lookup(name), "missing flag: %s", name)
	}
}

// ---------- Exit codes ----------

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "nil", err: nil, want: 0},
		{name: "report errors", err: errReportHasErrors, want: 1},
		{name: "plain error", err: errors.New("boom"), want: 1},
		{
			name: "invalid argument",
			err:  errbuilder.New().WithCode(errbuilder.CodeInvalidArgument).WithMsg("bad flag"),
			want: 2,
		},
		{
			name: "not found",
			err:  errbuilder.New().WithCode(errbuilder.CodeNotFound).WithMsg("missing file"),
			want: 5,
		},
		{
			name: "internal",
			err:  errbuilder.New().WithCode(errbuilder.CodeInternal).WithMsg("disk"),
			want: 5,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCode(tt.err))
		})
	}
}

// ---------- End to end ----------

func writeMGF(t *testing.T, dir string) string {
	t.Helper()
	var b strings.Builder
	for i := 1; i <= 3; i++ {
		fmt.Fprintf(&b, "BEGIN IONS\nTITLE=spectrum %d\nPEPMASS=%d.5\nCHARGE=2+\n100.0 10.0\n200.0 0.0\n300.0 30.0\nEND IONS\n", i, 400+i)
	}
	path := filepath.Join(dir, "run1.mgf")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestListSpectraIDs(t *testing.T) {
	peak := writeMGF(t, t.TempDir())
	out, err := run(t, "list-spectra", "--peak", peak)
	require.NoError(t, err)
	assert.Equal(t, "1\n2\n3\n", out)
}

func TestListSpectraMatch(t *testing.T) {
	peak := writeMGF(t, t.TempDir())

	out, err := run(t, "list-spectra", "--peak", peak, "--match", "scan=2", "--drop-zero")
	require.NoError(t, err)
	assert.Contains(t, out, "Title: spectrum 2")
	assert.Contains(t, out, "Matched by: exact")
	assert.Contains(t, out, "Peaks: 2\n")

	out, err = run(t, "list-spectra", "--peak", peak, "--match", "index=0", "--top-n", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "Matched by: index")
	assert.Contains(t, out, "300.0000\t30.0")

	_, err = run(t, "list-spectra", "--peak", peak, "--match", "index=3")
	assert.Equal(t, 2, ExitCode(err))

	_, err = run(t, "list-spectra", "--peak", peak, "--match", "9")
	assert.Equal(t, 5, ExitCode(err))
}

func TestListSpectraUnknownFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run1.raw")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	_, err := run(t, "list-spectra", "--peak", path)
	assert.Equal(t, 2, ExitCode(err))
}

func TestCheckMzTabWritesReport(t *testing.T) {
	dir := t.TempDir()
	mztab := filepath.Join(dir, "result.mzTab")
	content := strings.Join([]string{
		"MTD\tmzTab-version\t1.0.0",
		"MTD\tmzTab-mode\tSummary",
		"MTD\tmzTab-type\tIdentification",
		"MTD\tdescription\ttest",
		"PSH\tsequence\tPSM_ID",
		"PSM\tPEPTIDEK\t1",
	}, "\n") + "\n"
	require.NoError(t, os.WriteFile(mztab, []byte(content), 0o644))
	reportPath := filepath.Join(dir, "report.yaml")
	dbPath := filepath.Join(dir, "report.db")

	out, err := run(t, "check-mztab", "--mztab", mztab, "--report", reportPath, "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Number of PSMs: 1")

	data, err := os.ReadFile(reportPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "psms: 1")
	assert.FileExists(t, dbPath)
	assert.FileExists(t, mztab+"-mztab-errors.out")
}

func TestCheckMzTabReportsErrors(t *testing.T) {
	mztab := filepath.Join(t.TempDir(), "broken.mzTab")
	require.NoError(t, os.WriteFile(mztab, []byte("XYZ\tnothing\n"), 0o644))
	_, err := run(t, "check-mztab", "--mztab", mztab)
	assert.ErrorIs(t, err, errReportHasErrors)
	assert.Equal(t, 1, ExitCode(err))
}

func TestCheckMzIDMissingFile(t *testing.T) {
	dir := t.TempDir()
	peak := writeMGF(t, dir)
	_, err := run(t, "check-mzid", "--mzid", filepath.Join(dir, "missing.mzid"), "--peak", peak)
	assert.Equal(t, 5, ExitCode(err))
}
