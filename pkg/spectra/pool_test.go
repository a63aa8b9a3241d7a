package spectra

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChrisMcGann/pxvalidator/pkg/reader"
)

func writeMGF(t *testing.T, dir, name string, titles ...string) string {
	t.Helper()
	var b strings.Builder
	for i, title := range titles {
		fmt.Fprintf(&b, "BEGIN IONS\nTITLE=%s\nPEPMASS=%d.5\nCHARGE=2+\n100.0 10.0\n200.0 20.0\nEND IONS\n\n", title, 400+i)
	}
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
	return path
}

// withOpener swaps the opener of a file type for the duration of a test.
func withOpener(t *testing.T, ft reader.FileType, open opener) {
	t.Helper()
	old, had := openers[ft]
	openers[ft] = open
	t.Cleanup(func() {
		if had {
			openers[ft] = old
		} else {
			delete(openers, ft)
		}
	})
}

func TestBuildAndLookupMGF(t *testing.T) {
	dir := t.TempDir()
	path := writeMGF(t, dir, "run1.mgf", "a", "b", "c")

	pool, err := Build([]Entry{{Path: path, Format: reader.MGF, SpectraDataRef: "SD_1"}})
	require.NoError(t, err)
	defer pool.Close()

	ids, err := pool.IDs(path)
	require.NoError(t, err)
	if diff := cmp.Diff([]string{"1", "2", "3"}, ids); diff != "" {
		t.Fatalf("unexpected ids (-want +got):\n%s", diff)
	}

	spec, err := pool.SpectrumByID(path, "scan=2")
	require.NoError(t, err)
	assert.Equal(t, "b", spec.Title)
	assert.Equal(t, 401.5, spec.PrecursorMZ)

	spec, err = pool.SpectrumByIndex(path, 0)
	require.NoError(t, err)
	assert.Equal(t, "a", spec.Title)

	ref, err := pool.SpectraDataRef(path)
	require.NoError(t, err)
	assert.Equal(t, "SD_1", ref)
}

func TestPathsCollideAfterCanonicalisation(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))
	path := writeMGF(t, dir, "run.mgf", "a")
	alias := filepath.Join(dir, "sub", "..", "run.mgf")

	pool, err := Build([]Entry{
		{Path: alias, Format: reader.MGF},
		{Path: path, Format: reader.MGF},
	})
	require.NoError(t, err)
	defer pool.Close()

	assert.Len(t, pool.Paths(), 1)
	assert.True(t, pool.Has(path))
	assert.True(t, pool.Has(alias))

	_, err = pool.SpectrumByID(alias, "1")
	require.NoError(t, err)
}

func TestUnknownFormatIsSkipped(t *testing.T) {
	dir := t.TempDir()
	good := writeMGF(t, dir, "run.mgf", "a")
	unknown := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(unknown, []byte("x"), 0o644))

	pool, err := Build([]Entry{
		{Path: unknown, Format: reader.Unknown},
		{Path: good, Format: reader.MGF},
	})
	require.NoError(t, err)
	defer pool.Close()

	assert.False(t, pool.Has(unknown))
	_, err = pool.SpectrumByID(unknown, "1")
	require.ErrorIs(t, err, ErrNotFound)
	_, err = pool.SpectrumByIndex(unknown, 0)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestBuildFailureClosesOpenedReaders(t *testing.T) {
	first := newFakeReader("1")
	withOpener(t, reader.PKL, func(string) (reader.Reader, error) { return first, nil })
	withOpener(t, reader.MS2, func(p string) (reader.Reader, error) {
		return nil, fmt.Errorf("corrupt file %s", p)
	})

	pool, err := Build([]Entry{
		{Path: "a.pkl", Format: reader.PKL},
		{Path: "b.ms2", Format: reader.MS2},
	})
	require.ErrorIs(t, err, ErrConstruction)
	assert.Nil(t, pool)
	assert.True(t, first.closed)
	assert.Equal(t, 1, strings.Count(err.Error(), "b.ms2"), err.Error())
}

func TestCorruptMGFFailsConstruction(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "broken.mgf")
	require.NoError(t, os.WriteFile(path, []byte("BEGIN IONS\nTITLE=x\n100 1\n"), 0o644))

	_, err := Build([]Entry{{Path: path, Format: reader.MGF}})
	require.ErrorIs(t, err, ErrConstruction)
}

func TestIndexLookupBounds(t *testing.T) {
	r := newFakeReader("1", "2")
	withOpener(t, reader.PKL, func(string) (reader.Reader, error) { return r, nil })

	pool, err := Build([]Entry{{Path: "a.pkl", Format: reader.PKL}})
	require.NoError(t, err)
	defer pool.Close()

	for _, index := range []int{-1, 2, 100} {
		_, err := pool.SpectrumByIndex("a.pkl", index)
		assert.ErrorIs(t, err, ErrOutOfRange, "index %d", index)
	}

	// No MS-level filter on index lookups
	r.msLevels["1"] = 1
	spec, err := pool.SpectrumByIndex("a.pkl", 0)
	require.NoError(t, err)
	assert.Equal(t, 1, spec.MSLevel)
}

func TestLookupDispatch(t *testing.T) {
	r := newFakeReader("controllerType=0 controllerNumber=1 scan=10", "controllerType=0 controllerNumber=1 scan=11")
	withOpener(t, reader.PKL, func(string) (reader.Reader, error) { return r, nil })

	pool, err := Build([]Entry{{Path: "a.pkl", Format: reader.PKL}})
	require.NoError(t, err)
	defer pool.Close()

	spec, err := pool.Lookup("a.pkl", "index=1")
	require.NoError(t, err)
	assert.Equal(t, "controllerType=0 controllerNumber=1 scan=11", spec.ID)

	spec, err = pool.Lookup("a.pkl", "scan=10")
	require.NoError(t, err)
	assert.Equal(t, 0, spec.Index)

	id, strategy, err := pool.Match("a.pkl", "scan=11")
	require.NoError(t, err)
	assert.Equal(t, "controllerType=0 controllerNumber=1 scan=11", id)
	assert.Equal(t, SubstringMatch, strategy)

	_, _, err = pool.Match("a.pkl", "scan=12")
	require.ErrorIs(t, err, ErrNotFound)

	_, err = pool.Lookup("a.pkl", "index=abc")
	require.ErrorIs(t, err, ErrInvalidIdentifier)
}

func TestIndexNativeIDsResolveByID(t *testing.T) {
	r := newFakeReader("index=0", "index=1", "index=2")
	r.msLevels["index=0"] = 1
	withOpener(t, reader.PKL, func(string) (reader.Reader, error) { return r, nil })

	pool, err := Build([]Entry{{Path: "a.pkl", Format: reader.PKL}})
	require.NoError(t, err)
	defer pool.Close()

	assert.False(t, pool.IndexRef("a.pkl", "index=1"))
	assert.True(t, pool.IndexRef("a.pkl", "index=7"))
	assert.False(t, pool.IndexRef("a.pkl", "scan=1"))

	spec, err := pool.Lookup("a.pkl", "index=1")
	require.NoError(t, err)
	assert.Equal(t, "index=1", spec.ID)
	assert.Contains(t, r.byID, "index=1")

	_, err = pool.Lookup("a.pkl", "index=0")
	require.ErrorIs(t, err, ErrNotFound)

	_, err = pool.Lookup("a.pkl", "index=7")
	require.ErrorIs(t, err, ErrOutOfRange)
}

func TestParseIndex(t *testing.T) {
	n, err := ParseIndex("index=12")
	require.NoError(t, err)
	assert.Equal(t, 12, n)

	n, err = ParseIndex(" 3 ")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	_, err = ParseIndex("scan=3")
	require.ErrorIs(t, err, ErrInvalidIdentifier)
}

func TestConcurrentLookups(t *testing.T) {
	dir := t.TempDir()
	a := writeMGF(t, dir, "a.mgf", "a1", "a2", "a3")
	b := writeMGF(t, dir, "b.mgf", "b1", "b2", "b3")

	pool, err := Build([]Entry{{Path: a, Format: reader.MGF}, {Path: b, Format: reader.MGF}})
	require.NoError(t, err)
	defer pool.Close()

	var wg sync.WaitGroup
	errs := make(chan error, 60)
	for i := 0; i < 30; i++ {
		for _, path := range []string{a, b} {
			wg.Add(1)
			go func(path string, id int) {
				defer wg.Done()
				if _, err := pool.SpectrumByID(path, fmt.Sprint(id%3+1)); err != nil {
					errs <- err
				}
			}(path, i)
		}
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

func TestCloseReleasesReaders(t *testing.T) {
	r := newFakeReader("1")
	withOpener(t, reader.PKL, func(string) (reader.Reader, error) { return r, nil })

	pool, err := Build([]Entry{{Path: "a.pkl", Format: reader.PKL}})
	require.NoError(t, err)
	require.NoError(t, pool.Close())
	assert.True(t, r.closed)

	_, err = pool.SpectrumByID("a.pkl", "1")
	require.ErrorIs(t, err, ErrNotFound)
}
