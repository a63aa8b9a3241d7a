package spectra

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/ChrisMcGann/pxvalidator/pkg/core"
	"github.com/ChrisMcGann/pxvalidator/pkg/reader"
)

const indexPrefix = "index="

// Entry names one peak-list file to open.
type Entry struct {
	Path           string
	Format         reader.FileType
	SpectraDataRef string // id of the SpectraData element that referenced the file, if any
}

// pooled is one open reader. Readers keep decoding state, so every call
// goes through mu.
type pooled struct {
	mu     sync.Mutex
	r      reader.Reader
	ids    *idIndex
	format reader.FileType
	ref    string
}

// Pool owns one reader per canonical file path. The set of readers is
// fixed by Build; lookups on different paths may run concurrently.
type Pool struct {
	readers map[string]*pooled
}

// CanonicalPath returns the key under which path is pooled, so that
// "a/b/../c" and "a/c" name the same file.
func CanonicalPath(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path)
	}
	return abs
}

// Build opens a reader for every entry. Entries whose format has no reader
// are skipped, and a path listed twice keeps its first reader. If any file
// fails to open, the readers opened so far are closed and an error
// wrapping ErrConstruction is returned.
func Build(entries []Entry) (*Pool, error) {
	p := &Pool{readers: make(map[string]*pooled, len(entries))}

	for _, e := range entries {
		key := CanonicalPath(e.Path)
		if _, dup := p.readers[key]; dup {
			log.Debug().Str("path", key).Msg("peak-list file already pooled")
			continue
		}
		open, ok := openers[e.Format]
		if !ok {
			log.Debug().
				Str("path", key).
				Stringer("format", e.Format).
				Msg("no reader for format, skipping")
			continue
		}

		r, err := open(key)
		if err != nil {
			err = fmt.Errorf("%w: %w", ErrConstruction, err)
			if closeErr := p.Close(); closeErr != nil {
				err = errors.Join(err, closeErr)
			}
			return nil, err
		}
		p.readers[key] = &pooled{
			r:      r,
			ids:    newIDIndex(r.IDs()),
			format: e.Format,
			ref:    e.SpectraDataRef,
		}
		log.Debug().
			Str("path", key).
			Stringer("format", e.Format).
			Int("spectra", len(r.IDs())).
			Msg("opened peak-list file")
	}
	return p, nil
}

// Close releases every reader in the pool.
func (p *Pool) Close() error {
	var errs []error
	for path, pr := range p.readers {
		pr.mu.Lock()
		if err := pr.r.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", path, err))
		}
		pr.mu.Unlock()
	}
	p.readers = nil
	return errors.Join(errs...)
}

func (p *Pool) lookup(path string) (*pooled, error) {
	pr, ok := p.readers[CanonicalPath(path)]
	if !ok {
		return nil, fmt.Errorf("%w: no reader for %s", ErrNotFound, path)
	}
	return pr, nil
}

// Paths returns the canonical paths of all pooled files, sorted.
func (p *Pool) Paths() []string {
	paths := make([]string, 0, len(p.readers))
	for path := range p.readers {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}

// Has reports whether path has a reader.
func (p *Pool) Has(path string) bool {
	_, ok := p.readers[CanonicalPath(path)]
	return ok
}

// Format returns the file type a path was opened as.
func (p *Pool) Format(path string) (reader.FileType, error) {
	pr, err := p.lookup(path)
	if err != nil {
		return reader.Unknown, err
	}
	return pr.format, nil
}

// SpectraDataRef returns the reference the path was registered with.
func (p *Pool) SpectraDataRef(path string) (string, error) {
	pr, err := p.lookup(path)
	if err != nil {
		return "", err
	}
	return pr.ref, nil
}

// IDs returns the spectrum ids of path in file order.
func (p *Pool) IDs(path string) ([]string, error) {
	pr, err := p.lookup(path)
	if err != nil {
		return nil, err
	}
	return pr.ids.ids, nil
}

// Match reports which reader id of path a declared id refers to, using the
// same rules as SpectrumByID but without reading the spectrum.
func (p *Pool) Match(path, declared string) (string, Strategy, error) {
	pr, err := p.lookup(path)
	if err != nil {
		return "", NoMatch, err
	}
	id, strategy, ok := pr.ids.match(declared)
	if !ok {
		return "", NoMatch, fmt.Errorf("%w: no unique match for %q", ErrNotFound, declared)
	}
	return id, strategy, nil
}

// SpectrumByID resolves a declared spectrum id against the reader for
// path. See Match for the matching rules. MS1 spectra are reported as
// ErrNotFound.
func (p *Pool) SpectrumByID(path, declared string) (*core.Spectrum, error) {
	pr, err := p.lookup(path)
	if err != nil {
		return nil, err
	}
	pr.mu.Lock()
	defer pr.mu.Unlock()
	return resolve(pr.r, pr.ids, declared)
}

// SpectrumByIndex returns the spectrum at a 0-based position of path.
func (p *Pool) SpectrumByIndex(path string, index int) (*core.Spectrum, error) {
	pr, err := p.lookup(path)
	if err != nil {
		return nil, err
	}
	pr.mu.Lock()
	defer pr.mu.Unlock()
	return pr.r.SpectrumByIndex(index)
}

// IndexRef reports whether ref addresses a spectrum of path by position.
// An "index=N" ref that is itself a native id of the file, as in files
// using the index nativeID format, is an id reference.
func (p *Pool) IndexRef(path, ref string) bool {
	if !strings.HasPrefix(ref, indexPrefix) {
		return false
	}
	pr, err := p.lookup(path)
	if err != nil {
		return true
	}
	_, native := pr.ids.exact[ref]
	return !native
}

// Lookup dispatches a spectrum reference: index references (see IndexRef)
// go to SpectrumByIndex, everything else to SpectrumByID.
func (p *Pool) Lookup(path, ref string) (*core.Spectrum, error) {
	if p.IndexRef(path, ref) {
		index, err := ParseIndex(ref)
		if err != nil {
			return nil, err
		}
		return p.SpectrumByIndex(path, index)
	}
	return p.SpectrumByID(path, ref)
}

// ParseIndex parses "12" or "index=12".
func ParseIndex(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimPrefix(strings.TrimSpace(s), indexPrefix))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidIdentifier, s)
	}
	return n, nil
}
