// Package spectra resolves spectrum references from identification files
// against the peak-list files they were produced from.
package spectra

import (
	"errors"
	"fmt"

	"github.com/ChrisMcGann/pxvalidator/pkg/reader"
	"github.com/ChrisMcGann/pxvalidator/pkg/reader/mgf"
	"github.com/ChrisMcGann/pxvalidator/pkg/reader/ms2"
	"github.com/ChrisMcGann/pxvalidator/pkg/reader/mzml"
	"github.com/ChrisMcGann/pxvalidator/pkg/reader/mzxml"
	"github.com/ChrisMcGann/pxvalidator/pkg/reader/pkl"
	"github.com/ChrisMcGann/pxvalidator/pkg/reader/pridexml"
)

var (
	// ErrNotFound means the path has no reader, no id matched unambiguously,
	// or the match was a survey (MS1) scan
	ErrNotFound = reader.ErrSpectrumNotFound
	// ErrInvalidIdentifier means an id or index is not in the form the reader needs
	ErrInvalidIdentifier = reader.ErrInvalidIdentifier
	// ErrOutOfRange means an index lookup fell outside the file
	ErrOutOfRange = reader.ErrIndexOutOfRange
	// ErrConstruction means a peak-list file could not be opened while building a pool
	ErrConstruction = errors.New("spectra: cannot open peak-list file")
)

type opener func(path string) (reader.Reader, error)

// openers is the format dispatch table. File types without an entry are
// not peak lists this package can read.
var openers = map[reader.FileType]opener{
	reader.MGF:   func(p string) (reader.Reader, error) { return mgf.Open(p) },
	reader.MZML:  func(p string) (reader.Reader, error) { return mzml.Open(p) },
	reader.MZXML: func(p string) (reader.Reader, error) { return mzxml.Open(p) },
	reader.PKL:   func(p string) (reader.Reader, error) { return pkl.Open(p) },
	reader.MS2:   func(p string) (reader.Reader, error) { return ms2.Open(p) },
	reader.PRIDE: func(p string) (reader.Reader, error) { return pridexml.Open(p) },
}

// Supported reports whether a pool can open files of type t.
func Supported(t reader.FileType) bool {
	_, ok := openers[t]
	return ok
}

// Open opens a single peak-list file outside of a pool.
func Open(path string, t reader.FileType) (reader.Reader, error) {
	open, ok := openers[t]
	if !ok {
		return nil, fmt.Errorf("%w: no reader for format %s", ErrNotFound, t)
	}
	return open(path)
}
