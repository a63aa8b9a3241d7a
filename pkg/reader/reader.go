// Package reader defines the capability set shared by all peak-list decoders
// and the file type tags used to select one.
package reader

import (
	"errors"

	"github.com/ChrisMcGann/pxvalidator/pkg/core"
)

var (
	// ErrSpectrumNotFound means no spectrum carries the requested id
	ErrSpectrumNotFound = errors.New("reader: spectrum not found")
	// ErrInvalidIdentifier means an id or index could not be parsed into the form the reader needs
	ErrInvalidIdentifier = errors.New("reader: invalid spectrum identifier")
	// ErrIndexOutOfRange means a positional lookup fell outside the file
	ErrIndexOutOfRange = errors.New("reader: spectrum index out of range")
)

// Reader gives random access to the spectra of a single peak-list file.
//
// IDs returns the identifiers in file order; the slice is the same on every
// call and must not be modified by the caller. Indices are 0-based.
// Implementations are not safe for concurrent use.
type Reader interface {
	IDs() []string
	SpectrumByID(id string) (*core.Spectrum, error)
	SpectrumByIndex(index int) (*core.Spectrum, error)
	Close() error
}
