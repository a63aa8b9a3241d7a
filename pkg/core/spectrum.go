// Package core provides the intermediate representation (IR) models and validation logic
// for spectra read from peak-list files.
package core

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Spectrum represents a single mass spectrum as decoded from a peak-list file.
type Spectrum struct {
	ID      string // Identifier as enumerated by the reader
	Index   int    // 0-based position in the source file
	MSLevel int    // 1 = survey scan, >=2 = fragmentation scan
	Peaks   []Peak

	// Optional metadata
	Title         string
	Charge        int      // Precursor charge state (0 = unknown)
	PrecursorMZ   float64  // Precursor m/z (0 = unknown)
	RetentionTime *float64 // Seconds

	// Internal tracking
	SourceFile   string
	SourceFormat string // mgf, mzml, mzxml, pkl, ms2, pride
}

// Peak represents a single m/z, intensity pair.
type Peak struct {
	MZ        float64
	Intensity float64
}

// Modification represents a peptide modification with position and mass shift.
type Modification struct {
	Mass     float64
	Position int    // 0 for N-term, 1..len(seq) for residues, len(seq)+1 for C-term
	Name     string // Modification name (e.g., "Carbamidomethyl", "Oxidation")
}

// ValidationError represents an error found during spectrum validation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error in %s: %s", e.Field, e.Message)
}

// Validate checks that a decoded spectrum is usable as identification evidence.
func (s *Spectrum) Validate() error {
	var errs []string

	if s.MSLevel < 0 {
		errs = append(errs, "ms level must be non-negative")
	}
	if s.Charge < 0 {
		errs = append(errs, "charge must be non-negative")
	}
	if math.IsNaN(s.PrecursorMZ) || s.PrecursorMZ < 0 {
		errs = append(errs, "precursor m/z must be non-negative")
	}
	if len(s.Peaks) == 0 {
		errs = append(errs, "at least one peak is required")
	}

	for i, peak := range s.Peaks {
		if math.IsNaN(peak.MZ) || math.IsInf(peak.MZ, 0) {
			errs = append(errs, fmt.Sprintf("peak %d has invalid m/z", i))
		}
		if math.IsNaN(peak.Intensity) || math.IsInf(peak.Intensity, 0) {
			errs = append(errs, fmt.Sprintf("peak %d has invalid intensity", i))
		}
		if peak.MZ <= 0 {
			errs = append(errs, fmt.Sprintf("peak %d m/z must be positive", i))
		}
		if peak.Intensity < 0 {
			errs = append(errs, fmt.Sprintf("peak %d intensity must be non-negative", i))
		}
	}

	if !s.ArePeaksSorted() {
		errs = append(errs, "peaks must be sorted by m/z")
	}

	if len(errs) > 0 {
		return &ValidationError{
			Field:   "Spectrum " + s.Name(),
			Message: strings.Join(errs, "; "),
		}
	}

	return nil
}

// ArePeaksSorted checks if peaks are sorted by m/z in ascending order.
func (s *Spectrum) ArePeaksSorted() bool {
	for i := 1; i < len(s.Peaks); i++ {
		if s.Peaks[i].MZ < s.Peaks[i-1].MZ {
			return false
		}
	}
	return true
}

// SortPeaks sorts peaks by m/z in ascending order.
func (s *Spectrum) SortPeaks() {
	sort.Slice(s.Peaks, func(i, j int) bool {
		return s.Peaks[i].MZ < s.Peaks[j].MZ
	})
}

// IsFragmentation reports whether the spectrum is an MSn (n >= 2) scan.
func (s *Spectrum) IsFragmentation() bool {
	return s.MSLevel != 1
}

// Name returns the spectrum name in format "file#id"
func (s *Spectrum) Name() string {
	if s.SourceFile == "" {
		return s.ID
	}
	return fmt.Sprintf("%s#%s", s.SourceFile, s.ID)
}
