// Package filter trims the peak list of a spectrum for display and storage
package filter

import (
	"fmt"
	"sort"

	"github.com/ChrisMcGann/pxvalidator/pkg/core"
)

// Config holds filtering configuration
type Config struct {
	TopN            int     // Keep only top N most intense peaks (0 = no limit)
	IntensityCutoff float64 // Keep only peaks at or above this % of base peak (0 = no cutoff)
	DropZero        bool    // Remove peaks with zero or negative intensity
}

// Validate rejects negative limits and cutoffs above 100%
func (c *Config) Validate() error {
	if c.TopN < 0 {
		return fmt.Errorf("top-n must not be negative, got %d", c.TopN)
	}
	if c.IntensityCutoff < 0 || c.IntensityCutoff > 100 {
		return fmt.Errorf("intensity cutoff must be between 0 and 100, got %g", c.IntensityCutoff)
	}
	return nil
}

// Apply applies all configured filters to a spectrum. The spectrum passed
// in is not modified; peaks of the result are sorted by m/z.
func (c *Config) Apply(spec *core.Spectrum) *core.Spectrum {
	out := *spec
	out.Peaks = make([]core.Peak, len(spec.Peaks))
	copy(out.Peaks, spec.Peaks)

	if c.DropZero {
		RemoveZeroIntensityPeaks(&out)
	}
	if c.IntensityCutoff > 0 {
		c.filterByIntensity(&out)
	}
	if c.TopN > 0 {
		c.filterTopN(&out)
	}

	out.SortPeaks()
	return &out
}

// filterByIntensity removes peaks below the intensity cutoff percentage
func (c *Config) filterByIntensity(spec *core.Spectrum) {
	if len(spec.Peaks) == 0 {
		return
	}

	maxIntensity := 0.0
	for _, peak := range spec.Peaks {
		if peak.Intensity > maxIntensity {
			maxIntensity = peak.Intensity
		}
	}
	threshold := (c.IntensityCutoff / 100.0) * maxIntensity

	filtered := spec.Peaks[:0]
	for _, peak := range spec.Peaks {
		if peak.Intensity >= threshold {
			filtered = append(filtered, peak)
		}
	}
	spec.Peaks = filtered
}

// filterTopN keeps only the N most intense peaks
func (c *Config) filterTopN(spec *core.Spectrum) {
	if len(spec.Peaks) <= c.TopN {
		return
	}

	sort.SliceStable(spec.Peaks, func(i, j int) bool {
		return spec.Peaks[i].Intensity > spec.Peaks[j].Intensity
	})
	spec.Peaks = spec.Peaks[:c.TopN]
}

// RemoveZeroIntensityPeaks removes peaks with zero or negative intensity
func RemoveZeroIntensityPeaks(spec *core.Spectrum) {
	filtered := spec.Peaks[:0]
	for _, peak := range spec.Peaks {
		if peak.Intensity > 0 {
			filtered = append(filtered, peak)
		}
	}
	spec.Peaks = filtered
}
