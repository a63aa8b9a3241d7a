// Package report collects the outcome of a validation run.
package report

import (
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ChrisMcGann/pxvalidator/pkg/core"
)

// Type is the severity of a message
type Type string

const (
	Error   Type = "ERROR"
	Warning Type = "WARNING"
	Info    Type = "INFO"
)

// Message is a single finding
type Message struct {
	Type    Type   `yaml:"type"`
	Message string `yaml:"message"`
}

// Report holds the messages and counts of one validated file
type Report struct {
	Messages    []Message `yaml:"messages"`
	NumProteins int       `yaml:"proteins"`
	NumPeptides int       `yaml:"peptides"`
	NumPSMs     int       `yaml:"psms"`
	NumSpectra  int       `yaml:"spectra"`
	NumFound    int       `yaml:"found_spectra"`
	NumMissing  int       `yaml:"missing_spectra"`

	// Checks are kept for the database store only
	Checks []SpectrumCheck `yaml:"-"`
}

// SpectrumCheck is the outcome of looking up one referenced spectrum
type SpectrumCheck struct {
	File        string
	DeclaredID  string
	ResolvedID  string
	Strategy    string
	Found       bool
	MSLevel     int
	PrecursorMZ float64
	Problem     string
	Peaks       []core.Peak
}

// New returns an empty report
func New() *Report {
	return &Report{Messages: []Message{}}
}

// Add records err with severity t. A nil err is ignored.
func (r *Report) Add(err error, t Type) {
	if err == nil {
		return
	}
	r.Messages = append(r.Messages, Message{Type: t, Message: err.Error()})
}

// Addf records a formatted message with severity t
func (r *Report) Addf(t Type, format string, args ...any) {
	r.Messages = append(r.Messages, Message{Type: t, Message: fmt.Sprintf(format, args...)})
}

// Count returns the number of messages of type t
func (r *Report) Count(t Type) int {
	n := 0
	for _, m := range r.Messages {
		if m.Type == t {
			n++
		}
	}
	return n
}

// AddCheck records a spectrum lookup and updates the found/missing counts
func (r *Report) AddCheck(c SpectrumCheck) {
	r.Checks = append(r.Checks, c)
	if c.Found {
		r.NumFound++
	} else {
		r.NumMissing++
	}
}

func (r *Report) HasErrors() bool {
	return r.Count(Error) > 0
}

// WriteYAML serialises the report
func (r *Report) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	return enc.Close()
}

// Summary renders the counts and messages as plain text
func (r *Report) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Number of proteins: %d\n", r.NumProteins)
	fmt.Fprintf(&b, "Number of peptides: %d\n", r.NumPeptides)
	fmt.Fprintf(&b, "Number of PSMs: %d\n", r.NumPSMs)
	if r.NumSpectra > 0 || r.NumFound > 0 || r.NumMissing > 0 {
		fmt.Fprintf(&b, "Number of spectra: %d (found %d, missing %d)\n", r.NumSpectra, r.NumFound, r.NumMissing)
	}
	fmt.Fprintf(&b, "Errors: %d, warnings: %d, info: %d\n", r.Count(Error), r.Count(Warning), r.Count(Info))
	for _, m := range r.Messages {
		fmt.Fprintf(&b, "%s: %s\n", m.Type, m.Message)
	}
	return b.String()
}
